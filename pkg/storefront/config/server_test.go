package config

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildServer(t *testing.T) {
	cfg, err := Load(WithCustomerTokenSecret("secret"), WithStorefrontAPIVersion("2025-01"))
	require.NoError(t, err)
	assert.Equal(t, "2025-01", cfg.StorefrontAPIVersion)

	srv, err := cfg.BuildServer(context.Background(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Service.Close() })
	require.NotNil(t, srv.Metrics)

	for _, target := range []string{"/pages/home?await=true", "/pages/layout?await=true", "/cart", "/metrics"} {
		t.Run(target, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestBuildServer_MetricsDisabled(t *testing.T) {
	cfg, err := Load(WithMetrics(false))
	require.NoError(t, err)

	srv, err := cfg.BuildServer(context.Background(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Service.Close() })
	assert.Nil(t, srv.Metrics)

	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWithStorefrontAPIVersion_Empty(t *testing.T) {
	_, err := Load(WithStorefrontAPIVersion(""))
	assert.Error(t, err)
}
