package testutil

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-storefront/pkg/storefront/api"
	"github.com/tendant/simple-storefront/pkg/storefront/imageurl"
	"github.com/tendant/simple-storefront/pkg/storefront/presets"
)

// CustomerTokenSecret signs the customer tokens accepted by test servers.
const CustomerTokenSecret = "test-customer-secret"

// TestServer is a storefront API served over a real listener, together with
// the in-memory backends behind it.
type TestServer struct {
	*httptest.Server
	Env  *presets.TestEnv
	Auth *jwtauth.JWTAuth
}

// SetupTestServer creates a test server with all routes configured. The
// server is closed when the test completes.
func SetupTestServer(t *testing.T, opts ...presets.TestingOption) *TestServer {
	t.Helper()
	env := presets.NewTesting(t, opts...)

	auth := api.NewCustomerAuth(CustomerTokenSecret)

	router := api.NewRouter(env.Service,
		api.WithLogger(slog.New(slog.DiscardHandler)),
		api.WithImageStrategy(imageurl.NewShopifyStrategy()),
		api.WithCustomerAuth(auth),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &TestServer{Server: srv, Env: env, Auth: auth}
}

// NewClient returns a client that keeps the session cookie between requests,
// like a browser tab.
func (s *TestServer) NewClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// CustomerToken returns a signed token for customer id.
func (s *TestServer) CustomerToken(t *testing.T, id string) string {
	t.Helper()
	_, token, err := s.Auth.Encode(map[string]interface{}{"sub": id})
	if err != nil {
		t.Fatalf("failed to sign customer token: %v", err)
	}
	return token
}
