package main

import (
	"testing"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/config"
)

func TestConfigOptions_Defaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	serverConfig, err := config.Load(cfg.options()...)
	require.NoError(t, err)

	assert.Equal(t, "memory", serverConfig.Provider)
	assert.Equal(t, "memory", serverConfig.CartStore)
	assert.Equal(t, storefront.DefaultLocale, serverConfig.Locale())
	assert.True(t, serverConfig.MetricsEnabled)
}

func TestConfigOptions_FromEnv(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://toys.myshopify.com")
	t.Setenv("STOREFRONT_API_TOKEN", "public-token")
	t.Setenv("STOREFRONT_API_VERSION", "2025-01")
	t.Setenv("LOCALE_COUNTRY", "CA")
	t.Setenv("LOCALE_LANGUAGE", "FR")
	t.Setenv("DATABASE_URL", "postgres://localhost/storefront")
	t.Setenv("METRICS_ENABLED", "false")

	var cfg Config
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	serverConfig, err := config.Load(cfg.options()...)
	require.NoError(t, err)

	assert.Equal(t, "graphql", serverConfig.Provider)
	assert.Equal(t, "2025-01", serverConfig.StorefrontAPIVersion)
	assert.Equal(t, storefront.Locale{Country: "CA", Language: "FR"}, serverConfig.Locale())
	assert.Equal(t, "postgres", serverConfig.CartStore)
	assert.Equal(t, "storefront", serverConfig.DBSchema)
	assert.False(t, serverConfig.MetricsEnabled)
}
