package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/imageurl"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.Provider)
	assert.Equal(t, "memory", cfg.CartStore)
	assert.Equal(t, "memory", cfg.BlobBackend)
	assert.Equal(t, storefront.DefaultLocale, cfg.Locale())
	assert.True(t, cfg.MetricsEnabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"unknown provider", []Option{func(c *ServerConfig) error { c.Provider = "rest"; return nil }}, "provider must be"},
		{"graphql without token", []Option{func(c *ServerConfig) error { c.Provider = "graphql"; return nil }}, "storefront_api_url"},
		{"postgres without url", []Option{func(c *ServerConfig) error { c.CartStore = "postgres"; return nil }}, "database_url"},
		{"s3 without bucket", []Option{func(c *ServerConfig) error { c.BlobBackend = "s3"; return nil }}, "bucket"},
		{"cdn without base", []Option{WithImageStrategy("cdn", "")}, "cdn_base_url"},
		{"production without secret", []Option{WithEnvironment("production")}, "customer_token_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptions(t *testing.T) {
	cfg, err := Load(
		WithPort("9000"),
		WithGraphQLProvider("https://shop.example.com", "token"),
		WithLocale(storefront.Locale{Country: "CA", Language: "FR"}),
		WithCartStore("postgres", "postgres://localhost/shop"),
		WithDatabaseSchema("carts"),
		WithImageStrategy("cdn", "https://img.example.com"),
		WithMetrics(false),
	)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "graphql", cfg.Provider)
	assert.Equal(t, storefront.Locale{Country: "CA", Language: "FR"}, cfg.Locale())
	assert.Equal(t, "postgres", cfg.CartStore)
	assert.Equal(t, "carts", cfg.DBSchema)
	assert.False(t, cfg.MetricsEnabled)

	_, err = Load(WithPort(""))
	assert.Error(t, err)
	_, err = Load(WithCartStore("redis", ""))
	assert.Error(t, err)
	_, err = Load(WithS3Documents(S3Config{}))
	assert.Error(t, err)
}

func TestBuildService_Memory(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	svc, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer svc.Close()

	home, err := svc.LoadHomePage(context.Background(), storefront.Locale{})
	require.NoError(t, err)
	defer home.Discard()
	require.NotNil(t, home.FeaturedCollection)
}

func TestBuildService_BlobProvider(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(WithBlobProvider("memory"))
	require.NoError(t, err)

	svc, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	layout, err := svc.LoadLayout(ctx, storefront.LayoutRequest{})
	require.NoError(t, err)
	defer layout.Discard()
	assert.Equal(t, "Toy Store", layout.Header.Shop.Name)

	// without a live API the cart cannot be changed
	_, err = svc.ApplyCartMutation(ctx, "s1", storefront.AddLine("gid://shopify/ProductVariant/1001", 1, nil))
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))
	view, err := svc.CartView(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalQuantity)

	fsCfg, err := Load(WithBlobProvider("fs"), WithFilesystemDocuments(dir))
	require.NoError(t, err)
	store, err := fsCfg.BuildBlobStore()
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestBuildImageStrategy(t *testing.T) {
	cfg, err := Load(WithImageStrategy("passthrough", ""))
	require.NoError(t, err)
	s, err := cfg.BuildImageStrategy()
	require.NoError(t, err)
	assert.IsType(t, &imageurl.PassthroughStrategy{}, s)
}
