package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/config"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	Storefront  StorefrontConfig
	Cart        CartConfig
	Images      ImageConfig

	CustomerTokenSecret string `env:"CUSTOMER_TOKEN_SECRET"`
	MetricsEnabled      bool   `env:"METRICS_ENABLED" env-default:"true"`
}

type StorefrontConfig struct {
	APIURL            string `env:"STOREFRONT_API_URL"`
	APIToken          string `env:"STOREFRONT_API_TOKEN"`
	APIVersion        string `env:"STOREFRONT_API_VERSION" env-default:"2024-10"`
	PublicStoreDomain string `env:"PUBLIC_STORE_DOMAIN"`
	Country           string `env:"LOCALE_COUNTRY" env-default:"US"`
	Language          string `env:"LOCALE_LANGUAGE" env-default:"EN"`
}

type CartConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Schema      string `env:"DATABASE_SCHEMA" env-default:"storefront"`
}

type ImageConfig struct {
	Strategy   string `env:"IMAGE_URL_STRATEGY" env-default:"shopify"`
	CDNBaseURL string `env:"CDN_BASE_URL"`
}

// options turns the environment into config options. Without an API URL the
// seeded in-memory shop is served.
func (c Config) options() []config.Option {
	opts := []config.Option{
		config.WithEnvironment(c.Environment),
		config.WithStorefrontAPIVersion(c.Storefront.APIVersion),
		config.WithLocale(storefront.Locale{Country: c.Storefront.Country, Language: c.Storefront.Language}),
		config.WithPublicStoreDomain(c.Storefront.PublicStoreDomain),
		config.WithImageStrategy(c.Images.Strategy, c.Images.CDNBaseURL),
		config.WithCustomerTokenSecret(c.CustomerTokenSecret),
		config.WithMetrics(c.MetricsEnabled),
	}
	if c.Storefront.APIURL != "" {
		opts = append(opts, config.WithGraphQLProvider(c.Storefront.APIURL, c.Storefront.APIToken))
	}
	if c.Cart.DatabaseURL != "" {
		opts = append(opts,
			config.WithCartStore("postgres", c.Cart.DatabaseURL),
			config.WithDatabaseSchema(c.Cart.Schema),
		)
	}
	return opts
}

func main() {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(cfg.options()...)
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	storefrontServer, err := serverConfig.BuildServer(context.Background(), slog.Default())
	if err != nil {
		slog.Error("Failed to build storefront", "err", err)
		os.Exit(1)
	}
	defer storefrontServer.Service.Close()

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Mount("/api/v1", storefrontServer.Router)

	server.Run()
}
