package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-storefront/pkg/storefront"
	cartmemory "github.com/tendant/simple-storefront/pkg/storefront/cartstore/memory"
	cartpg "github.com/tendant/simple-storefront/pkg/storefront/cartstore/postgres"
	"github.com/tendant/simple-storefront/pkg/storefront/imageurl"
	"github.com/tendant/simple-storefront/pkg/storefront/presets"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/blob"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/graphql"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/memory"
	fsstorage "github.com/tendant/simple-storefront/pkg/storefront/storage/fs"
	memorystorage "github.com/tendant/simple-storefront/pkg/storefront/storage/memory"
	s3storage "github.com/tendant/simple-storefront/pkg/storefront/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                 "8080",
		Environment:          "development",
		Provider:             "memory",
		StorefrontAPIVersion: graphql.DefaultAPIVersion,
		LocaleCountry:        storefront.DefaultLocale.Country,
		LocaleLanguage:       storefront.DefaultLocale.Language,
		CartStore:            "memory",
		DBSchema:             "storefront",
		BlobBackend:          "memory",
		FSBaseDir:            "./data/documents",
		S3: S3Config{
			Region: "us-east-1",
		},
		ImageURLStrategy: string(imageurl.StrategyTypeShopify),
		MetricsEnabled:   true,
	}
}

// ServerConfig represents server configuration for the storefront service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Content provider
	Provider             string // "memory", "graphql", "blob"
	StorefrontAPIURL     string
	StorefrontAPIToken   string
	StorefrontAPIVersion string
	PublicStoreDomain    string
	LocaleCountry        string
	LocaleLanguage       string

	// Cart sessions
	CartStore   string // "memory", "postgres"
	DatabaseURL string
	DBSchema    string // Postgres schema to use (default: storefront)

	// Published documents for the blob provider
	BlobBackend string // "memory", "fs", "s3"
	FSBaseDir   string
	S3          S3Config

	// Rendering
	ImageURLStrategy string // "shopify", "cdn", "passthrough"
	CDNBaseURL       string

	// Server options
	CustomerTokenSecret string
	MetricsEnabled      bool
	EnableHookLogging   bool
}

// S3Config holds the S3 document store settings
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	CreateBucket    bool
}

// Locale returns the configured default buyer locale.
func (c *ServerConfig) Locale() storefront.Locale {
	return storefront.Locale{Country: c.LocaleCountry, Language: c.LocaleLanguage}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Provider {
	case "memory", "blob":
	case "graphql":
		if c.StorefrontAPIURL == "" || c.StorefrontAPIToken == "" {
			return errors.New("storefront_api_url and storefront_api_token are required for the graphql provider")
		}
	default:
		return fmt.Errorf("provider must be 'memory', 'graphql' or 'blob', got '%s'", c.Provider)
	}

	if c.CartStore != "memory" && c.CartStore != "postgres" {
		return errors.New("cart_store must be 'memory' or 'postgres'")
	}
	if c.CartStore == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.BlobBackend {
	case "memory", "fs":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("unsupported blob backend: %s", c.BlobBackend)
	}

	if c.ImageURLStrategy == string(imageurl.StrategyTypeCDN) && c.CDNBaseURL == "" {
		return errors.New("cdn_base_url is required for the cdn image strategy")
	}

	if c.Environment == "production" && c.CustomerTokenSecret == "" {
		return errors.New("customer_token_secret is required in production")
	}

	return nil
}

// BuildService creates a Service instance from the server configuration.
// extra options are applied after the configured ones.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger, extra ...storefront.Option) (storefront.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := c.BuildProvider(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider: %w", err)
	}

	carts, err := c.BuildCartStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build cart store: %w", err)
	}

	options := []storefront.Option{
		storefront.WithProvider(provider),
		storefront.WithCartStore(carts),
		storefront.WithLogger(logger),
		storefront.WithLocale(c.Locale()),
		storefront.WithPublicStoreDomain(c.PublicStoreDomain),
	}
	if c.EnableHookLogging {
		options = append(options, storefront.WithHooks(storefront.LoggingHook(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...))
		})))
	}
	options = append(options, extra...)

	return storefront.New(options...)
}

// BuildProvider creates the configured content provider
func (c *ServerConfig) BuildProvider(ctx context.Context, logger *slog.Logger) (storefront.ContentProvider, error) {
	switch c.Provider {
	case "memory":
		p := memory.New()
		if err := presets.Seed(p); err != nil {
			return nil, err
		}
		return p, nil

	case "graphql":
		return c.buildGraphQL(logger)

	case "blob":
		store, err := c.BuildBlobStore()
		if err != nil {
			return nil, err
		}
		docs, err := blob.New(store, blob.WithLocale(c.Locale()))
		if err != nil {
			return nil, err
		}
		if c.BlobBackend == "memory" {
			if err := presets.Publish(ctx, docs, c.Locale()); err != nil {
				return nil, err
			}
		}

		// Published documents serve the pages; the cart stays with the
		// live API when one is configured.
		var fallback storefront.ContentProvider
		if c.StorefrontAPIURL != "" && c.StorefrontAPIToken != "" {
			fallback, err = c.buildGraphQL(logger)
			if err != nil {
				return nil, err
			}
		}
		mux := storefront.NewProviderMux(fallback)
		for _, name := range []string{
			storefront.QueryFeaturedCollection,
			storefront.QueryRecommendedProducts,
			storefront.QueryHeader,
			storefront.QueryFooter,
		} {
			mux.Handle(name, docs)
		}
		return mux, nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", c.Provider)
	}
}

func (c *ServerConfig) buildGraphQL(logger *slog.Logger) (*graphql.Client, error) {
	return graphql.New(c.StorefrontAPIURL, c.StorefrontAPIToken,
		graphql.WithAPIVersion(c.StorefrontAPIVersion),
		graphql.WithLogger(logger),
	)
}

// BuildCartStore creates the configured cart session store
func (c *ServerConfig) BuildCartStore(ctx context.Context) (storefront.CartStore, error) {
	switch c.CartStore {
	case "memory":
		return cartmemory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		store := cartpg.NewWithPool(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cart store: %s", c.CartStore)
	}
}

// BuildBlobStore creates the configured document store
func (c *ServerConfig) BuildBlobStore() (storefront.BlobStore, error) {
	switch c.BlobBackend {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: c.FSBaseDir})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			Prefix:                 c.S3.Prefix,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", c.BlobBackend)
	}
}

// BuildImageStrategy creates the configured image URL strategy
func (c *ServerConfig) BuildImageStrategy() (imageurl.Strategy, error) {
	return imageurl.NewStrategy(imageurl.Config{
		Type:       imageurl.StrategyType(c.ImageURLStrategy),
		CDNBaseURL: c.CDNBaseURL,
	})
}

// PingPostgres verifies connectivity to Postgres and that schema exists.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
