package config

import (
	"fmt"

	"github.com/tendant/simple-storefront/pkg/storefront"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithGraphQLProvider uses the Storefront API at apiURL
func WithGraphQLProvider(apiURL, token string) Option {
	return func(c *ServerConfig) error {
		if apiURL == "" || token == "" {
			return fmt.Errorf("storefront API URL and token are required")
		}
		c.Provider = "graphql"
		c.StorefrontAPIURL = apiURL
		c.StorefrontAPIToken = token
		return nil
	}
}

// WithBlobProvider serves page documents from the given blob backend
func WithBlobProvider(backend string) Option {
	return func(c *ServerConfig) error {
		c.Provider = "blob"
		c.BlobBackend = backend
		return nil
	}
}

// WithLocale sets the default buyer locale
func WithLocale(locale storefront.Locale) Option {
	return func(c *ServerConfig) error {
		if locale.IsZero() {
			return fmt.Errorf("locale cannot be empty")
		}
		c.LocaleCountry = locale.Country
		c.LocaleLanguage = locale.Language
		return nil
	}
}

// WithPublicStoreDomain sets the domain rewritten to paths in menus
func WithPublicStoreDomain(domain string) Option {
	return func(c *ServerConfig) error {
		c.PublicStoreDomain = domain
		return nil
	}
}

// WithCartStore configures the cart session store
func WithCartStore(storeType, url string) Option {
	return func(c *ServerConfig) error {
		if storeType != "memory" && storeType != "postgres" {
			return fmt.Errorf("cart store must be 'memory' or 'postgres', got: %s", storeType)
		}
		if storeType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.CartStore = storeType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithFilesystemDocuments stores published documents under dir
func WithFilesystemDocuments(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("document directory cannot be empty")
		}
		c.BlobBackend = "fs"
		c.FSBaseDir = dir
		return nil
	}
}

// WithS3Documents stores published documents in S3
func WithS3Documents(s3 S3Config) Option {
	return func(c *ServerConfig) error {
		if s3.Bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		if s3.Region == "" {
			s3.Region = "us-east-1"
		}
		c.BlobBackend = "s3"
		c.S3 = s3
		return nil
	}
}

// WithImageStrategy sets the image URL strategy
func WithImageStrategy(strategy, cdnBaseURL string) Option {
	return func(c *ServerConfig) error {
		c.ImageURLStrategy = strategy
		c.CDNBaseURL = cdnBaseURL
		return nil
	}
}

// WithCustomerTokenSecret sets the HS256 secret customer tokens are signed with
func WithCustomerTokenSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.CustomerTokenSecret = secret
		return nil
	}
}

// WithMetrics enables or disables the /metrics endpoint
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.MetricsEnabled = enabled
		return nil
	}
}

// WithHookLogging logs every service lifecycle hook at debug level
func WithHookLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableHookLogging = enabled
		return nil
	}
}

// WithStorefrontAPIVersion pins the Storefront API version
func WithStorefrontAPIVersion(version string) Option {
	return func(c *ServerConfig) error {
		if version == "" {
			return fmt.Errorf("storefront API version cannot be empty")
		}
		c.StorefrontAPIVersion = version
		return nil
	}
}
