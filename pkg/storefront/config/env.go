package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Environment variable mapping:
//
// Server:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//	METRICS_ENABLED - Serve /metrics (default: true)
//	CUSTOMER_TOKEN_SECRET - HS256 secret of customer tokens
//
// Provider:
//
//	PROVIDER - "memory" (default), "graphql" or "blob"
//	STOREFRONT_API_URL, STOREFRONT_API_TOKEN, STOREFRONT_API_VERSION
//	PUBLIC_STORE_DOMAIN - Domain rewritten to paths in menus
//	LOCALE_COUNTRY, LOCALE_LANGUAGE - Default buyer locale (default: US/EN)
//
// Cart sessions:
//
//	CART_STORE - "memory" (default) or "postgres"
//	DATABASE_URL - Postgres connection string; a postgres URL implies CART_STORE=postgres
//	DATABASE_SCHEMA - Postgres schema (default: "storefront")
//
// Documents (blob provider):
//
//	BLOB_BACKEND - "memory" (default), "fs" or "s3"
//	FS_BASE_DIR, S3_BUCKET, S3_REGION, S3_PREFIX, S3_ENDPOINT,
//	S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY, S3_USE_PATH_STYLE, S3_CREATE_BUCKET
//
// Images:
//
//	IMAGE_URL_STRATEGY - "shopify" (default), "cdn" or "passthrough"
//	CDN_BASE_URL
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		setString(prefix, "PORT", &c.Port)
		setString(prefix, "ENVIRONMENT", &c.Environment)
		setString(prefix, "CUSTOMER_TOKEN_SECRET", &c.CustomerTokenSecret)
		if err := setBool(prefix, "METRICS_ENABLED", &c.MetricsEnabled); err != nil {
			return err
		}
		if err := setBool(prefix, "HOOK_LOGGING", &c.EnableHookLogging); err != nil {
			return err
		}

		setString(prefix, "PROVIDER", &c.Provider)
		setString(prefix, "STOREFRONT_API_URL", &c.StorefrontAPIURL)
		setString(prefix, "STOREFRONT_API_TOKEN", &c.StorefrontAPIToken)
		setString(prefix, "STOREFRONT_API_VERSION", &c.StorefrontAPIVersion)
		setString(prefix, "PUBLIC_STORE_DOMAIN", &c.PublicStoreDomain)
		setString(prefix, "LOCALE_COUNTRY", &c.LocaleCountry)
		setString(prefix, "LOCALE_LANGUAGE", &c.LocaleLanguage)
		c.LocaleCountry = strings.ToUpper(c.LocaleCountry)
		c.LocaleLanguage = strings.ToUpper(c.LocaleLanguage)

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		if err := applyBlobEnv(prefix, c); err != nil {
			return err
		}

		setString(prefix, "IMAGE_URL_STRATEGY", &c.ImageURLStrategy)
		setString(prefix, "CDN_BASE_URL", &c.CDNBaseURL)
		return nil
	}
}

// applyDatabaseEnv applies cart store configuration from environment
func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	setString(prefix, "CART_STORE", &c.CartStore)
	setString(prefix, "DATABASE_SCHEMA", &c.DBSchema)

	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")
	if !hasURL || dbURL == "" || dbURL == "memory" {
		return nil
	}
	if !strings.HasPrefix(dbURL, "postgresql://") && !strings.HasPrefix(dbURL, "postgres://") {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	c.CartStore = "postgres"
	c.DatabaseURL = dbURL
	return nil
}

// applyBlobEnv applies document store configuration from environment
func applyBlobEnv(prefix string, c *ServerConfig) error {
	setString(prefix, "BLOB_BACKEND", &c.BlobBackend)
	setString(prefix, "FS_BASE_DIR", &c.FSBaseDir)

	setString(prefix, "S3_BUCKET", &c.S3.Bucket)
	setString(prefix, "S3_REGION", &c.S3.Region)
	setString(prefix, "S3_PREFIX", &c.S3.Prefix)
	setString(prefix, "S3_ENDPOINT", &c.S3.Endpoint)
	setString(prefix, "S3_ACCESS_KEY_ID", &c.S3.AccessKeyID)
	setString(prefix, "S3_SECRET_ACCESS_KEY", &c.S3.SecretAccessKey)
	if err := setBool(prefix, "S3_USE_PATH_STYLE", &c.S3.UsePathStyle); err != nil {
		return err
	}
	if err := setBool(prefix, "S3_CREATE_BUCKET", &c.S3.CreateBucket); err != nil {
		return err
	}

	// Fall back to the standard AWS variables
	if c.S3.AccessKeyID == "" {
		c.S3.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if c.S3.SecretAccessKey == "" {
		c.S3.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		if _, ok := lookupEnv(prefix, "S3_REGION"); !ok {
			c.S3.Region = region
		}
	}
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func setString(prefix, key string, dst *string) {
	if v, ok := lookupEnv(prefix, key); ok && v != "" {
		*dst = v
	}
}

func setBool(prefix, key string, dst *bool) error {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	*dst = parsed
	return nil
}
