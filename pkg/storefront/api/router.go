package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/imageurl"
	"github.com/tendant/simple-storefront/pkg/storefront/metrics"
)

type routerConfig struct {
	logger        *slog.Logger
	images        imageurl.Strategy
	metrics       *metrics.Collector
	customerAuth  *jwtauth.JWTAuth
	secureCookies bool
}

// RouterOption configures NewRouter
type RouterOption func(*routerConfig)

// WithLogger sets the logger for requests and handlers
func WithLogger(logger *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		c.logger = logger
	}
}

// WithImageStrategy sets how card image URLs are built
func WithImageStrategy(images imageurl.Strategy) RouterOption {
	return func(c *routerConfig) {
		c.images = images
	}
}

// WithMetrics records request metrics and serves them on /metrics
func WithMetrics(collector *metrics.Collector) RouterOption {
	return func(c *routerConfig) {
		c.metrics = collector
	}
}

// WithCustomerAuth verifies customer tokens with ja
func WithCustomerAuth(ja *jwtauth.JWTAuth) RouterOption {
	return func(c *routerConfig) {
		c.customerAuth = ja
	}
}

// WithSecureCookies marks the session cookie Secure
func WithSecureCookies(secure bool) RouterOption {
	return func(c *routerConfig) {
		c.secureCookies = secure
	}
}

// NewRouter builds the storefront HTTP API:
//
//	GET    /pages/home
//	GET    /pages/layout
//	GET    /cart
//	POST   /cart/refresh
//	POST   /cart/lines
//	PATCH  /cart/lines/{lineID}
//	DELETE /cart/lines/{lineID}
//	GET    /metrics (with WithMetrics)
func NewRouter(service storefront.Service, opts ...RouterOption) chi.Router {
	cfg := &routerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(cfg.logger))
	r.Use(LoggingMiddleware(cfg.logger))
	if cfg.metrics != nil {
		r.Use(MetricsMiddleware(cfg.metrics))
		r.Method(http.MethodGet, "/metrics", cfg.metrics.Handler())
	}

	pages := NewPageHandler(service, cfg.images, cfg.logger)
	cart := NewCartHandler(service, cfg.logger)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.secureCookies))
		if cfg.customerAuth != nil {
			r.Use(CustomerVerifier(cfg.customerAuth))
		}
		r.Mount("/pages", pages.Routes())
		r.Mount("/cart", cart.Routes())
	})

	return r
}
