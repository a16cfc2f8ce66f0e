package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/api"
	"github.com/tendant/simple-storefront/pkg/storefront/metrics"
)

// Server is a built storefront service together with its HTTP API.
type Server struct {
	Service storefront.Service
	Router  chi.Router
	Metrics *metrics.Collector // nil when metrics are disabled
}

// BuildServer builds the service and mounts the HTTP API over it. Metrics
// hooks and the /metrics route are wired when metrics are enabled.
func (c *ServerConfig) BuildServer(ctx context.Context, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	images, err := c.BuildImageStrategy()
	if err != nil {
		return nil, fmt.Errorf("failed to build image strategy: %w", err)
	}

	routerOpts := []api.RouterOption{
		api.WithLogger(logger),
		api.WithImageStrategy(images),
		api.WithSecureCookies(c.Environment == "production"),
	}
	if ja := api.NewCustomerAuth(c.CustomerTokenSecret); ja != nil {
		routerOpts = append(routerOpts, api.WithCustomerAuth(ja))
	}

	var (
		serviceOpts []storefront.Option
		collector   *metrics.Collector
	)
	if c.MetricsEnabled {
		collector = metrics.New()
		routerOpts = append(routerOpts, api.WithMetrics(collector))
		serviceOpts = append(serviceOpts, storefront.WithHooks(storefront.MetricsHook(collector)))
	}

	svc, err := c.BuildService(ctx, logger, serviceOpts...)
	if err != nil {
		return nil, err
	}

	return &Server{
		Service: svc,
		Router:  api.NewRouter(svc, routerOpts...),
		Metrics: collector,
	}, nil
}
