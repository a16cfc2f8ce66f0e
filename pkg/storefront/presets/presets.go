// Package presets builds ready-to-use storefront services for development
// and tests.
package presets

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/tendant/simple-storefront/pkg/storefront"
	cartmemory "github.com/tendant/simple-storefront/pkg/storefront/cartstore/memory"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/memory"
)

// NewDevelopment creates a service for local development.
//
// Features:
//   - Seeded in-memory provider (sample toy shop)
//   - In-memory cart store
//   - Optional simulated provider latency on deferred queries
//
// The returned cleanup func closes the service.
func NewDevelopment(opts ...DevelopmentOption) (storefront.Service, func(), error) {
	cfg := &devConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	provider := memory.New()
	if err := Seed(provider); err != nil {
		return nil, nil, fmt.Errorf("failed to seed provider: %w", err)
	}
	if cfg.latency > 0 {
		provider.Delay(storefront.QueryRecommendedProducts, cfg.latency)
		provider.Delay(storefront.QueryFooter, cfg.latency)
		provider.Delay(memory.MutateKey, cfg.latency)
	}

	options := []storefront.Option{
		storefront.WithProvider(provider),
		storefront.WithCartStore(cartmemory.New()),
		storefront.WithLogger(cfg.logger),
		storefront.WithPublicStoreDomain("toys.example.com"),
	}
	if cfg.logHooks {
		options = append(options, storefront.WithHooks(storefront.LoggingHook(func(format string, args ...interface{}) {
			cfg.logger.Debug(fmt.Sprintf(format, args...))
		})))
	}

	svc, err := storefront.New(options...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		svc.Close()
	}
	return svc, cleanup, nil
}

// TestEnv is a service under test together with its backing stores.
type TestEnv struct {
	Service  storefront.Service
	Provider *memory.Provider
	Carts    *cartmemory.Store
}

// NewTesting creates a service for tests. The provider is seeded with the
// sample shop unless WithoutFixtures is given. The service is closed when
// the test completes.
func NewTesting(t testing.TB, opts ...TestingOption) *TestEnv {
	t.Helper()
	cfg := &testConfig{fixtures: true}
	for _, opt := range opts {
		opt(cfg)
	}

	provider := memory.New(cfg.providerOpts...)
	if cfg.fixtures {
		if err := Seed(provider); err != nil {
			t.Fatalf("failed to seed provider: %v", err)
		}
	}
	carts := cartmemory.New()

	options := append([]storefront.Option{
		storefront.WithProvider(provider),
		storefront.WithCartStore(carts),
		storefront.WithLogger(slog.New(slog.DiscardHandler)),
	}, cfg.serviceOpts...)

	svc, err := storefront.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
	})

	return &TestEnv{Service: svc, Provider: provider, Carts: carts}
}

type devConfig struct {
	latency  time.Duration
	logHooks bool
	logger   *slog.Logger
}

type testConfig struct {
	fixtures     bool
	providerOpts []memory.Option
	serviceOpts  []storefront.Option
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevLatency delays deferred queries and cart mutations by d
func WithDevLatency(d time.Duration) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.latency = d
	}
}

// WithDevLogger sets the logger and logs every lifecycle hook at debug level
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.logger = logger
		cfg.logHooks = true
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithoutFixtures starts from an empty provider
func WithoutFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = false
	}
}

// WithProviderOptions configures the in-memory provider
func WithProviderOptions(opts ...memory.Option) TestingOption {
	return func(cfg *testConfig) {
		cfg.providerOpts = append(cfg.providerOpts, opts...)
	}
}

// WithServiceOptions adds service options such as hooks
func WithServiceOptions(opts ...storefront.Option) TestingOption {
	return func(cfg *testConfig) {
		cfg.serviceOpts = append(cfg.serviceOpts, opts...)
	}
}
