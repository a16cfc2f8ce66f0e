package storefront

import "context"

// Service is the main interface of the storefront data tier
type Service interface {
	// Page loading
	Load(ctx context.Context, specs ...QuerySpec) (*LoadResult, error)
	LoadHomePage(ctx context.Context, locale Locale) (*HomePage, error)
	LoadLayout(ctx context.Context, req LayoutRequest) (*Layout, error)

	// Cart overlay
	CartView(ctx context.Context, sessionID string) (*CartView, error)
	ApplyCartMutation(ctx context.Context, sessionID string, m CartMutation) (*CartView, error)
	RefreshCart(ctx context.Context, sessionID string) (*CartView, error)

	// Drain waits until no session has cart mutations in flight
	Drain(ctx context.Context) error

	// Close drains in-flight mutations and refuses new ones
	Close() error
}
