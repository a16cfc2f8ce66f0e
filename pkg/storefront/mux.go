package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ProviderMux routes queries to providers by query name. Queries without a
// route and all cart mutations go to the fallback provider.
type ProviderMux struct {
	routes   map[string]ContentProvider
	fallback ContentProvider
}

// NewProviderMux creates a mux sending unrouted traffic to fallback.
func NewProviderMux(fallback ContentProvider) *ProviderMux {
	return &ProviderMux{routes: make(map[string]ContentProvider), fallback: fallback}
}

// Handle routes queries named name to p.
func (m *ProviderMux) Handle(name string, p ContentProvider) *ProviderMux {
	m.routes[name] = p
	return m
}

func (m *ProviderMux) Query(ctx context.Context, q Query) (*ContentDocument, error) {
	if p, ok := m.routes[q.Name]; ok {
		return p.Query(ctx, q)
	}
	if m.fallback == nil {
		return nil, fmt.Errorf("%w: no provider for %s", ErrQueryNotFound, q.Name)
	}
	return m.fallback.Query(ctx, q)
}

func (m *ProviderMux) Mutate(ctx context.Context, cartID string, mut CartMutation) (*CartSnapshot, error) {
	if m.fallback == nil {
		return nil, fmt.Errorf("%w: no provider for cart mutations", ErrUnsupported)
	}
	return m.fallback.Mutate(ctx, cartID, mut)
}

// Close closes every distinct provider that implements io.Closer.
func (m *ProviderMux) Close() error {
	seen := map[ContentProvider]struct{}{}
	var errs []error
	for _, p := range append(m.providers(), m.fallback) {
		if p == nil {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func (m *ProviderMux) providers() []ContentProvider {
	out := make([]ContentProvider, 0, len(m.routes))
	for _, p := range m.routes {
		out = append(out, p)
	}
	return out
}
