// Package blob serves pre-rendered content documents from a BlobStore.
// It is read-only: cart queries and mutations are not supported.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/objectkey"
)

// Provider implements storefront.ContentProvider over a blob store
type Provider struct {
	store     storefront.BlobStore
	keys      objectkey.Generator
	locale    storefront.Locale
	now       func() time.Time
	maxLength int64
}

// Option configures a Provider
type Option func(*Provider)

// WithKeyGenerator sets how queries map to blob keys
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(p *Provider) {
		p.keys = g
	}
}

// WithLocale sets the locale used when a query carries none
func WithLocale(l storefront.Locale) Option {
	return func(p *Provider) {
		p.locale = l
	}
}

// WithMaxDocumentSize caps how many bytes a document may have
func WithMaxDocumentSize(n int64) Option {
	return func(p *Provider) {
		p.maxLength = n
	}
}

// New creates a provider reading from store
func New(store storefront.BlobStore, opts ...Option) (*Provider, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	p := &Provider{
		store:     store,
		keys:      objectkey.NewRecommendedGenerator(),
		locale:    storefront.DefaultLocale,
		now:       func() time.Time { return time.Now().UTC() },
		maxLength: 4 << 20,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Key returns the blob key q is served from.
func (p *Provider) Key(q storefront.Query) string {
	return p.keys.GenerateKey(q, p.queryLocale(q))
}

func (p *Provider) queryLocale(q storefront.Query) storefront.Locale {
	l := storefront.Locale{Country: q.StringVar("country"), Language: q.StringVar("language")}
	if l.Country == "" {
		l.Country = p.locale.Country
	}
	if l.Language == "" {
		l.Language = p.locale.Language
	}
	return l
}

func (p *Provider) Query(ctx context.Context, q storefront.Query) (*storefront.ContentDocument, error) {
	if q.Name == storefront.QueryCart {
		return nil, p.wrap("query", fmt.Errorf("%w: cart queries", storefront.ErrUnsupported))
	}

	key := p.Key(q)
	reader, err := p.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storefront.ErrObjectNotFound) {
			return nil, p.wrap("query", fmt.Errorf("%w: %s at %s", storefront.ErrQueryNotFound, q.Name, key))
		}
		return nil, p.wrap("query", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, p.maxLength+1))
	if err != nil {
		return nil, p.wrap("query", fmt.Errorf("read %s: %w", key, err))
	}
	if int64(len(data)) > p.maxLength {
		return nil, p.wrap("query", fmt.Errorf("document %s exceeds %d bytes", key, p.maxLength))
	}
	if !json.Valid(data) {
		return nil, p.wrap("query", fmt.Errorf("document %s is not valid JSON", key))
	}

	return &storefront.ContentDocument{
		Query:      q.Name,
		Data:       json.RawMessage(data),
		ReceivedAt: p.now(),
	}, nil
}

func (p *Provider) Mutate(ctx context.Context, cartID string, m storefront.CartMutation) (*storefront.CartSnapshot, error) {
	return nil, p.wrap("mutate", fmt.Errorf("%w: read-only provider", storefront.ErrUnsupported))
}

// Publish encodes v and stores it as the document for q.
func (p *Provider) Publish(ctx context.Context, q storefront.Query, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", q.Name, err)
	}
	if err := p.store.Put(ctx, p.Key(q), bytes.NewReader(data)); err != nil {
		return p.wrap("publish", err)
	}
	return nil
}

// Unpublish removes the document for q.
func (p *Provider) Unpublish(ctx context.Context, q storefront.Query) error {
	if err := p.store.Delete(ctx, p.Key(q)); err != nil {
		return p.wrap("unpublish", err)
	}
	return nil
}

func (p *Provider) wrap(op string, err error) error {
	return &storefront.ProviderError{Provider: "blob", Op: op, Err: err}
}
