package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-storefront/pkg/storefront"
)

// MutateKey names cart mutations for Delay.
const MutateKey = "cart.mutate"

// Provider implements storefront.ContentProvider over seeded in-memory
// documents and carts. Failures and latency can be injected per query.
type Provider struct {
	mu           sync.RWMutex
	documents    map[string]json.RawMessage
	carts        map[string]*storefront.CartSnapshot
	catalog      map[string]storefront.Merchandise
	failures     map[string]error
	delays       map[string]time.Duration
	calls        map[string]int
	mutationFail func(storefront.CartMutation) error
	acknowledge  bool
	nextLine     int
	now          func() time.Time
}

// Option configures a Provider
type Option func(*Provider)

// WithoutAcknowledgements makes Mutate return snapshots that do not list
// the mutation id, like providers without client correlation.
func WithoutAcknowledgements() Option {
	return func(p *Provider) {
		p.acknowledge = false
	}
}

// WithClock sets the clock used for cart timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New creates an empty in-memory provider
func New(opts ...Option) *Provider {
	p := &Provider{
		documents:   make(map[string]json.RawMessage),
		carts:       make(map[string]*storefront.CartSnapshot),
		catalog:     make(map[string]storefront.Merchandise),
		failures:    make(map[string]error),
		delays:      make(map[string]time.Duration),
		calls:       make(map[string]int),
		acknowledge: true,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetDocument stores v as the payload of query name.
func (p *Provider) SetDocument(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents[name] = data
	return nil
}

// SetCart stores a copy of cart.
func (p *Provider) SetCart(cart *storefront.CartSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := cart.Clone()
	c.Acknowledged = nil
	p.carts[c.ID] = c
}

// Cart returns a copy of the stored cart id.
func (p *Provider) Cart(id string) (*storefront.CartSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.carts[id]
	return c.Clone(), ok
}

// AddMerchandise makes m available to cart adds.
func (p *Provider) AddMerchandise(m storefront.Merchandise) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalog[m.ID] = m
}

// Fail makes query name fail with err. A nil err clears the failure.
func (p *Provider) Fail(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, name)
		return
	}
	p.failures[name] = err
}

// Delay makes query name, or MutateKey, take at least d.
func (p *Provider) Delay(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays[name] = d
}

// FailMutations installs fn to decide whether a mutation is rejected.
func (p *Provider) FailMutations(fn func(storefront.CartMutation) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mutationFail = fn
}

// Calls returns how often query name, or MutateKey, was executed.
func (p *Provider) Calls(name string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls[name]
}

func (p *Provider) begin(ctx context.Context, name string) error {
	p.mu.Lock()
	p.calls[name]++
	delay := p.delays[name]
	p.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) Query(ctx context.Context, q storefront.Query) (*storefront.ContentDocument, error) {
	if err := p.begin(ctx, q.Name); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.failures[q.Name]; err != nil {
		return nil, err
	}

	if q.Name == storefront.QueryCart {
		id := q.StringVar("cartId")
		cart, ok := p.carts[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", storefront.ErrCartNotFound, id)
		}
		return storefront.NewContentDocument(q.Name, cart)
	}

	data, ok := p.documents[q.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storefront.ErrQueryNotFound, q.Name)
	}
	return &storefront.ContentDocument{
		Query:      q.Name,
		Data:       append(json.RawMessage(nil), data...),
		ReceivedAt: p.now(),
	}, nil
}

func (p *Provider) Mutate(ctx context.Context, cartID string, m storefront.CartMutation) (*storefront.CartSnapshot, error) {
	if err := p.begin(ctx, MutateKey); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mutationFail != nil {
		if err := p.mutationFail(m); err != nil {
			return nil, err
		}
	}

	var cart *storefront.CartSnapshot
	if cartID == "" {
		cart = &storefront.CartSnapshot{
			ID:          "gid://shopify/Cart/" + uuid.NewString(),
			CheckoutURL: "/cart/c/" + uuid.NewString(),
		}
	} else {
		stored, ok := p.carts[cartID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", storefront.ErrCartNotFound, cartID)
		}
		cart = stored.Clone()
	}

	if err := p.apply(cart, m); err != nil {
		return nil, err
	}
	cart.Totals()
	cart.UpdatedAt = p.tick(cart.UpdatedAt)
	cart.Acknowledged = nil
	p.carts[cart.ID] = cart

	out := cart.Clone()
	if p.acknowledge {
		out.Acknowledged = []uuid.UUID{m.ID}
	}
	return out, nil
}

func (p *Provider) apply(cart *storefront.CartSnapshot, m storefront.CartMutation) error {
	if m.Kind == storefront.MutationAdd {
		for i := range cart.Lines {
			if cart.Lines[i].Merchandise.ID == m.MerchandiseID {
				cart.Lines[i].Quantity += m.Quantity
				return nil
			}
		}
		merch, ok := p.catalog[m.MerchandiseID]
		if !ok {
			if m.Merchandise == nil {
				return fmt.Errorf("merchandise %s does not exist", m.MerchandiseID)
			}
			merch = *m.Merchandise
			merch.ID = m.MerchandiseID
		}
		p.nextLine++
		cart.Lines = append(cart.Lines, storefront.CartLine{
			ID:          fmt.Sprintf("gid://shopify/CartLine/%d", p.nextLine),
			Quantity:    m.Quantity,
			Merchandise: merch,
		})
		return nil
	}

	for i := range cart.Lines {
		if cart.Lines[i].ID != m.LineID {
			continue
		}
		qty := m.TargetQuantity(cart.Lines[i].Quantity)
		if qty == 0 {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		} else {
			cart.Lines[i].Quantity = qty
		}
		return nil
	}
	return fmt.Errorf("cart line %s does not exist", m.LineID)
}

// tick returns a timestamp strictly after prev.
func (p *Provider) tick(prev time.Time) time.Time {
	now := p.now()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}
