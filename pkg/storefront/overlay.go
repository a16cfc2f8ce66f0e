package storefront

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartViewLine is a line of the derived cart. Optimistic is set when a
// pending mutation touched the line.
type CartViewLine struct {
	CartLine
	Optimistic bool `json:"optimistic"`
}

// CartView is the derived cart shown to the buyer: the latest snapshot with
// all pending mutations folded in.
type CartView struct {
	ID            string         `json:"id,omitempty"`
	CheckoutURL   string         `json:"checkoutUrl,omitempty"`
	Lines         []CartViewLine `json:"lines"`
	TotalQuantity int            `json:"totalQuantity"`
	Subtotal      Money          `json:"subtotal"`
	PendingCount  int            `json:"pendingCount"`
	UpdatedAt     time.Time      `json:"updatedAt,omitempty"`
}

// Line returns the view line with id, if any.
func (v CartView) Line(id string) (CartViewLine, bool) {
	for _, l := range v.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return CartViewLine{}, false
}

// Fold applies pending to snapshot in order and returns the derived view.
// The snapshot is not modified. Lines keep snapshot order; optimistic adds
// are appended. Lines whose quantity reaches zero are left out.
func Fold(snapshot *CartSnapshot, pending []CartMutation) CartView {
	view := CartView{PendingCount: len(pending)}
	var lines []CartViewLine
	if snapshot != nil {
		view.ID = snapshot.ID
		view.CheckoutURL = snapshot.CheckoutURL
		view.UpdatedAt = snapshot.UpdatedAt
		view.Subtotal.CurrencyCode = snapshot.Subtotal.CurrencyCode
		lines = make([]CartViewLine, 0, len(snapshot.Lines)+len(pending))
		for _, l := range snapshot.Lines {
			lines = append(lines, CartViewLine{CartLine: l})
		}
	}

	find := func(pred func(CartViewLine) bool) int {
		for i := range lines {
			if pred(lines[i]) {
				return i
			}
		}
		return -1
	}

	for _, m := range pending {
		var i int
		if m.Kind == MutationAdd {
			i = find(func(l CartViewLine) bool { return l.Merchandise.ID == m.MerchandiseID })
			if i < 0 {
				merch := Merchandise{ID: m.MerchandiseID}
				if m.Merchandise != nil {
					merch = *m.Merchandise
					merch.ID = m.MerchandiseID
				}
				lines = append(lines, CartViewLine{
					CartLine:   CartLine{ID: OptimisticLineID(m.ID), Merchandise: merch},
					Optimistic: true,
				})
				i = len(lines) - 1
			}
		} else {
			i = find(func(l CartViewLine) bool { return l.ID == m.LineID })
			if i < 0 && IsOptimisticLineID(m.LineID) && m.MerchandiseID != "" {
				// The add behind the optimistic line was confirmed first.
				i = find(func(l CartViewLine) bool { return l.Merchandise.ID == m.MerchandiseID })
			}
			if i < 0 {
				continue
			}
		}
		lines[i].Quantity = m.TargetQuantity(lines[i].Quantity)
		lines[i].Optimistic = true
	}

	view.Lines = make([]CartViewLine, 0, len(lines))
	view.Subtotal.Amount = decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		view.Lines = append(view.Lines, l)
		view.TotalQuantity += l.Quantity
		view.Subtotal = view.Subtotal.Plus(l.Merchandise.Price.Times(l.Quantity))
	}
	return view
}

// OptimisticCart is a confirmed snapshot plus the queue of mutations applied
// locally but not yet confirmed. Values are immutable; every operation
// returns a new cart.
type OptimisticCart struct {
	Snapshot *CartSnapshot  `json:"snapshot,omitempty"`
	Pending  []CartMutation `json:"pending,omitempty"`
}

// NewOptimisticCart starts an overlay on snapshot with nothing pending.
func NewOptimisticCart(snapshot *CartSnapshot) OptimisticCart {
	return OptimisticCart{Snapshot: snapshot.Clone()}
}

// View returns Fold(snapshot, pending).
func (c OptimisticCart) View() CartView {
	return Fold(c.Snapshot, c.Pending)
}

// Apply validates m, assigns it an id if it has none and appends it to the
// pending queue. A mutation aimed at an optimistic line records the line's
// merchandise so it can be resolved once the add is confirmed.
func (c OptimisticCart) Apply(m CartMutation) (OptimisticCart, error) {
	if err := m.Validate(); err != nil {
		return c, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	for _, p := range c.Pending {
		if p.ID == m.ID {
			return c, fmt.Errorf("%w: duplicate mutation id %s", ErrInvalidMutation, m.ID)
		}
	}
	if m.Kind != MutationAdd && IsOptimisticLineID(m.LineID) && m.MerchandiseID == "" {
		if line, ok := c.View().Line(m.LineID); ok {
			m.MerchandiseID = line.Merchandise.ID
		}
	}
	next := c.clone()
	next.Pending = append(next.Pending, m)
	return next, nil
}

// Reconcile folds a confirmed snapshot into the overlay.
//
// A snapshot carrying acknowledgements removes exactly the acknowledged
// mutations. Without acknowledgements a newer snapshot supersedes the whole
// queue. A snapshot older than the current one never replaces it, though its
// acknowledgements still apply. Reconcile is idempotent.
func (c OptimisticCart) Reconcile(s *CartSnapshot) OptimisticCart {
	if s == nil {
		return c
	}
	stale := c.Snapshot != nil && s.UpdatedAt.Before(c.Snapshot.UpdatedAt)
	next := OptimisticCart{Snapshot: c.Snapshot.Clone()}
	if !stale {
		next.Snapshot = s.Clone()
	}

	switch {
	case len(s.Acknowledged) > 0:
		for _, m := range c.Pending {
			if !s.Acknowledges(m.ID) {
				next.Pending = append(next.Pending, m)
			}
		}
	case stale:
		next.Pending = append(next.Pending, c.Pending...)
	case c.Snapshot == nil || s.UpdatedAt.After(c.Snapshot.UpdatedAt):
		// Newer snapshot without correlation: last write wins.
	default:
		next.Pending = append(next.Pending, c.Pending...)
	}
	return next
}

// Rebase moves the overlay onto a snapshot fetched outside the dispatch
// path. The snapshot replaces the current one unless it is older, and only
// mutations it acknowledges leave the queue; the rest still have to reach
// the provider.
func (c OptimisticCart) Rebase(s *CartSnapshot) OptimisticCart {
	if s == nil {
		return c
	}
	next := OptimisticCart{Snapshot: c.Snapshot.Clone()}
	if c.Snapshot == nil || !s.UpdatedAt.Before(c.Snapshot.UpdatedAt) {
		next.Snapshot = s.Clone()
	}
	for _, m := range c.Pending {
		if !s.Acknowledges(m.ID) {
			next.Pending = append(next.Pending, m)
		}
	}
	return next
}

// Reject drops the pending mutation id. There is no retry.
func (c OptimisticCart) Reject(id uuid.UUID) OptimisticCart {
	next := OptimisticCart{Snapshot: c.Snapshot.Clone()}
	for _, m := range c.Pending {
		if m.ID != id {
			next.Pending = append(next.Pending, m)
		}
	}
	return next
}

// Next returns the oldest pending mutation.
func (c OptimisticCart) Next() (CartMutation, bool) {
	if len(c.Pending) == 0 {
		return CartMutation{}, false
	}
	return c.Pending[0], true
}

// ResolveLine maps a mutation aimed at an optimistic line to the confirmed
// line holding the same merchandise. It reports false when no confirmed line
// exists yet.
func (c OptimisticCart) ResolveLine(m CartMutation) (CartMutation, bool) {
	if m.Kind == MutationAdd || !IsOptimisticLineID(m.LineID) {
		return m, true
	}
	if c.Snapshot == nil || m.MerchandiseID == "" {
		return m, false
	}
	for _, l := range c.Snapshot.Lines {
		if l.Merchandise.ID == m.MerchandiseID {
			m.LineID = l.ID
			return m, true
		}
	}
	return m, false
}

func (c OptimisticCart) clone() OptimisticCart {
	return OptimisticCart{
		Snapshot: c.Snapshot.Clone(),
		Pending:  append([]CartMutation(nil), c.Pending...),
	}
}
