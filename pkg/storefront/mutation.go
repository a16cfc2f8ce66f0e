package storefront

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MutationKind identifies a cart mutation.
type MutationKind string

const (
	MutationAdd    MutationKind = "add"
	MutationUpdate MutationKind = "update"
	MutationAdjust MutationKind = "adjust"
	MutationRemove MutationKind = "remove"
)

// optimisticLinePrefix marks lines that exist only in the derived view.
const optimisticLinePrefix = "optimistic-"

// CartMutation is a client-originated change to a cart line. ID correlates
// the mutation with the snapshot that acknowledges it.
//
// Update sets an absolute quantity; Adjust applies a signed delta.
type CartMutation struct {
	ID            uuid.UUID    `json:"id"`
	Kind          MutationKind `json:"kind"`
	LineID        string       `json:"line_id,omitempty"`
	MerchandiseID string       `json:"merchandise_id,omitempty"`
	Merchandise   *Merchandise `json:"merchandise,omitempty"`
	Quantity      int          `json:"quantity,omitempty"`
	Delta         int          `json:"delta,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AddLine adds qty of a merchandise to the cart. merch is optional and only
// used to render the optimistic line.
func AddLine(merchandiseID string, qty int, merch *Merchandise) CartMutation {
	return newMutation(CartMutation{Kind: MutationAdd, MerchandiseID: merchandiseID, Quantity: qty, Merchandise: merch})
}

// UpdateLine sets the quantity of a line.
func UpdateLine(lineID string, qty int) CartMutation {
	return newMutation(CartMutation{Kind: MutationUpdate, LineID: lineID, Quantity: qty})
}

// AdjustLine changes the quantity of a line by delta.
func AdjustLine(lineID string, delta int) CartMutation {
	return newMutation(CartMutation{Kind: MutationAdjust, LineID: lineID, Delta: delta})
}

// RemoveLine removes a line.
func RemoveLine(lineID string) CartMutation {
	return newMutation(CartMutation{Kind: MutationRemove, LineID: lineID})
}

func newMutation(m CartMutation) CartMutation {
	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC()
	return m
}

// Validate checks the mutation's fields for its kind.
func (m CartMutation) Validate() error {
	switch m.Kind {
	case MutationAdd:
		if m.MerchandiseID == "" {
			return fmt.Errorf("%w: merchandise id is required", ErrInvalidMutation)
		}
		if m.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidMutation, m.Quantity)
		}
	case MutationUpdate:
		if m.LineID == "" {
			return fmt.Errorf("%w: line id is required", ErrInvalidMutation)
		}
		if m.Quantity < 0 {
			return fmt.Errorf("%w: quantity must not be negative, got %d", ErrInvalidMutation, m.Quantity)
		}
	case MutationAdjust:
		if m.LineID == "" {
			return fmt.Errorf("%w: line id is required", ErrInvalidMutation)
		}
		if m.Delta == 0 {
			return fmt.Errorf("%w: delta must not be zero", ErrInvalidMutation)
		}
	case MutationRemove:
		if m.LineID == "" {
			return fmt.Errorf("%w: line id is required", ErrInvalidMutation)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMutation, m.Kind)
	}
	return nil
}

// OptimisticLineID is the view line id of a not yet confirmed add.
func OptimisticLineID(id uuid.UUID) string {
	return optimisticLinePrefix + id.String()
}

// IsOptimisticLineID reports whether lineID names a view-only line.
func IsOptimisticLineID(lineID string) bool {
	return strings.HasPrefix(lineID, optimisticLinePrefix)
}

// TargetQuantity returns the quantity the line ends at when m is applied to
// a line currently holding current.
func (m CartMutation) TargetQuantity(current int) int {
	switch m.Kind {
	case MutationAdd:
		return current + m.Quantity
	case MutationUpdate:
		return max(0, m.Quantity)
	case MutationAdjust:
		return max(0, current+m.Delta)
	case MutationRemove:
		return 0
	}
	return current
}
