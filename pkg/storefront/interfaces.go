package storefront

import (
	"context"
	"io"
	"time"
)

// ContentProvider executes named queries and cart mutations against the
// commerce platform.
type ContentProvider interface {
	// Query executes q and returns its document
	Query(ctx context.Context, q Query) (*ContentDocument, error)

	// Mutate applies m to cartID and returns the confirmed snapshot. An empty
	// cartID creates a new cart.
	Mutate(ctx context.Context, cartID string, m CartMutation) (*CartSnapshot, error)
}

// CartStore persists the optimistic cart of each session
type CartStore interface {
	Get(ctx context.Context, sessionID string) (*CartSession, error)
	Save(ctx context.Context, session *CartSession) error
	Delete(ctx context.Context, sessionID string) error
}

// BlobStore defines the interface for document storage backends
type BlobStore interface {
	// Get opens the object at key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put stores the content of reader at key
	Put(ctx context.Context, key string, reader io.Reader) error

	// Delete removes the object at key
	Delete(ctx context.Context, key string) error

	// Stat returns metadata for the object at key
	Stat(ctx context.Context, key string) (*ObjectMeta, error)
}

// ObjectMeta describes a stored blob
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// CartSession is the persisted overlay state of one client session.
type CartSession struct {
	SessionID string         `json:"session_id"`
	Cart      OptimisticCart `json:"cart"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CartID returns the provider cart id of the session, or "".
func (s *CartSession) CartID() string {
	if s == nil || s.Cart.Snapshot == nil {
		return ""
	}
	return s.Cart.Snapshot.ID
}

// Clone returns a deep copy of the session.
func (s *CartSession) Clone() *CartSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Cart = s.Cart.clone()
	return &c
}
