package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-storefront/pkg/storefront"
)

// Schema creates the cart session table in the current search path.
const Schema = `
CREATE TABLE IF NOT EXISTS storefront_cart_session (
	session_id TEXT PRIMARY KEY,
	cart_id    TEXT,
	snapshot   JSONB,
	pending    JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements storefront.CartStore using PostgreSQL
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL cart store
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL cart store with connection pool
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Migrate creates the cart session table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return s.handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return storefront.ErrSessionNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (s *Store) Get(ctx context.Context, sessionID string) (*storefront.CartSession, error) {
	query := `
		SELECT session_id, snapshot, pending, updated_at
		FROM storefront_cart_session WHERE session_id = $1`

	var (
		sess     storefront.CartSession
		snapshot []byte
		pending  []byte
	)
	err := s.db.QueryRow(ctx, query, sessionID).Scan(&sess.SessionID, &snapshot, &pending, &sess.UpdatedAt)
	if err != nil {
		return nil, s.handlePostgresError("get cart session", err)
	}

	if len(snapshot) > 0 && string(snapshot) != "null" {
		sess.Cart.Snapshot = &storefront.CartSnapshot{}
		if err := json.Unmarshal(snapshot, sess.Cart.Snapshot); err != nil {
			return nil, fmt.Errorf("decode cart snapshot: %w", err)
		}
	}
	if len(pending) > 0 {
		if err := json.Unmarshal(pending, &sess.Cart.Pending); err != nil {
			return nil, fmt.Errorf("decode pending mutations: %w", err)
		}
	}
	return &sess, nil
}

func (s *Store) Save(ctx context.Context, session *storefront.CartSession) error {
	query := `
		INSERT INTO storefront_cart_session (session_id, cart_id, snapshot, pending, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			cart_id = EXCLUDED.cart_id,
			snapshot = EXCLUDED.snapshot,
			pending = EXCLUDED.pending,
			updated_at = EXCLUDED.updated_at`

	var snapshot []byte
	if session.Cart.Snapshot != nil {
		data, err := json.Marshal(session.Cart.Snapshot)
		if err != nil {
			return fmt.Errorf("encode cart snapshot: %w", err)
		}
		snapshot = data
	}
	pending, err := json.Marshal(session.Cart.Pending)
	if err != nil {
		return fmt.Errorf("encode pending mutations: %w", err)
	}
	if session.Cart.Pending == nil {
		pending = []byte("[]")
	}

	var cartID *string
	if id := session.CartID(); id != "" {
		cartID = &id
	}

	_, err = s.db.Exec(ctx, query, session.SessionID, cartID, snapshot, pending, session.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("save cart session", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM storefront_cart_session WHERE session_id = $1`, sessionID)
	if err != nil {
		return s.handlePostgresError("delete cart session", err)
	}
	if tag.RowsAffected() == 0 {
		return storefront.ErrSessionNotFound
	}
	return nil
}
