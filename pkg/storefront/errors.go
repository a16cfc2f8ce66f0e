package storefront

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrCriticalLoadFailed indicates a critical page query failed and the
	// page cannot render
	ErrCriticalLoadFailed = errors.New("critical load failed")

	// ErrDeferredLoadFailed indicates a deferred page query failed; the
	// section renders as unavailable
	ErrDeferredLoadFailed = errors.New("deferred load failed")

	// ErrMutationRejected indicates the provider refused a cart mutation
	ErrMutationRejected = errors.New("mutation rejected")

	// ErrInvalidMutation indicates a malformed cart mutation
	ErrInvalidMutation = errors.New("invalid mutation")

	// ErrInvalidQuery indicates a malformed query set
	ErrInvalidQuery = errors.New("invalid query")

	// ErrQueryNotFound indicates the provider has no document for a query
	ErrQueryNotFound = errors.New("query not found")

	// ErrCartNotFound indicates the provider has no cart with the given id
	ErrCartNotFound = errors.New("cart not found")

	// ErrSessionNotFound indicates no cart session is stored for a session id
	ErrSessionNotFound = errors.New("session not found")

	// ErrObjectNotFound indicates a blob store has no object at a key
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnsupported indicates the provider does not support the operation
	ErrUnsupported = errors.New("operation not supported")
)

// LoadError represents a failed page query
type LoadError struct {
	Key      string
	Query    string
	Priority Priority
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s query %s (%s) failed: %v", e.Priority, e.Key, e.Query, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches the taxonomy sentinel for the error's priority.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrCriticalLoadFailed:
		return e.Priority == PriorityCritical
	case ErrDeferredLoadFailed:
		return e.Priority == PriorityDeferred
	}
	return false
}

// MutationError represents a cart mutation the provider did not apply
type MutationError struct {
	MutationID uuid.UUID
	Kind       MutationKind
	Err        error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("cart mutation %s (%s) rejected: %v", e.MutationID, e.Kind, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is matches ErrMutationRejected.
func (e *MutationError) Is(target error) bool {
	return target == ErrMutationRejected
}

// ProviderError represents a failure reported by a content provider
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s operation %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
