package storefront

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// TestLoadErrorIs tests that load errors match the sentinel of their priority
func TestLoadErrorIs(t *testing.T) {
	cause := errors.New("upstream timeout")
	tests := []struct {
		name         string
		err          error
		wantCritical bool
		wantDeferred bool
	}{
		{
			name:         "critical",
			err:          &LoadError{Key: "header", Query: QueryHeader, Priority: PriorityCritical, Err: cause},
			wantCritical: true,
		},
		{
			name:         "deferred",
			err:          &LoadError{Key: "footer", Query: QueryFooter, Priority: PriorityDeferred, Err: cause},
			wantDeferred: true,
		},
		{
			name:         "wrapped critical",
			err:          fmt.Errorf("load layout: %w", &LoadError{Key: "header", Priority: PriorityCritical, Err: cause}),
			wantCritical: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, ErrCriticalLoadFailed); got != tt.wantCritical {
				t.Errorf("errors.Is(ErrCriticalLoadFailed) = %v, want %v", got, tt.wantCritical)
			}
			if got := errors.Is(tt.err, ErrDeferredLoadFailed); got != tt.wantDeferred {
				t.Errorf("errors.Is(ErrDeferredLoadFailed) = %v, want %v", got, tt.wantDeferred)
			}
			if !errors.Is(tt.err, cause) {
				t.Errorf("expected error to wrap %v", cause)
			}
		})
	}
}

// TestLoadErrorMessage tests the load error text
func TestLoadErrorMessage(t *testing.T) {
	err := &LoadError{Key: "recommended", Query: QueryRecommendedProducts, Priority: PriorityDeferred, Err: errors.New("timeout")}
	want := "deferred query recommended (recommended-products) failed: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

// TestMutationErrorIs tests that mutation errors match ErrMutationRejected
func TestMutationErrorIs(t *testing.T) {
	cause := ErrCartNotFound
	err := error(&MutationError{MutationID: uuid.New(), Kind: MutationAdd, Err: cause})

	if !errors.Is(err, ErrMutationRejected) {
		t.Error("expected mutation error to match ErrMutationRejected")
	}
	if !errors.Is(err, ErrCartNotFound) {
		t.Error("expected mutation error to wrap its cause")
	}
	if errors.Is(err, ErrCriticalLoadFailed) {
		t.Error("mutation error must not match ErrCriticalLoadFailed")
	}

	var merr *MutationError
	if !errors.As(err, &merr) || merr.Kind != MutationAdd {
		t.Errorf("errors.As did not recover the mutation error: %v", err)
	}
}

// TestProviderErrorUnwrap tests that provider errors expose their cause
func TestProviderErrorUnwrap(t *testing.T) {
	err := &ProviderError{Provider: "graphql", Op: "query", Err: ErrQueryNotFound}
	if !errors.Is(err, ErrQueryNotFound) {
		t.Error("expected provider error to wrap ErrQueryNotFound")
	}
	want := "provider graphql operation query failed: query not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{PriorityCritical, "critical"},
		{PriorityDeferred, "deferred"},
		{Priority(7), "priority(7)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Priority(%d).String() = %q, want %q", int(tt.p), got, tt.want)
		}
	}
}
