package storefront

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Hook system allows observing page loads and cart mutations without
// modifying core code. Hooks run synchronously on the goroutine that
// triggered them.

// Hooks defines all available lifecycle hooks
type Hooks struct {
	// Query hooks
	BeforeQuery []BeforeQueryHook
	AfterQuery  []AfterQueryHook

	// Deferred failure hooks
	OnDeferredFailure []DeferredFailureHook

	// Cart mutation hooks
	OnMutationApplied   []MutationAppliedHook
	OnMutationConfirmed []MutationConfirmedHook
	OnMutationRejected  []MutationRejectedHook

	// Error hooks
	OnError []ErrorHook
}

// Hook context carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforeQueryHook is called before a provider query. Returning an error
// fails the query.
type BeforeQueryHook func(hctx *HookContext, spec QuerySpec) error

// AfterQueryHook is called after a provider query with its outcome
type AfterQueryHook func(hctx *HookContext, spec QuerySpec, duration time.Duration, err error)

// DeferredFailureHook is called when a deferred query settles unavailable
type DeferredFailureHook func(hctx *HookContext, err *LoadError)

// MutationAppliedHook is called after a mutation joins a session's pending queue
type MutationAppliedHook func(hctx *HookContext, sessionID string, m CartMutation)

// MutationConfirmedHook is called after the provider confirms a mutation
type MutationConfirmedHook func(hctx *HookContext, sessionID string, m CartMutation, snapshot *CartSnapshot)

// MutationRejectedHook is called after the provider rejects a mutation
type MutationRejectedHook func(hctx *HookContext, sessionID string, err *MutationError)

// ErrorHook is called when an error occurs
type ErrorHook func(hctx *HookContext, operation string, err error)

// Merge returns hooks running h's hooks followed by each of others'.
func (h *Hooks) Merge(others ...*Hooks) *Hooks {
	out := &Hooks{}
	for _, src := range append([]*Hooks{h}, others...) {
		if src == nil {
			continue
		}
		out.BeforeQuery = append(out.BeforeQuery, src.BeforeQuery...)
		out.AfterQuery = append(out.AfterQuery, src.AfterQuery...)
		out.OnDeferredFailure = append(out.OnDeferredFailure, src.OnDeferredFailure...)
		out.OnMutationApplied = append(out.OnMutationApplied, src.OnMutationApplied...)
		out.OnMutationConfirmed = append(out.OnMutationConfirmed, src.OnMutationConfirmed...)
		out.OnMutationRejected = append(out.OnMutationRejected, src.OnMutationRejected...)
		out.OnError = append(out.OnError, src.OnError...)
	}
	return out
}

// Hook execution helpers. All helpers accept a nil receiver.

func (h *Hooks) executeBeforeQuery(ctx context.Context, spec QuerySpec) error {
	if h == nil || len(h.BeforeQuery) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforeQuery {
		if err := hook(hctx, spec); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterQuery(ctx context.Context, spec QuerySpec, duration time.Duration, err error) {
	if h == nil || len(h.AfterQuery) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterQuery {
		hook(hctx, spec, duration, err)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnDeferredFailure(ctx context.Context, err *LoadError) {
	if h == nil || len(h.OnDeferredFailure) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnDeferredFailure {
		hook(hctx, err)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnMutationApplied(ctx context.Context, sessionID string, m CartMutation) {
	if h == nil || len(h.OnMutationApplied) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnMutationApplied {
		hook(hctx, sessionID, m)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnMutationConfirmed(ctx context.Context, sessionID string, m CartMutation, snapshot *CartSnapshot) {
	if h == nil || len(h.OnMutationConfirmed) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnMutationConfirmed {
		hook(hctx, sessionID, m, snapshot)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnMutationRejected(ctx context.Context, sessionID string, err *MutationError) {
	if h == nil || len(h.OnMutationRejected) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnMutationRejected {
		hook(hctx, sessionID, err)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if h == nil || len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}

// LoggingHook logs mutation outcomes and errors
func LoggingHook(logger func(format string, args ...interface{})) *Hooks {
	return &Hooks{
		OnDeferredFailure: []DeferredFailureHook{
			func(hctx *HookContext, err *LoadError) {
				logger("Deferred query unavailable: %s (%v)", err.Key, err.Err)
			},
		},
		OnMutationConfirmed: []MutationConfirmedHook{
			func(hctx *HookContext, sessionID string, m CartMutation, snapshot *CartSnapshot) {
				logger("Cart mutation confirmed: %s %s (cart: %s)", m.Kind, m.ID, snapshot.ID)
			},
		},
		OnMutationRejected: []MutationRejectedHook{
			func(hctx *HookContext, sessionID string, err *MutationError) {
				logger("Cart mutation rejected: %s %s: %v", err.Kind, err.MutationID, err.Err)
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				logger("Error in %s: %v", operation, err)
			},
		},
	}
}

// MetricsHook tracks metrics
func MetricsHook(metrics interface {
	IncrementCounter(name string)
	RecordDuration(name string, duration time.Duration)
}) *Hooks {
	return &Hooks{
		AfterQuery: []AfterQueryHook{
			func(hctx *HookContext, spec QuerySpec, duration time.Duration, err error) {
				name := "query." + spec.Query.Name
				metrics.RecordDuration(name, duration)
				if err != nil {
					metrics.IncrementCounter(name + ".failed")
				}
			},
		},
		OnDeferredFailure: []DeferredFailureHook{
			func(hctx *HookContext, err *LoadError) {
				metrics.IncrementCounter("deferred.unavailable")
			},
		},
		OnMutationApplied: []MutationAppliedHook{
			func(hctx *HookContext, sessionID string, m CartMutation) {
				metrics.IncrementCounter("mutation.applied")
			},
		},
		OnMutationConfirmed: []MutationConfirmedHook{
			func(hctx *HookContext, sessionID string, m CartMutation, snapshot *CartSnapshot) {
				metrics.IncrementCounter("mutation.confirmed")
				metrics.RecordDuration("mutation.confirm_latency", time.Since(m.CreatedAt))
			},
		},
		OnMutationRejected: []MutationRejectedHook{
			func(hctx *HookContext, sessionID string, err *MutationError) {
				metrics.IncrementCounter("mutation.rejected")
			},
		},
	}
}

// mutationIDs is a helper for log attributes.
func mutationIDs(ms []CartMutation) []uuid.UUID {
	ids := make([]uuid.UUID, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}
