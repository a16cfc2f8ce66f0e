package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// TestHooksMerge tests that merged hooks run in the order they were given
func TestHooksMerge(t *testing.T) {
	var order []string
	record := func(name string) *Hooks {
		return &Hooks{
			OnError: []ErrorHook{
				func(hctx *HookContext, operation string, err error) {
					order = append(order, name)
				},
			},
		}
	}

	merged := record("a").Merge(nil, record("b"), record("c"))
	merged.executeOnError(context.Background(), "test", errors.New("boom"))

	if got := strings.Join(order, ","); got != "a,b,c" {
		t.Errorf("hooks ran in order %q, want %q", got, "a,b,c")
	}

	var nilHooks *Hooks
	if got := nilHooks.Merge(record("x")); len(got.OnError) != 1 {
		t.Errorf("merge onto nil hooks kept %d hooks, want 1", len(got.OnError))
	}
}

// TestHooksStopChain tests that StopChain skips the remaining hooks
func TestHooksStopChain(t *testing.T) {
	calls := 0
	hooks := &Hooks{
		AfterQuery: []AfterQueryHook{
			func(hctx *HookContext, spec QuerySpec, d time.Duration, err error) {
				calls++
				hctx.Metadata["seen"] = spec.Key
				hctx.StopChain = true
			},
			func(hctx *HookContext, spec QuerySpec, d time.Duration, err error) {
				calls++
			},
		},
	}

	hooks.executeAfterQuery(context.Background(), QuerySpec{Key: "header"}, time.Millisecond, nil)
	if calls != 1 {
		t.Errorf("expected 1 hook call, got %d", calls)
	}
}

// TestHooksBeforeQueryError tests that the first failing hook ends the chain
func TestHooksBeforeQueryError(t *testing.T) {
	denied := errors.New("denied")
	calls := 0
	hooks := &Hooks{
		BeforeQuery: []BeforeQueryHook{
			func(hctx *HookContext, spec QuerySpec) error {
				calls++
				return denied
			},
			func(hctx *HookContext, spec QuerySpec) error {
				calls++
				return nil
			},
		},
	}

	err := hooks.executeBeforeQuery(context.Background(), QuerySpec{Key: "footer"})
	if !errors.Is(err, denied) {
		t.Errorf("expected %v, got %v", denied, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 hook call, got %d", calls)
	}
}

// TestHooksNil tests that execution helpers accept a nil receiver
func TestHooksNil(t *testing.T) {
	var hooks *Hooks
	ctx := context.Background()

	if err := hooks.executeBeforeQuery(ctx, QuerySpec{}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	hooks.executeAfterQuery(ctx, QuerySpec{}, 0, nil)
	hooks.executeOnDeferredFailure(ctx, &LoadError{})
	hooks.executeOnMutationApplied(ctx, "s1", CartMutation{})
	hooks.executeOnMutationConfirmed(ctx, "s1", CartMutation{}, &CartSnapshot{})
	hooks.executeOnMutationRejected(ctx, "s1", &MutationError{})
	hooks.executeOnError(ctx, "test", errors.New("boom"))
}

// TestLoggingHook tests the log lines of the logging hook
func TestLoggingHook(t *testing.T) {
	var lines []string
	hooks := LoggingHook(func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})
	ctx := context.Background()

	m := RemoveLine("gid://shopify/CartLine/1")
	hooks.executeOnDeferredFailure(ctx, &LoadError{Key: "footer", Priority: PriorityDeferred, Err: errors.New("timeout")})
	hooks.executeOnMutationConfirmed(ctx, "s1", m, &CartSnapshot{ID: "gid://shopify/Cart/1"})
	hooks.executeOnMutationRejected(ctx, "s1", &MutationError{MutationID: m.ID, Kind: m.Kind, Err: errors.New("gone")})

	want := []string{
		"Deferred query unavailable: footer (timeout)",
		fmt.Sprintf("Cart mutation confirmed: remove %s (cart: gid://shopify/Cart/1)", m.ID),
		fmt.Sprintf("Cart mutation rejected: remove %s: gone", m.ID),
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

type recordingMetrics struct {
	counters  map[string]int
	durations map[string]int
}

func (m *recordingMetrics) IncrementCounter(name string) {
	m.counters[name]++
}

func (m *recordingMetrics) RecordDuration(name string, d time.Duration) {
	m.durations[name]++
}

// TestMetricsHook tests the metric names recorded by the metrics hook
func TestMetricsHook(t *testing.T) {
	rec := &recordingMetrics{counters: map[string]int{}, durations: map[string]int{}}
	hooks := MetricsHook(rec)
	ctx := context.Background()

	spec := DeferredQuery(QueryFooter, Query{Name: QueryFooter})
	hooks.executeAfterQuery(ctx, spec, time.Millisecond, nil)
	hooks.executeAfterQuery(ctx, spec, time.Millisecond, errors.New("timeout"))
	hooks.executeOnDeferredFailure(ctx, &LoadError{Key: QueryFooter})
	m := AddLine("gid://shopify/ProductVariant/1001", 1, nil)
	hooks.executeOnMutationApplied(ctx, "s1", m)
	hooks.executeOnMutationConfirmed(ctx, "s1", m, &CartSnapshot{})
	hooks.executeOnMutationRejected(ctx, "s1", &MutationError{})

	wantCounters := map[string]int{
		"query.footer.failed":  1,
		"deferred.unavailable": 1,
		"mutation.applied":     1,
		"mutation.confirmed":   1,
		"mutation.rejected":    1,
	}
	for name, want := range wantCounters {
		if got := rec.counters[name]; got != want {
			t.Errorf("counter %s = %d, want %d", name, got, want)
		}
	}
	if got := rec.durations["query.footer"]; got != 2 {
		t.Errorf("duration query.footer recorded %d times, want 2", got)
	}
	if got := rec.durations["mutation.confirm_latency"]; got != 1 {
		t.Errorf("duration mutation.confirm_latency recorded %d times, want 1", got)
	}
}
