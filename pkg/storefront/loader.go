package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/tendant/simple-storefront/pkg/storefront"

// QuerySpec names a query in a page load and tags its priority.
type QuerySpec struct {
	Key      string
	Query    Query
	Priority Priority
}

// CriticalQuery is a query the page cannot render without.
func CriticalQuery(key string, q Query) QuerySpec {
	return QuerySpec{Key: key, Query: q, Priority: PriorityCritical}
}

// DeferredQuery is a query the page renders around while it loads.
func DeferredQuery(key string, q Query) QuerySpec {
	return QuerySpec{Key: key, Query: q, Priority: PriorityDeferred}
}

// Loader runs page query sets against a content provider. The zero value
// of every field except Provider is usable.
type Loader struct {
	Provider ContentProvider
	Locale   Locale
	Logger   *slog.Logger
	Hooks    *Hooks
	Tracer   trace.Tracer
}

// LoadResult holds the critical documents of a page load and the handles of
// its deferred documents.
type LoadResult struct {
	critical map[string]*ContentDocument
	deferred map[string]*Deferred[*ContentDocument]
	order    []string
	cancel   context.CancelFunc
}

// Critical returns the critical document for key, or nil.
func (r *LoadResult) Critical(key string) *ContentDocument {
	return r.critical[key]
}

// Deferred returns the handle for key. Unknown keys yield an unavailable
// handle, never nil.
func (r *LoadResult) Deferred(key string) *Deferred[*ContentDocument] {
	if d, ok := r.deferred[key]; ok {
		return d
	}
	return Unavailable[*ContentDocument](fmt.Errorf("%w: no deferred query %q", ErrQueryNotFound, key))
}

// DeferredKeys returns the deferred keys in load order.
func (r *LoadResult) DeferredKeys() []string {
	return append([]string(nil), r.order...)
}

// Wait blocks until every deferred handle settles or ctx is done.
func (r *LoadResult) Wait(ctx context.Context) error {
	for _, key := range r.order {
		select {
		case <-r.deferred[key].Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Discard cancels deferred queries that have not settled. Their handles
// settle as unavailable.
func (r *LoadResult) Discard() {
	r.cancel()
}

// Load starts every deferred query, then awaits all critical queries
// concurrently. Any critical failure cancels the deferred queries and is
// returned as a *LoadError matching ErrCriticalLoadFailed. Deferred failures
// are logged and only mark their handle unavailable.
func (l *Loader) Load(ctx context.Context, specs ...QuerySpec) (*LoadResult, error) {
	if l.Provider == nil {
		return nil, fmt.Errorf("%w: loader has no provider", ErrInvalidQuery)
	}
	if err := validateSpecs(specs); err != nil {
		return nil, err
	}

	deferredCtx, cancel := context.WithCancel(ctx)
	res := &LoadResult{
		critical: make(map[string]*ContentDocument),
		deferred: make(map[string]*Deferred[*ContentDocument]),
		cancel:   cancel,
	}

	for _, spec := range specs {
		if spec.Priority != PriorityDeferred {
			continue
		}
		spec := spec
		res.order = append(res.order, spec.Key)
		res.deferred[spec.Key] = Go(deferredCtx, func(ctx context.Context) (*ContentDocument, error) {
			return l.runDeferred(ctx, spec)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, spec := range specs {
		if spec.Priority != PriorityCritical {
			continue
		}
		spec := spec
		g.Go(func() error {
			doc, err := l.run(gctx, spec)
			if err != nil {
				return &LoadError{Key: spec.Key, Query: spec.Query.Name, Priority: PriorityCritical, Err: err}
			}
			mu.Lock()
			res.critical[spec.Key] = doc
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		cancel()
		l.logger().ErrorContext(ctx, "critical query failed", "err", err)
		return nil, err
	}
	return res, nil
}

func (l *Loader) runDeferred(ctx context.Context, spec QuerySpec) (*ContentDocument, error) {
	doc, err := l.run(ctx, spec)
	if err != nil {
		return nil, l.deferredFailure(ctx, spec.Key, spec.Query.Name, err)
	}
	return doc, nil
}

// Defer runs fn under the deferred error policy of l: a failure is logged,
// passed to the OnDeferredFailure hooks and settles the handle unavailable.
// Canceled work settles unavailable silently.
func Defer[T any](ctx context.Context, l *Loader, key string, fn func(context.Context) (T, error)) *Deferred[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil {
			var zero T
			return zero, l.deferredFailure(ctx, key, key, err)
		}
		return v, nil
	})
}

// deferredFailure reports a deferred failure unless ctx was canceled, which
// means the page was discarded and nobody is waiting for the value.
func (l *Loader) deferredFailure(ctx context.Context, key, query string, err error) *LoadError {
	lerr := &LoadError{Key: key, Query: query, Priority: PriorityDeferred, Err: err}
	if ctx.Err() != nil {
		return lerr
	}
	l.logger().WarnContext(ctx, "deferred query unavailable",
		"key", key,
		"query", query,
		"err", err,
	)
	l.Hooks.executeOnDeferredFailure(ctx, lerr)
	return lerr
}

func (l *Loader) run(ctx context.Context, spec QuerySpec) (*ContentDocument, error) {
	q := spec.Query.WithLocale(l.Locale)
	spec.Query = q

	ctx, span := l.tracer().Start(ctx, "storefront.query",
		trace.WithAttributes(
			attribute.String("storefront.query.key", spec.Key),
			attribute.String("storefront.query.name", q.Name),
			attribute.String("storefront.query.priority", spec.Priority.String()),
		),
	)
	defer span.End()

	start := time.Now()
	doc, err := l.query(ctx, spec)
	l.Hooks.executeAfterQuery(ctx, spec, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return doc, nil
}

func (l *Loader) query(ctx context.Context, spec QuerySpec) (*ContentDocument, error) {
	if err := l.Hooks.executeBeforeQuery(ctx, spec); err != nil {
		return nil, err
	}
	doc, err := l.Provider.Query(ctx, spec.Query)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s returned no document", ErrQueryNotFound, spec.Query.Name)
	}
	return doc, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *Loader) tracer() trace.Tracer {
	if l.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return l.Tracer
}

func validateSpecs(specs []QuerySpec) error {
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Key == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidQuery)
		}
		if spec.Query.Name == "" {
			return fmt.Errorf("%w: query %q has no name", ErrInvalidQuery, spec.Key)
		}
		if spec.Priority != PriorityCritical && spec.Priority != PriorityDeferred {
			return fmt.Errorf("%w: query %q has %s", ErrInvalidQuery, spec.Key, spec.Priority)
		}
		if _, ok := seen[spec.Key]; ok {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidQuery, spec.Key)
		}
		seen[spec.Key] = struct{}{}
	}
	return nil
}
