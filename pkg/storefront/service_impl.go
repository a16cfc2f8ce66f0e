package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrClosed indicates the service no longer accepts cart mutations
var ErrClosed = errors.New("storefront service closed")

// service implements the Service interface
type service struct {
	provider          ContentProvider
	carts             CartStore
	logger            *slog.Logger
	hooks             *Hooks
	tracer            trace.Tracer
	locale            Locale
	publicStoreDomain string

	mu       sync.Mutex
	sessions map[string]*sessionState
	active   int           // cart operations and dispatchers in flight
	idle     chan struct{} // closed when active drops to zero
	closed   bool
}

// sessionState serializes overlay updates of one session and tracks whether
// a dispatcher is running for it. It lives while refs > 0.
type sessionState struct {
	mu          sync.Mutex
	dispatching bool
	refs        int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithProvider sets the content provider
func WithProvider(p ContentProvider) Option {
	return func(s *service) {
		s.provider = p
	}
}

// WithCartStore sets the store holding each session's optimistic cart
func WithCartStore(store CartStore) Option {
	return func(s *service) {
		s.carts = store
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithHooks adds lifecycle hooks. It may be given more than once.
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithTracer sets the tracer for provider calls
func WithTracer(tracer trace.Tracer) Option {
	return func(s *service) {
		s.tracer = tracer
	}
}

// WithLocale sets the default buyer locale
func WithLocale(locale Locale) Option {
	return func(s *service) {
		s.locale = locale
	}
}

// WithPublicStoreDomain sets the domain whose menu links are rewritten to paths
func WithPublicStoreDomain(domain string) Option {
	return func(s *service) {
		s.publicStoreDomain = domain
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		hooks:    &Hooks{},
		locale:   DefaultLocale,
		sessions: make(map[string]*sessionState),
	}

	for _, option := range options {
		option(s)
	}

	if s.provider == nil {
		return nil, fmt.Errorf("content provider is required")
	}
	if s.carts == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	return s, nil
}

func (s *service) loader(locale Locale) *Loader {
	if locale.IsZero() {
		locale = s.locale
	}
	return &Loader{
		Provider: s.provider,
		Locale:   locale,
		Logger:   s.logger,
		Hooks:    s.hooks,
		Tracer:   s.tracer,
	}
}

// Page operations

func (s *service) Load(ctx context.Context, specs ...QuerySpec) (*LoadResult, error) {
	return s.loader(Locale{}).Load(ctx, specs...)
}

func (s *service) LoadHomePage(ctx context.Context, locale Locale) (*HomePage, error) {
	res, err := s.loader(locale).Load(ctx, homePageQueries()...)
	if err != nil {
		return nil, err
	}

	featured, err := decodeFeaturedCollection(res.Critical(QueryFeaturedCollection))
	if err != nil {
		res.Discard()
		return nil, &LoadError{Key: QueryFeaturedCollection, Query: QueryFeaturedCollection, Priority: PriorityCritical, Err: err}
	}

	return &HomePage{
		FeaturedCollection: featured,
		RecommendedProducts: Map(res.Deferred(QueryRecommendedProducts), func(doc *ContentDocument) ([]Product, error) {
			products, err := decodeProducts(doc)
			if err != nil {
				s.logger.Warn("recommended products unavailable", "err", err)
			}
			return products, err
		}),
		result: res,
	}, nil
}

func (s *service) LoadLayout(ctx context.Context, req LayoutRequest) (*Layout, error) {
	ctx, cancel := context.WithCancel(ctx)
	l := s.loader(req.Locale)

	// Session-backed parts start before the critical header is awaited.
	cart := Defer(ctx, l, QueryCart, func(ctx context.Context) (*CartView, error) {
		if req.SessionID == "" {
			return &CartView{}, nil
		}
		return s.refresh(ctx, req.SessionID, true)
	})
	loggedIn := Resolved(false)
	if req.LoggedIn != nil {
		loggedIn = Defer(ctx, l, "is-logged-in", req.LoggedIn)
	}

	res, err := l.Load(ctx, layoutQueries()...)
	if err != nil {
		cancel()
		return nil, err
	}

	header, err := decodeHeader(res.Critical(QueryHeader), s.publicStoreDomain)
	if err != nil {
		cancel()
		return nil, &LoadError{Key: QueryHeader, Query: QueryHeader, Priority: PriorityCritical, Err: err}
	}

	primary := header.Shop.PrimaryDomain.URL
	return &Layout{
		Header: header,
		Cart:   cart,
		Footer: Map(res.Deferred(QueryFooter), func(doc *ContentDocument) (*Menu, error) {
			return decodeFooter(doc, s.publicStoreDomain, primary)
		}),
		IsLoggedIn: loggedIn,
		cancel:     cancel,
	}, nil
}

// Cart operations

func (s *service) CartView(ctx context.Context, sessionID string) (*CartView, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := sess.Cart.View()
	return &view, nil
}

func (s *service) ApplyCartMutation(ctx context.Context, sessionID string, m CartMutation) (*CartView, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidMutation)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	st, err := s.beginMutation(sessionID)
	if err != nil {
		return nil, err
	}
	defer s.endMutation(sessionID, st)

	st.mu.Lock()
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}
	next, err := sess.Cart.Apply(m)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}
	sess.Cart = next
	sess.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, sess); err != nil {
		st.mu.Unlock()
		s.hooks.executeOnError(ctx, "apply_mutation", err)
		return nil, fmt.Errorf("save cart session: %w", err)
	}
	start := !st.dispatching
	if start {
		st.dispatching = true
		s.retain(st)
	}
	st.mu.Unlock()

	applied := next.Pending[len(next.Pending)-1]
	s.hooks.executeOnMutationApplied(ctx, sessionID, applied)
	s.logger.Debug("cart mutation applied",
		"session_id", sessionID,
		"mutation_id", applied.ID,
		"kind", applied.Kind,
		"pending", mutationIDs(next.Pending),
	)

	if start {
		go s.dispatch(context.WithoutCancel(ctx), sessionID, st)
	}

	view := next.View()
	return &view, nil
}

func (s *service) RefreshCart(ctx context.Context, sessionID string) (*CartView, error) {
	return s.refresh(ctx, sessionID, false)
}

// refresh queries the provider for the session's cart and rebases the
// overlay on it. Pending mutations stay queued for the dispatcher. With
// idleOnly set, sessions with pending mutations are returned as they are.
func (s *service) refresh(ctx context.Context, sessionID string, idleOnly bool) (*CartView, error) {
	st := s.acquire(sessionID)
	defer s.release(sessionID, st)
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cartID := sess.CartID()
	if cartID == "" || (idleOnly && len(sess.Cart.Pending) > 0) {
		view := sess.Cart.View()
		return &view, nil
	}

	snapshot, err := s.fetchCart(ctx, cartID)
	switch {
	case errors.Is(err, ErrCartNotFound):
		s.logger.Info("cart expired, starting over",
			"session_id", sessionID,
			"cart_id", cartID,
			"pending", len(sess.Cart.Pending),
		)
		sess.Cart = OptimisticCart{Pending: sess.Cart.Pending}
	case err != nil:
		return nil, err
	default:
		sess.Cart = sess.Cart.Rebase(snapshot)
	}

	sess.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save cart session: %w", err)
	}
	view := sess.Cart.View()
	return &view, nil
}

func (s *service) fetchCart(ctx context.Context, cartID string) (*CartSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.cart.fetch")
	defer span.End()

	doc, err := s.provider.Query(ctx, Query{Name: QueryCart, Variables: map[string]any{"cartId": cartID}})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	var snapshot CartSnapshot
	if err := doc.Decode(&snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *service) Drain(ctx context.Context) error {
	select {
	case <-s.idleChan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	<-s.idleChan()
	if c, ok := s.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// idleChan returns a channel closed once no cart work is in flight.
func (s *service) idleChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == 0 {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.idle
}

// beginMutation registers a cart mutation and pins its session state. It
// fails once Close has started.
func (s *service) beginMutation(sessionID string) (*sessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.startWorkLocked()
	return s.acquireLocked(sessionID), nil
}

func (s *service) endMutation(sessionID string, st *sessionState) {
	s.release(sessionID, st)
	s.doneWork()
}

// retain pins st and counts a dispatcher for it. The caller already holds
// st, so the session and the work count are both non-zero.
func (s *service) retain(st *sessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.refs++
	s.startWorkLocked()
}

func (s *service) startWorkLocked() {
	if s.active == 0 {
		s.idle = make(chan struct{})
	}
	s.active++
}

func (s *service) doneWork() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if s.active == 0 {
		close(s.idle)
	}
}

// acquire returns the session's state, creating it on first use. Every
// acquire is paired with a release.
func (s *service) acquire(sessionID string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquireLocked(sessionID)
}

func (s *service) acquireLocked(sessionID string) *sessionState {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		s.sessions[sessionID] = st
	}
	st.refs++
	return st
}

// release drops a reference and forgets the session when nothing holds it.
func (s *service) release(sessionID string, st *sessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.refs--
	if st.refs == 0 && s.sessions[sessionID] == st {
		delete(s.sessions, sessionID)
	}
}

// loadSession returns the stored session or a fresh one.
func (s *service) loadSession(ctx context.Context, sessionID string) (*CartSession, error) {
	sess, err := s.carts.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return &CartSession{SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart session: %w", err)
	}
	return sess, nil
}
