package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/imageurl"
	"github.com/tendant/simple-storefront/pkg/storefront/view"
)

// Section names used in page documents and stream events.
const (
	SectionRecommendedProducts = "recommendedProducts"
	SectionCart                = "cart"
	SectionFooter              = "footer"
	SectionAccount             = "isLoggedIn"
)

// HomeDocument is the home page as sent to the client
type HomeDocument struct {
	FeaturedCollection  *view.CollectionCard             `json:"featuredCollection"`
	RecommendedProducts view.Section[[]view.ProductCard] `json:"recommendedProducts"`
}

// LayoutDocument is the page chrome as sent to the client
type LayoutDocument struct {
	Header     storefront.Header              `json:"header"`
	Cart       CartSection                    `json:"cart"`
	Footer     view.Section[*storefront.Menu] `json:"footer"`
	IsLoggedIn AccountSection                 `json:"isLoggedIn"`
}

// CartSection is the cart section together with the badge rendered from it
type CartSection struct {
	view.Section[*storefront.CartView]
	Badge view.Badge `json:"badge"`
}

// AccountSection is the login state together with the account link label
type AccountSection struct {
	view.Section[bool]
	Label string `json:"label"`
}

// StreamEvent is one line of a streamed page. The first event carries the
// whole document with deferred sections pending; each later event carries
// one settled section.
type StreamEvent struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Payload any    `json:"payload"`
}

const (
	eventDocument = "document"
	eventSection  = "section"
)

// PageHandler serves page data
type PageHandler struct {
	service storefront.Service
	images  imageurl.Strategy
	logger  *slog.Logger
}

// NewPageHandler creates a new page handler. A nil strategy passes image
// URLs through unchanged.
func NewPageHandler(service storefront.Service, images imageurl.Strategy, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		service: service,
		images:  images,
		logger:  logger,
	}
}

// Routes returns the routes for pages
func (h *PageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/home", h.HomePage)
	r.Get("/layout", h.Layout)

	return r
}

// HomePage serves the home page. With ?await=true it waits for every
// deferred section and answers with one JSON document; otherwise it streams
// NDJSON events as sections settle.
func (h *PageHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	locale := localeFromRequest(r)
	page, err := h.service.LoadHomePage(r.Context(), locale)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load home page", "err", err)
		writeServiceError(w, r, err)
		return
	}
	defer page.Discard()

	renderer := view.NewRenderer(h.images, h.resolvedLocale(locale))
	recommended := func(s view.Section[[]storefront.Product]) view.Section[[]view.ProductCard] {
		return mapSection(s, renderer.ProductCards)
	}
	doc := func(s view.Section[[]storefront.Product]) HomeDocument {
		return HomeDocument{
			FeaturedCollection:  renderer.FeaturedCollectionCard(page.FeaturedCollection),
			RecommendedProducts: recommended(s),
		}
	}

	if awaitRequested(r) {
		s := view.Settle(r.Context(), SectionRecommendedProducts, page.RecommendedProducts, view.FallbackRecommendedProducts)
		render.JSON(w, r, doc(s))
		return
	}

	st := newStream(w)
	shell := view.Snapshot(SectionRecommendedProducts, page.RecommendedProducts, view.FallbackRecommendedProducts)
	if err := st.send(StreamEvent{Type: eventDocument, Payload: doc(shell)}); err != nil {
		return
	}
	if shell.Status != storefront.StatePending {
		return
	}
	st.sections(r.Context(), pendingSection{
		name: SectionRecommendedProducts,
		done: page.RecommendedProducts.Done(),
		render: func() any {
			return recommended(view.Snapshot(SectionRecommendedProducts, page.RecommendedProducts, view.FallbackRecommendedProducts))
		},
	})
}

// Layout serves the page chrome for the request's session, awaited or
// streamed like HomePage.
func (h *PageHandler) Layout(w http.ResponseWriter, r *http.Request) {
	layout, err := h.service.LoadLayout(r.Context(), storefront.LayoutRequest{
		SessionID: SessionIDFromContext(r.Context()),
		Locale:    localeFromRequest(r),
		LoggedIn:  CustomerLoggedIn,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load layout", "err", err)
		writeServiceError(w, r, err)
		return
	}
	defer layout.Discard()

	cart := func(s view.Section[*storefront.CartView]) CartSection {
		return CartSection{Section: s, Badge: view.CartBadge(s)}
	}
	account := func(s view.Section[bool]) AccountSection {
		return AccountSection{Section: s, Label: view.AccountLabel(s)}
	}
	snapshot := func() LayoutDocument {
		return LayoutDocument{
			Header:     layout.Header,
			Cart:       cart(view.Snapshot(SectionCart, layout.Cart, view.FallbackCart)),
			Footer:     view.Snapshot(SectionFooter, layout.Footer, ""),
			IsLoggedIn: account(view.Snapshot(SectionAccount, layout.IsLoggedIn, view.FallbackAccount)),
		}
	}

	if awaitRequested(r) {
		ctx := r.Context()
		for _, done := range []<-chan struct{}{layout.Cart.Done(), layout.Footer.Done(), layout.IsLoggedIn.Done()} {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
		render.JSON(w, r, snapshot())
		return
	}

	st := newStream(w)
	shell := snapshot()
	if err := st.send(StreamEvent{Type: eventDocument, Payload: shell}); err != nil {
		return
	}

	var pending []pendingSection
	if shell.Cart.Status == storefront.StatePending {
		pending = append(pending, pendingSection{name: SectionCart, done: layout.Cart.Done(), render: func() any {
			return cart(view.Snapshot(SectionCart, layout.Cart, view.FallbackCart))
		}})
	}
	if shell.Footer.Status == storefront.StatePending {
		pending = append(pending, pendingSection{name: SectionFooter, done: layout.Footer.Done(), render: func() any {
			return view.Snapshot(SectionFooter, layout.Footer, "")
		}})
	}
	if shell.IsLoggedIn.Status == storefront.StatePending {
		pending = append(pending, pendingSection{name: SectionAccount, done: layout.IsLoggedIn.Done(), render: func() any {
			return account(view.Snapshot(SectionAccount, layout.IsLoggedIn, view.FallbackAccount))
		}})
	}
	st.sections(r.Context(), pending...)
}

func (h *PageHandler) resolvedLocale(l storefront.Locale) storefront.Locale {
	if l.IsZero() {
		return storefront.DefaultLocale
	}
	return l
}

// pendingSection is a deferred section still to be streamed.
type pendingSection struct {
	name   string
	done   <-chan struct{}
	render func() any
}

type stream struct {
	w   http.ResponseWriter
	enc *json.Encoder
}

func newStream(w http.ResponseWriter) *stream {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	return &stream{w: w, enc: json.NewEncoder(w)}
}

func (s *stream) send(ev StreamEvent) error {
	if err := s.enc.Encode(ev); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// sections streams each pending section once it settles, in settlement
// order. It returns early when ctx is done.
func (s *stream) sections(ctx context.Context, pending ...pendingSection) {
	settled := make(chan int, len(pending))
	for i, p := range pending {
		go func(i int, done <-chan struct{}) {
			select {
			case <-done:
				settled <- i
			case <-ctx.Done():
			}
		}(i, p.done)
	}
	for range pending {
		select {
		case i := <-settled:
			p := pending[i]
			if err := s.send(StreamEvent{Type: eventSection, Name: p.name, Payload: p.render()}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func mapSection[T, U any](s view.Section[T], fn func(T) U) view.Section[U] {
	out := view.Section[U]{Name: s.Name, Status: s.Status, Fallback: s.Fallback}
	if s.Status == storefront.StateReady {
		out.Data = fn(s.Data)
	}
	return out
}

func awaitRequested(r *http.Request) bool {
	v := r.URL.Query().Get("await")
	return v == "true" || v == "1"
}

// localeFromRequest reads ?country= and ?language=. Missing fields are left
// for the service default.
func localeFromRequest(r *http.Request) storefront.Locale {
	q := r.URL.Query()
	return storefront.Locale{
		Country:  strings.ToUpper(q.Get("country")),
		Language: strings.ToUpper(q.Get("language")),
	}
}
