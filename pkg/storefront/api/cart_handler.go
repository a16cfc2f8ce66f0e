package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-storefront/pkg/storefront"
)

// AddLineRequest is the request body for adding merchandise to the cart
type AddLineRequest struct {
	ID            uuid.UUID               `json:"id"`
	MerchandiseID string                  `json:"merchandiseId"`
	Quantity      int                     `json:"quantity"`
	Merchandise   *storefront.Merchandise `json:"merchandise,omitempty"`
}

// UpdateLineRequest is the request body for changing a cart line. Quantity
// sets the line to an absolute value; Delta changes it relative to the
// current value. Exactly one must be given.
type UpdateLineRequest struct {
	ID       uuid.UUID `json:"id"`
	Quantity *int      `json:"quantity"`
	Delta    *int      `json:"delta"`
}

// CartHandler handles HTTP requests for the session cart
type CartHandler struct {
	service storefront.Service
	logger  *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service storefront.Service, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{
		service: service,
		logger:  logger,
	}
}

// Routes returns the routes for the cart
func (h *CartHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetCart)
	r.Post("/refresh", h.RefreshCart)
	r.Post("/lines", h.AddLine)
	r.Patch("/lines/{lineID}", h.UpdateLine)
	r.Delete("/lines/{lineID}", h.RemoveLine)

	return r
}

// GetCart returns the derived cart view of the session
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := h.service.CartView(r.Context(), sessionID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get cart", "session_id", sessionID, "err", err)
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// RefreshCart reconciles the session with the provider's current cart
func (h *CartHandler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := h.service.RefreshCart(r.Context(), sessionID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to refresh cart", "session_id", sessionID, "err", err)
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// AddLine adds merchandise to the cart
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	m := storefront.AddLine(req.MerchandiseID, req.Quantity, req.Merchandise)
	if req.ID != uuid.Nil {
		m.ID = req.ID
	}
	h.apply(w, r, m)
}

// UpdateLine sets or adjusts the quantity of a line
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	var m storefront.CartMutation
	switch {
	case req.Quantity != nil && req.Delta == nil:
		m = storefront.UpdateLine(lineID, *req.Quantity)
	case req.Delta != nil && req.Quantity == nil:
		m = storefront.AdjustLine(lineID, *req.Delta)
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_request", "Exactly one of quantity or delta is required")
		return
	}
	if req.ID != uuid.Nil {
		m.ID = req.ID
	}
	h.apply(w, r, m)
}

// RemoveLine removes a line from the cart
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}
	h.apply(w, r, storefront.RemoveLine(lineID))
}

// apply queues m and answers 202 with the optimistic view.
func (h *CartHandler) apply(w http.ResponseWriter, r *http.Request, m storefront.CartMutation) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := h.service.ApplyCartMutation(r.Context(), sessionID, m)
	if err != nil {
		h.logger.WarnContext(r.Context(), "cart mutation refused",
			"session_id", sessionID,
			"mutation_id", m.ID,
			"kind", m.Kind,
			"err", err,
		)
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("X-Mutation-ID", m.ID.String())
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, view)
}

// lineIDParam returns the unescaped line id. Provider line ids are gids
// and arrive path-escaped.
func lineIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	lineID, err := url.PathUnescape(chi.URLParam(r, "lineID"))
	if err != nil || lineID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid line id")
		return "", false
	}
	return lineID, true
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := SessionIDFromContext(r.Context())
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_session", "Cart session is required")
		return "", false
	}
	return sessionID, true
}
