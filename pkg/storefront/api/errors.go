package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-storefront/pkg/storefront"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	}})
}

// writeServiceError maps the storefront error taxonomy to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storefront.ErrCriticalLoadFailed):
		writeError(w, r, http.StatusBadGateway, "critical_load_failed", err.Error())
	case errors.Is(err, storefront.ErrInvalidMutation):
		writeError(w, r, http.StatusBadRequest, "invalid_mutation", err.Error())
	case errors.Is(err, storefront.ErrInvalidQuery):
		writeError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, storefront.ErrClosed):
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
