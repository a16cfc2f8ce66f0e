package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/presets"
)

const blocksVariant = "gid://shopify/ProductVariant/1001"

func drain(t *testing.T, svc storefront.Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Drain(ctx))
}

func linePath(lineID string) string {
	return "/cart/lines/" + url.PathEscape(lineID)
}

func TestCartHandler_AddLine(t *testing.T) {
	router, env := setupRouterTest(t)

	mutationID := uuid.New()
	w := doRequest(t, router, http.MethodPost, "/cart/lines", AddLineRequest{
		ID:            mutationID,
		MerchandiseID: blocksVariant,
		Quantity:      2,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, mutationID.String(), w.Header().Get("X-Mutation-ID"))
	cookie := sessionCookie(t, w)

	optimistic := decodeBody[storefront.CartView](t, w)
	assert.Equal(t, 2, optimistic.TotalQuantity)
	require.Len(t, optimistic.Lines, 1)
	assert.True(t, optimistic.Lines[0].Optimistic)
	assert.Equal(t, storefront.OptimisticLineID(mutationID), optimistic.Lines[0].ID)

	drain(t, env.Service)

	w = doRequest(t, router, http.MethodGet, "/cart", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	confirmed := decodeBody[storefront.CartView](t, w)
	assert.Equal(t, 2, confirmed.TotalQuantity)
	assert.Zero(t, confirmed.PendingCount)
	require.Len(t, confirmed.Lines, 1)
	assert.False(t, confirmed.Lines[0].Optimistic)
	assert.False(t, storefront.IsOptimisticLineID(confirmed.Lines[0].ID))
	assert.Equal(t, blocksVariant, confirmed.Lines[0].Merchandise.ID)
}

func TestCartHandler_UpdateAndRemoveLine(t *testing.T) {
	router, env := setupRouterTest(t)

	w := doRequest(t, router, http.MethodPost, "/cart/lines", AddLineRequest{MerchandiseID: blocksVariant, Quantity: 2})
	require.Equal(t, http.StatusAccepted, w.Code)
	cookie := sessionCookie(t, w)
	drain(t, env.Service)

	cart := decodeBody[storefront.CartView](t, doRequest(t, router, http.MethodGet, "/cart", nil, cookie))
	require.Len(t, cart.Lines, 1)
	lineID := cart.Lines[0].ID

	delta := 1
	w = doRequest(t, router, http.MethodPatch, linePath(lineID), UpdateLineRequest{Delta: &delta}, cookie)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, 3, decodeBody[storefront.CartView](t, w).TotalQuantity)

	quantity := 5
	w = doRequest(t, router, http.MethodPatch, linePath(lineID), UpdateLineRequest{Quantity: &quantity}, cookie)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 5, decodeBody[storefront.CartView](t, w).TotalQuantity)

	drain(t, env.Service)
	stored, ok := env.Provider.Cart(cart.ID)
	require.True(t, ok)
	assert.Equal(t, 5, stored.TotalQuantity)

	w = doRequest(t, router, http.MethodDelete, linePath(lineID), nil, cookie)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, decodeBody[storefront.CartView](t, w).Lines)

	drain(t, env.Service)
	cart = decodeBody[storefront.CartView](t, doRequest(t, router, http.MethodGet, "/cart", nil, cookie))
	assert.Zero(t, cart.TotalQuantity)
	assert.Empty(t, cart.Lines)
}

func TestCartHandler_RejectedMutationReverts(t *testing.T) {
	router, env := setupRouterTest(t)
	env.Provider.FailMutations(func(m storefront.CartMutation) error {
		return errors.New("out of stock")
	})

	w := doRequest(t, router, http.MethodPost, "/cart/lines", AddLineRequest{MerchandiseID: blocksVariant, Quantity: 1})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, decodeBody[storefront.CartView](t, w).TotalQuantity)
	cookie := sessionCookie(t, w)

	drain(t, env.Service)

	cart := decodeBody[storefront.CartView](t, doRequest(t, router, http.MethodGet, "/cart", nil, cookie))
	assert.Zero(t, cart.TotalQuantity)
	assert.Zero(t, cart.PendingCount)
}

func TestCartHandler_InvalidRequests(t *testing.T) {
	router, _ := setupRouterTest(t)
	one := 1

	tests := []struct {
		name     string
		method   string
		target   string
		body     any
		wantCode string
	}{
		{
			name:     "add without quantity",
			method:   http.MethodPost,
			target:   "/cart/lines",
			body:     AddLineRequest{MerchandiseID: blocksVariant},
			wantCode: "invalid_mutation",
		},
		{
			name:     "add without merchandise",
			method:   http.MethodPost,
			target:   "/cart/lines",
			body:     AddLineRequest{Quantity: 1},
			wantCode: "invalid_mutation",
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			target:   "/cart/lines",
			body:     "not an object",
			wantCode: "invalid_request",
		},
		{
			name:     "quantity and delta",
			method:   http.MethodPatch,
			target:   linePath("gid://shopify/CartLine/1"),
			body:     UpdateLineRequest{Quantity: &one, Delta: &one},
			wantCode: "invalid_request",
		},
		{
			name:     "neither quantity nor delta",
			method:   http.MethodPatch,
			target:   linePath("gid://shopify/CartLine/1"),
			body:     UpdateLineRequest{},
			wantCode: "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, w).Error.Code)
		})
	}
}

func TestCartHandler_MissingSession(t *testing.T) {
	env := presets.NewTesting(t)
	handler := NewCartHandler(env.Service, nil)
	router := chi.NewRouter()
	router.Mount("/cart", handler.Routes())

	w := doRequest(t, router, http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_session", decodeBody[ErrorResponse](t, w).Error.Code)
}

func TestCartHandler_ClosedService(t *testing.T) {
	router, env := setupRouterTest(t)
	require.NoError(t, env.Service.Close())

	w := doRequest(t, router, http.MethodPost, "/cart/lines", AddLineRequest{MerchandiseID: blocksVariant, Quantity: 1})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCartHandler_Refresh(t *testing.T) {
	router, env := setupRouterTest(t)

	w := doRequest(t, router, http.MethodPost, "/cart/lines", AddLineRequest{MerchandiseID: blocksVariant, Quantity: 1})
	require.Equal(t, http.StatusAccepted, w.Code)
	cookie := sessionCookie(t, w)
	drain(t, env.Service)

	cart := decodeBody[storefront.CartView](t, doRequest(t, router, http.MethodGet, "/cart", nil, cookie))
	stored, ok := env.Provider.Cart(cart.ID)
	require.True(t, ok)
	stored.Lines[0].Quantity = 4
	stored.Totals()
	stored.UpdatedAt = stored.UpdatedAt.Add(time.Second)
	env.Provider.SetCart(stored)

	w = doRequest(t, router, http.MethodPost, "/cart/refresh", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decodeBody[storefront.CartView](t, w).TotalQuantity)
}
