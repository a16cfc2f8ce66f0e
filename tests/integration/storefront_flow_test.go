package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/api"
	"github.com/tendant/simple-storefront/pkg/storefront/presets"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/memory"
	"github.com/tendant/simple-storefront/tests/testutil"
)

func TestStorefrontFlow_Cart(t *testing.T) {
	srv := testutil.SetupTestServer(t)
	client := srv.NewClient(t)
	ctx := context.Background()

	layout := testutil.GetLayout(t, client, srv.URL)
	require.NotNil(t, layout.Cart.Badge.Count)
	assert.Equal(t, 0, *layout.Cart.Badge.Count)
	assert.Equal(t, "Sign in", layout.IsLoggedIn.Label)

	blocks := presets.SampleMerchandise[0]
	optimistic, mutationID := testutil.AddLine(t, client, srv.URL, api.AddLineRequest{
		MerchandiseID: blocks.ID,
		Quantity:      2,
		Merchandise:   &blocks,
	})
	assert.NotEmpty(t, mutationID)
	assert.Equal(t, 2, optimistic.TotalQuantity)

	require.NoError(t, srv.Env.Service.Drain(ctx))

	cart := testutil.GetCart(t, client, srv.URL)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 0, cart.PendingCount)
	lineID := cart.Lines[0].ID
	assert.False(t, storefront.IsOptimisticLineID(lineID))

	delta := 1
	resp := testutil.Do(t, client, http.MethodPatch, srv.URL+"/cart/lines/"+url.PathEscape(lineID), api.UpdateLineRequest{Delta: &delta})
	updated := testutil.DecodeJSON[storefront.CartView](t, resp, http.StatusAccepted)
	assert.Equal(t, 3, updated.TotalQuantity)

	require.NoError(t, srv.Env.Service.Drain(ctx))

	layout = testutil.GetLayout(t, client, srv.URL)
	require.NotNil(t, layout.Cart.Badge.Count)
	assert.Equal(t, 3, *layout.Cart.Badge.Count)

	confirmed, ok := srv.Env.Provider.Cart(cart.ID)
	require.True(t, ok)
	assert.Equal(t, 3, confirmed.TotalQuantity)

	// A second browser has its own session and cart.
	other := testutil.GetCart(t, srv.NewClient(t), srv.URL)
	assert.Empty(t, other.Lines)
}

func TestStorefrontFlow_RemoveLine(t *testing.T) {
	srv := testutil.SetupTestServer(t)
	client := srv.NewClient(t)
	ctx := context.Background()

	kite := presets.SampleMerchandise[3]
	testutil.AddLine(t, client, srv.URL, api.AddLineRequest{MerchandiseID: kite.ID, Quantity: 1})
	require.NoError(t, srv.Env.Service.Drain(ctx))

	cart := testutil.GetCart(t, client, srv.URL)
	require.Len(t, cart.Lines, 1)

	resp := testutil.Do(t, client, http.MethodDelete, srv.URL+"/cart/lines/"+url.PathEscape(cart.Lines[0].ID), nil)
	removed := testutil.DecodeJSON[storefront.CartView](t, resp, http.StatusAccepted)
	assert.Empty(t, removed.Lines)

	require.NoError(t, srv.Env.Service.Drain(ctx))
	assert.Empty(t, testutil.GetCart(t, client, srv.URL).Lines)
}

func TestStorefrontFlow_LoggedIn(t *testing.T) {
	srv := testutil.SetupTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/pages/layout?await=true", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+srv.CustomerToken(t, "gid://shopify/Customer/1"))

	resp, err := srv.NewClient(t).Do(req)
	require.NoError(t, err)
	layout := testutil.DecodeJSON[api.LayoutDocument](t, resp, http.StatusOK)
	assert.True(t, layout.IsLoggedIn.Data)
	assert.Equal(t, "Account", layout.IsLoggedIn.Label)
}

func TestStorefrontFlow_StreamedLayout(t *testing.T) {
	srv := testutil.SetupTestServer(t)
	srv.Env.Provider.Delay(storefront.QueryFooter, 150*time.Millisecond)

	start := time.Now()
	events := testutil.ReadStream(t, srv.NewClient(t), srv.URL+"/pages/layout")
	require.NotEmpty(t, events)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	assert.Equal(t, "document", events[0].Type)
	var shell api.LayoutDocument
	require.NoError(t, json.Unmarshal(events[0].Payload, &shell))
	assert.Equal(t, "Toy Store", shell.Header.Shop.Name)
	assert.Equal(t, storefront.StatePending, shell.Footer.Status)

	last := events[len(events)-1]
	assert.Equal(t, "section", last.Type)
	assert.Equal(t, api.SectionFooter, last.Name)

	var footer struct {
		Status storefront.State `json:"status"`
		Data   *storefront.Menu `json:"data"`
	}
	require.NoError(t, json.Unmarshal(last.Payload, &footer))
	assert.Equal(t, storefront.StateReady, footer.Status)
	require.NotNil(t, footer.Data)
	assert.Equal(t, "/search", footer.Data.Items[0].URL)
}

func TestStorefrontFlow_RejectedMutation(t *testing.T) {
	srv := testutil.SetupTestServer(t)
	srv.Env.Provider.Delay(memory.MutateKey, 50*time.Millisecond)
	srv.Env.Provider.FailMutations(func(m storefront.CartMutation) error {
		if m.Quantity > 5 {
			return storefront.ErrUnsupported
		}
		return nil
	})
	client := srv.NewClient(t)

	blocks := presets.SampleMerchandise[0]
	optimistic, _ := testutil.AddLine(t, client, srv.URL, api.AddLineRequest{MerchandiseID: blocks.ID, Quantity: 9})
	assert.Equal(t, 9, optimistic.TotalQuantity)

	require.NoError(t, srv.Env.Service.Drain(context.Background()))
	cart := testutil.GetCart(t, client, srv.URL)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0, cart.PendingCount)
}
