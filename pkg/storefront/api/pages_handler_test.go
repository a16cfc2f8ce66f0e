package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/imageurl"
	"github.com/tendant/simple-storefront/pkg/storefront/view"
)

type rawEvent struct {
	Type    string          `json:"type"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

func readEvents(t *testing.T, body string) []rawEvent {
	t.Helper()
	var events []rawEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		var ev rawEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), scanner.Text())
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestPageHandler_HomePage_Await(t *testing.T) {
	router, _ := setupRouterTest(t, WithImageStrategy(imageurl.NewShopifyStrategy()))

	w := doRequest(t, router, http.MethodGet, "/pages/home?await=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	doc := decodeBody[HomeDocument](t, w)
	require.NotNil(t, doc.FeaturedCollection)
	assert.Equal(t, "/collections/educational-toys", doc.FeaturedCollection.URL)
	require.NotNil(t, doc.FeaturedCollection.Image)
	assert.Contains(t, doc.FeaturedCollection.Image.URL, "width=1200")

	assert.Equal(t, storefront.StateReady, doc.RecommendedProducts.Status)
	require.Len(t, doc.RecommendedProducts.Data, 4)
	card := doc.RecommendedProducts.Data[0]
	assert.Equal(t, "Wooden Building Blocks", card.Title)
	assert.Equal(t, "/products/wooden-building-blocks", card.URL)
	assert.NotEmpty(t, card.Price)
	require.NotNil(t, card.Image)
	assert.Equal(t, "Wooden Building Blocks", card.Image.Alt)
}

func TestPageHandler_HomePage_Stream(t *testing.T) {
	router, env := setupRouterTest(t)
	env.Provider.Delay(storefront.QueryRecommendedProducts, 100*time.Millisecond)

	w := doRequest(t, router, http.MethodGet, "/pages/home", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	events := readEvents(t, w.Body.String())
	require.Len(t, events, 2)

	assert.Equal(t, eventDocument, events[0].Type)
	var shell HomeDocument
	require.NoError(t, json.Unmarshal(events[0].Payload, &shell))
	require.NotNil(t, shell.FeaturedCollection)
	assert.Equal(t, storefront.StatePending, shell.RecommendedProducts.Status)
	assert.Equal(t, view.FallbackRecommendedProducts, shell.RecommendedProducts.Fallback)
	assert.Empty(t, shell.RecommendedProducts.Data)

	assert.Equal(t, eventSection, events[1].Type)
	assert.Equal(t, SectionRecommendedProducts, events[1].Name)
	var section view.Section[[]view.ProductCard]
	require.NoError(t, json.Unmarshal(events[1].Payload, &section))
	assert.Equal(t, storefront.StateReady, section.Status)
	assert.Len(t, section.Data, 4)
}

func TestPageHandler_HomePage_DeferredFailure(t *testing.T) {
	router, env := setupRouterTest(t)
	env.Provider.Fail(storefront.QueryRecommendedProducts, errors.New("upstream timeout"))

	w := doRequest(t, router, http.MethodGet, "/pages/home?await=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	doc := decodeBody[HomeDocument](t, w)
	assert.NotNil(t, doc.FeaturedCollection)
	assert.Equal(t, storefront.StateUnavailable, doc.RecommendedProducts.Status)
	assert.Empty(t, doc.RecommendedProducts.Data)
}

func TestPageHandler_HomePage_CriticalFailure(t *testing.T) {
	router, env := setupRouterTest(t)
	env.Provider.Fail(storefront.QueryFeaturedCollection, errors.New("upstream down"))

	for _, target := range []string{"/pages/home", "/pages/home?await=true"} {
		t.Run(target, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, target, nil)
			assert.Equal(t, http.StatusBadGateway, w.Code)

			resp := decodeBody[ErrorResponse](t, w)
			assert.Equal(t, "critical_load_failed", resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestPageHandler_Layout_Await(t *testing.T) {
	router, _ := setupRouterTest(t)

	w := doRequest(t, router, http.MethodGet, "/pages/layout?await=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessionCookie(t, w)

	doc := decodeBody[LayoutDocument](t, w)
	assert.Equal(t, "Toy Store", doc.Header.Shop.Name)
	require.NotEmpty(t, doc.Header.Menu.Items)
	assert.Equal(t, "/collections/all", doc.Header.Menu.Items[0].URL)

	assert.Equal(t, storefront.StateReady, doc.Cart.Status)
	require.NotNil(t, doc.Cart.Badge.Count)
	assert.Equal(t, 0, *doc.Cart.Badge.Count)
	assert.Equal(t, "Cart with 0 items", doc.Cart.Badge.AriaLabel)

	assert.Equal(t, storefront.StateReady, doc.Footer.Status)
	require.NotNil(t, doc.Footer.Data)
	assert.Equal(t, "/search", doc.Footer.Data.Items[0].URL)

	assert.Equal(t, storefront.StateReady, doc.IsLoggedIn.Status)
	assert.False(t, doc.IsLoggedIn.Data)
	assert.Equal(t, view.FallbackAccount, doc.IsLoggedIn.Label)
}

func TestPageHandler_Layout_LoggedIn(t *testing.T) {
	ja := NewCustomerAuth("test-secret")
	_, token, err := ja.Encode(map[string]interface{}{"sub": "customer-1"})
	require.NoError(t, err)
	router, _ := setupRouterTest(t, WithCustomerAuth(ja))

	w := doRequest(t, router, http.MethodGet, "/pages/layout?await=true", nil,
		&http.Cookie{Name: CustomerTokenCookieName, Value: token})
	require.Equal(t, http.StatusOK, w.Code)

	doc := decodeBody[LayoutDocument](t, w)
	assert.True(t, doc.IsLoggedIn.Data)
	assert.Equal(t, "Account", doc.IsLoggedIn.Label)
}

func TestPageHandler_Layout_Stream(t *testing.T) {
	router, env := setupRouterTest(t)
	env.Provider.Delay(storefront.QueryFooter, 100*time.Millisecond)

	w := doRequest(t, router, http.MethodGet, "/pages/layout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	events := readEvents(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, eventDocument, events[0].Type)

	var shell LayoutDocument
	require.NoError(t, json.Unmarshal(events[0].Payload, &shell))
	assert.Equal(t, "Toy Store", shell.Header.Shop.Name)
	assert.Equal(t, storefront.StatePending, shell.Footer.Status)

	last := events[len(events)-1]
	assert.Equal(t, eventSection, last.Type)
	assert.Equal(t, SectionFooter, last.Name)
	var footer view.Section[*storefront.Menu]
	require.NoError(t, json.Unmarshal(last.Payload, &footer))
	assert.Equal(t, storefront.StateReady, footer.Status)
	require.NotNil(t, footer.Data)
}

func TestPageHandler_Layout_FooterFailure(t *testing.T) {
	router, env := setupRouterTest(t)
	env.Provider.Fail(storefront.QueryFooter, errors.New("upstream timeout"))

	w := doRequest(t, router, http.MethodGet, "/pages/layout?await=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	doc := decodeBody[LayoutDocument](t, w)
	assert.Equal(t, "Toy Store", doc.Header.Shop.Name)
	assert.Equal(t, storefront.StateUnavailable, doc.Footer.Status)
	assert.Nil(t, doc.Footer.Data)
}

func TestPageHandler_Layout_CriticalFailure(t *testing.T) {
	router, env := setupRouterTest(t)
	env.Provider.Fail(storefront.QueryHeader, errors.New("upstream down"))

	w := doRequest(t, router, http.MethodGet, "/pages/layout", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "critical_load_failed", decodeBody[ErrorResponse](t, w).Error.Code)
}
