package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/api"
)

// StreamEvent is a decoded line of a streamed page response. Payload is
// left raw so callers can decode it by event type.
type StreamEvent struct {
	Type    string          `json:"type"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Do sends a request with an optional JSON body and returns the response.
func Do(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

// DecodeJSON requires status and decodes the response body into a T.
func DecodeJSON[T any](t *testing.T, resp *http.Response, status int) T {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, status, resp.StatusCode, string(body))

	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

// GetLayout loads the layout page with all sections settled.
func GetLayout(t *testing.T, client *http.Client, serverURL string) api.LayoutDocument {
	t.Helper()
	resp := Do(t, client, http.MethodGet, serverURL+"/pages/layout?await=true", nil)
	return DecodeJSON[api.LayoutDocument](t, resp, http.StatusOK)
}

// GetCart returns the session's derived cart.
func GetCart(t *testing.T, client *http.Client, serverURL string) storefront.CartView {
	t.Helper()
	resp := Do(t, client, http.MethodGet, serverURL+"/cart", nil)
	return DecodeJSON[storefront.CartView](t, resp, http.StatusOK)
}

// AddLine adds merchandise to the session's cart and returns the optimistic
// cart together with the mutation id.
func AddLine(t *testing.T, client *http.Client, serverURL string, req api.AddLineRequest) (storefront.CartView, string) {
	t.Helper()
	resp := Do(t, client, http.MethodPost, serverURL+"/cart/lines", req)
	id := resp.Header.Get("X-Mutation-ID")
	return DecodeJSON[storefront.CartView](t, resp, http.StatusAccepted), id
}

// ReadStream reads a streamed page response until the server ends it.
func ReadStream(t *testing.T, client *http.Client, url string) []StreamEvent {
	t.Helper()
	resp := Do(t, client, http.MethodGet, url, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	var events []StreamEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var ev StreamEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), scanner.Text())
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}
