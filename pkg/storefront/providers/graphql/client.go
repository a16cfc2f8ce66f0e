// Package graphql implements storefront.ContentProvider against the Shopify
// Storefront GraphQL API.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tidwall/gjson"
)

const (
	DefaultAPIVersion = "2024-10"
	tokenHeader       = "X-Shopify-Storefront-Access-Token"
	maxResponseSize   = 8 << 20
)

// Client talks to one storefront's GraphQL endpoint
type Client struct {
	httpClient *http.Client
	apiURL     string
	version    string
	token      string
	documents  map[string]string
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIVersion sets the Storefront API version segment
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.version = version
		}
	}
}

// WithDocument registers or replaces the GraphQL document for a query name
func WithDocument(name, document string) Option {
	return func(c *Client) {
		c.documents[name] = document
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the store at apiURL, e.g. https://shop.myshopify.com
func New(apiURL, token string, opts ...Option) (*Client, error) {
	if apiURL == "" {
		return nil, errors.New("storefront API URL is required")
	}
	if token == "" {
		return nil, errors.New("storefront API token is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		version:    DefaultAPIVersion,
		token:      token,
		documents:  DefaultDocuments(),
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the GraphQL URL requests are posted to.
func (c *Client) Endpoint() string {
	return fmt.Sprintf("%s/api/%s/graphql.json", c.apiURL, c.version)
}

func (c *Client) Query(ctx context.Context, q storefront.Query) (*storefront.ContentDocument, error) {
	document := q.Document
	if document == "" {
		document = c.documents[q.Name]
	}
	if document == "" {
		return nil, c.wrap("query", fmt.Errorf("%w: no document for %s", storefront.ErrQueryNotFound, q.Name))
	}

	data, err := c.do(ctx, document, q.Variables)
	if err != nil {
		return nil, c.wrap("query", err)
	}

	if q.Name == storefront.QueryCart {
		cart := data.Get("cart")
		if !present(cart) {
			return nil, c.wrap("query", fmt.Errorf("%w: %s", storefront.ErrCartNotFound, q.StringVar("cartId")))
		}
		snapshot, err := parseCart(cart)
		if err != nil {
			return nil, c.wrap("query", err)
		}
		return storefront.NewContentDocument(q.Name, snapshot)
	}

	return &storefront.ContentDocument{
		Query:      q.Name,
		Data:       json.RawMessage(data.Raw),
		ReceivedAt: c.now(),
	}, nil
}

func (c *Client) Mutate(ctx context.Context, cartID string, m storefront.CartMutation) (*storefront.CartSnapshot, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if cartID == "" && m.Kind != storefront.MutationAdd {
		return nil, c.wrap("mutate", fmt.Errorf("%w: %s needs an existing cart", storefront.ErrCartNotFound, m.Kind))
	}

	var (
		op        string
		document  string
		variables map[string]any
	)
	switch m.Kind {
	case storefront.MutationAdd:
		line := map[string]any{"merchandiseId": m.MerchandiseID, "quantity": m.Quantity}
		if cartID == "" {
			op, document = "cartCreate", CartCreateMutation
			variables = map[string]any{"input": map[string]any{"lines": []any{line}}}
		} else {
			op, document = "cartLinesAdd", CartLinesAddMutation
			variables = map[string]any{"cartId": cartID, "lines": []any{line}}
		}
	case storefront.MutationUpdate, storefront.MutationAdjust:
		qty := m.Quantity
		if m.Kind == storefront.MutationAdjust {
			current, err := c.lineQuantity(ctx, cartID, m.LineID)
			if err != nil {
				return nil, c.wrap("mutate", err)
			}
			qty = m.TargetQuantity(current)
		}
		op, document = "cartLinesUpdate", CartLinesUpdateMutation
		variables = map[string]any{
			"cartId": cartID,
			"lines":  []any{map[string]any{"id": m.LineID, "quantity": qty}},
		}
	case storefront.MutationRemove:
		op, document = "cartLinesRemove", CartLinesRemoveMutation
		variables = map[string]any{"cartId": cartID, "lineIds": []string{m.LineID}}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", storefront.ErrInvalidMutation, m.Kind)
	}

	data, err := c.do(ctx, document, variables)
	if err != nil {
		return nil, c.wrap(op, err)
	}
	result := data.Get(op)
	if msgs := userErrors(result.Get("userErrors")); len(msgs) > 0 {
		return nil, c.wrap(op, fmt.Errorf("%w: %s", storefront.ErrMutationRejected, strings.Join(msgs, "; ")))
	}
	cart := result.Get("cart")
	if !present(cart) {
		return nil, c.wrap(op, fmt.Errorf("%w: %s returned no cart", storefront.ErrCartNotFound, op))
	}
	snapshot, err := parseCart(cart)
	if err != nil {
		return nil, c.wrap(op, err)
	}
	return snapshot, nil
}

func (c *Client) lineQuantity(ctx context.Context, cartID, lineID string) (int, error) {
	data, err := c.do(ctx, c.documents[storefront.QueryCart], map[string]any{"cartId": cartID})
	if err != nil {
		return 0, err
	}
	cart := data.Get("cart")
	if !present(cart) {
		return 0, fmt.Errorf("%w: %s", storefront.ErrCartNotFound, cartID)
	}
	for _, line := range cart.Get("lines.nodes").Array() {
		if line.Get("id").String() == lineID {
			return int(line.Get("quantity").Int()), nil
		}
	}
	return 0, fmt.Errorf("cart line %s does not exist", lineID)
}

// do posts a GraphQL request and returns the data member of the response.
func (c *Client) do(ctx context.Context, document string, variables map[string]any) (gjson.Result, error) {
	body, err := json.Marshal(map[string]any{"query": document, "variables": variables})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tokenHeader, c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	c.logger.DebugContext(ctx, "storefront api request",
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"bytes", len(raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, errors.New("response is not valid JSON")
	}
	if msgs := graphQLErrors(gjson.GetBytes(raw, "errors")); len(msgs) > 0 {
		return gjson.Result{}, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}
	data := gjson.GetBytes(raw, "data")
	if !present(data) {
		return gjson.Result{}, errors.New("response has no data")
	}
	return data, nil
}

func (c *Client) wrap(op string, err error) error {
	return &storefront.ProviderError{Provider: "graphql", Op: op, Err: err}
}

func graphQLErrors(r gjson.Result) []string {
	var msgs []string
	for _, e := range r.Array() {
		msg := e.Get("message").String()
		if msg == "" {
			msg = e.Raw
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func userErrors(r gjson.Result) []string {
	var msgs []string
	for _, e := range r.Array() {
		msg := e.Get("message").String()
		if code := e.Get("code").String(); code != "" {
			msg = code + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func parseCart(r gjson.Result) (*storefront.CartSnapshot, error) {
	subtotal, err := parseMoney(r.Get("cost.subtotalAmount"))
	if err != nil {
		return nil, fmt.Errorf("cart subtotal: %w", err)
	}
	snapshot := &storefront.CartSnapshot{
		ID:            r.Get("id").String(),
		CheckoutURL:   r.Get("checkoutUrl").String(),
		TotalQuantity: int(r.Get("totalQuantity").Int()),
		Subtotal:      subtotal,
		Lines:         []storefront.CartLine{},
	}
	if ts := r.Get("updatedAt"); ts.Exists() {
		t, err := time.Parse(time.RFC3339, ts.String())
		if err != nil {
			return nil, fmt.Errorf("cart updatedAt: %w", err)
		}
		snapshot.UpdatedAt = t.UTC()
	}

	for _, node := range r.Get("lines.nodes").Array() {
		merch := node.Get("merchandise")
		price, err := parseMoney(merch.Get("price"))
		if err != nil {
			return nil, fmt.Errorf("line %s price: %w", node.Get("id").String(), err)
		}
		snapshot.Lines = append(snapshot.Lines, storefront.CartLine{
			ID:       node.Get("id").String(),
			Quantity: int(node.Get("quantity").Int()),
			Merchandise: storefront.Merchandise{
				ID:            merch.Get("id").String(),
				Title:         merch.Get("title").String(),
				ProductTitle:  merch.Get("product.title").String(),
				ProductHandle: merch.Get("product.handle").String(),
				Image:         parseImage(merch.Get("image")),
				Price:         price,
			},
		})
	}
	return snapshot, nil
}

func parseMoney(r gjson.Result) (storefront.Money, error) {
	if !present(r) {
		return storefront.Money{Amount: decimal.Zero}, nil
	}
	amount, err := decimal.NewFromString(r.Get("amount").String())
	if err != nil {
		return storefront.Money{}, err
	}
	return storefront.Money{Amount: amount, CurrencyCode: r.Get("currencyCode").String()}, nil
}

func parseImage(r gjson.Result) *storefront.Image {
	if !present(r) {
		return nil
	}
	return &storefront.Image{
		ID:      r.Get("id").String(),
		URL:     r.Get("url").String(),
		AltText: r.Get("altText").String(),
		Width:   int(r.Get("width").Int()),
		Height:  int(r.Get("height").Int()),
	}
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
