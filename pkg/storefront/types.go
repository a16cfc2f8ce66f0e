package storefront

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Priority tags a page query as critical or deferred.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityDeferred
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Query names understood by the content providers.
const (
	QueryFeaturedCollection  = "featured-collection"
	QueryRecommendedProducts = "recommended-products"
	QueryHeader              = "header"
	QueryFooter              = "footer"
	QueryCart                = "cart"
)

// Locale is the buyer context injected into every query.
type Locale struct {
	Country  string `json:"country"`
	Language string `json:"language"`
}

// DefaultLocale is used when no locale is configured.
var DefaultLocale = Locale{Country: "US", Language: "EN"}

// IsZero reports whether no locale field is set.
func (l Locale) IsZero() bool {
	return l.Country == "" && l.Language == ""
}

// Query is a named provider query. Document carries the provider-specific
// query text and may be empty when the provider resolves Name itself.
type Query struct {
	Name      string         `json:"name"`
	Document  string         `json:"document,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// WithVariables returns a copy of q with vars merged over its variables.
func (q Query) WithVariables(vars map[string]any) Query {
	merged := make(map[string]any, len(q.Variables)+len(vars))
	for k, v := range q.Variables {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	q.Variables = merged
	return q
}

// WithLocale sets the country and language variables unless already present.
func (q Query) WithLocale(l Locale) Query {
	if l.IsZero() {
		return q
	}
	vars := map[string]any{}
	if _, ok := q.Variables["country"]; !ok && l.Country != "" {
		vars["country"] = l.Country
	}
	if _, ok := q.Variables["language"]; !ok && l.Language != "" {
		vars["language"] = l.Language
	}
	return q.WithVariables(vars)
}

// StringVar returns a string variable or "".
func (q Query) StringVar(name string) string {
	s, _ := q.Variables[name].(string)
	return s
}

// ContentDocument is the immutable payload a provider returns for a query.
type ContentDocument struct {
	Query      string          `json:"query"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewContentDocument marshals v into a document for query.
func NewContentDocument(query string, v any) (*ContentDocument, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", query, err)
	}
	return &ContentDocument{Query: query, Data: data, ReceivedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the document payload into v.
func (d *ContentDocument) Decode(v any) error {
	if d == nil || len(d.Data) == 0 {
		return fmt.Errorf("decode document: %w", ErrQueryNotFound)
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode %s document: %w", d.Query, err)
	}
	return nil
}

// Money is an amount in a currency.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// NewMoney parses amount, panicking on malformed input. Intended for fixtures.
func NewMoney(amount, currency string) Money {
	return Money{Amount: decimal.RequireFromString(amount), CurrencyCode: currency}
}

// Times returns m multiplied by qty.
func (m Money) Times(qty int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(qty))), CurrencyCode: m.CurrencyCode}
}

// Plus adds o to m. The currency of m wins unless m has none.
func (m Money) Plus(o Money) Money {
	code := m.CurrencyCode
	if code == "" {
		code = o.CurrencyCode
	}
	return Money{Amount: m.Amount.Add(o.Amount), CurrencyCode: code}
}

// Image is a provider-hosted image.
type Image struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type Collection struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
	Image  *Image `json:"image,omitempty"`
}

type PriceRange struct {
	MinVariantPrice Money `json:"minVariantPrice"`
}

type Product struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Handle        string     `json:"handle"`
	PriceRange    PriceRange `json:"priceRange"`
	FeaturedImage *Image     `json:"featuredImage,omitempty"`
}

// CollectionConnection and ProductConnection mirror the provider's paginated
// list shape.
type CollectionConnection struct {
	Nodes []Collection `json:"nodes"`
}

type ProductConnection struct {
	Nodes []Product `json:"nodes"`
}

// FeaturedCollectionData is the payload of QueryFeaturedCollection.
type FeaturedCollectionData struct {
	Collections CollectionConnection `json:"collections"`
}

// RecommendedProductsData is the payload of QueryRecommendedProducts.
type RecommendedProductsData struct {
	Products ProductConnection `json:"products"`
}

type MenuItem struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resourceId,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Title      string     `json:"title"`
	Type       string     `json:"type,omitempty"`
	URL        string     `json:"url"`
	Items      []MenuItem `json:"items,omitempty"`
}

type Menu struct {
	ID    string     `json:"id"`
	Items []MenuItem `json:"items"`
}

type Domain struct {
	URL string `json:"url"`
}

type Shop struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	PrimaryDomain Domain `json:"primaryDomain"`
}

// HeaderData is the payload of QueryHeader.
type HeaderData struct {
	Shop Shop  `json:"shop"`
	Menu *Menu `json:"menu"`
}

// FooterData is the payload of QueryFooter.
type FooterData struct {
	Menu *Menu `json:"menu"`
}

// Merchandise is the purchasable variant behind a cart line.
type Merchandise struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	ProductTitle  string `json:"productTitle,omitempty"`
	ProductHandle string `json:"productHandle,omitempty"`
	Image         *Image `json:"image,omitempty"`
	Price         Money  `json:"price"`
}

type CartLine struct {
	ID          string      `json:"id"`
	Quantity    int         `json:"quantity"`
	Merchandise Merchandise `json:"merchandise"`
}

// CartSnapshot is a server-confirmed cart. Acknowledged lists the client
// mutation ids the snapshot reflects; it is empty when the provider cannot
// correlate mutations.
type CartSnapshot struct {
	ID            string      `json:"id"`
	CheckoutURL   string      `json:"checkoutUrl,omitempty"`
	Lines         []CartLine  `json:"lines"`
	TotalQuantity int         `json:"totalQuantity"`
	Subtotal      Money       `json:"subtotal"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	Acknowledged  []uuid.UUID `json:"acknowledged,omitempty"`
}

// Acknowledges reports whether the snapshot reflects mutation id.
func (s *CartSnapshot) Acknowledges(id uuid.UUID) bool {
	if s == nil {
		return false
	}
	for _, ack := range s.Acknowledged {
		if ack == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the snapshot.
func (s *CartSnapshot) Clone() *CartSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Lines = append([]CartLine(nil), s.Lines...)
	c.Acknowledged = append([]uuid.UUID(nil), s.Acknowledged...)
	return &c
}

// Line returns the line with id, if any.
func (s *CartSnapshot) Line(id string) (CartLine, bool) {
	if s == nil {
		return CartLine{}, false
	}
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return CartLine{}, false
}

// Totals recomputes TotalQuantity and Subtotal from the lines.
func (s *CartSnapshot) Totals() {
	s.TotalQuantity = 0
	s.Subtotal = Money{Amount: decimal.Zero, CurrencyCode: s.Subtotal.CurrencyCode}
	for _, l := range s.Lines {
		s.TotalQuantity += l.Quantity
		s.Subtotal = s.Subtotal.Plus(l.Merchandise.Price.Times(l.Quantity))
	}
}
