package storefront

import (
	"context"
	"fmt"
)

// Menu handles requested by the layout queries.
const (
	HeaderMenuHandle = "main-menu"
	FooterMenuHandle = "footer"
)

// HomePage is the data of the storefront home page. FeaturedCollection is
// critical and may be nil when the shop has no collections.
type HomePage struct {
	FeaturedCollection  *Collection
	RecommendedProducts *Deferred[[]Product]

	result *LoadResult
}

// Discard cancels the page's unsettled deferred queries.
func (p *HomePage) Discard() {
	if p.result != nil {
		p.result.Discard()
	}
}

// Header is the critical part of the layout.
type Header struct {
	Shop              Shop   `json:"shop"`
	Menu              Menu   `json:"menu"`
	PublicStoreDomain string `json:"publicStoreDomain,omitempty"`
}

// LayoutRequest identifies the session a layout is rendered for. LoggedIn
// resolves the buyer's login state and may be nil.
type LayoutRequest struct {
	SessionID string
	Locale    Locale
	LoggedIn  func(ctx context.Context) (bool, error)
}

// Layout is the data of the page chrome around every page.
type Layout struct {
	Header     Header
	Cart       *Deferred[*CartView]
	Footer     *Deferred[*Menu]
	IsLoggedIn *Deferred[bool]

	cancel context.CancelFunc
}

// Discard cancels the layout's unsettled deferred parts.
func (l *Layout) Discard() {
	if l.cancel != nil {
		l.cancel()
	}
}

func homePageQueries() []QuerySpec {
	return []QuerySpec{
		CriticalQuery(QueryFeaturedCollection, Query{Name: QueryFeaturedCollection}),
		DeferredQuery(QueryRecommendedProducts, Query{Name: QueryRecommendedProducts}),
	}
}

func layoutQueries() []QuerySpec {
	return []QuerySpec{
		CriticalQuery(QueryHeader, Query{
			Name:      QueryHeader,
			Variables: map[string]any{"headerMenuHandle": HeaderMenuHandle},
		}),
		DeferredQuery(QueryFooter, Query{
			Name:      QueryFooter,
			Variables: map[string]any{"footerMenuHandle": FooterMenuHandle},
		}),
	}
}

func decodeFeaturedCollection(doc *ContentDocument) (*Collection, error) {
	var data FeaturedCollectionData
	if err := doc.Decode(&data); err != nil {
		return nil, err
	}
	if len(data.Collections.Nodes) == 0 {
		return nil, nil
	}
	c := data.Collections.Nodes[0]
	return &c, nil
}

func decodeProducts(doc *ContentDocument) ([]Product, error) {
	var data RecommendedProductsData
	if err := doc.Decode(&data); err != nil {
		return nil, err
	}
	return data.Products.Nodes, nil
}

func decodeHeader(doc *ContentDocument, publicStoreDomain string) (Header, error) {
	var data HeaderData
	if err := doc.Decode(&data); err != nil {
		return Header{}, err
	}
	return Header{
		Shop:              data.Shop,
		Menu:              NormalizeMenu(data.Menu, publicStoreDomain, data.Shop.PrimaryDomain.URL),
		PublicStoreDomain: publicStoreDomain,
	}, nil
}

func decodeFooter(doc *ContentDocument, publicStoreDomain, primaryDomainURL string) (*Menu, error) {
	var data FooterData
	if err := doc.Decode(&data); err != nil {
		return nil, err
	}
	if data.Menu == nil {
		return nil, fmt.Errorf("%w: shop has no footer menu", ErrQueryNotFound)
	}
	m := NormalizeMenu(data.Menu, publicStoreDomain, primaryDomainURL)
	return &m, nil
}
