package presets

import (
	"context"
	"fmt"

	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/blob"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/memory"
)

// SampleMerchandise is the variant catalog seeded into development carts.
var SampleMerchandise = []storefront.Merchandise{
	{
		ID:            "gid://shopify/ProductVariant/1001",
		Title:         "Default Title",
		ProductTitle:  "Wooden Building Blocks",
		ProductHandle: "wooden-building-blocks",
		Price:         storefront.NewMoney("24.00", "USD"),
	},
	{
		ID:            "gid://shopify/ProductVariant/1002",
		Title:         "Default Title",
		ProductTitle:  "Junior Art Set",
		ProductHandle: "junior-art-set",
		Price:         storefront.NewMoney("18.50", "USD"),
	},
	{
		ID:            "gid://shopify/ProductVariant/1003",
		Title:         "Default Title",
		ProductTitle:  "Counting Bears",
		ProductHandle: "counting-bears",
		Price:         storefront.NewMoney("12.00", "USD"),
	},
	{
		ID:            "gid://shopify/ProductVariant/1004",
		Title:         "Default Title",
		ProductTitle:  "Rainbow Kite",
		ProductHandle: "rainbow-kite",
		Price:         storefront.NewMoney("15.75", "USD"),
	},
}

// SampleDocuments returns the query payloads of a small toy shop, keyed by
// query name.
func SampleDocuments() map[string]any {
	products := make([]storefront.Product, 0, len(SampleMerchandise))
	for i, m := range SampleMerchandise {
		products = append(products, storefront.Product{
			ID:         fmt.Sprintf("gid://shopify/Product/%d", 101+i),
			Title:      m.ProductTitle,
			Handle:     m.ProductHandle,
			PriceRange: storefront.PriceRange{MinVariantPrice: m.Price},
			FeaturedImage: &storefront.Image{
				URL:    fmt.Sprintf("https://cdn.shopify.com/s/files/1/sample/%s.jpg", m.ProductHandle),
				Width:  800,
				Height: 800,
			},
		})
	}

	return map[string]any{
		storefront.QueryFeaturedCollection: storefront.FeaturedCollectionData{
			Collections: storefront.CollectionConnection{Nodes: []storefront.Collection{{
				ID:     "gid://shopify/Collection/1",
				Title:  "Educational Toys",
				Handle: "educational-toys",
				Image: &storefront.Image{
					URL:     "https://cdn.shopify.com/s/files/1/sample/educational-toys.jpg",
					AltText: "Children playing with blocks",
					Width:   1600,
					Height:  900,
				},
			}}},
		},
		storefront.QueryRecommendedProducts: storefront.RecommendedProductsData{
			Products: storefront.ProductConnection{Nodes: products},
		},
		storefront.QueryHeader: storefront.HeaderData{
			Shop: storefront.Shop{
				ID:            "gid://shopify/Shop/1",
				Name:          "Toy Store",
				PrimaryDomain: storefront.Domain{URL: "https://toys.example.com"},
			},
			Menu: &storefront.Menu{
				ID: "gid://shopify/Menu/1",
				Items: []storefront.MenuItem{
					{ID: "gid://shopify/MenuItem/1", Title: "Shop", Type: "CATALOG", URL: "https://toys.example.com/collections/all"},
					{ID: "gid://shopify/MenuItem/2", Title: "About", Type: "PAGE", URL: "https://toys.example.com/pages/about"},
				},
			},
		},
		storefront.QueryFooter: storefront.FooterData{
			Menu: &storefront.Menu{
				ID: "gid://shopify/Menu/2",
				Items: []storefront.MenuItem{
					{ID: "gid://shopify/MenuItem/3", Title: "Search", Type: "SEARCH", URL: "https://toys.example.com/search"},
					{ID: "gid://shopify/MenuItem/4", Title: "Refund Policy", Type: "SHOP_POLICY", URL: "https://toys.example.com/policies/refund-policy"},
				},
			},
		},
	}
}

// Seed loads the sample documents and merchandise into p.
func Seed(p *memory.Provider) error {
	for name, doc := range SampleDocuments() {
		if err := p.SetDocument(name, doc); err != nil {
			return err
		}
	}
	for _, m := range SampleMerchandise {
		p.AddMerchandise(m)
	}
	return nil
}

// Publish writes the sample documents to a blob provider for locale.
func Publish(ctx context.Context, p *blob.Provider, locale storefront.Locale) error {
	for name, doc := range SampleDocuments() {
		q := storefront.Query{Name: name}.WithLocale(locale)
		if err := p.Publish(ctx, q, doc); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
	}
	return nil
}
