package view

import (
	"fmt"
	"strconv"

	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/imageurl"
	"golang.org/x/text/language"
)

// Card image renditions.
var (
	ProductImage    = imageurl.Transform{Width: 400, Height: 400, Crop: "center"}
	CollectionImage = imageurl.Transform{Width: 1200}
)

// Renderer builds cards with a given image strategy and language
type Renderer struct {
	Images   imageurl.Strategy
	Language language.Tag
}

// NewRenderer creates a renderer for locale. A nil strategy passes image URLs
// through unchanged.
func NewRenderer(images imageurl.Strategy, locale storefront.Locale) *Renderer {
	if images == nil {
		images = imageurl.NewPassthroughStrategy()
	}
	return &Renderer{Images: images, Language: LanguageTag(locale)}
}

type ImageView struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type ProductCard struct {
	ID    string     `json:"id"`
	URL   string     `json:"url"`
	Title string     `json:"title"`
	Image *ImageView `json:"image,omitempty"`
	Price string     `json:"price"`
}

type CollectionCard struct {
	ID    string     `json:"id"`
	URL   string     `json:"url"`
	Title string     `json:"title"`
	Image *ImageView `json:"image,omitempty"`
}

// ProductCard renders a product tile. Image alt text falls back to the
// product title.
func (r *Renderer) ProductCard(p storefront.Product) ProductCard {
	return ProductCard{
		ID:    p.ID,
		URL:   "/products/" + p.Handle,
		Title: p.Title,
		Image: r.image(p.FeaturedImage, p.Title, ProductImage),
		Price: FormatMoney(p.PriceRange.MinVariantPrice, r.Language),
	}
}

// ProductCards renders ps in order.
func (r *Renderer) ProductCards(ps []storefront.Product) []ProductCard {
	cards := make([]ProductCard, 0, len(ps))
	for _, p := range ps {
		cards = append(cards, r.ProductCard(p))
	}
	return cards
}

// FeaturedCollectionCard renders the home page hero collection, or nil
// when the shop has none.
func (r *Renderer) FeaturedCollectionCard(c *storefront.Collection) *CollectionCard {
	if c == nil {
		return nil
	}
	return &CollectionCard{
		ID:    c.ID,
		URL:   "/collections/" + c.Handle,
		Title: c.Title,
		Image: r.image(c.Image, c.Title, CollectionImage),
	}
}

func (r *Renderer) image(img *storefront.Image, title string, t imageurl.Transform) *ImageView {
	if img == nil || img.URL == "" {
		return nil
	}
	alt := img.AltText
	if alt == "" {
		alt = title
	}
	return &ImageView{URL: r.Images.ImageURL(img, t), Alt: alt, Width: img.Width, Height: img.Height}
}

// Badge is the header cart indicator. Count is nil while the cart loads.
type Badge struct {
	Count     *int   `json:"count"`
	AriaLabel string `json:"ariaLabel"`
}

// Text is what the badge shows next to the bag icon.
func (b Badge) Text() string {
	if b.Count == nil {
		return ""
	}
	return strconv.Itoa(*b.Count)
}

// CartBadge renders the cart section's item count. An unavailable cart
// counts as empty.
func CartBadge(s Section[*storefront.CartView]) Badge {
	if s.Status == storefront.StatePending {
		return Badge{AriaLabel: "Cart with loading items"}
	}
	count := 0
	if s.Status == storefront.StateReady && s.Data != nil {
		count = s.Data.TotalQuantity
	}
	return Badge{Count: &count, AriaLabel: fmt.Sprintf("Cart with %d items", count)}
}

// AccountLabel renders the header account link.
func AccountLabel(s Section[bool]) string {
	if s.Status == storefront.StateReady && s.Data {
		return "Account"
	}
	return FallbackAccount
}
