package imageurl

import (
	"net/url"
	"strconv"

	"github.com/tendant/simple-storefront/pkg/storefront"
)

// Transform describes the rendition a page asks for. Zero fields are left to
// the image host.
type Transform struct {
	Width  int
	Height int
	Crop   string // "center", "top", "bottom", "left", "right"
}

// IsZero reports whether no transform is requested.
func (t Transform) IsZero() bool {
	return t.Width == 0 && t.Height == 0 && t.Crop == ""
}

// Strategy defines how image URLs are built for rendering
type Strategy interface {
	// ImageURL returns the URL to render img at t, or "" for a nil image
	ImageURL(img *storefront.Image, t Transform) string
}

// PassthroughStrategy returns the provider URL unchanged
type PassthroughStrategy struct{}

func NewPassthroughStrategy() *PassthroughStrategy {
	return &PassthroughStrategy{}
}

func (s *PassthroughStrategy) ImageURL(img *storefront.Image, t Transform) string {
	if img == nil {
		return ""
	}
	return img.URL
}

// ShopifyStrategy asks the Shopify CDN for a resized rendition using its
// width, height and crop query parameters.
type ShopifyStrategy struct{}

func NewShopifyStrategy() *ShopifyStrategy {
	return &ShopifyStrategy{}
}

func (s *ShopifyStrategy) ImageURL(img *storefront.Image, t Transform) string {
	if img == nil || img.URL == "" {
		return ""
	}
	u, err := url.Parse(img.URL)
	if err != nil {
		return img.URL
	}
	applyTransform(u, t)
	return u.String()
}

func applyTransform(u *url.URL, t Transform) {
	if t.IsZero() {
		return
	}
	q := u.Query()
	if t.Width > 0 {
		q.Set("width", strconv.Itoa(t.Width))
	}
	if t.Height > 0 {
		q.Set("height", strconv.Itoa(t.Height))
	}
	if t.Crop != "" && t.Width > 0 && t.Height > 0 {
		q.Set("crop", t.Crop)
	}
	u.RawQuery = q.Encode()
}
