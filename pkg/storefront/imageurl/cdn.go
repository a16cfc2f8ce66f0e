package imageurl

import (
	"net/url"
	"strings"

	"github.com/tendant/simple-storefront/pkg/storefront"
)

// CDNStrategy serves provider images through our own CDN host, keeping the
// original path and passing transforms as query parameters.
type CDNStrategy struct {
	CDNBaseURL string // e.g., "https://images.example.com"
	base       *url.URL
}

// NewCDNStrategy creates a CDN strategy. An unparsable base URL yields a
// strategy that returns provider URLs unchanged.
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	cdnBaseURL = strings.TrimSuffix(cdnBaseURL, "/")
	s := &CDNStrategy{CDNBaseURL: cdnBaseURL}
	if u, err := url.Parse(cdnBaseURL); err == nil && u.Scheme != "" && u.Host != "" {
		s.base = u
	}
	return s
}

func (s *CDNStrategy) ImageURL(img *storefront.Image, t Transform) string {
	if img == nil || img.URL == "" {
		return ""
	}
	u, err := url.Parse(img.URL)
	if err != nil || s.base == nil || !u.IsAbs() {
		return img.URL
	}

	rewritten := *u
	rewritten.Scheme = s.base.Scheme
	rewritten.Host = s.base.Host
	rewritten.Path = strings.TrimSuffix(s.base.Path, "/") + u.Path
	rewritten.RawPath = ""
	applyTransform(&rewritten, t)
	return rewritten.String()
}
