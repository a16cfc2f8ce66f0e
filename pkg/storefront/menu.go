package storefront

import (
	"net/url"
	"strings"
)

// FallbackHeaderMenu is rendered when the shop has no header menu.
var FallbackHeaderMenu = Menu{
	ID: "gid://shopify/Menu/199655587896",
	Items: []MenuItem{
		{ID: "gid://shopify/MenuItem/461609500728", Title: "Collections", Type: "HTTP", URL: "/collections"},
		{ID: "gid://shopify/MenuItem/461609533496", Title: "Blog", Type: "HTTP", URL: "/blogs/journal"},
		{ID: "gid://shopify/MenuItem/461609566264", Title: "Policies", Type: "HTTP", URL: "/policies"},
		{ID: "gid://shopify/MenuItem/461609599032", ResourceID: "gid://shopify/Page/92591030328", Title: "About", Type: "PAGE", URL: "/pages/about"},
	},
}

// NormalizeMenuURL turns links into the shop's own domains into paths.
// Links elsewhere are returned unchanged.
func NormalizeMenuURL(raw, publicStoreDomain, primaryDomainURL string) string {
	internal := strings.Contains(raw, "myshopify.com") ||
		(publicStoreDomain != "" && strings.Contains(raw, publicStoreDomain)) ||
		(primaryDomainURL != "" && strings.Contains(raw, primaryDomainURL))
	if !internal {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// NormalizeMenu returns menu, or the fallback menu when nil, with empty
// links dropped and internal links rewritten to paths. Nested items are
// normalized too.
func NormalizeMenu(menu *Menu, publicStoreDomain, primaryDomainURL string) Menu {
	src := FallbackHeaderMenu
	if menu != nil {
		src = *menu
	}
	return Menu{ID: src.ID, Items: normalizeItems(src.Items, publicStoreDomain, primaryDomainURL)}
}

func normalizeItems(items []MenuItem, publicStoreDomain, primaryDomainURL string) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		item.URL = NormalizeMenuURL(item.URL, publicStoreDomain, primaryDomainURL)
		if len(item.Items) > 0 {
			item.Items = normalizeItems(item.Items, publicStoreDomain, primaryDomainURL)
		}
		out = append(out, item)
	}
	return out
}
