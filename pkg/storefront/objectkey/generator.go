package objectkey

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tendant/simple-storefront/pkg/storefront"
)

// Generator maps a content query to the blob key its document is stored under
type Generator interface {
	GenerateKey(q storefront.Query, locale storefront.Locale) string
}

// LocaleGenerator stores one document per query and locale.
// Structure: {prefix}/{country}-{language}/{query}.json
type LocaleGenerator struct {
	Prefix string
}

func NewLocaleGenerator() *LocaleGenerator {
	return &LocaleGenerator{Prefix: "documents"}
}

func (g *LocaleGenerator) GenerateKey(q storefront.Query, locale storefront.Locale) string {
	return fmt.Sprintf("%s/%s/%s.json", g.prefix(), localeSegment(locale), sanitizePathComponent(q.Name))
}

func (g *LocaleGenerator) prefix() string {
	p := strings.Trim(g.Prefix, "/")
	if p == "" {
		return "documents"
	}
	return p
}

// VariantGenerator adds a digest of the query variables so queries that differ
// only by handle or cursor land on separate documents.
// Structure: {prefix}/{country}-{language}/{query}/{digest}.json
type VariantGenerator struct {
	Prefix       string
	DigestLength int
	// Ignore lists variables left out of the digest, such as the locale pair
	// already encoded in the path.
	Ignore []string
}

func NewVariantGenerator() *VariantGenerator {
	return &VariantGenerator{
		Prefix:       "documents",
		DigestLength: 12,
		Ignore:       []string{"country", "language"},
	}
}

func (g *VariantGenerator) GenerateKey(q storefront.Query, locale storefront.Locale) string {
	base := (&LocaleGenerator{Prefix: g.Prefix}).prefix()
	vars := make(map[string]any, len(q.Variables))
	for k, v := range q.Variables {
		vars[k] = v
	}
	for _, k := range g.Ignore {
		delete(vars, k)
	}
	if len(vars) == 0 {
		return fmt.Sprintf("%s/%s/%s/default.json", base, localeSegment(locale), sanitizePathComponent(q.Name))
	}

	n := g.DigestLength
	if n <= 0 || n > 64 {
		n = 12
	}
	return fmt.Sprintf("%s/%s/%s/%s.json", base, localeSegment(locale), sanitizePathComponent(q.Name), digest(vars)[:n])
}

// CustomFuncGenerator allows callers to provide their own key function
type CustomFuncGenerator struct {
	GenerateFunc func(q storefront.Query, locale storefront.Locale) string
}

func NewCustomFuncGenerator(fn func(q storefront.Query, locale storefront.Locale) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{GenerateFunc: fn}
}

func (g *CustomFuncGenerator) GenerateKey(q storefront.Query, locale storefront.Locale) string {
	return g.GenerateFunc(q, locale)
}

// NewRecommendedGenerator returns the generator used when none is configured
func NewRecommendedGenerator() Generator {
	return NewLocaleGenerator()
}

func localeSegment(l storefront.Locale) string {
	if l.IsZero() {
		l = storefront.DefaultLocale
	}
	return sanitizePathComponent(l.Country + "-" + l.Language)
}

// digest hashes vars in sorted key order
func digest(vars map[string]any) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		v, err := json.Marshal(vars[k])
		if err != nil {
			v = []byte(fmt.Sprint(vars[k]))
		}
		fmt.Fprintf(h, "%s=%s;", k, v)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return strings.ToLower(replacer.Replace(component))
}
