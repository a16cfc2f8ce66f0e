package view

import (
	"strings"

	"github.com/tendant/simple-storefront/pkg/storefront"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// LanguageTag returns the BCP 47 tag of a storefront locale.
func LanguageTag(l storefront.Locale) language.Tag {
	if l.IsZero() {
		l = storefront.DefaultLocale
	}
	tag, err := language.Parse(strings.ToLower(l.Language) + "-" + strings.ToUpper(l.Country))
	if err != nil {
		return language.English
	}
	return tag
}

// FormatMoney renders m with the currency's standard number of decimals and
// the grouping of tag. Unknown currency codes are appended to the amount.
func FormatMoney(m storefront.Money, tag language.Tag) string {
	unit, err := currency.ParseISO(m.CurrencyCode)
	if err != nil {
		amount := m.Amount.StringFixed(2)
		if m.CurrencyCode == "" {
			return amount
		}
		return amount + " " + m.CurrencyCode
	}

	scale, _ := currency.Standard.Rounding(unit)
	p := message.NewPrinter(tag)
	value := m.Amount.Round(int32(scale)).InexactFloat64()
	formatted := p.Sprint(number.Decimal(value, number.Scale(scale)))

	code := unit.String()
	if sym, ok := currencySymbols[code]; ok {
		return sym + formatted
	}
	return code + " " + formatted
}
