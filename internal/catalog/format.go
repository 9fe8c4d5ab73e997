package catalog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"storefront/internal/model"
)

// DescriptionPreviewLength is the rune length of truncated descriptions.
const DescriptionPreviewLength = 100

const (
	ellipsis    = "..."
	soldOutNote = " - SOLD OUT"
)

// descPolicy is safe for concurrent use once built.
var descPolicy = bluemonday.UGCPolicy()

// FormatMoney renders an amount as "USD 1,234.50", using the currency's
// standard number of fraction digits.
func FormatMoney(m model.Money) string {
	return m.CurrencyCode + " " + formatAmount(m)
}

func formatAmount(m model.Money) string {
	scale := 2
	if unit, err := currency.ParseISO(m.CurrencyCode); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	amount := float64(m.Cents()) / 100
	return message.NewPrinter(language.English).Sprint(number.Decimal(amount, number.Scale(scale)))
}

// VariantLabel renders a variant option: title, price, the compare-at price
// when it differs, and a sold out note.
func VariantLabel(v model.Variant) string {
	price := FormatMoney(v.Price)
	if v.CompareAtPrice != nil && !v.CompareAtPrice.Equal(v.Price) {
		price = fmt.Sprintf("%s (was %s)", price, formatAmount(*v.CompareAtPrice))
	}
	label := v.Title + " - " + price
	if !v.AvailableForSale {
		label += soldOutNote
	}
	return label
}

// PriceRangeLabel renders "USD 10.00" or "USD 10.00 - 25.00".
func PriceRangeLabel(r model.PriceRange) string {
	if r.Min.Equal(r.Max) {
		return FormatMoney(r.Min)
	}
	return FormatMoney(r.Min) + " - " + formatAmount(r.Max)
}

// Truncate shortens text to maxRunes runes, trimming trailing space before
// appending an ellipsis. Text that fits is returned unchanged.
func Truncate(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + ellipsis
}

// SanitizeDescription strips unsafe markup from a product's HTML description.
func SanitizeDescription(html string) string {
	return descPolicy.Sanitize(html)
}

// CartLineLabel renders a cart line as "Mug (Large) x 2".
func CartLineLabel(line model.CartLine) string {
	title := line.ProductTitle
	if title == "" {
		title = line.VariantID
	}
	if line.VariantTitle != "" && line.VariantTitle != "Default Title" {
		title += " (" + line.VariantTitle + ")"
	}
	return fmt.Sprintf("%s x %d", title, line.Quantity)
}
