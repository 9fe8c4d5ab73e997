package model

import (
	"strconv"
	"strings"
)

// Money is an amount as the Storefront API returns it: a decimal string in
// major units ("24.50") with an ISO 4217 currency code.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// Cents returns the amount in hundredths of the major unit, rounding half
// away from zero past the second decimal. Malformed amounts yield 0.
func (m Money) Cents() int64 {
	return parseHundredths(m.Amount)
}

// Equal reports whether two amounts are the same value in the same currency.
// "10" and "10.00" are equal.
func (m Money) Equal(o Money) bool {
	return m.CurrencyCode == o.CurrencyCode && m.Cents() == o.Cents()
}

// IsZero reports whether the money value was never populated.
func (m Money) IsZero() bool {
	return m.Amount == "" && m.CurrencyCode == ""
}

// parseHundredths parses a plain decimal without going through float64.
func parseHundredths(s string) int64 {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0
	}

	// Three digits are enough to round the second.
	frac += "000"
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0
		}
	}
	f, _ := strconv.ParseUint(frac[:3], 10, 16)

	n := int64(w)*100 + int64(f+5)/10
	if neg {
		n = -n
	}
	return n
}
