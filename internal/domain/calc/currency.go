package calc

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders v as a fixed-locale USD string: two decimals,
// comma-grouped thousands, e.g. 1234.5 -> "$1,234.50". Negative values keep
// the sign ahead of the currency symbol.
func FormatCurrency(v float64) string {
	d := decimal.NewFromFloat(v)
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatPercent renders a ratio percentage with one decimal, e.g. "40.0%".
func FormatPercent(pct float64) string {
	return decimal.NewFromFloat(pct).StringFixed(1) + "%"
}
