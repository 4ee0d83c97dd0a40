package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces free-form monetary text into a decimal.
// It accepts a leading currency symbol, thousands separators and either
// '.' or ',' as the decimal mark ("1.234,56" and "1,234.56" both parse).
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		// comma is the decimal mark
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// AmountOrZero parses s and returns zero when it is blank or not numeric.
func AmountOrZero(s string) decimal.Decimal {
	d, _ := ParseAmount(s)
	return d
}

// FormatAmount renders d with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
