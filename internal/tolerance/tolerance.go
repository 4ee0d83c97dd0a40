// Package tolerance compares values extracted from a scanned document with
// the values of the expense line they are supposed to match.
package tolerance

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// AmountTolerancePercent is the relative band applied to the larger magnitude.
	AmountTolerancePercent = decimal.RequireFromString("0.05")

	// AmountToleranceFloor is the minimum absolute band, in currency units.
	AmountToleranceFloor = decimal.NewFromInt(10)
)

// packedCenturyPivot splits two-digit years: YY <= pivot is 20YY, otherwise 19YY.
const packedCenturyPivot = 30

// isoLayouts are the date-time forms accepted after the packed form, with and
// without seconds or zone.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDate reads a calendar date from the formats produced by the
// extraction service, in order: packed DDMMYY, an ISO date-time, or a bare
// YYYY-MM-DD. Time-of-day and zone are discarded; a bare date is never
// shifted across timezones.
func ParseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}

	if d, ok := parsePacked(s); ok {
		return d, true
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}

	if d, err := civil.ParseDate(s); err == nil && d.IsValid() {
		return d, true
	}

	return civil.Date{}, false
}

func parsePacked(s string) (civil.Date, bool) {
	if len(s) != 6 {
		return civil.Date{}, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return civil.Date{}, false
		}
	}

	day := int(s[0]-'0')*10 + int(s[1]-'0')
	month := int(s[2]-'0')*10 + int(s[3]-'0')
	yy := int(s[4]-'0')*10 + int(s[5]-'0')

	year := 1900 + yy
	if yy <= packedCenturyPivot {
		year = 2000 + yy
	}

	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

// CompareDates reports whether a and b name the same calendar day.
// Absent or unparseable input never matches.
func CompareDates(a, b string) bool {
	da, ok := ParseDate(a)
	if !ok {
		return false
	}
	db, ok := ParseDate(b)
	if !ok {
		return false
	}
	return da == db
}

// AmountTolerance returns the allowed difference between a and b:
// the larger of 5% of max(|a|, |b|) and the fixed floor.
func AmountTolerance(a, b decimal.Decimal) decimal.Decimal {
	scaled := decimal.Max(a.Abs(), b.Abs()).Mul(AmountTolerancePercent)
	return decimal.Max(scaled, AmountToleranceFloor)
}

// CompareAmountValues reports whether |a-b| is within AmountTolerance.
// Absent input never matches.
func CompareAmountValues(a, b domain.Optional[decimal.Decimal]) bool {
	va, ok := a.Get()
	if !ok {
		return false
	}
	vb, ok := b.Get()
	if !ok {
		return false
	}
	return va.Sub(vb).Abs().LessThanOrEqual(AmountTolerance(va, vb))
}

// CompareAmounts coerces both strings to numbers and compares them.
// Blank or non-numeric input never matches.
func CompareAmounts(a, b string) bool {
	return CompareAmountValues(coerce(a), coerce(b))
}

func coerce(s string) domain.Optional[decimal.Decimal] {
	d, ok := domain.ParseAmount(s)
	if !ok {
		return domain.None[decimal.Decimal]()
	}
	return domain.Some(d)
}
