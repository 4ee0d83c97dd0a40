package tolerance

import (
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/shopspring/decimal"
)

// Match classifies one extracted field against its reference value.
type Match string

const (
	Matched       Match = "match"
	Mismatched    Match = "mismatch"
	NotApplicable Match = "not-applicable"
)

// FieldMatchResult holds the classification of every comparable field.
type FieldMatchResult struct {
	Fecha   Match `json:"fecha"`
	Importe Match `json:"importe"`
}

// ClassifyDate is not-applicable when either side is absent and otherwise
// follows CompareDates.
func ClassifyDate(extracted domain.Optional[string], reference string) Match {
	v, ok := extracted.Get()
	if !ok || v == "" || reference == "" {
		return NotApplicable
	}
	if CompareDates(v, reference) {
		return Matched
	}
	return Mismatched
}

// ClassifyAmount is not-applicable when either side is absent and otherwise
// follows CompareAmountValues.
func ClassifyAmount(extracted, reference domain.Optional[decimal.Decimal]) Match {
	if !extracted.IsSet() || !reference.IsSet() {
		return NotApplicable
	}
	if CompareAmountValues(extracted, reference) {
		return Matched
	}
	return Mismatched
}

// MatchFields classifies the comparable fields of an extraction against ref.
func MatchFields(fields domain.ExtractedFields, ref domain.ReferenceLine) FieldMatchResult {
	return FieldMatchResult{
		Fecha:   ClassifyDate(fields.Fecha, ref.Fecha),
		Importe: ClassifyAmount(fields.Importe, ref.Importe),
	}
}
