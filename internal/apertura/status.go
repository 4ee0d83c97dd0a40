package apertura

import (
	"errors"
	"fmt"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/shopspring/decimal"
)

// Status classifies the grid total against the source total.
type Status string

const (
	StatusEqual Status = "equal"
	StatusUnder Status = "under"
	StatusOver  Status = "over"
)

// Tolerance is the largest absolute difference still treated as equal (exclusive).
var Tolerance = decimal.RequireFromString("0.01")

// Comparison is the reconciliation state of the grid.
type Comparison struct {
	Status      Status
	GridTotal   decimal.Decimal
	SourceTotal decimal.Decimal
	// Difference is the absolute shortfall or excess.
	Difference decimal.Decimal
}

// Compare classifies grid against source.
func Compare(grid, source decimal.Decimal) Comparison {
	diff := grid.Sub(source).Abs()
	c := Comparison{GridTotal: grid, SourceTotal: source, Difference: diff}
	switch {
	case diff.LessThan(Tolerance):
		c.Status = StatusEqual
	case grid.LessThan(source):
		c.Status = StatusUnder
	default:
		c.Status = StatusOver
	}
	return c
}

// Sum totals netoGravado+exento+impuestos across rows.
func Sum(rows []domain.AperturaRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Total())
	}
	return total
}

var (
	// ErrNotReconciled rejects a save whose total differs from the source.
	ErrNotReconciled = errors.New("apertura total does not match source total")
	// ErrMinimumRows rejects removing the last row.
	ErrMinimumRows = errors.New("apertura needs at least one row")
	// ErrSaveInFlight rejects a save while another is running.
	ErrSaveInFlight = errors.New("save already in progress")
	// ErrRowNotFound is returned for unknown row ids.
	ErrRowNotFound = errors.New("row not found")
	// ErrUnknownField is returned for fields outside FieldOrder.
	ErrUnknownField = errors.New("unknown field")
)

// DiscrepancyError reports the shortfall or excess that blocked a save.
type DiscrepancyError struct {
	Status     Status
	GridTotal  decimal.Decimal
	Total      decimal.Decimal
	Difference decimal.Decimal
}

func (e *DiscrepancyError) Error() string {
	what := "shortfall"
	if e.Status == StatusOver {
		what = "excess"
	}
	return fmt.Sprintf("apertura total %s does not match source total %s: %s of %s",
		domain.FormatAmount(e.GridTotal), domain.FormatAmount(e.Total), what, domain.FormatAmount(e.Difference))
}

func (e *DiscrepancyError) Unwrap() error { return ErrNotReconciled }
