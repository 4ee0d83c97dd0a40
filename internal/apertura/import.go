package apertura

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ErrNoColumns is returned when a sheet's header row names no known field.
var ErrNoColumns = errors.New("sheet header names no apertura field")

// ImportRows reads rows from the first sheet of an XLSX workbook. The first
// row is a header naming fields (see ParseField); unknown columns are
// ignored and blank lines skipped.
func ImportRows(r io.Reader) ([]domain.AperturaRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	lines, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(lines) == 0 {
		return nil, ErrNoColumns
	}

	columns := make(map[int]Field)
	for i, h := range lines[0] {
		if field, err := ParseField(h); err == nil {
			columns[i] = field
		}
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	var rows []domain.AperturaRow
	for _, line := range lines[1:] {
		if blank(line) {
			continue
		}
		row := domain.AperturaRow{ID: uuid.New().String()}
		for i, cell := range line {
			if field, ok := columns[i]; ok {
				_ = setValue(&row, field, cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(line []string) bool {
	for _, c := range line {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Import loads rows from an XLSX workbook into the grid, replacing the
// current rows or appending to them.
func (g *Grid) Import(ctx context.Context, r io.Reader, replace bool) (int, error) {
	rows, err := ImportRows(r)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if replace {
		if len(rows) == 0 {
			return 0, ErrMinimumRows
		}
		g.rows = g.rows[:0]
	}
	for _, row := range rows {
		g.rows = append(g.rows, &gridRow{row: row, names: codes.Names{}})
	}
	g.persistDraftLocked(ctx)

	g.log.Info().Int("rows", len(rows)).Bool("replace", replace).Msg("Imported apertura rows")
	return len(rows), nil
}
