package apertura

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, lines [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := line
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestImportRows(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Tipo Producto", "neto_gravado", "Impuestos", "Codigo Dimension", "Comentario"},
		{"COMB", "600", "126", "100", "ignored"},
		{"", "", "", "", ""},
		{"PEAJE", "abc", "74", "200", ""},
	})

	rows, err := ImportRows(buf)
	if err != nil {
		t.Fatalf("ImportRows() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].TipoProducto != "COMB" || !rows[0].NetoGravado.Equal(dec("600")) || rows[0].CodigoDimension != "100" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if !rows[1].NetoGravado.IsZero() || !rows[1].Impuestos.Equal(dec("74")) {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[0].ID == "" || rows[0].ID == rows[1].ID {
		t.Error("imported rows need distinct ids")
	}
}

func TestImportRows_NoKnownColumns(t *testing.T) {
	buf := workbook(t, [][]interface{}{{"foo", "bar"}, {"1", "2"}})
	if _, err := ImportRows(buf); !errors.Is(err, ErrNoColumns) {
		t.Errorf("ImportRows() = %v, want ErrNoColumns", err)
	}
}

func TestGrid_Import(t *testing.T) {
	ctx := context.Background()
	g := Open(ctx, &mockDecompositions{}, testSource(), []domain.AperturaRow{{ID: "r1", NetoGravado: dec("274")}})

	buf := workbook(t, [][]interface{}{
		{"netoGravado", "impuestos"},
		{"600", "126"},
	})
	n, err := g.Import(ctx, buf, false)
	if err != nil || n != 1 {
		t.Fatalf("Import() = %d, %v", n, err)
	}
	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}
	if got := g.Comparison(); got.Status != StatusEqual {
		t.Errorf("Comparison() = %s %s, want equal", got.Status, got.Difference)
	}

	empty := workbook(t, [][]interface{}{{"netoGravado"}})
	if _, err := g.Import(ctx, empty, true); !errors.Is(err, ErrMinimumRows) {
		t.Errorf("replace with no rows = %v, want ErrMinimumRows", err)
	}
	if g.Len() != 2 {
		t.Errorf("failed replace must not drop rows, Len() = %d", g.Len())
	}
}
