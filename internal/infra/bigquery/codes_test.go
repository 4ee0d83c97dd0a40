package bigquery

import (
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/rendiciones/internal/domain"
)

func TestToEntries(t *testing.T) {
	rows := []CodeRow{
		{CodeType: "dimension", Code: "200", Name: bigquery.NullString{StringVal: "Ventas", Valid: true}},
		{CodeType: "dimension", Code: " 100 ", Name: bigquery.NullString{StringVal: " Administracion ", Valid: true}},
		{CodeType: "dimension", Code: "300"},
		{CodeType: "dimension", Code: "400", IsActive: bigquery.NullBool{Bool: false, Valid: true}},
		{CodeType: "dimension", Code: "  "},
		{CodeType: "dimension", Code: "500", IsActive: bigquery.NullBool{Bool: true, Valid: true}, Name: bigquery.NullString{StringVal: "Logistica", Valid: true}},
	}

	got := toEntries(rows)
	want := []domain.CodeEntry{
		{Code: "100", Name: "Administracion"},
		{Code: "200", Name: "Ventas"},
		{Code: "300", Name: "300"},
		{Code: "500", Name: "Logistica"},
	}

	if len(got) != len(want) {
		t.Fatalf("toEntries() returned %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestToEntries_Empty(t *testing.T) {
	if got := toEntries(nil); len(got) != 0 {
		t.Errorf("toEntries(nil) = %+v, want empty", got)
	}
}
