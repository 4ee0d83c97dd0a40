package header

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleHeader() domain.Header {
	return domain.Header{
		DocumentID:        "doc-1",
		Fecha:             "150125",
		NetoGravado:       dec("800"),
		Exento:            dec("0"),
		Impuestos:         dec("200"),
		ImporteTotal:      dec("1000"),
		CUIT:              "30-71234567-8",
		NumeroComprobante: "0001-00001234",
		Proveedor:         "YPF",
		Moneda:            "ARS",
	}
}

func TestEditor_OpenNormalizes(t *testing.T) {
	e := NewEditor(&mockHeaders{}, zerolog.Nop())
	e.Open(sampleHeader())

	st, ok := e.State()
	if !ok {
		t.Fatal("editor should be open")
	}
	if st.Fecha != "2025-01-15" {
		t.Errorf("Fecha = %q, want 2025-01-15", st.Fecha)
	}
	if st.NetoGravado != "800.00" || st.Exento != "0.00" || st.ImporteTotal != "1000.00" {
		t.Errorf("amounts = %q %q %q", st.NetoGravado, st.Exento, st.ImporteTotal)
	}
}

func TestEditor_SumMismatchRejectsWithoutWrite(t *testing.T) {
	headers := &mockHeaders{}
	e := NewEditor(headers, zerolog.Nop())
	e.Open(sampleHeader())

	_ = e.Set(FieldNetoGravado, "500")
	_ = e.Set(FieldImpuestos, "200")
	_ = e.Set(FieldImporteTotal, "1000")

	_, err := e.Save(context.Background(), nil)
	var mismatch *SumMismatchError
	if !errors.As(err, &mismatch) || !errors.Is(err, ErrSumMismatch) {
		t.Fatalf("Save() error = %v, want SumMismatchError", err)
	}
	if !mismatch.Sum.Equal(dec("700")) || !mismatch.Total.Equal(dec("1000")) {
		t.Errorf("mismatch = %s vs %s", mismatch.Sum, mismatch.Total)
	}
	if len(headers.updates) != 0 {
		t.Fatal("no update may be issued on a sum mismatch")
	}
	if st, _ := e.State(); st.NetoGravado != "500" {
		t.Error("staged edits must survive a rejected save")
	}
}

func TestEditor_SaveBalancedHeader(t *testing.T) {
	var got domain.Header
	headers := &mockHeaders{}
	e := NewEditor(headers, zerolog.Nop())
	e.Open(sampleHeader())

	_ = e.Set(FieldNetoGravado, "800")
	_ = e.Set(FieldExento, "0")
	_ = e.Set(FieldImpuestos, "200")
	_ = e.Set(FieldObservaciones, "  ")

	saved, err := e.Save(context.Background(), func(h domain.Header) { got = h })
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if len(headers.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(headers.updates))
	}
	u := headers.updates[0]
	if !u.NetoGravado.Equal(dec("800")) || !u.Exento.IsZero() || !u.Impuestos.Equal(dec("200")) || !u.ImporteTotal.Equal(dec("1000")) {
		t.Errorf("update amounts = %s %s %s %s", u.NetoGravado, u.Exento, u.Impuestos, u.ImporteTotal)
	}
	if v, _ := u.Fecha.Get(); v != "2025-01-15" {
		t.Errorf("update fecha = %q", v)
	}
	if u.Observaciones.IsSet() || u.CAE.IsSet() {
		t.Error("blank optional fields must be sent as null")
	}
	if got.DocumentID != "doc-1" || got.Fecha != "2025-01-15" {
		t.Errorf("callback record = %+v", got)
	}
	if saved == nil || !saved.ImporteTotal.Equal(dec("1000")) {
		t.Errorf("Save() record = %+v", saved)
	}
	if e.IsOpen() {
		t.Error("editor should close after a successful save")
	}
}

func TestEditor_ZeroTotalSkipsSumCheck(t *testing.T) {
	headers := &mockHeaders{}
	e := NewEditor(headers, zerolog.Nop())
	e.Open(sampleHeader())
	_ = e.Set(FieldImporteTotal, "")
	_ = e.Set(FieldNetoGravado, "123.45")

	if _, err := e.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if !headers.updates[0].ImporteTotal.IsZero() {
		t.Errorf("missing total should be sent as 0")
	}
}

func TestEditor_Validation(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		value   string
		wantErr error
	}{
		{"invalid number", FieldExento, "doce", ErrInvalidNumber},
		{"within tolerance", FieldImpuestos, "200.01", nil},
		{"just outside tolerance", FieldImpuestos, "200.02", ErrSumMismatch},
		{"comma decimal", FieldImpuestos, "200,00", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEditor(&mockHeaders{}, zerolog.Nop())
			e.Open(sampleHeader())
			_ = e.Set(tt.field, tt.value)
			_, err := e.Save(context.Background(), nil)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Save() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEditor_UpdateFailureKeepsEdits(t *testing.T) {
	headers := &mockHeaders{
		UpdateHeaderFunc: func(context.Context, string, domain.HeaderUpdate) (*domain.Header, error) {
			return nil, errors.New("409 conflict")
		},
	}
	e := NewEditor(headers, zerolog.Nop())
	e.Open(sampleHeader())
	_ = e.Set(FieldCAE, "74123456789012")

	called := false
	if _, err := e.Save(context.Background(), func(domain.Header) { called = true }); err == nil {
		t.Fatal("expected update error")
	}
	if called {
		t.Error("callback must not run on failure")
	}
	st, ok := e.State()
	if !ok || st.CAE != "74123456789012" {
		t.Errorf("staged edits lost: %+v", st)
	}
}

func TestEditor_CloseAndReopenRestoresOriginal(t *testing.T) {
	e := NewEditor(&mockHeaders{}, zerolog.Nop())
	rec := sampleHeader()

	e.Open(rec)
	want, _ := e.State()

	_ = e.Set(FieldProveedor, "Otro")
	_ = e.Set(FieldImporteTotal, "1")
	e.Close()

	if _, ok := e.State(); ok {
		t.Fatal("State() should be empty after Close")
	}
	if err := e.Set(FieldCAE, "x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Set() on closed editor = %v, want ErrNotOpen", err)
	}

	e.Open(rec)
	got, _ := e.State()
	if got != want {
		t.Errorf("reopened state = %+v, want %+v", got, want)
	}
}

func TestEditor_Load(t *testing.T) {
	headers := &mockHeaders{
		GetHeaderFunc: func(ctx context.Context, id string) (*domain.Header, error) {
			h := sampleHeader()
			h.DocumentID = id
			return &h, nil
		},
	}
	e := NewEditor(headers, zerolog.Nop())
	if err := e.Load(context.Background(), "doc-9"); err != nil {
		t.Fatal(err)
	}
	rec, ok := e.Record()
	if !ok || rec.DocumentID != "doc-9" {
		t.Errorf("Record() = %+v", rec)
	}
}

func TestParseField(t *testing.T) {
	if f, err := ParseField("ImporteTotal"); err != nil || f != FieldImporteTotal {
		t.Errorf("ParseField() = %q, %v", f, err)
	}
	if _, err := ParseField("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("ParseField(nope) = %v", err)
	}
}

func TestEditor_DescribeProveedor(t *testing.T) {
	src := &mockCodes{ListCodesFunc: func(ctx context.Context, ct domain.CodeType) ([]domain.CodeEntry, error) {
		if ct != domain.CodeProveedor {
			t.Errorf("ListCodes(%s), want proveedor", ct)
		}
		return []domain.CodeEntry{
			{Code: "P-001", Name: "YPF SA"},
			{Code: "P-002", Name: "Shell CAPSA"},
		}, nil
	}}
	e := NewEditor(&mockHeaders{}, zerolog.Nop(), WithResolver(codes.NewResolver(src, zerolog.Nop())))

	rec := sampleHeader()
	rec.ProveedorID = "P-001"
	e.Open(rec)
	ctx := context.Background()

	if name, ok := e.Describe(ctx, FieldProveedorID); !ok || name != "YPF SA" {
		t.Errorf("Describe() = %q, %v; want YPF SA", name, ok)
	}
	if _, ok := e.Describe(ctx, FieldProveedor); ok {
		t.Error("plain text fields have no description")
	}

	_ = e.Set(FieldProveedorID, "P-002")
	if name, ok := e.Describe(ctx, FieldProveedorID); !ok || name != "Shell CAPSA" {
		t.Errorf("Describe() after change = %q, %v; want Shell CAPSA", name, ok)
	}

	_ = e.Set(FieldProveedorID, "P-999")
	if name, ok := e.Describe(ctx, FieldProveedorID); ok {
		t.Errorf("unknown code described as %q", name)
	}
	if src.calls != 1 {
		t.Errorf("ListCodes called %d times, want 1", src.calls)
	}

	e.Close()
	if _, ok := e.Describe(ctx, FieldProveedorID); ok {
		t.Error("closed editor should describe nothing")
	}
}

func TestEditor_DescribeWithoutResolver(t *testing.T) {
	e := NewEditor(&mockHeaders{}, zerolog.Nop())
	rec := sampleHeader()
	rec.ProveedorID = "P-001"
	e.Open(rec)
	if _, ok := e.Describe(context.Background(), FieldProveedorID); ok {
		t.Error("no resolver, no description")
	}
}
