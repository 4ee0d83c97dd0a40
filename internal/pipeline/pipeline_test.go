package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/gcsuploader"
	"github.com/dvloznov/rendiciones/internal/jobs"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MockExtractor is a mock implementation of extractor.Extractor for testing.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, content []byte, mimeType string) (domain.ExtractedFields, error)
}

func (m *MockExtractor) Extract(ctx context.Context, content []byte, mimeType string) (domain.ExtractedFields, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, content, mimeType)
	}
	return domain.ExtractedFields{}, nil
}

// MockCodes is a mock implementation of backend.Codes for testing.
type MockCodes struct {
	ListCodesFunc func(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error)
}

func (m *MockCodes) ListCodes(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error) {
	if m.ListCodesFunc != nil {
		return m.ListCodesFunc(ctx, t)
	}
	return nil, nil
}

func providers() *MockCodes {
	return &MockCodes{ListCodesFunc: func(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error) {
		if t != domain.CodeProveedor {
			return nil, nil
		}
		return []domain.CodeEntry{{Code: "P-001", Name: "YPF SA"}}, nil
	}}
}

func newJob() *jobs.ExtractDocumentJob {
	return &jobs.ExtractDocumentJob{DocumentID: "doc-1", ObjectName: "uploads/doc-1/a.pdf", MimeType: "application/pdf"}
}

func TestExtractionPipeline(t *testing.T) {
	bucket := gcsuploader.NewMemoryBucket("test")
	if err := bucket.Put(context.Background(), "uploads/doc-1/a.pdf", bytesReader("%PDF"), "application/pdf"); err != nil {
		t.Fatal(err)
	}

	ex := &MockExtractor{ExtractFunc: func(ctx context.Context, content []byte, mimeType string) (domain.ExtractedFields, error) {
		if string(content) != "%PDF" || mimeType != "application/pdf" {
			t.Errorf("extractor got %q (%s)", content, mimeType)
		}
		return domain.ExtractedFields{
			Fecha:       domain.Some("150125"),
			Importe:     domain.Some(decimal.NewFromInt(100)),
			Moneda:      domain.Some(" ars "),
			ProveedorID: domain.Some("P-001"),
		}, nil
	}}

	var recorded domain.ExtractedFields
	var recordedID string
	record := func(ctx context.Context, documentID string, fields domain.ExtractedFields) error {
		recordedID, recorded = documentID, fields
		return nil
	}

	p := NewExtractionPipeline(bucket, ex, providers(), record, zerolog.Nop())
	if err := p.Execute(context.Background(), &State{Job: newJob()}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if recordedID != "doc-1" {
		t.Errorf("recorded id = %q", recordedID)
	}
	if v, _ := recorded.Fecha.Get(); v != "2025-01-15" {
		t.Errorf("fecha = %q", v)
	}
	if v, _ := recorded.Moneda.Get(); v != "ARS" {
		t.Errorf("moneda = %q", v)
	}
	if v, _ := recorded.Proveedor.Get(); v != "YPF SA" {
		t.Errorf("proveedor = %q, want name filled from code list", v)
	}
}

func TestExtractionPipeline_StopsOnFailure(t *testing.T) {
	bucket := gcsuploader.NewMemoryBucket("test")
	called := false
	record := func(ctx context.Context, documentID string, fields domain.ExtractedFields) error {
		called = true
		return nil
	}

	p := NewExtractionPipeline(bucket, &MockExtractor{}, nil, record, zerolog.Nop())
	err := p.Execute(context.Background(), &State{Job: newJob()})
	if !errors.Is(err, gcsuploader.ErrNotFound) {
		t.Errorf("Execute() error = %v, want ErrNotFound", err)
	}
	if called {
		t.Error("record should not run after a failed step")
	}
}

func TestProveedorStep(t *testing.T) {
	tests := []struct {
		name       string
		codes      *MockCodes
		fields     domain.ExtractedFields
		wantID     string
		wantIDSet  bool
		wantNombre string
	}{
		{
			name:      "unknown id dropped",
			codes:     providers(),
			fields:    domain.ExtractedFields{ProveedorID: domain.Some("P-999")},
			wantIDSet: false,
		},
		{
			name:       "known id keeps extracted name",
			codes:      providers(),
			fields:     domain.ExtractedFields{ProveedorID: domain.Some("P-001"), Proveedor: domain.Some("YPF")},
			wantID:     "P-001",
			wantIDSet:  true,
			wantNombre: "YPF",
		},
		{
			name:      "empty list keeps id",
			codes:     &MockCodes{},
			fields:    domain.ExtractedFields{ProveedorID: domain.Some("P-999")},
			wantID:    "P-999",
			wantIDSet: true,
		},
		{
			name: "list failure keeps id",
			codes: &MockCodes{ListCodesFunc: func(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error) {
				return nil, errors.New("timeout")
			}},
			fields:    domain.ExtractedFields{ProveedorID: domain.Some("P-999")},
			wantID:    "P-999",
			wantIDSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{Job: newJob(), Fields: tt.fields}
			step := &ProveedorStep{Codes: tt.codes, Log: zerolog.Nop()}
			if err := step.Execute(context.Background(), state); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			id, ok := state.Fields.ProveedorID.Get()
			if ok != tt.wantIDSet || id != tt.wantID {
				t.Errorf("proveedorId = %q, %v; want %q, %v", id, ok, tt.wantID, tt.wantIDSet)
			}
			if tt.wantNombre != "" {
				if v, _ := state.Fields.Proveedor.Get(); v != tt.wantNombre {
					t.Errorf("proveedor = %q, want %q", v, tt.wantNombre)
				}
			}
		})
	}
}

func TestNormalizeFields(t *testing.T) {
	in := domain.ExtractedFields{
		Fecha:         domain.Some("2025-01-15T10:00:00Z"),
		CUIT:          domain.Some("30712345678"),
		Proveedor:     domain.Some("<b>Estación</b> Norte"),
		Observaciones: domain.Some("   "),
		CAE:           domain.Some(" 74123456789012 "),
	}
	out := NormalizeFields(in)

	if v, _ := out.Fecha.Get(); v != "2025-01-15" {
		t.Errorf("fecha = %q", v)
	}
	if v, _ := out.CUIT.Get(); v != "30-71234567-8" {
		t.Errorf("cuit = %q", v)
	}
	if v, _ := out.Proveedor.Get(); v != "Estación Norte" {
		t.Errorf("proveedor = %q", v)
	}
	if out.Observaciones.IsSet() {
		t.Error("blank observaciones should become absent")
	}
	if v, _ := out.CAE.Get(); v != "74123456789012" {
		t.Errorf("cae = %q", v)
	}

	odd := NormalizeFields(domain.ExtractedFields{Fecha: domain.Some("mid January"), CUIT: domain.Some("30-7123")})
	if v, _ := odd.Fecha.Get(); v != "mid January" {
		t.Errorf("unparseable fecha should be kept, got %q", v)
	}
	if v, _ := odd.CUIT.Get(); v != "30-7123" {
		t.Errorf("short cuit should be kept, got %q", v)
	}
}

func bytesReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
