package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "  "}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NewClient() error = %v, want ErrNotConfigured", err)
	}
}

func TestUploadDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/documentos/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("targetId"); got != "line-1" {
			t.Errorf("targetId = %q", got)
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "%PDF-1.4" || fh.Filename != "factura.pdf" {
			t.Errorf("file = %q (%s)", data, fh.Filename)
		}
		if ct := fh.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("part Content-Type = %q", ct)
		}
		w.Write([]byte(`{"documentId":"doc-9"}`))
	})

	id, err := c.UploadDocument(context.Background(), backend.UploadRequest{
		TargetID: "line-1",
		Filename: "factura.pdf",
		MimeType: "application/pdf",
		Size:     8,
		Body:     strings.NewReader("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if id != "doc-9" {
		t.Errorf("documentId = %q, want doc-9", id)
	}
}

func TestUploadDocument_MissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := c.UploadDocument(context.Background(), backend.UploadRequest{Filename: "a.png", Body: strings.NewReader("x")})
	if err == nil {
		t.Error("expected error when response has no documentId")
	}
}

func TestGetDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documentos/doc-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"doc-1","state":"COMPLETED","fields":{"fecha":"150125","importe":"1.040,50","cae":42,"moneda":{}}}`))
	})

	doc, err := c.GetDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.State != domain.StateCompleted {
		t.Errorf("state = %s", doc.State)
	}
	if v, ok := doc.Fields.Importe.Get(); !ok || !v.Equal(decimal.RequireFromString("1040.50")) {
		t.Errorf("importe = %v, %v", v, ok)
	}
	if v, _ := doc.Fields.CAE.Get(); v != "42" {
		t.Errorf("cae = %q", v)
	}
	if doc.Fields.Has(domain.FieldMoneda) {
		t.Error("malformed moneda should be absent")
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json message", http.StatusBadRequest, `{"message":"importe requerido"}`, "importe requerido"},
		{"json error", http.StatusConflict, `{"error":"ya aplicado"}`, "ya aplicado"},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := c.ApplyFields(context.Background(), backend.ApplyRequest{DocumentID: "doc-1"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = %+v, want status %d message %q", apiErr, tt.status, tt.wantMsg)
			}
		})
	}
}

func TestApplyFields_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documentos/doc-1/aplicar" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if string(body["targetId"]) != `"line-1"` {
			t.Errorf("targetId = %s", body["targetId"])
		}
		if string(body["fields"]) != `["fecha"]` {
			t.Errorf("fields = %s", body["fields"])
		}
		if string(body["values"]) != `{"fecha":"2025-01-15"}` {
			t.Errorf("values = %s", body["values"])
		}
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.ApplyFields(context.Background(), backend.ApplyRequest{
		DocumentID: "doc-1",
		TargetID:   "line-1",
		Fields:     []domain.FieldName{domain.FieldFecha},
		Values:     domain.ExtractedFields{Fecha: domain.Some("2025-01-15")},
	})
	if err != nil {
		t.Fatalf("ApplyFields: %v", err)
	}
}

func TestListCodes_NotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/codigos/dimension" {
			w.Write([]byte(`[{"code":"100","name":"Administracion"}]`))
			return
		}
		http.NotFound(w, r)
	})

	entries, err := c.ListCodes(context.Background(), domain.CodeDimension)
	if err != nil || len(entries) != 1 || entries[0].Name != "Administracion" {
		t.Errorf("ListCodes(dimension) = %+v, %v", entries, err)
	}

	entries, err = c.ListCodes(context.Background(), domain.CodeSubcuenta)
	if err != nil || len(entries) != 0 {
		t.Errorf("ListCodes(subcuenta) = %+v, %v; want empty, nil", entries, err)
	}
}

func TestSaveDecomposition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/rendiciones/items/item 1/apertura" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body decompositionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Rows) != 2 || !body.Rows[1].NetoGravado.Equal(decimal.NewFromInt(40)) {
			t.Errorf("rows = %+v", body.Rows)
		}
		w.WriteHeader(http.StatusOK)
	})

	rows := []domain.AperturaRow{
		{ID: "r1", NetoGravado: decimal.NewFromInt(60)},
		{ID: "r2", NetoGravado: decimal.NewFromInt(40)},
	}
	if err := c.SaveDecomposition(context.Background(), "item 1", rows); err != nil {
		t.Fatalf("SaveDecomposition: %v", err)
	}
}

func TestLineAndTaxRoutes(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`))
		case http.MethodPut:
			io.Copy(w, r.Body)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	if _, err := c.ListLines(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	line, err := c.UpdateLine(ctx, domain.LineItem{ID: "l1", DocumentID: "d1", Descripcion: "Nafta"})
	if err != nil || line.Descripcion != "Nafta" {
		t.Fatalf("UpdateLine = %+v, %v", line, err)
	}
	if err := c.DeleteLine(ctx, "d1", "l1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListTaxes(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.UpdateTax(ctx, domain.TaxEntry{ID: "t1", DocumentID: "d1"}); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteTax(ctx, "d1", "t1"); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"GET /api/documentos/d1/lineas",
		"PUT /api/documentos/d1/lineas/l1",
		"DELETE /api/documentos/d1/lineas/l1",
		"GET /api/documentos/d1/impuestos",
		"PUT /api/documentos/d1/impuestos/t1",
		"DELETE /api/documentos/d1/impuestos/t1",
	}
	if strings.Join(calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls:\n%s\nwant:\n%s", strings.Join(calls, "\n"), strings.Join(want, "\n"))
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", RatePerSecond: 0.001})
	if err != nil {
		t.Fatal(err)
	}
	// drain the single burst token
	c.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetDocument(ctx, "d1"); err == nil {
		t.Error("expected error from cancelled context")
	}
}
