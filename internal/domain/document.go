package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ProcessingState is the extraction state of an uploaded document.
type ProcessingState string

const (
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateError      ProcessingState = "error"
)

// Terminal reports whether no further transitions are expected.
func (s ProcessingState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// UnmarshalText maps upstream state names onto the three known states.
// Anything unrecognised is treated as still processing.
func (s *ProcessingState) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "completed", "complete", "done":
		*s = StateCompleted
	case "error", "failed":
		*s = StateError
	default:
		*s = StateProcessing
	}
	return nil
}

// FieldName names one field of the extracted set.
type FieldName string

const (
	FieldFecha             FieldName = "fecha"
	FieldImporte           FieldName = "importe"
	FieldCUIT              FieldName = "cuit"
	FieldNumeroComprobante FieldName = "numeroComprobante"
	FieldCAE               FieldName = "cae"
	FieldProveedor         FieldName = "proveedor"
	FieldProveedorID       FieldName = "proveedorId"
	FieldNetoGravado       FieldName = "netoGravado"
	FieldExento            FieldName = "exento"
	FieldImpuestos         FieldName = "impuestos"
	FieldMoneda            FieldName = "moneda"
	FieldObservaciones     FieldName = "observaciones"
)

// ExtractedFieldOrder is the display order of the extracted set.
var ExtractedFieldOrder = []FieldName{
	FieldFecha,
	FieldImporte,
	FieldCUIT,
	FieldNumeroComprobante,
	FieldCAE,
	FieldProveedor,
	FieldProveedorID,
	FieldNetoGravado,
	FieldExento,
	FieldImpuestos,
	FieldMoneda,
	FieldObservaciones,
}

// ParseFieldName validates a field name against the extracted set.
func ParseFieldName(s string) (FieldName, error) {
	for _, f := range ExtractedFieldOrder {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// ExtractedFields is the fixed set of scalars the extraction service may
// recognise on a receipt or invoice. Any field may be absent.
type ExtractedFields struct {
	Fecha             Optional[string]
	Importe           Optional[decimal.Decimal]
	CUIT              Optional[string]
	NumeroComprobante Optional[string]
	CAE               Optional[string]
	Proveedor         Optional[string]
	ProveedorID       Optional[string]
	NetoGravado       Optional[decimal.Decimal]
	Exento            Optional[decimal.Decimal]
	Impuestos         Optional[decimal.Decimal]
	Moneda            Optional[string]
	Observaciones     Optional[string]
}

// Value returns the present value of a field as a string or decimal.
func (f ExtractedFields) Value(name FieldName) (any, bool) {
	switch name {
	case FieldFecha:
		return unwrap(f.Fecha)
	case FieldImporte:
		return unwrap(f.Importe)
	case FieldCUIT:
		return unwrap(f.CUIT)
	case FieldNumeroComprobante:
		return unwrap(f.NumeroComprobante)
	case FieldCAE:
		return unwrap(f.CAE)
	case FieldProveedor:
		return unwrap(f.Proveedor)
	case FieldProveedorID:
		return unwrap(f.ProveedorID)
	case FieldNetoGravado:
		return unwrap(f.NetoGravado)
	case FieldExento:
		return unwrap(f.Exento)
	case FieldImpuestos:
		return unwrap(f.Impuestos)
	case FieldMoneda:
		return unwrap(f.Moneda)
	case FieldObservaciones:
		return unwrap(f.Observaciones)
	}
	return nil, false
}

func unwrap[T any](o Optional[T]) (any, bool) {
	v, ok := o.Get()
	if !ok {
		return nil, false
	}
	return v, true
}

// Has reports whether name carries a value.
func (f ExtractedFields) Has(name FieldName) bool {
	_, ok := f.Value(name)
	return ok
}

// Present lists the fields carrying a value, in display order.
func (f ExtractedFields) Present() []FieldName {
	var names []FieldName
	for _, name := range ExtractedFieldOrder {
		if f.Has(name) {
			names = append(names, name)
		}
	}
	return names
}

// Subset returns a copy holding only the named fields.
func (f ExtractedFields) Subset(names []FieldName) ExtractedFields {
	keep := make(map[FieldName]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	var out ExtractedFields
	if keep[FieldFecha] {
		out.Fecha = f.Fecha
	}
	if keep[FieldImporte] {
		out.Importe = f.Importe
	}
	if keep[FieldCUIT] {
		out.CUIT = f.CUIT
	}
	if keep[FieldNumeroComprobante] {
		out.NumeroComprobante = f.NumeroComprobante
	}
	if keep[FieldCAE] {
		out.CAE = f.CAE
	}
	if keep[FieldProveedor] {
		out.Proveedor = f.Proveedor
	}
	if keep[FieldProveedorID] {
		out.ProveedorID = f.ProveedorID
	}
	if keep[FieldNetoGravado] {
		out.NetoGravado = f.NetoGravado
	}
	if keep[FieldExento] {
		out.Exento = f.Exento
	}
	if keep[FieldImpuestos] {
		out.Impuestos = f.Impuestos
	}
	if keep[FieldMoneda] {
		out.Moneda = f.Moneda
	}
	if keep[FieldObservaciones] {
		out.Observaciones = f.Observaciones
	}
	return out
}

// MarshalJSON writes only the present fields.
func (f ExtractedFields) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	for _, name := range ExtractedFieldOrder {
		if v, ok := f.Value(name); ok {
			out[string(name)] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes leniently: a value that cannot be read as the
// field's type leaves that field absent instead of failing the record.
func (f *ExtractedFields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ExtractedFields: %w", err)
	}

	*f = ExtractedFields{
		Fecha:             rawText(raw, FieldFecha),
		Importe:           rawAmount(raw, FieldImporte),
		CUIT:              rawText(raw, FieldCUIT),
		NumeroComprobante: rawText(raw, FieldNumeroComprobante),
		CAE:               rawText(raw, FieldCAE),
		Proveedor:         rawText(raw, FieldProveedor),
		ProveedorID:       rawText(raw, FieldProveedorID),
		NetoGravado:       rawAmount(raw, FieldNetoGravado),
		Exento:            rawAmount(raw, FieldExento),
		Impuestos:         rawAmount(raw, FieldImpuestos),
		Moneda:            rawText(raw, FieldMoneda),
		Observaciones:     rawText(raw, FieldObservaciones),
	}
	return nil
}

func rawText(raw map[string]json.RawMessage, name FieldName) Optional[string] {
	msg, ok := raw[string(name)]
	if !ok {
		return None[string]()
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return None[string]()
	}
	var s string
	switch val := v.(type) {
	case string:
		s = strings.TrimSpace(val)
	case float64:
		s = decimal.NewFromFloat(val).String()
	default:
		return None[string]()
	}
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

func rawAmount(raw map[string]json.RawMessage, name FieldName) Optional[decimal.Decimal] {
	msg, ok := raw[string(name)]
	if !ok {
		return None[decimal.Decimal]()
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return None[decimal.Decimal]()
	}
	switch val := v.(type) {
	case float64:
		return Some(decimal.NewFromFloat(val))
	case string:
		if d, ok := ParseAmount(val); ok {
			return Some(d)
		}
	}
	return None[decimal.Decimal]()
}

// ExtractedDocument is the result of processing one uploaded file.
type ExtractedDocument struct {
	ID       string          `json:"id"`
	Filename string          `json:"filename"`
	MimeType string          `json:"mimeType"`
	State    ProcessingState `json:"state"`
	Fields   ExtractedFields `json:"fields"`
	Error    string          `json:"error,omitempty"`
}

// ReferenceLine is the existing expense-report line a document is matched against.
type ReferenceLine struct {
	ID      string                    `json:"id"`
	Fecha   string                    `json:"fecha"`
	Importe Optional[decimal.Decimal] `json:"importe"`
}
