// Package header stages and validates edits to a captured document's
// header, line items and taxes before committing them.
package header

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/textclean"
	"github.com/dvloznov/rendiciones/internal/tolerance"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidNumber rejects an amount field that does not parse.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrSumMismatch rejects a header whose parts do not add up to the total.
	ErrSumMismatch = errors.New("net + exempt + taxes does not equal total")
	// ErrSaveInFlight rejects a save while another is running.
	ErrSaveInFlight = errors.New("save already in progress")
	// ErrNotOpen is returned when no record is being edited.
	ErrNotOpen = errors.New("editor is not open")
	// ErrUnknownField is returned for fields the header does not have.
	ErrUnknownField = errors.New("unknown header field")
)

// SumTolerance is the largest accepted |net+exempt+taxes-total|.
var SumTolerance = decimal.RequireFromString("0.01")

// SumMismatchError carries the computed sum and the expected total.
type SumMismatchError struct {
	Sum   decimal.Decimal
	Total decimal.Decimal
}

func (e *SumMismatchError) Error() string {
	return fmt.Sprintf("net + exempt + taxes = %s, expected total %s",
		domain.FormatAmount(e.Sum), domain.FormatAmount(e.Total))
}

func (e *SumMismatchError) Unwrap() error { return ErrSumMismatch }

// Field names one editable header field.
type Field string

const (
	FieldFecha             Field = "fecha"
	FieldNetoGravado       Field = "netoGravado"
	FieldExento            Field = "exento"
	FieldImpuestos         Field = "impuestos"
	FieldImporteTotal      Field = "importeTotal"
	FieldCUIT              Field = "cuit"
	FieldNumeroComprobante Field = "numeroComprobante"
	FieldCAE               Field = "cae"
	FieldProveedor         Field = "proveedor"
	FieldProveedorID       Field = "proveedorId"
	FieldMoneda            Field = "moneda"
	FieldObservaciones     Field = "observaciones"
)

// Fields lists the editable header fields in display order.
var Fields = []Field{
	FieldFecha, FieldNetoGravado, FieldExento, FieldImpuestos, FieldImporteTotal,
	FieldCUIT, FieldNumeroComprobante, FieldCAE, FieldProveedor, FieldProveedorID,
	FieldMoneda, FieldObservaciones,
}

// ParseField accepts a field name case-insensitively.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// CodeType returns the code list f is resolved against, if any.
func (f Field) CodeType() (domain.CodeType, bool) {
	if f == FieldProveedorID {
		return domain.CodeProveedor, true
	}
	return "", false
}

// State is the staged copy of a header in display form: amounts as
// two-decimal strings and the date as YYYY-MM-DD.
type State struct {
	Fecha             string
	NetoGravado       string
	Exento            string
	Impuestos         string
	ImporteTotal      string
	CUIT              string
	NumeroComprobante string
	CAE               string
	Proveedor         string
	ProveedorID       string
	Moneda            string
	Observaciones     string
}

func (s *State) ptr(f Field) *string {
	switch f {
	case FieldFecha:
		return &s.Fecha
	case FieldNetoGravado:
		return &s.NetoGravado
	case FieldExento:
		return &s.Exento
	case FieldImpuestos:
		return &s.Impuestos
	case FieldImporteTotal:
		return &s.ImporteTotal
	case FieldCUIT:
		return &s.CUIT
	case FieldNumeroComprobante:
		return &s.NumeroComprobante
	case FieldCAE:
		return &s.CAE
	case FieldProveedor:
		return &s.Proveedor
	case FieldProveedorID:
		return &s.ProveedorID
	case FieldMoneda:
		return &s.Moneda
	case FieldObservaciones:
		return &s.Observaciones
	}
	return nil
}

// Get returns the staged value of f.
func (s State) Get(f Field) string {
	if p := s.ptr(f); p != nil {
		return *p
	}
	return ""
}

// NewState builds the display form of h.
func NewState(h domain.Header) State {
	return State{
		Fecha:             NormalizeDate(h.Fecha),
		NetoGravado:       domain.FormatAmount(h.NetoGravado),
		Exento:            domain.FormatAmount(h.Exento),
		Impuestos:         domain.FormatAmount(h.Impuestos),
		ImporteTotal:      domain.FormatAmount(h.ImporteTotal),
		CUIT:              h.CUIT,
		NumeroComprobante: h.NumeroComprobante,
		CAE:               h.CAE,
		Proveedor:         h.Proveedor,
		ProveedorID:       h.ProveedorID,
		Moneda:            h.Moneda,
		Observaciones:     h.Observaciones,
	}
}

// NormalizeDate renders any accepted date form as YYYY-MM-DD. Unparseable
// input is returned trimmed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if d, ok := tolerance.ParseDate(s); ok {
		return d.String()
	}
	return s
}

// Editor stages edits to one header at a time.
type Editor struct {
	headers  backend.Headers
	resolver *codes.Resolver
	log      zerolog.Logger

	mu     sync.Mutex
	record *domain.Header
	state  *State
	names  codes.Names
	saving bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithResolver enables code descriptions.
func WithResolver(r *codes.Resolver) Option {
	return func(e *Editor) { e.resolver = r }
}

// NewEditor creates a closed editor.
func NewEditor(headers backend.Headers, log zerolog.Logger, opts ...Option) *Editor {
	e := &Editor{headers: headers, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the header of documentID and opens it.
func (e *Editor) Load(ctx context.Context, documentID string) error {
	h, err := e.headers.GetHeader(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load header %s: %w", documentID, err)
	}
	e.Open(*h)
	return nil
}

// Open stages a copy of record, discarding any previous staged edits.
func (e *Editor) Open(record domain.Header) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := record
	st := NewState(record)
	e.record = &rec
	e.state = &st
	e.names = codes.Names{}
}

// IsOpen reports whether a record is staged.
func (e *Editor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != nil
}

// Record returns the persisted record the editor was opened with.
func (e *Editor) Record() (domain.Header, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil {
		return domain.Header{}, false
	}
	return *e.record, true
}

// State returns a copy of the staged values.
func (e *Editor) State() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return State{}, false
	}
	return *e.state, true
}

// Set stages value for f.
func (e *Editor) Set(f Field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNotOpen
	}
	p := e.state.ptr(f)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	if ct, ok := f.CodeType(); ok && *p != value {
		e.names.Invalidate(ct)
	}
	*p = value
	return nil
}

// Describe returns the display name of the staged code in f, resolving it
// on first use.
func (e *Editor) Describe(ctx context.Context, f Field) (string, bool) {
	ct, ok := f.CodeType()
	if !ok {
		return "", false
	}

	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return "", false
	}
	if name, ok := e.names.Get(ct); ok {
		e.mu.Unlock()
		return name, true
	}
	code := strings.TrimSpace(e.state.Get(f))
	e.mu.Unlock()

	if e.resolver == nil || code == "" {
		return "", false
	}
	name, ok := e.resolver.Resolve(ctx, ct, code)
	if !ok {
		return "", false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// the code may have been edited while resolving
	if e.state != nil && strings.TrimSpace(e.state.Get(f)) == code {
		e.names.Set(ct, name)
	}
	return name, true
}

// Close discards staged edits.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record = nil
	e.state = nil
	e.names = nil
}

// Save validates the staged values and submits them as one update. On
// success onSuccess receives the merged record and the editor closes; on
// failure the staged edits are kept.
func (e *Editor) Save(ctx context.Context, onSuccess func(domain.Header)) (*domain.Header, error) {
	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return nil, ErrNotOpen
	}
	if e.saving {
		e.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	update, err := BuildUpdate(*e.state)
	if err != nil {
		e.mu.Unlock()
		e.log.Warn().Err(err).Str("document_id", e.record.DocumentID).Msg("Header save rejected")
		return nil, err
	}
	record := *e.record
	e.saving = true
	e.mu.Unlock()

	saved, err := e.headers.UpdateHeader(ctx, record.DocumentID, update)

	e.mu.Lock()
	e.saving = false
	if err != nil {
		e.mu.Unlock()
		e.log.Error().Err(err).Str("document_id", record.DocumentID).Msg("Failed to update header")
		return nil, fmt.Errorf("update header %s: %w", record.DocumentID, err)
	}
	merged := record.Apply(update)
	if saved != nil {
		merged = *saved
	}
	e.record = nil
	e.state = nil
	e.names = nil
	e.mu.Unlock()

	e.log.Info().Str("document_id", record.DocumentID).Msg("Header updated")
	if onSuccess != nil {
		onSuccess(merged)
	}
	return &merged, nil
}

// BuildUpdate converts staged values into an update. It rejects
// unparseable amounts and, when the total is positive, parts that do not
// add up to it.
func BuildUpdate(s State) (domain.HeaderUpdate, error) {
	var u domain.HeaderUpdate
	amounts := []struct {
		field Field
		raw   string
		dst   *decimal.Decimal
	}{
		{FieldNetoGravado, s.NetoGravado, &u.NetoGravado},
		{FieldExento, s.Exento, &u.Exento},
		{FieldImpuestos, s.Impuestos, &u.Impuestos},
		{FieldImporteTotal, s.ImporteTotal, &u.ImporteTotal},
	}
	for _, a := range amounts {
		v, err := parseAmount(a.raw)
		if err != nil {
			return domain.HeaderUpdate{}, fmt.Errorf("%s: %w", a.field, err)
		}
		*a.dst = v
	}

	if u.ImporteTotal.IsPositive() {
		sum := u.NetoGravado.Add(u.Exento).Add(u.Impuestos)
		if sum.Sub(u.ImporteTotal).Abs().GreaterThan(SumTolerance) {
			return domain.HeaderUpdate{}, &SumMismatchError{Sum: sum, Total: u.ImporteTotal}
		}
	}

	u.Fecha = optionalText(NormalizeDate(s.Fecha))
	u.CUIT = optionalText(s.CUIT)
	u.NumeroComprobante = optionalText(s.NumeroComprobante)
	u.CAE = optionalText(s.CAE)
	u.Proveedor = optionalText(textclean.Clean(s.Proveedor))
	u.ProveedorID = optionalText(s.ProveedorID)
	u.Moneda = optionalText(strings.ToUpper(s.Moneda))
	u.Observaciones = optionalText(textclean.Clean(s.Observaciones))
	return u, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	v, ok := domain.ParseAmount(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

func optionalText(s string) domain.Optional[string] {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.None[string]()
	}
	return domain.Some(s)
}
