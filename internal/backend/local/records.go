package local

import (
	"context"
	"fmt"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// headerFromFields seeds a header from the extracted set.
func headerFromFields(documentID string, f domain.ExtractedFields) domain.Header {
	return domain.Header{
		DocumentID:        documentID,
		Fecha:             f.Fecha.OrElse(""),
		NetoGravado:       f.NetoGravado.OrElse(decimal.Zero),
		Exento:            f.Exento.OrElse(decimal.Zero),
		Impuestos:         f.Impuestos.OrElse(decimal.Zero),
		ImporteTotal:      f.Importe.OrElse(decimal.Zero),
		CUIT:              f.CUIT.OrElse(""),
		NumeroComprobante: f.NumeroComprobante.OrElse(""),
		CAE:               f.CAE.OrElse(""),
		Proveedor:         f.Proveedor.OrElse(""),
		ProveedorID:       f.ProveedorID.OrElse(""),
		Moneda:            f.Moneda.OrElse(""),
		Observaciones:     f.Observaciones.OrElse(""),
	}
}

func (b *Backend) checkDocumentLocked(documentID string) error {
	if _, ok := b.docs[documentID]; !ok {
		return fmt.Errorf("%s: %w", documentID, ErrDocumentNotFound)
	}
	return nil
}

func (b *Backend) GetHeader(ctx context.Context, documentID string) (*domain.Header, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkDocumentLocked(documentID); err != nil {
		return nil, fmt.Errorf("GetHeader: %w", err)
	}
	h, ok := b.headers[documentID]
	if !ok {
		h = domain.Header{DocumentID: documentID}
	}
	return &h, nil
}

func (b *Backend) UpdateHeader(ctx context.Context, documentID string, update domain.HeaderUpdate) (*domain.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkDocumentLocked(documentID); err != nil {
		return nil, fmt.Errorf("UpdateHeader: %w", err)
	}
	h, ok := b.headers[documentID]
	if !ok {
		h = domain.Header{DocumentID: documentID}
	}
	h = h.Apply(update)
	b.headers[documentID] = h
	return &h, nil
}

func (b *Backend) ListLines(ctx context.Context, documentID string) ([]domain.LineItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkDocumentLocked(documentID); err != nil {
		return nil, fmt.Errorf("ListLines: %w", err)
	}
	return append([]domain.LineItem(nil), b.lines[documentID]...), nil
}

// UpdateLine replaces the line with the same id, or appends it with a new id
// when the id is blank.
func (b *Backend) UpdateLine(ctx context.Context, line domain.LineItem) (*domain.LineItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkDocumentLocked(line.DocumentID); err != nil {
		return nil, fmt.Errorf("UpdateLine: %w", err)
	}
	out, err := upsert(b.lines, line.DocumentID, line, func(l domain.LineItem) string { return l.ID }, func(l *domain.LineItem, id string) { l.ID = id })
	if err != nil {
		return nil, fmt.Errorf("UpdateLine: %w", err)
	}
	return &out, nil
}

func (b *Backend) DeleteLine(ctx context.Context, documentID, lineID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := remove(b.lines, documentID, lineID, func(l domain.LineItem) string { return l.ID }); err != nil {
		return fmt.Errorf("DeleteLine: %w", err)
	}
	return nil
}

func (b *Backend) ListTaxes(ctx context.Context, documentID string) ([]domain.TaxEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkDocumentLocked(documentID); err != nil {
		return nil, fmt.Errorf("ListTaxes: %w", err)
	}
	return append([]domain.TaxEntry(nil), b.taxes[documentID]...), nil
}

func (b *Backend) UpdateTax(ctx context.Context, tax domain.TaxEntry) (*domain.TaxEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkDocumentLocked(tax.DocumentID); err != nil {
		return nil, fmt.Errorf("UpdateTax: %w", err)
	}
	out, err := upsert(b.taxes, tax.DocumentID, tax, func(t domain.TaxEntry) string { return t.ID }, func(t *domain.TaxEntry, id string) { t.ID = id })
	if err != nil {
		return nil, fmt.Errorf("UpdateTax: %w", err)
	}
	return &out, nil
}

func (b *Backend) DeleteTax(ctx context.Context, documentID, taxID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := remove(b.taxes, documentID, taxID, func(t domain.TaxEntry) string { return t.ID }); err != nil {
		return fmt.Errorf("DeleteTax: %w", err)
	}
	return nil
}

func upsert[T any](m map[string][]T, documentID string, item T, id func(T) string, setID func(*T, string)) (T, error) {
	if id(item) == "" {
		setID(&item, uuid.NewString())
		m[documentID] = append(m[documentID], item)
		return item, nil
	}
	for i, existing := range m[documentID] {
		if id(existing) == id(item) {
			m[documentID][i] = item
			return item, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s: %w", id(item), ErrRecordNotFound)
}

func remove[T any](m map[string][]T, documentID, itemID string, id func(T) string) error {
	items := m[documentID]
	for i, existing := range items {
		if id(existing) == itemID {
			m[documentID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", itemID, ErrRecordNotFound)
}

// AddLine appends a line to documentID, assigning an id. Used to seed
// documents whose lines come from outside the extraction.
func (b *Backend) AddLine(documentID string, line domain.LineItem) (domain.LineItem, error) {
	line.DocumentID = documentID
	line.ID = ""
	out, err := b.UpdateLine(context.Background(), line)
	if err != nil {
		return domain.LineItem{}, err
	}
	return *out, nil
}

// AddTax appends a tax entry to documentID, assigning an id.
func (b *Backend) AddTax(documentID string, tax domain.TaxEntry) (domain.TaxEntry, error) {
	tax.DocumentID = documentID
	tax.ID = ""
	out, err := b.UpdateTax(context.Background(), tax)
	if err != nil {
		return domain.TaxEntry{}, err
	}
	return *out, nil
}
