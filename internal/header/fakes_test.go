package header

import (
	"context"
	"errors"

	"github.com/dvloznov/rendiciones/internal/domain"
)

type mockHeaders struct {
	GetHeaderFunc    func(ctx context.Context, documentID string) (*domain.Header, error)
	UpdateHeaderFunc func(ctx context.Context, documentID string, update domain.HeaderUpdate) (*domain.Header, error)
	ListLinesFunc    func(ctx context.Context, documentID string) ([]domain.LineItem, error)
	UpdateLineFunc   func(ctx context.Context, line domain.LineItem) (*domain.LineItem, error)
	DeleteLineFunc   func(ctx context.Context, documentID, lineID string) error
	ListTaxesFunc    func(ctx context.Context, documentID string) ([]domain.TaxEntry, error)
	UpdateTaxFunc    func(ctx context.Context, tax domain.TaxEntry) (*domain.TaxEntry, error)
	DeleteTaxFunc    func(ctx context.Context, documentID, taxID string) error

	updates []domain.HeaderUpdate
}

var errNotMocked = errors.New("not mocked")

func (m *mockHeaders) GetHeader(ctx context.Context, documentID string) (*domain.Header, error) {
	if m.GetHeaderFunc != nil {
		return m.GetHeaderFunc(ctx, documentID)
	}
	return nil, errNotMocked
}

func (m *mockHeaders) UpdateHeader(ctx context.Context, documentID string, update domain.HeaderUpdate) (*domain.Header, error) {
	m.updates = append(m.updates, update)
	if m.UpdateHeaderFunc != nil {
		return m.UpdateHeaderFunc(ctx, documentID, update)
	}
	return nil, nil
}

func (m *mockHeaders) ListLines(ctx context.Context, documentID string) ([]domain.LineItem, error) {
	if m.ListLinesFunc != nil {
		return m.ListLinesFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockHeaders) UpdateLine(ctx context.Context, line domain.LineItem) (*domain.LineItem, error) {
	if m.UpdateLineFunc != nil {
		return m.UpdateLineFunc(ctx, line)
	}
	return &line, nil
}

func (m *mockHeaders) DeleteLine(ctx context.Context, documentID, lineID string) error {
	if m.DeleteLineFunc != nil {
		return m.DeleteLineFunc(ctx, documentID, lineID)
	}
	return nil
}

func (m *mockHeaders) ListTaxes(ctx context.Context, documentID string) ([]domain.TaxEntry, error) {
	if m.ListTaxesFunc != nil {
		return m.ListTaxesFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockHeaders) UpdateTax(ctx context.Context, tax domain.TaxEntry) (*domain.TaxEntry, error) {
	if m.UpdateTaxFunc != nil {
		return m.UpdateTaxFunc(ctx, tax)
	}
	return &tax, nil
}

func (m *mockHeaders) DeleteTax(ctx context.Context, documentID, taxID string) error {
	if m.DeleteTaxFunc != nil {
		return m.DeleteTaxFunc(ctx, documentID, taxID)
	}
	return nil
}

type mockCodes struct {
	ListCodesFunc func(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error)
	calls         int
}

func (m *mockCodes) ListCodes(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error) {
	m.calls++
	if m.ListCodesFunc != nil {
		return m.ListCodesFunc(ctx, t)
	}
	return nil, nil
}
