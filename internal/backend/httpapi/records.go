package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dvloznov/rendiciones/internal/domain"
)

func (c *Client) GetHeader(ctx context.Context, documentID string) (*domain.Header, error) {
	var h domain.Header
	if err := c.doJSON(ctx, http.MethodGet, documentPath(documentID)+"/cabecera", nil, &h); err != nil {
		return nil, fmt.Errorf("GetHeader: %w", err)
	}
	return &h, nil
}

func (c *Client) UpdateHeader(ctx context.Context, documentID string, update domain.HeaderUpdate) (*domain.Header, error) {
	var h domain.Header
	if err := c.doJSON(ctx, http.MethodPut, documentPath(documentID)+"/cabecera", update, &h); err != nil {
		return nil, fmt.Errorf("UpdateHeader: %w", err)
	}
	return &h, nil
}

func (c *Client) ListLines(ctx context.Context, documentID string) ([]domain.LineItem, error) {
	var lines []domain.LineItem
	if err := c.doJSON(ctx, http.MethodGet, documentPath(documentID)+"/lineas", nil, &lines); err != nil {
		return nil, fmt.Errorf("ListLines: %w", err)
	}
	return lines, nil
}

func (c *Client) UpdateLine(ctx context.Context, line domain.LineItem) (*domain.LineItem, error) {
	var out domain.LineItem
	path := documentPath(line.DocumentID) + "/lineas/" + url.PathEscape(line.ID)
	if err := c.doJSON(ctx, http.MethodPut, path, line, &out); err != nil {
		return nil, fmt.Errorf("UpdateLine: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteLine(ctx context.Context, documentID, lineID string) error {
	path := documentPath(documentID) + "/lineas/" + url.PathEscape(lineID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("DeleteLine: %w", err)
	}
	return nil
}

func (c *Client) ListTaxes(ctx context.Context, documentID string) ([]domain.TaxEntry, error) {
	var taxes []domain.TaxEntry
	if err := c.doJSON(ctx, http.MethodGet, documentPath(documentID)+"/impuestos", nil, &taxes); err != nil {
		return nil, fmt.Errorf("ListTaxes: %w", err)
	}
	return taxes, nil
}

func (c *Client) UpdateTax(ctx context.Context, tax domain.TaxEntry) (*domain.TaxEntry, error) {
	var out domain.TaxEntry
	path := documentPath(tax.DocumentID) + "/impuestos/" + url.PathEscape(tax.ID)
	if err := c.doJSON(ctx, http.MethodPut, path, tax, &out); err != nil {
		return nil, fmt.Errorf("UpdateTax: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteTax(ctx context.Context, documentID, taxID string) error {
	path := documentPath(documentID) + "/impuestos/" + url.PathEscape(taxID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("DeleteTax: %w", err)
	}
	return nil
}

// ListCodes returns the code list for codeType. An unknown type (404) is an
// empty list.
func (c *Client) ListCodes(ctx context.Context, codeType domain.CodeType) ([]domain.CodeEntry, error) {
	var entries []domain.CodeEntry
	err := c.doJSON(ctx, http.MethodGet, "/api/codigos/"+url.PathEscape(string(codeType)), nil, &entries)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ListCodes: %w", err)
	}
	return entries, nil
}

type decompositionBody struct {
	Rows []domain.AperturaRow `json:"rows"`
}

// SaveDecomposition replaces the apertura of sourceID with rows.
func (c *Client) SaveDecomposition(ctx context.Context, sourceID string, rows []domain.AperturaRow) error {
	path := "/api/rendiciones/items/" + url.PathEscape(sourceID) + "/apertura"
	if err := c.doJSON(ctx, http.MethodPut, path, decompositionBody{Rows: rows}, nil); err != nil {
		return fmt.Errorf("SaveDecomposition: %w", err)
	}
	return nil
}
