// Package backend declares the operations the reconciliation core consumes
// from the document API. Implementations live in subpackages.
package backend

import (
	"context"
	"io"

	"github.com/dvloznov/rendiciones/internal/domain"
)

// UploadRequest carries one file to be processed against a target line.
type UploadRequest struct {
	TargetID string
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

// ApplyRequest marks a document's fields as applied to a target line.
type ApplyRequest struct {
	DocumentID string                 `json:"documentId"`
	TargetID   string                 `json:"targetId"`
	Fields     []domain.FieldName     `json:"fields"`
	Values     domain.ExtractedFields `json:"values"`
}

// Documents covers upload, status polling and field application.
type Documents interface {
	// UploadDocument submits a file and returns the opaque document identifier.
	UploadDocument(ctx context.Context, req UploadRequest) (string, error)

	// GetDocument returns the current processing state and extracted fields.
	GetDocument(ctx context.Context, documentID string) (*domain.ExtractedDocument, error)

	// ApplyFields records which extracted fields were carried over to the target.
	ApplyFields(ctx context.Context, req ApplyRequest) error
}

// Headers covers a document's header, line items and tax entries.
type Headers interface {
	GetHeader(ctx context.Context, documentID string) (*domain.Header, error)
	UpdateHeader(ctx context.Context, documentID string, update domain.HeaderUpdate) (*domain.Header, error)

	ListLines(ctx context.Context, documentID string) ([]domain.LineItem, error)
	UpdateLine(ctx context.Context, line domain.LineItem) (*domain.LineItem, error)
	DeleteLine(ctx context.Context, documentID, lineID string) error

	ListTaxes(ctx context.Context, documentID string) ([]domain.TaxEntry, error)
	UpdateTax(ctx context.Context, tax domain.TaxEntry) (*domain.TaxEntry, error)
	DeleteTax(ctx context.Context, documentID, taxID string) error
}

// Codes lists every code of one type.
type Codes interface {
	ListCodes(ctx context.Context, codeType domain.CodeType) ([]domain.CodeEntry, error)
}

// Decompositions persists apertura rows as the new split of a source item.
type Decompositions interface {
	SaveDecomposition(ctx context.Context, sourceID string, rows []domain.AperturaRow) error
}

// Backend is the full operation set.
type Backend interface {
	Documents
	Headers
	Codes
	Decompositions
}
