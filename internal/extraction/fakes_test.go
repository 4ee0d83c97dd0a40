package extraction

import (
	"context"
	"errors"
	"sync"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
)

type mockDocuments struct {
	UploadDocumentFunc func(ctx context.Context, req backend.UploadRequest) (string, error)
	GetDocumentFunc    func(ctx context.Context, documentID string) (*domain.ExtractedDocument, error)
	ApplyFieldsFunc    func(ctx context.Context, req backend.ApplyRequest) error

	mu      sync.Mutex
	uploads int
	applied []backend.ApplyRequest
}

func (m *mockDocuments) UploadDocument(ctx context.Context, req backend.UploadRequest) (string, error) {
	m.mu.Lock()
	m.uploads++
	m.mu.Unlock()
	if m.UploadDocumentFunc != nil {
		return m.UploadDocumentFunc(ctx, req)
	}
	return "doc-1", nil
}

func (m *mockDocuments) GetDocument(ctx context.Context, documentID string) (*domain.ExtractedDocument, error) {
	if m.GetDocumentFunc != nil {
		return m.GetDocumentFunc(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocuments) ApplyFields(ctx context.Context, req backend.ApplyRequest) error {
	m.mu.Lock()
	m.applied = append(m.applied, req)
	m.mu.Unlock()
	if m.ApplyFieldsFunc != nil {
		return m.ApplyFieldsFunc(ctx, req)
	}
	return nil
}

func (m *mockDocuments) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

func (m *mockDocuments) applyRequests() []backend.ApplyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.ApplyRequest(nil), m.applied...)
}
