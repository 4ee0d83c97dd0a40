package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
)

func documentPath(documentID string) string {
	return "/api/documentos/" + url.PathEscape(documentID)
}

// UploadDocument posts the file as multipart form data.
func (c *Client) UploadDocument(ctx context.Context, req backend.UploadRequest) (string, error) {
	if req.Body == nil {
		return "", errors.New("UploadDocument: empty body")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("targetId", req.TargetID); err != nil {
		return "", fmt.Errorf("UploadDocument: write target: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.Filename))
	h.Set("Content-Type", req.MimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("UploadDocument: create part: %w", err)
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return "", fmt.Errorf("UploadDocument: copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadDocument: close form: %w", err)
	}

	var out struct {
		DocumentID string `json:"documentId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/documentos/upload", &buf, w.FormDataContentType(), &out); err != nil {
		return "", fmt.Errorf("UploadDocument: %w", err)
	}
	if out.DocumentID == "" {
		return "", errors.New("UploadDocument: response carried no documentId")
	}
	return out.DocumentID, nil
}

// GetDocument reads the processing state and extracted fields.
func (c *Client) GetDocument(ctx context.Context, documentID string) (*domain.ExtractedDocument, error) {
	var doc domain.ExtractedDocument
	if err := c.doJSON(ctx, http.MethodGet, documentPath(documentID), nil, &doc); err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}
	if doc.ID == "" {
		doc.ID = documentID
	}
	return &doc, nil
}

// ApplyFields posts the applied subset to the document.
func (c *Client) ApplyFields(ctx context.Context, req backend.ApplyRequest) error {
	if err := c.doJSON(ctx, http.MethodPost, documentPath(req.DocumentID)+"/aplicar", req, nil); err != nil {
		return fmt.Errorf("ApplyFields: %w", err)
	}
	return nil
}
