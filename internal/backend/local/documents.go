package local

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/jobs"
	"github.com/dvloznov/rendiciones/internal/pipeline"
	"github.com/google/uuid"
)

// UploadDocument stores the file and queues its extraction.
func (b *Backend) UploadDocument(ctx context.Context, req backend.UploadRequest) (string, error) {
	documentID := uuid.NewString()
	objectName := fmt.Sprintf("uploads/%s/%s", documentID, req.Filename)

	if err := b.objects.Put(ctx, objectName, req.Body, req.MimeType); err != nil {
		return "", fmt.Errorf("UploadDocument: store file: %w", err)
	}

	b.mu.Lock()
	b.docs[documentID] = &document{
		doc: domain.ExtractedDocument{
			ID:       documentID,
			Filename: req.Filename,
			MimeType: req.MimeType,
			State:    domain.StateProcessing,
		},
		targetID:   req.TargetID,
		objectName: objectName,
		applied:    make(map[string][]domain.FieldName),
		uploadedAt: time.Now(),
	}
	b.mu.Unlock()

	job := &jobs.ExtractDocumentJob{
		DocumentID: documentID,
		TargetID:   req.TargetID,
		ObjectName: objectName,
		MimeType:   req.MimeType,
	}
	if err := b.queue.PublishExtractDocument(ctx, job); err != nil {
		b.mu.Lock()
		delete(b.docs, documentID)
		b.mu.Unlock()
		_ = b.objects.Delete(context.Background(), objectName)
		return "", fmt.Errorf("UploadDocument: queue extraction: %w", err)
	}
	b.mu.Lock()
	if d, ok := b.docs[documentID]; ok {
		d.jobID = job.JobID
	}
	b.mu.Unlock()

	b.log.Info().
		Str("document_id", documentID).
		Str("job_id", job.JobID).
		Str("uri", b.objects.URI(objectName)).
		Msg("Document queued for extraction")
	return documentID, nil
}

// GetDocument returns the current state. A document whose extraction job
// failed permanently reads as error.
func (b *Backend) GetDocument(ctx context.Context, documentID string) (*domain.ExtractedDocument, error) {
	b.mu.RLock()
	d, ok := b.docs[documentID]
	var doc domain.ExtractedDocument
	var jobID string
	if ok {
		doc, jobID = d.doc, d.jobID
	}
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("GetDocument %s: %w", documentID, ErrDocumentNotFound)
	}

	if doc.State == domain.StateProcessing && jobID != "" {
		job, err := b.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("GetDocument %s: %w", documentID, err)
		}
		if job.Status == jobs.JobStatusFailed {
			doc = b.markError(documentID, job.Error)
		}
	}
	return &doc, nil
}

func (b *Backend) markError(documentID, msg string) domain.ExtractedDocument {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.docs[documentID]
	if d.doc.State == domain.StateProcessing {
		d.doc.State = domain.StateError
		d.doc.Error = msg
	}
	return d.doc
}

// ApplyFields records the applied subset against the target line.
func (b *Backend) ApplyFields(ctx context.Context, req backend.ApplyRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.docs[req.DocumentID]
	if !ok {
		return fmt.Errorf("ApplyFields %s: %w", req.DocumentID, ErrDocumentNotFound)
	}
	if d.doc.State != domain.StateCompleted {
		return fmt.Errorf("ApplyFields %s: %w", req.DocumentID, ErrNotExtracted)
	}
	for _, name := range req.Fields {
		if !d.doc.Fields.Has(name) {
			return fmt.Errorf("ApplyFields %s: field %s was not extracted", req.DocumentID, name)
		}
	}

	target := req.TargetID
	if target == "" {
		target = d.targetID
	}
	d.applied[target] = append(d.applied[target], req.Fields...)

	b.log.Info().
		Str("document_id", req.DocumentID).
		Str("target_id", target).
		Interface("fields", req.Fields).
		Msg("Fields applied")
	return nil
}

// Applied lists the fields applied from documentID to targetID.
func (b *Backend) Applied(documentID, targetID string) []domain.FieldName {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.docs[documentID]
	if !ok {
		return nil
	}
	return append([]domain.FieldName(nil), d.applied[targetID]...)
}

// handleJob runs one extraction. Returning an error lets the queue retry.
func (b *Backend) handleJob(ctx context.Context, j jobs.Job) error {
	job, ok := j.(*jobs.ExtractDocumentJob)
	if !ok {
		return fmt.Errorf("unexpected job type %s", j.GetType())
	}
	return b.pipeline.Execute(ctx, &pipeline.State{Job: job})
}

// recordExtraction completes a document and seeds its header. Documents
// removed while the job ran are ignored.
func (b *Backend) recordExtraction(ctx context.Context, documentID string, fields domain.ExtractedFields) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[documentID]
	if !ok {
		return nil
	}
	d.doc.Fields = fields
	d.doc.State = domain.StateCompleted
	d.doc.Error = ""
	if _, exists := b.headers[documentID]; !exists {
		b.headers[documentID] = headerFromFields(documentID, fields)
	}

	b.log.Info().
		Str("document_id", documentID).
		Int("fields", len(fields.Present())).
		Msg("Extraction completed")
	return nil
}
