// Package pipeline runs the steps that turn a stored upload into the
// extracted field set of its document.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/extractor"
	"github.com/dvloznov/rendiciones/internal/gcsuploader"
	"github.com/dvloznov/rendiciones/internal/jobs"
	"github.com/rs/zerolog"
)

// Step is a single step of the extraction pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps.
type State struct {
	Job     *jobs.ExtractDocumentJob
	Content []byte
	Fields  domain.ExtractedFields
}

// FetchStep reads the uploaded bytes from object storage.
type FetchStep struct {
	Objects gcsuploader.ObjectStore
}

func (s *FetchStep) Execute(ctx context.Context, state *State) error {
	content, err := s.Objects.Get(ctx, state.Job.ObjectName)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", state.Job.ObjectName, err)
	}
	state.Content = content
	return nil
}

// ExtractStep asks the extractor for the field set.
type ExtractStep struct {
	Extractor extractor.Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *State) error {
	fields, err := s.Extractor.Extract(ctx, state.Content, state.Job.MimeType)
	if err != nil {
		return fmt.Errorf("extract %s: %w", state.Job.DocumentID, err)
	}
	state.Fields = fields
	return nil
}

// NormalizeStep cleans the model output into canonical forms.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *State) error {
	state.Fields = NormalizeFields(state.Fields)
	return nil
}

// ProveedorStep checks the extracted provider id against the provider code
// list. Unknown ids are dropped; a known id fills a missing provider name.
// An empty or unreachable list leaves the fields untouched.
type ProveedorStep struct {
	Codes backend.Codes
	Log   zerolog.Logger
}

func (s *ProveedorStep) Execute(ctx context.Context, state *State) error {
	id, ok := state.Fields.ProveedorID.Get()
	if !ok || s.Codes == nil {
		return nil
	}

	entries, err := s.Codes.ListCodes(ctx, domain.CodeProveedor)
	if err != nil {
		s.Log.Warn().Err(err).Str("document_id", state.Job.DocumentID).Msg("Provider list unavailable, keeping extracted id")
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if e.Code == id {
			if !state.Fields.Proveedor.IsSet() {
				state.Fields.Proveedor = domain.Some(e.Name)
			}
			return nil
		}
	}

	s.Log.Info().
		Str("document_id", state.Job.DocumentID).
		Str("proveedor_id", id).
		Msg("Dropping unknown provider id")
	state.Fields.ProveedorID = domain.None[string]()
	return nil
}

// RecordFunc stores the final fields of a document.
type RecordFunc func(ctx context.Context, documentID string, fields domain.ExtractedFields) error

// RecordStep hands the result to the document store.
type RecordStep struct {
	Record RecordFunc
}

func (s *RecordStep) Execute(ctx context.Context, state *State) error {
	return s.Record(ctx, state.Job.DocumentID, state.Fields)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewExtractionPipeline creates the standard fetch, extract, normalize,
// check provider and record pipeline.
func NewExtractionPipeline(objects gcsuploader.ObjectStore, ex extractor.Extractor, codes backend.Codes, record RecordFunc, log zerolog.Logger) *Pipeline {
	return NewPipeline(
		&FetchStep{Objects: objects},
		&ExtractStep{Extractor: ex},
		&NormalizeStep{},
		&ProveedorStep{Codes: codes, Log: log},
		&RecordStep{Record: record},
	)
}
