// Package local is an in-process backend: uploads go to an object store,
// extraction runs on the in-memory job queue and records live in memory.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/extractor"
	"github.com/dvloznov/rendiciones/internal/gcsuploader"
	"github.com/dvloznov/rendiciones/internal/jobs/inmemory"
	"github.com/dvloznov/rendiciones/internal/pipeline"
	"github.com/rs/zerolog"
)

var (
	// ErrDocumentNotFound is returned for unknown document ids.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrRecordNotFound is returned for unknown line or tax ids.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNotExtracted is returned when fields are applied before extraction completed.
	ErrNotExtracted = errors.New("document extraction has not completed")
)

type document struct {
	doc        domain.ExtractedDocument
	targetID   string
	objectName string
	jobID      string
	applied    map[string][]domain.FieldName
	uploadedAt time.Time
}

// Backend implements backend.Backend in memory.
type Backend struct {
	objects   gcsuploader.ObjectStore
	extractor extractor.Extractor
	codes     backend.Codes
	pipeline  *pipeline.Pipeline
	store     *inmemory.Store
	queue     *inmemory.Queue
	log       zerolog.Logger

	queueOpts []inmemory.QueueOption

	mu             sync.RWMutex
	docs           map[string]*document
	headers        map[string]domain.Header
	lines          map[string][]domain.LineItem
	taxes          map[string][]domain.TaxEntry
	decompositions map[string][]domain.AperturaRow
}

var _ backend.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithObjectStore stores uploads in objects instead of an in-memory bucket.
func WithObjectStore(objects gcsuploader.ObjectStore) Option {
	return func(b *Backend) { b.objects = objects }
}

// WithCodes serves code lists from source.
func WithCodes(source backend.Codes) Option {
	return func(b *Backend) { b.codes = source }
}

// WithLogger sets the backend logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Backend) { b.log = log }
}

// WithQueueOptions tunes the extraction queue.
func WithQueueOptions(opts ...inmemory.QueueOption) Option {
	return func(b *Backend) { b.queueOpts = append(b.queueOpts, opts...) }
}

// New creates a backend that extracts fields with ex. Call Start before uploading.
func New(ex extractor.Extractor, opts ...Option) *Backend {
	b := &Backend{
		extractor:      ex,
		log:            zerolog.Nop(),
		store:          inmemory.NewStore(),
		docs:           make(map[string]*document),
		headers:        make(map[string]domain.Header),
		lines:          make(map[string][]domain.LineItem),
		taxes:          make(map[string][]domain.TaxEntry),
		decompositions: make(map[string][]domain.AperturaRow),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.objects == nil {
		b.objects = gcsuploader.NewMemoryBucket("local-uploads")
	}
	if b.codes == nil {
		b.codes = codes.NewStaticSource(nil)
	}
	b.pipeline = pipeline.NewExtractionPipeline(b.objects, b.extractor, b.codes, b.recordExtraction, b.log)
	qopts := append([]inmemory.QueueOption{inmemory.WithLogger(b.log)}, b.queueOpts...)
	b.queue = inmemory.NewQueue(100, b.store, qopts...)
	return b
}

// Start launches the extraction workers.
func (b *Backend) Start(ctx context.Context) error {
	if err := b.queue.Start(ctx, b.handleJob); err != nil {
		return fmt.Errorf("start extraction queue: %w", err)
	}
	return nil
}

// Close stops the workers, waiting for in-flight extractions.
func (b *Backend) Close(ctx context.Context) error {
	return b.queue.Stop(ctx)
}

func (b *Backend) ListCodes(ctx context.Context, codeType domain.CodeType) ([]domain.CodeEntry, error) {
	return b.codes.ListCodes(ctx, codeType)
}

// SaveDecomposition replaces the stored rows of sourceID.
func (b *Backend) SaveDecomposition(ctx context.Context, sourceID string, rows []domain.AperturaRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decompositions[sourceID] = append([]domain.AperturaRow(nil), rows...)
	b.log.Info().Str("source_id", sourceID).Int("rows", len(rows)).Msg("Decomposition saved")
	return nil
}

// Decomposition returns the last saved rows of sourceID.
func (b *Backend) Decomposition(sourceID string) ([]domain.AperturaRow, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rows, ok := b.decompositions[sourceID]
	return append([]domain.AperturaRow(nil), rows...), ok
}
