// Package extraction drives one document capture: upload, polling until
// the extraction finishes, field selection and applying the selected
// fields to the target expense line.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/tolerance"
	"github.com/rs/zerolog"
)

// State is the upload session state.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

var (
	// ErrBusy is returned while a conflicting operation is in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrNotCompleted is returned when fields are applied before extraction finished.
	ErrNotCompleted = errors.New("document extraction has not completed")
	// ErrNothingSelected is returned by ApplySelected with an empty selection.
	ErrNothingSelected = errors.New("no fields selected")
	// ErrSessionClosed is returned by an upload that finished after Close.
	ErrSessionClosed = errors.New("session closed during upload")
)

// Default polling parameters.
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultPollMaxAttempts = 150
)

// MergeFunc receives the applied subset of extracted fields.
type MergeFunc func(fields domain.ExtractedFields)

// Session is one capture against one reference line. It is safe for use
// from multiple goroutines; poll results arrive on the poller's goroutine.
type Session struct {
	docs   backend.Documents
	ref    domain.ReferenceLine
	policy UploadPolicy
	poller *Poller
	log    zerolog.Logger

	mu         sync.Mutex
	state      State
	documentID string
	doc        *domain.ExtractedDocument
	selected   map[domain.FieldName]bool
	poll       *PollHandle
	applying   bool
	lastErr    error
	// gen changes on Close; an upload started under an older value is discarded
	gen uint64
}

// Option configures a Session.
type Option func(*Session)

// WithPolicy replaces the default upload policy.
func WithPolicy(p UploadPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithPoller replaces the default poller.
func WithPoller(p *Poller) Option {
	return func(s *Session) { s.poller = p }
}

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession creates an idle session for ref.
func NewSession(docs backend.Documents, ref domain.ReferenceLine, opts ...Option) *Session {
	s := &Session{
		docs:     docs,
		ref:      ref,
		policy:   DefaultUploadPolicy(),
		log:      zerolog.Nop(),
		state:    StateIdle,
		selected: make(map[domain.FieldName]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.poller == nil {
		s.poller = NewPoller(DefaultPollInterval, DefaultPollMaxAttempts, s.log)
	}
	s.log = s.log.With().Str("reference_id", ref.ID).Logger()
	return s
}

// Upload validates f, submits it and starts polling. Rejected files leave
// the session untouched and make no network call.
func (s *Session) Upload(ctx context.Context, f *File) error {
	if err := s.policy.Validate(f); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateUploading || s.state == StateProcessing {
		s.mu.Unlock()
		return ErrBusy
	}
	prev := s.state
	s.stopPollLocked()
	s.state = StateUploading
	gen := s.gen
	s.mu.Unlock()

	documentID, err := s.docs.UploadDocument(ctx, backend.UploadRequest{
		TargetID: s.ref.ID,
		Filename: f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
		Body:     f.Content,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		s.log.Warn().Str("filename", f.Name).Str("document_id", documentID).Msg("Session closed during upload, result discarded")
		return ErrSessionClosed
	}

	if err != nil {
		s.state = prev
		s.lastErr = fmt.Errorf("upload %s: %w", f.Name, err)
		s.log.Error().Err(err).Str("filename", f.Name).Msg("Upload failed")
		return s.lastErr
	}

	s.documentID = documentID
	s.doc = nil
	s.lastErr = nil
	clear(s.selected)
	s.state = StateProcessing
	s.log.Info().Str("document_id", documentID).Str("filename", f.Name).Msg("Document uploaded, polling for extraction")
	s.startPollLocked()
	return nil
}

// Refresh resumes polling after a transport failure or the attempt cap.
func (s *Session) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateProcessing {
		return fmt.Errorf("refresh in state %s: %w", s.state, ErrNotCompleted)
	}
	if s.poll != nil {
		select {
		case <-s.poll.Done():
		default:
			return ErrBusy
		}
	}
	s.lastErr = nil
	s.startPollLocked()
	return nil
}

func (s *Session) startPollLocked() {
	var h *PollHandle
	h = s.poller.Start(context.Background(), s.documentID, s.docs.GetDocument, func(doc *domain.ExtractedDocument, err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.finishPollLocked(h, doc, err)
	})
	s.poll = h
}

func (s *Session) stopPollLocked() {
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
}

func (s *Session) finishPollLocked(h *PollHandle, doc *domain.ExtractedDocument, err error) {
	// a newer poll or Close has superseded this one
	if s.poll != h {
		return
	}

	if err != nil {
		s.lastErr = err
		s.log.Error().Err(err).Str("document_id", s.documentID).Msg("Polling ended without a terminal state")
		return
	}

	s.doc = doc
	clear(s.selected)
	if doc.State == domain.StateCompleted {
		s.state = StateCompleted
	} else {
		s.state = StateError
	}
	s.log.Info().
		Str("document_id", s.documentID).
		Str("state", string(s.state)).
		Int("fields", len(doc.Fields.Present())).
		Msg("Extraction finished")
}

// Wait blocks until the current poll exits or ctx is done, and returns the
// poll error, if any.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	h := s.poll
	s.mu.Unlock()

	if h == nil {
		return s.Err()
	}
	select {
	case <-h.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	// the completion callback runs before Done closes
	return s.Err()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DocumentID returns the identifier assigned by the last successful upload.
func (s *Session) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID
}

// Document returns a copy of the terminal document, or nil.
func (s *Session) Document() *domain.ExtractedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	cp := *s.doc
	return &cp
}

// Err returns the last surfaced failure.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Matches classifies the extracted date and amount against the reference line.
func (s *Session) Matches() tolerance.FieldMatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fields domain.ExtractedFields
	if s.doc != nil {
		fields = s.doc.Fields
	}
	return tolerance.MatchFields(fields, s.ref)
}

// NothingRecognized reports a completed extraction with no fields.
func (s *Session) NothingRecognized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCompleted && len(s.doc.Fields.Present()) == 0
}

// Selectable reports whether name can be toggled.
func (s *Session) Selectable(name domain.FieldName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectableLocked(name)
}

func (s *Session) selectableLocked(name domain.FieldName) bool {
	return s.state == StateCompleted && s.doc != nil && s.doc.Fields.Has(name)
}

// ToggleField flips the selection of name and returns whether it is now
// selected. Fields without an extracted value are never selected.
func (s *Session) ToggleField(name domain.FieldName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selectableLocked(name) {
		return false
	}
	if s.selected[name] {
		delete(s.selected, name)
		return false
	}
	s.selected[name] = true
	return true
}

// Select adds names to the selection. Repeated names are selected once.
// It returns the names that have no extracted value and were skipped.
func (s *Session) Select(names ...domain.FieldName) []domain.FieldName {
	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped []domain.FieldName
	for _, name := range names {
		if !s.selectableLocked(name) {
			skipped = append(skipped, name)
			continue
		}
		s.selected[name] = true
	}
	return skipped
}

// Selected lists the selected fields in display order.
func (s *Session) Selected() []domain.FieldName {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Session) selectedLocked() []domain.FieldName {
	var names []domain.FieldName
	for _, name := range domain.ExtractedFieldOrder {
		if s.selected[name] && s.selectableLocked(name) {
			names = append(names, name)
		}
	}
	return names
}

// ApplySelected marks the selected fields as applied on the server and then
// hands them to merge. On failure the selection is kept for a retry and
// merge is not called.
func (s *Session) ApplySelected(ctx context.Context, merge MergeFunc) (domain.ExtractedFields, error) {
	s.mu.Lock()
	if s.state != StateCompleted {
		s.mu.Unlock()
		return domain.ExtractedFields{}, ErrNotCompleted
	}
	if s.applying {
		s.mu.Unlock()
		return domain.ExtractedFields{}, ErrBusy
	}
	names := s.selectedLocked()
	if len(names) == 0 {
		s.mu.Unlock()
		return domain.ExtractedFields{}, ErrNothingSelected
	}
	payload := s.doc.Fields.Subset(names)
	req := backend.ApplyRequest{
		DocumentID: s.documentID,
		TargetID:   s.ref.ID,
		Fields:     names,
		Values:     payload,
	}
	s.applying = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.applying = false
		s.mu.Unlock()
	}()

	if err := s.docs.ApplyFields(ctx, req); err != nil {
		s.mu.Lock()
		s.lastErr = fmt.Errorf("apply fields to %s: %w", s.ref.ID, err)
		err = s.lastErr
		s.mu.Unlock()
		s.log.Error().Err(err).Str("document_id", req.DocumentID).Msg("Apply failed, selection kept")
		return domain.ExtractedFields{}, err
	}

	if merge != nil {
		merge(payload)
	}

	s.mu.Lock()
	clear(s.selected)
	s.lastErr = nil
	s.mu.Unlock()

	s.log.Info().
		Str("document_id", req.DocumentID).
		Interface("fields", names).
		Msg("Extracted fields applied")
	return payload, nil
}

// Close stops any running poll and discards the local document and selection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopPollLocked()
	s.gen++
	s.state = StateIdle
	s.documentID = ""
	s.doc = nil
	s.lastErr = nil
	clear(s.selected)
}
