package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/rs/zerolog"
)

// ErrPollLimit is returned when a document is still processing after the
// configured number of attempts.
var ErrPollLimit = errors.New("document still processing after maximum poll attempts")

// FetchFunc reads the current state of a document.
type FetchFunc func(ctx context.Context, documentID string) (*domain.ExtractedDocument, error)

// Poller re-reads a document on a fixed interval until it reaches a
// terminal state, fails, hits the attempt cap or is stopped.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int // 0 polls until a terminal state
	log         zerolog.Logger
}

// NewPoller creates a poller.
func NewPoller(interval time.Duration, maxAttempts int, log zerolog.Logger) *Poller {
	return &Poller{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		log:         log,
	}
}

// PollHandle controls one running poll.
type PollHandle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	attempts int
	doc      *domain.ExtractedDocument
	err      error
}

// Stop cancels the poll. A request already in flight is abandoned and its
// result is never delivered.
func (h *PollHandle) Stop() {
	h.cancel()
}

// Done is closed once the poll goroutine has exited.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Result returns the last document read and the terminal error, if any.
func (h *PollHandle) Result() (*domain.ExtractedDocument, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc, h.err
}

// Attempts returns how many reads have been issued.
func (h *PollHandle) Attempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// Start polls documentID in a new goroutine. onDone runs once, from the
// poll goroutine, unless the poll is stopped first.
func (p *Poller) Start(ctx context.Context, documentID string, fetch FetchFunc, onDone func(*domain.ExtractedDocument, error)) *PollHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()

		doc, err := p.run(ctx, h, documentID, fetch)

		h.mu.Lock()
		h.doc, h.err = doc, err
		h.mu.Unlock()

		if ctx.Err() != nil {
			p.log.Debug().Str("document_id", documentID).Msg("Polling stopped")
			return
		}
		if onDone != nil {
			onDone(doc, err)
		}
	}()

	return h
}

func (p *Poller) run(ctx context.Context, h *PollHandle, documentID string, fetch FetchFunc) (*domain.ExtractedDocument, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		h.mu.Lock()
		h.attempts++
		attempt := h.attempts
		h.mu.Unlock()

		doc, err := fetch(ctx, documentID)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			return nil, fmt.Errorf("poll document %s: %w", documentID, err)
		}

		p.log.Debug().
			Str("document_id", documentID).
			Int("attempt", attempt).
			Str("state", string(doc.State)).
			Msg("Polled document")

		if doc.State.Terminal() {
			return doc, nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return doc, ErrPollLimit
		}

		timer.Reset(p.Interval)
	}
}
