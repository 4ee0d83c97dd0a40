package extraction

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/rs/zerolog"
)

func waitDone(t *testing.T, h *PollHandle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not finish")
	}
}

func TestPoller_StopsOnTerminalState(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, id string) (*domain.ExtractedDocument, error) {
		if calls.Add(1) < 3 {
			return &domain.ExtractedDocument{ID: id, State: domain.StateProcessing}, nil
		}
		return &domain.ExtractedDocument{ID: id, State: domain.StateCompleted}, nil
	}

	results := make(chan error, 1)
	p := NewPoller(time.Millisecond, 0, zerolog.Nop())
	h := p.Start(context.Background(), "doc-1", fetch, func(doc *domain.ExtractedDocument, err error) {
		results <- err
	})
	waitDone(t, h)

	if err := <-results; err != nil {
		t.Fatalf("onDone error = %v", err)
	}
	if h.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", h.Attempts())
	}
	doc, err := h.Result()
	if err != nil || doc.State != domain.StateCompleted {
		t.Errorf("Result() = %+v, %v", doc, err)
	}
}

func TestPoller_AttemptCap(t *testing.T) {
	fetch := func(ctx context.Context, id string) (*domain.ExtractedDocument, error) {
		return &domain.ExtractedDocument{ID: id, State: domain.StateProcessing}, nil
	}

	p := NewPoller(time.Millisecond, 4, zerolog.Nop())
	h := p.Start(context.Background(), "doc-1", fetch, nil)
	waitDone(t, h)

	doc, err := h.Result()
	if !errors.Is(err, ErrPollLimit) {
		t.Fatalf("Result() error = %v, want ErrPollLimit", err)
	}
	if doc == nil || doc.State != domain.StateProcessing {
		t.Errorf("Result() doc = %+v, want last processing read", doc)
	}
	if h.Attempts() != 4 {
		t.Errorf("Attempts() = %d, want 4", h.Attempts())
	}
}

func TestPoller_FetchErrorEndsPoll(t *testing.T) {
	boom := errors.New("connection reset")
	fetch := func(ctx context.Context, id string) (*domain.ExtractedDocument, error) {
		return nil, boom
	}

	results := make(chan error, 1)
	p := NewPoller(time.Millisecond, 0, zerolog.Nop())
	h := p.Start(context.Background(), "doc-1", fetch, func(doc *domain.ExtractedDocument, err error) {
		results <- err
	})
	waitDone(t, h)

	if err := <-results; !errors.Is(err, boom) {
		t.Errorf("onDone error = %v, want %v", err, boom)
	}
	if h.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want 1", h.Attempts())
	}
}

func TestPoller_StopSuppressesCallback(t *testing.T) {
	fetch := func(ctx context.Context, id string) (*domain.ExtractedDocument, error) {
		return &domain.ExtractedDocument{ID: id, State: domain.StateProcessing}, nil
	}

	var called atomic.Bool
	p := NewPoller(time.Hour, 0, zerolog.Nop())
	h := p.Start(context.Background(), "doc-1", fetch, func(*domain.ExtractedDocument, error) {
		called.Store(true)
	})

	deadline := time.Now().Add(2 * time.Second)
	for h.Attempts() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	waitDone(t, h)

	if called.Load() {
		t.Error("onDone should not run after Stop")
	}
	if _, err := h.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("Result() error = %v, want context.Canceled", err)
	}
}
