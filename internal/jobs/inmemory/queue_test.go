package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/rendiciones/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ExtractDocumentJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach %s, last state %+v", jobID, want, job)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(2))
	defer q.Stop(context.Background())

	var handled atomic.Int32
	if err := q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		if job.GetType() != jobs.JobTypeExtractDocument {
			t.Errorf("GetType() = %s", job.GetType())
		}
		handled.Add(1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	job := &jobs.ExtractDocumentJob{DocumentID: "doc-1", ObjectName: "uploads/doc-1"}
	if err := q.PublishExtractDocument(context.Background(), job); err != nil {
		t.Fatalf("PublishExtractDocument() error: %v", err)
	}
	if job.JobID == "" || job.MaxRetries != 3 {
		t.Errorf("defaults not applied: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps should be set")
	}
	if handled.Load() != 1 {
		t.Errorf("handled = %d, want 1", handled.Load())
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithRetries(2, time.Millisecond))
	defer q.Stop(context.Background())

	var attempts atomic.Int32
	_ = q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		attempts.Add(1)
		return errors.New("model unavailable")
	})

	job := &jobs.ExtractDocumentJob{DocumentID: "doc-2"}
	if err := q.PublishExtractDocument(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", failed.RetryCount)
	}
	if failed.Error != "model unavailable" {
		t.Errorf("Error = %q", failed.Error)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestQueue_RetrySucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithRetries(3, time.Millisecond))
	defer q.Stop(context.Background())

	var attempts atomic.Int32
	_ = q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	job := &jobs.ExtractDocumentJob{DocumentID: "doc-3"}
	_ = q.PublishExtractDocument(context.Background(), job)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 1 || done.Error != "" {
		t.Errorf("completed job = %+v", done)
	}
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := q.PublishExtractDocument(context.Background(), &jobs.ExtractDocumentJob{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("PublishExtractDocument() = %v, want ErrQueueClosed", err)
	}
	if err := q.Start(context.Background(), nil); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Start() = %v, want ErrQueueClosed", err)
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	job := &jobs.ExtractDocumentJob{JobID: "1", DocumentID: "doc-a", Status: jobs.JobStatusPending}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.Status = jobs.JobStatusRunning
	if got, _ := store.GetJob(ctx, "1"); got.Status != jobs.JobStatusPending {
		t.Errorf("stored job changed through caller pointer: %s", got.Status)
	}

	if err := store.UpdateJobStatus(ctx, "1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetJob(ctx, "1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("GetJob() = %+v", got)
	}

	if _, err := store.GetJob(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob(missing) = %v", err)
	}
	if err := store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("UpdateJobStatus(missing) = %v", err)
	}
	if err := store.SaveJob(ctx, &jobs.ExtractDocumentJob{}); err == nil {
		t.Error("SaveJob without id should fail")
	}
}
