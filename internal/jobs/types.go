// Package jobs defines the extraction work queued after an upload.
package jobs

import (
	"context"
	"time"
)

// JobType names the kind of work a job carries.
type JobType string

// JobTypeExtractDocument reads the fixed field set out of an uploaded document.
const JobTypeExtractDocument JobType = "extract_document"

// JobStatus is where a job is in its lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusRetrying  JobStatus = "retrying"
	// JobStatusFailed is final: retries are exhausted.
	JobStatusFailed JobStatus = "failed"
)

// ExtractDocumentJob extracts one uploaded document for the line it was
// uploaded against.
type ExtractDocumentJob struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	TargetID   string `json:"target_id"`
	ObjectName string `json:"object_name"`
	MimeType   string `json:"mime_type"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Error is the last handler failure.
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Job is what a JobHandler receives.
type Job interface {
	GetType() JobType
}

func (j *ExtractDocumentJob) GetType() JobType {
	return JobTypeExtractDocument
}

// Publisher queues extraction jobs.
type Publisher interface {
	PublishExtractDocument(ctx context.Context, job *ExtractDocumentJob) error
}

// Consumer runs a handler over queued jobs until stopped.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	// Stop waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error schedules a retry while
// retries remain.
type JobHandler func(ctx context.Context, job Job) error

// JobStore keeps the latest state of every job.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractDocumentJob) error
	GetJob(ctx context.Context, jobID string) (*ExtractDocumentJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}
