package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/rendiciones/internal/jobs"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// Store keeps job snapshots in a map. Callers always get copies.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]jobs.ExtractDocumentJob
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]jobs.ExtractDocumentJob)}
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.ExtractDocumentJob) error {
	if job.JobID == "" {
		return fmt.Errorf("save job of document %s: job ID is required", job.DocumentID)
	}
	s.mu.Lock()
	s.jobs[job.JobID] = *job
	s.mu.Unlock()
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ExtractDocumentJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return &job, nil
}

// UpdateJobStatus sets the status, and the error when one is given.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	s.jobs[jobID] = job
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
