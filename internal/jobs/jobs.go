// Package jobs models document processing as explicit background work with
// its own success/failure channel, instead of a bare fire-and-forget
// goroutine: the upload path learns synchronously whether submission failed.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ProcessDocumentJob asks the pipeline to run one uploaded document through
// extraction.
type ProcessDocumentJob struct {
	JobID       uuid.UUID  `json:"job_id"`
	UserID      uuid.UUID  `json:"user_id"`
	DocumentID  uuid.UUID  `json:"document_id"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Publisher submits jobs to a queue. Publish returns an error when the job
// could not be accepted; callers must surface that instead of logging it away.
type Publisher interface {
	PublishProcessDocument(ctx context.Context, job *ProcessDocumentJob) error
	Close() error
}

// JobHandler processes one job; a returned error marks the job failed.
type JobHandler func(ctx context.Context, job *ProcessDocumentJob) error

// Consumer drains the queue, invoking the handler per job.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}
