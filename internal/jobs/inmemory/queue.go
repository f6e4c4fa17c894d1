// Package inmemory is a channel-backed job queue for single-instance
// deployments and tests.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerlens/internal/jobs"

	"go.uber.org/zap"
)

type Queue struct {
	jobChan   chan *jobs.ProcessDocumentJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	logger    *zap.Logger
	closed    bool
	started   bool
}

// NewQueue creates an in-memory queue. bufferSize bounds how many jobs can be
// waiting before PublishProcessDocument rejects.
func NewQueue(bufferSize int, logger *zap.Logger) *Queue {
	return &Queue{
		jobChan:   make(chan *jobs.ProcessDocumentJob, bufferSize),
		closeChan: make(chan struct{}),
		logger:    logger,
	}
}

func (q *Queue) PublishProcessDocument(ctx context.Context, job *jobs.ProcessDocumentJob) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	job.Status = jobs.JobStatusPending
	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue is full")
	}
}

// Start launches a single worker; documents are processed one at a time, in
// arrival order.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return fmt.Errorf("consumer already started")
	}
	q.started = true
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-q.closeChan:
				return
			case job, ok := <-q.jobChan:
				if !ok {
					return
				}
				q.run(ctx, job, handler)
			}
		}
	}()
	return nil
}

func (q *Queue) run(ctx context.Context, job *jobs.ProcessDocumentJob, handler jobs.JobHandler) {
	now := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now

	err := handler(ctx, job)

	done := time.Now()
	job.CompletedAt = &done
	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
		q.logger.Warn("Document processing job failed",
			zap.String("job_id", job.JobID.String()),
			zap.String("document_id", job.DocumentID.String()),
			zap.Error(err),
		)
		return
	}
	job.Status = jobs.JobStatusCompleted
}

// Stop stops accepting jobs and waits for the in-flight one to finish.
func (q *Queue) Stop(_ context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.closeChan)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *Queue) Close() error {
	return q.Stop(context.Background())
}
