package repository

import (
	"context"

	"github.com/user/property-ingest/internal/entity"
)

// JobQueueRepository defines the interface for a FIFO queue of batch scrape jobs.
type JobQueueRepository interface {
	// Push adds a job to the end of the queue.
	Push(ctx context.Context, job *entity.BatchJob) error
	// Pop removes and returns a job from the front of the queue.
	Pop(ctx context.Context) (*entity.BatchJob, error)
	// Size returns the current number of queued jobs.
	Size(ctx context.Context) (int64, error)
	// SetStatus records the current status of a job so it can be polled by ID.
	SetStatus(ctx context.Context, status *entity.BatchJobStatus) error
	// GetStatus retrieves the status of a job by ID.
	GetStatus(ctx context.Context, jobID string) (*entity.BatchJobStatus, error)
}
