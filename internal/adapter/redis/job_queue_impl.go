package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/property-ingest/internal/entity"
)

const (
	jobQueueKey     = "ingest:jobs"
	jobStatusPrefix = "ingest:job:"
	jobStatusTTL    = 24 * time.Hour
)

// JobQueueRepoImpl provides a concrete implementation for the JobQueueRepository interface using Redis Lists.
type JobQueueRepoImpl struct {
	client *redis.Client
}

// NewJobQueueRepo creates a new instance of JobQueueRepoImpl.
func NewJobQueueRepo(client *redis.Client) *JobQueueRepoImpl {
	return &JobQueueRepoImpl{client: client}
}

// Push serializes a job and adds it to the left side of the Redis list (acting as a queue).
func (r *JobQueueRepoImpl) Push(ctx context.Context, job *entity.BatchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, jobQueueKey, payload).Err()
}

// Pop removes and returns a job from the right side of the Redis list.
// It returns redis.Nil as the error when the queue is empty.
func (r *JobQueueRepoImpl) Pop(ctx context.Context) (*entity.BatchJob, error) {
	payload, err := r.client.RPop(ctx, jobQueueKey).Result()
	if err != nil {
		return nil, err
	}
	var job entity.BatchJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Size returns the current number of queued jobs.
func (r *JobQueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, jobQueueKey).Result()
}

// SetStatus stores the job status so it can be polled while the worker runs.
func (r *JobQueueRepoImpl) SetStatus(ctx context.Context, status *entity.BatchJobStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%s", jobStatusPrefix, status.JobID)
	return r.client.Set(ctx, key, payload, jobStatusTTL).Err()
}

// GetStatus retrieves the status of a job by ID. It returns redis.Nil as the
// error when the job is unknown or its status has expired.
func (r *JobQueueRepoImpl) GetStatus(ctx context.Context, jobID string) (*entity.BatchJobStatus, error) {
	payload, err := r.client.Get(ctx, fmt.Sprintf("%s%s", jobStatusPrefix, jobID)).Result()
	if err != nil {
		return nil, err
	}
	var status entity.BatchJobStatus
	if err := json.Unmarshal([]byte(payload), &status); err != nil {
		return nil, err
	}
	return &status, nil
}
