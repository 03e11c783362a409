package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/repository"
	"github.com/user/property-ingest/pkg/metrics"
)

var (
	ErrJobNotFound = errors.New("batch job not found")
	ErrEmptyBatch  = errors.New("batch job has no parcel IDs and no ID range")
)

// BatchManager defines the interface for submitting and tracking batch scrape jobs.
type BatchManager interface {
	// Submit queues a batch job and returns its ID.
	Submit(ctx context.Context, job *entity.BatchJob) (string, error)
	// GetStatus retrieves the pollable status of a job by ID.
	GetStatus(ctx context.Context, jobID string) (*entity.BatchJobStatus, error)
	// ProcessJobFromQueue pops and runs a single job. An empty queue is a
	// normal state and returns nil.
	ProcessJobFromQueue(ctx context.Context) error
}

type batchUseCase struct {
	scraper Scraper
	jobRepo repository.JobQueueRepository
}

// NewBatchUseCase creates a new BatchManager use case.
func NewBatchUseCase(scraper Scraper, jobRepo repository.JobQueueRepository) BatchManager {
	return &batchUseCase{scraper: scraper, jobRepo: jobRepo}
}

func (uc *batchUseCase) Submit(ctx context.Context, job *entity.BatchJob) (string, error) {
	if len(job.ParcelIDs) == 0 && (job.StartID <= 0 || job.EndID < job.StartID) {
		return "", ErrEmptyBatch
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.SubmittedAt = time.Now().UTC()

	if err := uc.jobRepo.Push(ctx, job); err != nil {
		return "", fmt.Errorf("failed to queue batch job: %w", err)
	}
	uc.syncQueueGauge(ctx)

	status := &entity.BatchJobStatus{
		JobID:       job.ID,
		Status:      entity.JobStatusQueued,
		Total:       len(expandParcelIDs(job)),
		SubmittedAt: job.SubmittedAt,
	}
	if err := uc.jobRepo.SetStatus(ctx, status); err != nil {
		// The job is queued; the worker will rewrite the status when it
		// picks the job up.
		slog.Warn("Failed to record initial job status", "job_id", job.ID, "error", err)
	}

	slog.Info("Batch job queued", "job_id", job.ID, "source", job.Source, "total", status.Total)
	return job.ID, nil
}

func (uc *batchUseCase) GetStatus(ctx context.Context, jobID string) (*entity.BatchJobStatus, error) {
	status, err := uc.jobRepo.GetStatus(ctx, jobID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return status, nil
}

func (uc *batchUseCase) ProcessJobFromQueue(ctx context.Context) error {
	job, err := uc.jobRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Queue is empty, which is a normal state.
			return nil
		}
		return fmt.Errorf("failed to pop batch job from queue: %w", err)
	}
	uc.syncQueueGauge(ctx)

	parcelIDs := expandParcelIDs(job)
	now := time.Now().UTC()
	status := &entity.BatchJobStatus{
		JobID:       job.ID,
		Status:      entity.JobStatusRunning,
		Total:       len(parcelIDs),
		SubmittedAt: job.SubmittedAt,
		StartedAt:   &now,
	}
	if err := uc.jobRepo.SetStatus(ctx, status); err != nil {
		slog.Warn("Failed to mark job running", "job_id", job.ID, "error", err)
	}

	slog.Info("Processing batch job", "job_id", job.ID, "source", job.Source, "total", len(parcelIDs))

	results := uc.scraper.ScrapeBatch(ctx, job.Source, parcelIDs, job.ForceScrape)
	for _, res := range results {
		switch {
		case res == nil || res.Error != "":
			status.Failed++
		case res.Skipped:
			status.Skipped++
		default:
			status.Succeeded++
		}
	}

	finished := time.Now().UTC()
	status.Status = entity.JobStatusCompleted
	status.FinishedAt = &finished
	if ctx.Err() != nil {
		status.Status = entity.JobStatusFailed
		status.Error = ctx.Err().Error()
	}
	if err := uc.jobRepo.SetStatus(ctx, status); err != nil {
		return fmt.Errorf("failed to record final status for job %s: %w", job.ID, err)
	}

	slog.Info("Batch job finished",
		"job_id", job.ID,
		"status", status.Status,
		"succeeded", status.Succeeded,
		"skipped", status.Skipped,
		"failed", status.Failed,
		"duration_ms", finished.Sub(now).Milliseconds(),
	)
	return nil
}

// expandParcelIDs flattens a job into the concrete list of parcel IDs,
// combining the explicit list with the inclusive [StartID, EndID] range.
func expandParcelIDs(job *entity.BatchJob) []string {
	ids := make([]string, 0, len(job.ParcelIDs))
	ids = append(ids, job.ParcelIDs...)
	if job.StartID > 0 && job.EndID >= job.StartID {
		for id := job.StartID; id <= job.EndID; id++ {
			ids = append(ids, strconv.Itoa(id))
		}
	}
	return ids
}

func (uc *batchUseCase) syncQueueGauge(ctx context.Context) {
	if metrics.BatchJobsInQueue == nil {
		return
	}
	if size, err := uc.jobRepo.Size(ctx); err == nil {
		metrics.BatchJobsInQueue.Set(float64(size))
	}
}
