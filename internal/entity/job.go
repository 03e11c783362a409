package entity

import "time"

// BatchJob is a queued request to scrape a set of parcels from one source.
type BatchJob struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	ParcelIDs   []string  `json:"parcelIds,omitempty"`
	StartID     int       `json:"startId,omitempty"`
	EndID       int       `json:"endId,omitempty"`
	ForceScrape bool      `json:"forceScrape,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Batch job lifecycle states.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// BatchJobStatus is the pollable progress record for a batch job.
type BatchJobStatus struct {
	JobID       string     `json:"jobId"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}
