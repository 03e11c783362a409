package response

import (
	"time"

	"github.com/user/property-ingest/internal/usecase"
)

type ScrapeResponse struct {
	Status string                `json:"status"`
	Result *usecase.ScrapeResult `json:"result"`
}

type SubmitBatchResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// BatchStatusResponse is a DTO for batch progress, mirroring entity.BatchJobStatus
type BatchStatusResponse struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"` // "queued", "running", "completed", "failed"
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

type SourcesResponse struct {
	Sources []string `json:"sources"`
}
