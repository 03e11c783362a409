package entity

import "time"

// FailedParcel mirrors the `failed_parcels` PostgreSQL table schema.
type FailedParcel struct {
	ID                   int64
	Source               string
	SourceParcelID       string
	FailureReason        string
	HTTPStatusCode       int
	LastAttemptTimestamp time.Time
	RetryCount           int
	NextRetryAt          time.Time
}
