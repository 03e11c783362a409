package repository

import (
	"context"

	"github.com/user/property-ingest/internal/entity"
)

// FailedParcelRepository defines the interface for managing parcels that failed to ingest.
type FailedParcelRepository interface {
	// SaveOrUpdate creates or updates a record for a failed parcel.
	SaveOrUpdate(ctx context.Context, failed *entity.FailedParcel) error
	// FindRetryable retrieves a batch of parcels that are due for a retry.
	FindRetryable(ctx context.Context, limit int) ([]*entity.FailedParcel, error)
	// Delete removes a failed parcel record, typically after a successful scrape.
	Delete(ctx context.Context, source, sourceParcelID string) error
}
