package repository

import (
	"context"

	"github.com/user/property-ingest/internal/entity"
)

// PropertyRepository defines the interface for storing and retrieving normalized property records.
type PropertyRepository interface {
	// Upsert stores a property record. Records are keyed by (source, sourceParcelId);
	// an existing record for the same key is updated in place.
	Upsert(ctx context.Context, rec *entity.PropertyRecord) error
	// FindByKey retrieves the record for a specific source and source parcel ID.
	FindByKey(ctx context.Context, source, sourceParcelID string) (*entity.PropertyRecord, error)
	// ListBySource retrieves up to limit records for one source, newest first.
	ListBySource(ctx context.Context, source string, limit int) ([]*entity.PropertyRecord, error)
}
