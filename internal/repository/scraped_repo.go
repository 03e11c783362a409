package repository

import (
	"context"
	"time"
)

// ScrapedSetRepository defines the interface for deduplication of recently scraped parcels.
type ScrapedSetRepository interface {
	// MarkScraped marks a parcel as scraped with a specific expiry time.
	MarkScraped(ctx context.Context, source, sourceParcelID string, expiry time.Duration) error
	// IsRecentlyScraped checks whether a parcel was scraped within its expiry window.
	IsRecentlyScraped(ctx context.Context, source, sourceParcelID string) (bool, error)
	// RemoveScraped removes a parcel from the scraped set, used for force_scrape.
	RemoveScraped(ctx context.Context, source, sourceParcelID string) error
}
