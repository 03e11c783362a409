package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/property-ingest/pkg/utils"
)

const scrapedKeyPrefix = "scraped:"

// ScrapedSetRepoImpl provides a concrete implementation for the ScrapedSetRepository interface using Redis.
type ScrapedSetRepoImpl struct {
	client *redis.Client
}

// NewScrapedSetRepo creates a new instance of ScrapedSetRepoImpl.
func NewScrapedSetRepo(client *redis.Client) *ScrapedSetRepoImpl {
	return &ScrapedSetRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a parcel by hashing its dedup key.
func (r *ScrapedSetRepoImpl) generateKey(source, sourceParcelID string) string {
	return fmt.Sprintf("%s%s", scrapedKeyPrefix, utils.HashKey(source, sourceParcelID))
}

// MarkScraped marks a parcel as scraped by setting a key in Redis with a specific expiry time.
func (r *ScrapedSetRepoImpl) MarkScraped(ctx context.Context, source, sourceParcelID string, expiry time.Duration) error {
	key := r.generateKey(source, sourceParcelID)
	// SETEX is atomic and sets the key with an expiry.
	return r.client.SetEx(ctx, key, "1", expiry).Err()
}

// IsRecentlyScraped checks whether a parcel was scraped within its expiry window.
func (r *ScrapedSetRepoImpl) IsRecentlyScraped(ctx context.Context, source, sourceParcelID string) (bool, error) {
	key := r.generateKey(source, sourceParcelID)
	val, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// RemoveScraped removes a parcel from the scraped set, used for force_scrape.
func (r *ScrapedSetRepoImpl) RemoveScraped(ctx context.Context, source, sourceParcelID string) error {
	key := r.generateKey(source, sourceParcelID)
	return r.client.Del(ctx, key).Err()
}
