package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/property-ingest/internal/entity"
)

// FailedParcelRepoImpl provides a concrete implementation for the FailedParcelRepository interface using PostgreSQL.
type FailedParcelRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedParcelRepo creates a new instance of FailedParcelRepoImpl.
func NewFailedParcelRepo(db *pgxpool.Pool) *FailedParcelRepoImpl {
	return &FailedParcelRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed parcel.
// It increments the retry_count on conflict.
func (r *FailedParcelRepoImpl) SaveOrUpdate(ctx context.Context, failed *entity.FailedParcel) error {
	query := `
		INSERT INTO failed_parcels (source, source_parcel_id, failure_reason, http_status_code, last_attempt_timestamp, retry_count, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (source, source_parcel_id) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			retry_count = failed_parcels.retry_count + 1,
			next_retry_at = EXCLUDED.next_retry_at;
	`
	_, err := r.db.Exec(ctx, query,
		failed.Source,
		failed.SourceParcelID,
		failed.FailureReason,
		failed.HTTPStatusCode,
		failed.LastAttemptTimestamp,
		failed.NextRetryAt,
	)
	return err
}

// FindRetryable retrieves a batch of parcels that are due for a retry.
func (r *FailedParcelRepoImpl) FindRetryable(ctx context.Context, limit int) ([]*entity.FailedParcel, error) {
	query := `
		SELECT id, source, source_parcel_id, failure_reason, http_status_code, last_attempt_timestamp, retry_count, next_retry_at
		FROM failed_parcels
		WHERE next_retry_at <= NOW()
		ORDER BY next_retry_at ASC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []*entity.FailedParcel
	for rows.Next() {
		var fp entity.FailedParcel
		if err := rows.Scan(
			&fp.ID,
			&fp.Source,
			&fp.SourceParcelID,
			&fp.FailureReason,
			&fp.HTTPStatusCode,
			&fp.LastAttemptTimestamp,
			&fp.RetryCount,
			&fp.NextRetryAt,
		); err != nil {
			return nil, err
		}
		failed = append(failed, &fp)
	}

	return failed, rows.Err()
}

// Delete removes a failed parcel record, typically after a successful scrape.
func (r *FailedParcelRepoImpl) Delete(ctx context.Context, source, sourceParcelID string) error {
	query := `DELETE FROM failed_parcels WHERE source = $1 AND source_parcel_id = $2;`
	_, err := r.db.Exec(ctx, query, source, sourceParcelID)
	return err
}
