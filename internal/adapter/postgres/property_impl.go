package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/property-ingest/internal/entity"
)

// PropertyRepoImpl provides a concrete implementation for the PropertyRepository interface using PostgreSQL.
type PropertyRepoImpl struct {
	db *pgxpool.Pool
}

// NewPropertyRepo creates a new instance of PropertyRepoImpl.
func NewPropertyRepo(db *pgxpool.Pool) *PropertyRepoImpl {
	return &PropertyRepoImpl{db: db}
}

// Upsert stores or updates a property record keyed by (source, source_parcel_id).
func (r *PropertyRepoImpl) Upsert(ctx context.Context, rec *entity.PropertyRecord) error {
	addressJSON, err := json.Marshal(rec.Address)
	if err != nil {
		return err
	}
	ownerJSON, err := json.Marshal(rec.Owner)
	if err != nil {
		return err
	}
	taxesJSON, err := json.Marshal(rec.Taxes)
	if err != nil {
		return err
	}
	deedsJSON, err := json.Marshal(rec.DeedHistory)
	if err != nil {
		return err
	}
	improvementsJSON, err := json.Marshal(rec.Improvements)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO properties (
			source, source_parcel_id, parcel_id, address, price, assessed_value,
			taxable_value, acreage, square_feet, total_square_feet, zoning,
			property_type, status, owner, taxes, deed_history, improvements,
			price_per_acre, price_per_square_foot, title, description,
			meta_description, listing_date, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (source, source_parcel_id) DO UPDATE SET
			parcel_id = EXCLUDED.parcel_id,
			address = EXCLUDED.address,
			price = EXCLUDED.price,
			assessed_value = EXCLUDED.assessed_value,
			taxable_value = EXCLUDED.taxable_value,
			acreage = EXCLUDED.acreage,
			square_feet = EXCLUDED.square_feet,
			total_square_feet = EXCLUDED.total_square_feet,
			zoning = EXCLUDED.zoning,
			property_type = EXCLUDED.property_type,
			status = EXCLUDED.status,
			owner = EXCLUDED.owner,
			taxes = EXCLUDED.taxes,
			deed_history = EXCLUDED.deed_history,
			improvements = EXCLUDED.improvements,
			price_per_acre = EXCLUDED.price_per_acre,
			price_per_square_foot = EXCLUDED.price_per_square_foot,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			meta_description = EXCLUDED.meta_description,
			listing_date = EXCLUDED.listing_date,
			last_updated = EXCLUDED.last_updated;
	`

	_, err = r.db.Exec(ctx, query,
		rec.Source,
		rec.SourceParcelID,
		rec.ParcelID,
		addressJSON,
		rec.Price,
		rec.AssessedValue,
		rec.TaxableValue,
		rec.Acreage,
		rec.SquareFeet,
		rec.TotalSquareFeet,
		rec.Zoning,
		rec.PropertyType,
		rec.Status,
		ownerJSON,
		taxesJSON,
		deedsJSON,
		improvementsJSON,
		rec.PricePerAcre,
		rec.PricePerSquareFoot,
		rec.Title,
		rec.Description,
		rec.MetaDescription,
		rec.ListingDate,
		rec.LastUpdated,
	)
	return err
}

const propertyColumns = `
	id, source, source_parcel_id, parcel_id, address, price, assessed_value,
	taxable_value, acreage, square_feet, total_square_feet, zoning,
	property_type, status, owner, taxes, deed_history, improvements,
	price_per_acre, price_per_square_foot, title, description,
	meta_description, listing_date, last_updated
`

// FindByKey retrieves the record for one source parcel from the database.
func (r *PropertyRepoImpl) FindByKey(ctx context.Context, source, sourceParcelID string) (*entity.PropertyRecord, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE source = $1 AND source_parcel_id = $2;`
	row := r.db.QueryRow(ctx, query, source, sourceParcelID)
	return scanProperty(row)
}

// ListBySource retrieves up to limit records for one source, newest first.
func (r *PropertyRepoImpl) ListBySource(ctx context.Context, source string, limit int) ([]*entity.PropertyRecord, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE source = $1 ORDER BY last_updated DESC LIMIT $2;`
	rows, err := r.db.Query(ctx, query, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*entity.PropertyRecord
	for rows.Next() {
		rec, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*entity.PropertyRecord, error) {
	var rec entity.PropertyRecord
	var addressJSON, ownerJSON, taxesJSON, deedsJSON, improvementsJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.Source,
		&rec.SourceParcelID,
		&rec.ParcelID,
		&addressJSON,
		&rec.Price,
		&rec.AssessedValue,
		&rec.TaxableValue,
		&rec.Acreage,
		&rec.SquareFeet,
		&rec.TotalSquareFeet,
		&rec.Zoning,
		&rec.PropertyType,
		&rec.Status,
		&ownerJSON,
		&taxesJSON,
		&deedsJSON,
		&improvementsJSON,
		&rec.PricePerAcre,
		&rec.PricePerSquareFoot,
		&rec.Title,
		&rec.Description,
		&rec.MetaDescription,
		&rec.ListingDate,
		&rec.LastUpdated,
	)
	if err != nil {
		return nil, err // pgx.ErrNoRows will be returned if not found
	}

	if err := json.Unmarshal(addressJSON, &rec.Address); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ownerJSON, &rec.Owner); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(taxesJSON, &rec.Taxes); err != nil {
		return nil, err
	}
	if len(deedsJSON) > 0 {
		if err := json.Unmarshal(deedsJSON, &rec.DeedHistory); err != nil {
			return nil, err
		}
	}
	if len(improvementsJSON) > 0 {
		if err := json.Unmarshal(improvementsJSON, &rec.Improvements); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
