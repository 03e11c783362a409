package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/fetcher"
	"github.com/user/property-ingest/internal/quality"
	"github.com/user/property-ingest/internal/repository"
	"github.com/user/property-ingest/internal/source"
	"github.com/user/property-ingest/internal/validator"
	"github.com/user/property-ingest/pkg/metrics"
)

const (
	defaultScrapedExpiry  = 24 * time.Hour
	defaultMaxConcurrency = 5
	failedRetryDelay      = 15 * time.Minute
)

// ScrapeResult is the outcome of ingesting one parcel. A result is returned
// even when the record fails validation; IsValid on the validation report
// tells the caller which case they got.
type ScrapeResult struct {
	Source         string                   `json:"source"`
	SourceParcelID string                   `json:"sourceParcelId"`
	Found          bool                     `json:"found"`
	Skipped        bool                     `json:"skipped,omitempty"`
	Stored         bool                     `json:"stored"`
	Record         *entity.PropertyRecord   `json:"record,omitempty"`
	Validation     *entity.ValidationResult `json:"validation,omitempty"`
	Quality        *entity.QualityReport    `json:"quality,omitempty"`
	Error          string                   `json:"error,omitempty"`
}

// Scraper defines the interface for the core ingestion process.
type Scraper interface {
	// ScrapeOne runs the fetch/normalize/validate/score pipeline for a single
	// parcel. Unknown parcels yield a result with Found=false and no error.
	ScrapeOne(ctx context.Context, sourceID, parcelID string, force bool) (*ScrapeResult, error)
	// ScrapeBatch processes parcels concurrently and returns one result per
	// input ID, in input order. Per-parcel failures are captured in the
	// result's Error field and never abort the rest of the batch.
	ScrapeBatch(ctx context.Context, sourceID string, parcelIDs []string, force bool) []*ScrapeResult
	// RetryFailed re-scrapes up to limit parcels whose retry window has
	// elapsed and returns the number attempted.
	RetryFailed(ctx context.Context, limit int) int
	// Sources lists the source IDs this scraper has adapters for.
	Sources() []string
}

// ScrapeOptions tunes the ingestion pipeline.
type ScrapeOptions struct {
	ScrapedExpiry  time.Duration
	MaxConcurrency int
}

type scrapeUseCase struct {
	adapters     map[string]source.Adapter
	propertyRepo repository.PropertyRepository
	scrapedRepo  repository.ScrapedSetRepository
	failedRepo   repository.FailedParcelRepository
	scorer       *quality.Scorer
	validate     *validator.Validator
	expiry       time.Duration
	concurrency  int64
}

// NewScrapeUseCase creates the ingestion pipeline over a fixed set of source
// adapters. Adapters are shared across calls so session state survives
// between parcels.
func NewScrapeUseCase(
	adapters map[string]source.Adapter,
	propertyRepo repository.PropertyRepository,
	scrapedRepo repository.ScrapedSetRepository,
	failedRepo repository.FailedParcelRepository,
	validate *validator.Validator,
	scorer *quality.Scorer,
	opts ScrapeOptions,
) Scraper {
	if opts.ScrapedExpiry <= 0 {
		opts.ScrapedExpiry = defaultScrapedExpiry
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	return &scrapeUseCase{
		adapters:     adapters,
		propertyRepo: propertyRepo,
		scrapedRepo:  scrapedRepo,
		failedRepo:   failedRepo,
		scorer:       scorer,
		validate:     validate,
		expiry:       opts.ScrapedExpiry,
		concurrency:  int64(opts.MaxConcurrency),
	}
}

func (uc *scrapeUseCase) Sources() []string {
	ids := make([]string, 0, len(uc.adapters))
	for id := range uc.adapters {
		ids = append(ids, id)
	}
	return ids
}

func (uc *scrapeUseCase) ScrapeOne(ctx context.Context, sourceID, parcelID string, force bool) (*ScrapeResult, error) {
	adapter, ok := uc.adapters[sourceID]
	if !ok {
		return nil, &source.UnknownSourceError{Source: sourceID, Valid: uc.Sources()}
	}

	result := &ScrapeResult{Source: sourceID, SourceParcelID: parcelID}

	if force {
		if err := uc.scrapedRepo.RemoveScraped(ctx, sourceID, parcelID); err != nil {
			slog.Warn("Failed to clear scraped key for force scrape", "source", sourceID, "parcel_id", parcelID, "error", err)
			// Continue anyway, as this is not a critical failure
		}
	} else {
		recent, err := uc.scrapedRepo.IsRecentlyScraped(ctx, sourceID, parcelID)
		if err != nil {
			return nil, fmt.Errorf("failed to check scraped set for %s/%s: %w", sourceID, parcelID, err)
		}
		if recent {
			result.Skipped = true
			uc.observeScrape(sourceID, "skipped", 0)
			return result, nil
		}
	}

	slog.Info("Scraping parcel", "source", sourceID, "parcel_id", parcelID)
	startTime := time.Now()

	fields, err := adapter.GetDetails(ctx, parcelID)
	duration := time.Since(startTime)
	if err != nil {
		uc.observeScrape(sourceID, "failure", duration)
		uc.recordFailure(ctx, sourceID, parcelID, err)
		return nil, fmt.Errorf("failed to fetch details for %s/%s: %w", sourceID, parcelID, err)
	}
	if fields == nil {
		// Gap in the ID sequence or a retired parcel. Mark it scraped so
		// sequential scans do not hammer the same dead IDs every run.
		uc.observeScrape(sourceID, "not_found", duration)
		if err := uc.scrapedRepo.MarkScraped(ctx, sourceID, parcelID, uc.expiry); err != nil {
			slog.Warn("Failed to mark missing parcel as scraped", "source", sourceID, "parcel_id", parcelID, "error", err)
		}
		return result, nil
	}
	result.Found = true

	rec, err := adapter.Normalize(fields)
	if err != nil {
		uc.observeScrape(sourceID, "failure", duration)
		uc.recordFailure(ctx, sourceID, parcelID, err)
		return nil, fmt.Errorf("failed to normalize %s/%s: %w", sourceID, parcelID, err)
	}
	result.Record = rec

	validation := uc.validate.ValidatePropertyRecord(rec, nil)
	result.Validation = &validation
	report := uc.scorer.Score(rec)
	result.Quality = &report

	if !validation.IsValid {
		slog.Warn("Record failed validation, not storing",
			"source", sourceID,
			"parcel_id", parcelID,
			"missing_fields", validation.MissingFields,
			"quality_score", report.Score,
		)
		uc.observeScrape(sourceID, "invalid", duration)
		return result, nil
	}

	if err := uc.propertyRepo.Upsert(ctx, rec); err != nil {
		uc.observeScrape(sourceID, "failure", duration)
		uc.recordFailure(ctx, sourceID, parcelID, err)
		return nil, fmt.Errorf("failed to upsert record for %s/%s: %w", sourceID, parcelID, err)
	}
	result.Stored = true

	// A success clears any pending retry for the parcel.
	if uc.failedRepo != nil {
		if err := uc.failedRepo.Delete(ctx, sourceID, parcelID); err != nil {
			slog.Warn("Failed to clear failed-parcel record after successful scrape", "source", sourceID, "parcel_id", parcelID, "error", err)
		}
	}

	if err := uc.scrapedRepo.MarkScraped(ctx, sourceID, parcelID, uc.expiry); err != nil {
		// Non-critical: the record is stored, the parcel may just be
		// re-scraped earlier than the expiry intends.
		slog.Error("Failed to mark parcel as scraped after storing", "source", sourceID, "parcel_id", parcelID, "error", err)
	}

	uc.observeScrape(sourceID, "success", duration)
	slog.Info("Parcel stored",
		"source", sourceID,
		"parcel_id", rec.ParcelID,
		"quality_score", report.Score,
		"quality_tier", report.Tier,
		"duration_ms", duration.Milliseconds(),
	)
	return result, nil
}

func (uc *scrapeUseCase) ScrapeBatch(ctx context.Context, sourceID string, parcelIDs []string, force bool) []*ScrapeResult {
	results := make([]*ScrapeResult, len(parcelIDs))
	sem := semaphore.NewWeighted(uc.concurrency)
	var wg sync.WaitGroup

	for i, parcelID := range parcelIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: record the remaining IDs as failed.
			for j := i; j < len(parcelIDs); j++ {
				results[j] = &ScrapeResult{Source: sourceID, SourceParcelID: parcelIDs[j], Error: err.Error()}
			}
			break
		}
		wg.Add(1)
		go func(i int, parcelID string) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := uc.ScrapeOne(ctx, sourceID, parcelID, force)
			if err != nil {
				res = &ScrapeResult{Source: sourceID, SourceParcelID: parcelID, Error: err.Error()}
			}
			results[i] = res
		}(i, parcelID)
	}

	wg.Wait()
	return results
}

// RetryFailed pulls parcels whose next_retry_at has passed and runs them
// through the pipeline again. The scraped-set check is skipped for them;
// failed parcels were never marked scraped in the first place.
func (uc *scrapeUseCase) RetryFailed(ctx context.Context, limit int) int {
	if uc.failedRepo == nil || limit <= 0 {
		return 0
	}
	due, err := uc.failedRepo.FindRetryable(ctx, limit)
	if err != nil {
		slog.Error("Failed to list retryable parcels", "error", err)
		return 0
	}
	for _, fp := range due {
		if _, err := uc.ScrapeOne(ctx, fp.Source, fp.SourceParcelID, false); err != nil {
			slog.Warn("Retry scrape failed", "source", fp.Source, "parcel_id", fp.SourceParcelID, "retry_count", fp.RetryCount, "error", err)
		}
	}
	return len(due)
}

func (uc *scrapeUseCase) recordFailure(ctx context.Context, sourceID, parcelID string, cause error) {
	if uc.failedRepo == nil {
		return
	}
	now := time.Now().UTC()
	failed := &entity.FailedParcel{
		Source:               sourceID,
		SourceParcelID:       parcelID,
		FailureReason:        cause.Error(),
		LastAttemptTimestamp: now,
		NextRetryAt:          now.Add(failedRetryDelay),
	}
	var ferr *fetcher.FetchError
	if errors.As(cause, &ferr) {
		failed.HTTPStatusCode = ferr.Status
	}
	if err := uc.failedRepo.SaveOrUpdate(ctx, failed); err != nil {
		slog.Warn("Failed to record failed parcel", "source", sourceID, "parcel_id", parcelID, "error", err)
	}
}

func (uc *scrapeUseCase) observeScrape(sourceID, status string, duration time.Duration) {
	if metrics.ScrapesTotal != nil {
		metrics.ScrapesTotal.WithLabelValues(sourceID, status).Inc()
	}
	if metrics.ScrapeDuration != nil && duration > 0 {
		metrics.ScrapeDuration.WithLabelValues(sourceID).Observe(duration.Seconds())
	}
}
