package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/normalizer"
	"github.com/user/property-ingest/internal/quality"
	"github.com/user/property-ingest/internal/source"
	"github.com/user/property-ingest/internal/validator"
	"github.com/user/property-ingest/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

// fakeAdapter serves canned records keyed by parcel ID.
type fakeAdapter struct {
	source   string
	records  map[string]*entity.PropertyRecord
	fetchErr error

	mu    sync.Mutex
	calls []string
}

func (f *fakeAdapter) Source() string { return f.source }
func (f *fakeAdapter) Domain() string { return "test.example.com" }

func (f *fakeAdapter) Search(_ context.Context, _ source.Criteria) ([]entity.SearchResult, error) {
	return nil, nil
}

func (f *fakeAdapter) GetDetails(_ context.Context, id string) (entity.RawFields, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if _, ok := f.records[id]; !ok {
		return nil, nil
	}
	return entity.RawFields{"parcel_id": id}, nil
}

func (f *fakeAdapter) Normalize(fields entity.RawFields) (*entity.PropertyRecord, error) {
	rec, ok := f.records[fields.String("parcel_id")]
	if !ok {
		return nil, &source.ParseError{Msg: "unknown fixture parcel"}
	}
	return rec, nil
}

type fakePropertyRepo struct {
	mu      sync.Mutex
	stored  map[string]*entity.PropertyRecord
	saveErr error
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{stored: make(map[string]*entity.PropertyRecord)}
}

func (r *fakePropertyRepo) Upsert(_ context.Context, rec *entity.PropertyRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	src, id := rec.DedupKey()
	r.stored[src+"/"+id] = rec
	return nil
}

func (r *fakePropertyRepo) FindByKey(_ context.Context, src, id string) (*entity.PropertyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.stored[src+"/"+id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return rec, nil
}

func (r *fakePropertyRepo) ListBySource(_ context.Context, src string, limit int) ([]*entity.PropertyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.PropertyRecord
	for _, rec := range r.stored {
		if rec.Source == src && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakePropertyRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

type fakeScrapedRepo struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeScrapedRepo() *fakeScrapedRepo {
	return &fakeScrapedRepo{keys: make(map[string]bool)}
}

func (r *fakeScrapedRepo) MarkScraped(_ context.Context, src, id string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[src+"/"+id] = true
	return nil
}

func (r *fakeScrapedRepo) IsRecentlyScraped(_ context.Context, src, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[src+"/"+id], nil
}

func (r *fakeScrapedRepo) RemoveScraped(_ context.Context, src, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, src+"/"+id)
	return nil
}

func validRecord(sourceID, parcelID string) *entity.PropertyRecord {
	return &entity.PropertyRecord{
		Source:         sourceID,
		SourceParcelID: parcelID,
		ParcelID:       "TST-2025-" + parcelID,
		Address: entity.Address{
			Street:  "100 MAIN ST",
			City:    "AUSTIN",
			County:  "TRAVIS",
			State:   "TX",
			ZipCode: "78701",
		},
		Price:        500000,
		Acreage:      1.5,
		PropertyType: entity.PropertyTypeLand,
		Status:       entity.StatusActive,
		Owner:        entity.Owner{Name: "TEST OWNER", Type: entity.OwnerIndividual},
		LastUpdated:  time.Now().UTC(),
	}
}

type fakeFailedRepo struct {
	mu      sync.Mutex
	records map[string]*entity.FailedParcel
}

func newFakeFailedRepo() *fakeFailedRepo {
	return &fakeFailedRepo{records: make(map[string]*entity.FailedParcel)}
}

func (r *fakeFailedRepo) SaveOrUpdate(_ context.Context, fp *entity.FailedParcel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fp.Source + "/" + fp.SourceParcelID
	if prev, ok := r.records[key]; ok {
		fp.RetryCount = prev.RetryCount + 1
	} else {
		fp.RetryCount = 1
	}
	r.records[key] = fp
	return nil
}

func (r *fakeFailedRepo) FindRetryable(_ context.Context, limit int) ([]*entity.FailedParcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*entity.FailedParcel
	for _, fp := range r.records {
		if len(due) < limit {
			due = append(due, fp)
		}
	}
	return due, nil
}

func (r *fakeFailedRepo) Delete(_ context.Context, src, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, src+"/"+id)
	return nil
}

func (r *fakeFailedRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type scraperFixture struct {
	scraper Scraper
	adapter *fakeAdapter
	props   *fakePropertyRepo
	scraped *fakeScrapedRepo
	failed  *fakeFailedRepo
}

func newScraperFixture(t *testing.T, records map[string]*entity.PropertyRecord) *scraperFixture {
	t.Helper()
	v := validator.New(normalizer.DefaultRegion())
	adapter := &fakeAdapter{source: "test-cad", records: records}
	props := newFakePropertyRepo()
	scraped := newFakeScrapedRepo()
	failed := newFakeFailedRepo()
	scraper := NewScrapeUseCase(
		map[string]source.Adapter{"test-cad": adapter},
		props, scraped, failed, v, quality.New(v),
		ScrapeOptions{MaxConcurrency: 3},
	)
	return &scraperFixture{scraper: scraper, adapter: adapter, props: props, scraped: scraped, failed: failed}
}

func TestScrapeOneStoresValidRecord(t *testing.T) {
	fx := newScraperFixture(t, map[string]*entity.PropertyRecord{
		"P1": validRecord("test-cad", "P1"),
	})

	res, err := fx.scraper.ScrapeOne(context.Background(), "test-cad", "P1", false)
	if err != nil {
		t.Fatalf("ScrapeOne: %v", err)
	}
	if !res.Found || !res.Stored {
		t.Errorf("Found=%v Stored=%v, want both true", res.Found, res.Stored)
	}
	if res.Validation == nil || !res.Validation.IsValid {
		t.Errorf("Validation = %+v, want valid", res.Validation)
	}
	if res.Quality == nil || res.Quality.Score <= 0 {
		t.Errorf("Quality = %+v, want positive score", res.Quality)
	}
	if fx.props.count() != 1 {
		t.Errorf("stored %d records, want 1", fx.props.count())
	}
	if recent, _ := fx.scraped.IsRecentlyScraped(context.Background(), "test-cad", "P1"); !recent {
		t.Error("parcel not marked in scraped set")
	}
}

func TestScrapeOneInvalidRecordReturnedNotStored(t *testing.T) {
	incomplete := validRecord("test-cad", "P2")
	incomplete.Price = 0
	incomplete.Address.County = ""
	fx := newScraperFixture(t, map[string]*entity.PropertyRecord{"P2": incomplete})

	res, err := fx.scraper.ScrapeOne(context.Background(), "test-cad", "P2", false)
	if err != nil {
		t.Fatalf("ScrapeOne: %v", err)
	}
	if !res.Found {
		t.Error("Found = false, want true")
	}
	if res.Stored {
		t.Error("invalid record was stored")
	}
	if res.Validation.IsValid {
		t.Error("validation passed for incomplete record")
	}
	if res.Record == nil || res.Quality == nil {
		t.Error("invalid result should still carry the record and quality report")
	}
	if fx.props.count() != 0 {
		t.Errorf("stored %d records, want 0", fx.props.count())
	}
}

func TestScrapeOneSkipsRecentlyScraped(t *testing.T) {
	fx := newScraperFixture(t, map[string]*entity.PropertyRecord{
		"P1": validRecord("test-cad", "P1"),
	})
	fx.scraped.MarkScraped(context.Background(), "test-cad", "P1", time.Hour)

	res, err := fx.scraper.ScrapeOne(context.Background(), "test-cad", "P1", false)
	if err != nil {
		t.Fatalf("ScrapeOne: %v", err)
	}
	if !res.Skipped {
		t.Error("Skipped = false, want true")
	}
	if len(fx.adapter.calls) != 0 {
		t.Errorf("adapter called %d times for a deduplicated parcel", len(fx.adapter.calls))
	}
}

func TestScrapeOneForceBypassesDedup(t *testing.T) {
	fx := newScraperFixture(t, map[string]*entity.PropertyRecord{
		"P1": validRecord("test-cad", "P1"),
	})
	fx.scraped.MarkScraped(context.Background(), "test-cad", "P1", time.Hour)

	res, err := fx.scraper.ScrapeOne(context.Background(), "test-cad", "P1", true)
	if err != nil {
		t.Fatalf("ScrapeOne: %v", err)
	}
	if res.Skipped || !res.Stored {
		t.Errorf("Skipped=%v Stored=%v, want force scrape to run", res.Skipped, res.Stored)
	}
}

func TestScrapeOneMissingParcel(t *testing.T) {
	fx := newScraperFixture(t, nil)

	res, err := fx.scraper.ScrapeOne(context.Background(), "test-cad", "GONE", false)
	if err != nil {
		t.Fatalf("ScrapeOne: %v", err)
	}
	if res.Found {
		t.Error("Found = true for a missing parcel")
	}
	// Dead IDs are marked so sequential scans skip them next run.
	if recent, _ := fx.scraped.IsRecentlyScraped(context.Background(), "test-cad", "GONE"); !recent {
		t.Error("missing parcel not marked in scraped set")
	}
}

func TestScrapeOneUnknownSource(t *testing.T) {
	fx := newScraperFixture(t, nil)

	_, err := fx.scraper.ScrapeOne(context.Background(), "nope-cad", "P1", false)
	var unknown *source.UnknownSourceError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownSourceError", err)
	}
}

func TestScrapeBatchPreservesInputOrder(t *testing.T) {
	records := make(map[string]*entity.PropertyRecord)
	var ids []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("B%d", i)
		ids = append(ids, id)
		if i%2 == 0 {
			records[id] = validRecord("test-cad", id)
		}
	}
	fx := newScraperFixture(t, records)

	results := fx.scraper.ScrapeBatch(context.Background(), "test-cad", ids, false)
	if len(results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(results), len(ids))
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("results[%d] is nil", i)
		}
		if res.SourceParcelID != ids[i] {
			t.Errorf("results[%d] = %s, want %s", i, res.SourceParcelID, ids[i])
		}
		if wantFound := i%2 == 0; res.Found != wantFound {
			t.Errorf("results[%d].Found = %v, want %v", i, res.Found, wantFound)
		}
	}
}

func TestScrapeBatchCapturesPerItemErrors(t *testing.T) {
	fx := newScraperFixture(t, nil)
	fx.adapter.fetchErr = errors.New("origin melted down")

	results := fx.scraper.ScrapeBatch(context.Background(), "test-cad", []string{"A", "B"}, false)
	for i, res := range results {
		if res.Error == "" {
			t.Errorf("results[%d].Error empty, want captured failure", i)
		}
	}
	if fx.failed.count() != 2 {
		t.Errorf("failed-parcel records = %d, want 2", fx.failed.count())
	}
}

func TestRetryFailedClearsRecordOnSuccess(t *testing.T) {
	fx := newScraperFixture(t, map[string]*entity.PropertyRecord{
		"P1": validRecord("test-cad", "P1"),
	})
	fx.adapter.fetchErr = errors.New("origin melted down")

	if _, err := fx.scraper.ScrapeOne(context.Background(), "test-cad", "P1", false); err == nil {
		t.Fatal("expected fetch failure")
	}
	if fx.failed.count() != 1 {
		t.Fatalf("failed-parcel records = %d, want 1", fx.failed.count())
	}

	// Origin recovers; the retry pass should scrape, store, and clear.
	fx.adapter.fetchErr = nil
	if n := fx.scraper.RetryFailed(context.Background(), 10); n != 1 {
		t.Errorf("RetryFailed = %d, want 1", n)
	}
	if fx.failed.count() != 0 {
		t.Errorf("failed-parcel records = %d after successful retry, want 0", fx.failed.count())
	}
	if fx.props.count() != 1 {
		t.Errorf("stored %d records, want 1", fx.props.count())
	}
}
