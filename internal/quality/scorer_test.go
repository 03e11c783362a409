package quality

import (
	"strings"
	"testing"
	"time"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/normalizer"
	"github.com/user/property-ingest/internal/validator"
)

func newScorer() *Scorer {
	return New(validator.New(normalizer.DefaultRegion()))
}

func fullRecord() *entity.PropertyRecord {
	return &entity.PropertyRecord{
		Source:         "travis-cad",
		SourceParcelID: "123456",
		ParcelID:       "TRA-2025-123456",
		Address: entity.Address{
			Street:      "500 Ranch Rd",
			City:        "Austin",
			County:      "Travis",
			State:       "TX",
			ZipCode:     "78701",
			Coordinates: &entity.Coordinates{Latitude: 30.27, Longitude: -97.74},
		},
		Price:           850000,
		AssessedValue:   800000,
		TaxableValue:    750000,
		Acreage:         12,
		Zoning:          "AG",
		PropertyType:    entity.PropertyTypeLand,
		Status:          entity.StatusActive,
		Owner:           entity.Owner{Name: "SMITH FAMILY TRUST", Type: entity.OwnerTrust},
		Taxes:           entity.TaxInfo{AnnualTotal: 14250},
		PricePerAcre:    70833,
		Title:           "12 acres on Ranch Rd",
		Description:     "Rolling hill country acreage.",
		MetaDescription: "12 ac land, Travis County",
		ListingDate:     time.Now(),
	}
}

func TestFullRecordScoresHigh(t *testing.T) {
	report := newScorer().Score(fullRecord())
	if report.Score != 100 {
		t.Errorf("score = %d, want 100; missing %v", report.Score, report.MissingFields)
	}
	if report.Tier != entity.TierHigh {
		t.Errorf("tier = %s, want high", report.Tier)
	}
	if len(report.Suggestions) != 0 {
		t.Errorf("complete record should yield no suggestions, got %v", report.Suggestions)
	}
}

func TestEmptyRecordScoresLow(t *testing.T) {
	report := newScorer().Score(&entity.PropertyRecord{PropertyType: entity.PropertyTypeLand})
	if report.Score != 0 {
		t.Errorf("score = %d, want 0", report.Score)
	}
	if report.Tier != entity.TierLow {
		t.Errorf("tier = %s, want low", report.Tier)
	}
	if len(report.Suggestions) == 0 {
		t.Error("empty record should yield suggestions")
	}
}

// Filling in required fields one at a time must never decrease the score.
func TestScoreMonotonicInRequiredFields(t *testing.T) {
	s := newScorer()
	r := &entity.PropertyRecord{PropertyType: entity.PropertyTypeLand}

	prev := s.Score(r).Score
	steps := []func(){
		func() { r.Source = "travis-cad" },
		func() { r.SourceParcelID = "1" },
		func() { r.ParcelID = "TRA-2025-1" },
		func() { r.Address.County = "Travis" },
		func() { r.Price = 100000 },
		func() { r.Acreage = 5 },
		func() { r.Status = entity.StatusActive },
	}
	for i, step := range steps {
		step()
		got := s.Score(r).Score
		if got < prev {
			t.Fatalf("score decreased at step %d: %d -> %d", i, prev, got)
		}
		prev = got
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  entity.QualityTier
	}{
		{100, entity.TierHigh},
		{80, entity.TierHigh},
		{79, entity.TierMedium},
		{60, entity.TierMedium},
		{59, entity.TierLow},
		{0, entity.TierLow},
	}
	for _, tc := range cases {
		if got := tierFor(tc.score); got != tc.want {
			t.Errorf("tierFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestSuggestionsAreTypeAware(t *testing.T) {
	s := newScorer()

	land := &entity.PropertyRecord{PropertyType: entity.PropertyTypeLand, Source: "x"}
	landReport := s.Score(land)
	if !containsSubstring(landReport.Suggestions, "acreage") {
		t.Errorf("land suggestions missing acreage hint: %v", landReport.Suggestions)
	}

	commercial := &entity.PropertyRecord{PropertyType: entity.PropertyTypeCommercial, Source: "x"}
	commReport := s.Score(commercial)
	if !containsSubstring(commReport.Suggestions, "square footage") {
		t.Errorf("commercial suggestions missing square footage hint: %v", commReport.Suggestions)
	}
}

func TestMissingFieldsDeduplicated(t *testing.T) {
	report := newScorer().Score(&entity.PropertyRecord{PropertyType: entity.PropertyTypeLand})
	seen := map[string]int{}
	for _, f := range report.MissingFields {
		seen[f]++
		if seen[f] > 1 {
			t.Fatalf("field %q reported missing more than once: %v", f, report.MissingFields)
		}
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
