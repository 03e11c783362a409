package validator

import (
	"slices"
	"testing"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/normalizer"
)

func validRecord() *entity.PropertyRecord {
	return &entity.PropertyRecord{
		Source:         "travis-cad",
		SourceParcelID: "123456",
		ParcelID:       "TRA-2025-123456",
		Address: entity.Address{
			Street: "500 Ranch Rd",
			City:   "Austin",
			County: "Travis",
			State:  "TX",
		},
		Price:  450000,
		Status: entity.StatusActive,
	}
}

func TestValidRecordPasses(t *testing.T) {
	v := New(normalizer.DefaultRegion())
	res := v.ValidatePropertyRecord(validRecord(), nil)
	if !res.IsValid {
		t.Fatalf("expected valid, got %+v", res)
	}
	if len(res.MissingFields) != 0 {
		t.Errorf("unexpected missing fields: %v", res.MissingFields)
	}
}

// All failure categories must be reported together, not first-failure-only.
func TestNoShortCircuit(t *testing.T) {
	v := New(normalizer.DefaultRegion())
	r := validRecord()
	r.Price = 0
	r.Status = ""
	r.Address.County = ""

	res := v.ValidatePropertyRecord(r, nil)
	if res.IsValid {
		t.Fatal("expected invalid")
	}
	for _, want := range []string{"price", "status", "address.county"} {
		if !slices.Contains(res.MissingFields, want) {
			t.Errorf("MissingFields = %v, want it to contain %q", res.MissingFields, want)
		}
	}
	if !res.InvalidStatus {
		t.Error("empty status must set InvalidStatus")
	}
}

func TestInvalidPriceFlag(t *testing.T) {
	v := New(normalizer.DefaultRegion())
	r := validRecord()
	r.Price = -100

	res := v.ValidatePropertyRecord(r, nil)
	if !res.InvalidPrice {
		t.Error("negative price must set InvalidPrice")
	}
	if res.IsValid {
		t.Error("record with invalid price reported valid")
	}
}

func TestCoordinatesOutsideRegion(t *testing.T) {
	v := New(normalizer.DefaultRegion())
	r := validRecord()
	r.Address.Coordinates = &entity.Coordinates{Latitude: 32.78, Longitude: -96.80}

	res := v.ValidatePropertyRecord(r, nil)
	if !res.InvalidCoordinates {
		t.Error("out-of-region coordinates must set InvalidCoordinates")
	}

	r.Address.Coordinates = &entity.Coordinates{Latitude: 30.3, Longitude: -97.7}
	res = v.ValidatePropertyRecord(r, nil)
	if res.InvalidCoordinates {
		t.Error("in-region coordinates flagged invalid")
	}
}

func TestNilCoordinatesAreAcceptable(t *testing.T) {
	v := New(normalizer.DefaultRegion())
	res := v.ValidatePropertyRecord(validRecord(), nil)
	if res.InvalidCoordinates {
		t.Error("absent coordinates must not be flagged invalid")
	}
}

func TestValidateStatusEnum(t *testing.T) {
	v := New(normalizer.DefaultRegion())
	for _, s := range entity.ValidStatuses {
		if !v.ValidateStatus(s) {
			t.Errorf("ValidateStatus(%s) = false", s)
		}
	}
	if v.ValidateStatus("for_sale") {
		t.Error("unknown status accepted")
	}
}

func TestCustomRequiredFields(t *testing.T) {
	v := New(normalizer.DefaultRegion())
	r := validRecord()
	res := v.ValidatePropertyRecord(r, []string{"source", "acreage", "owner.name"})
	if res.IsValid {
		t.Fatal("expected invalid with stricter required fields")
	}
	if !slices.Contains(res.MissingFields, "acreage") || !slices.Contains(res.MissingFields, "owner.name") {
		t.Errorf("MissingFields = %v", res.MissingFields)
	}
}
