package normalizer

import (
	"testing"

	"github.com/user/property-ingest/internal/entity"
)

func TestNormalizePrice(t *testing.T) {
	n := New(DefaultRegion())
	cases := []struct {
		in   any
		want float64
	}{
		{"$1,250,000.50", 1250000.50},
		{"$ 45,000", 45000},
		{"1234.5", 1234.5},
		{"n/a", 0},
		{"", 0},
		{"price on request", 0},
		{250000.0, 250000},
		{42, 42},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := n.NormalizePrice(tc.in); got != tc.want {
			t.Errorf("NormalizePrice(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeCoordinatesBoundingBox(t *testing.T) {
	n := New(DefaultRegion())

	if c := n.NormalizeCoordinates(30.25, -97.75); c == nil {
		t.Fatal("Austin-area coordinates rejected")
	} else if c.Latitude != 30.25 || c.Longitude != -97.75 {
		t.Errorf("coordinates mutated: %+v", c)
	}

	outside := [][2]any{
		{32.78, -96.80}, // Dallas, north of box
		{29.5, -95.3},   // Houston, east of box
		{28.0, -98.0},   // south of box
		{30.0, -100.0},  // west of box
	}
	for _, pair := range outside {
		if c := n.NormalizeCoordinates(pair[0], pair[1]); c != nil {
			t.Errorf("NormalizeCoordinates(%v, %v) = %+v, want nil", pair[0], pair[1], c)
		}
	}

	if c := n.NormalizeCoordinates("not a number", -97.75); c != nil {
		t.Errorf("unparseable latitude accepted: %+v", c)
	}
}

func TestNormalizeCoordinatesIdempotent(t *testing.T) {
	n := New(DefaultRegion())
	first := n.NormalizeCoordinates("30.1", "-98.2")
	if first == nil {
		t.Fatal("in-box coordinates rejected")
	}
	second := n.NormalizeCoordinates(first.Latitude, first.Longitude)
	if second == nil || *second != *first {
		t.Errorf("re-normalization changed the value: %+v -> %+v", first, second)
	}
}

func TestNormalizeAddressString(t *testing.T) {
	n := New(DefaultRegion())
	addr := n.NormalizeAddress("123 Ranch Rd, Dripping Springs, Hays, TX 78620")
	want := entity.Address{
		Street:  "123 Ranch Rd",
		City:    "Dripping Springs",
		County:  "Hays",
		State:   "TX",
		ZipCode: "78620",
	}
	if addr != want {
		t.Errorf("got %+v, want %+v", addr, want)
	}
}

func TestNormalizeAddressDefaultsState(t *testing.T) {
	n := New(DefaultRegion())
	addr := n.NormalizeAddress("500 Main St, Austin")
	if addr.State != "TX" {
		t.Errorf("state = %q, want default TX", addr.State)
	}
	if addr.County != "" || addr.ZipCode != "" {
		t.Errorf("missing parts must stay empty: %+v", addr)
	}
}

func TestNormalizeAddressStructured(t *testing.T) {
	n := New(DefaultRegion())
	addr := n.NormalizeAddress(entity.Address{Street: " 1 Congress Ave ", City: "Austin", State: "tx"})
	if addr.Street != "1 Congress Ave" || addr.State != "TX" {
		t.Errorf("structured address not cleaned: %+v", addr)
	}
}

func TestNormalizeStatus(t *testing.T) {
	n := New(DefaultRegion())
	cases := map[string]entity.ListingStatus{
		"Active":         entity.StatusActive,
		"AVAILABLE":      entity.StatusActive,
		"listed":         entity.StatusActive,
		"under_contract": entity.StatusPending,
		"Pending":        entity.StatusPending,
		"closed":         entity.StatusSold,
		"Sold":           entity.StatusSold,
		"withdrawn":      entity.StatusOffMarket,
		"expired":        entity.StatusOffMarket,
		"who knows":      entity.StatusActive,
		"":               entity.StatusActive,
	}
	for in, want := range cases {
		if got := n.NormalizeStatus(in); got != want {
			t.Errorf("NormalizeStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNormalizeZoning(t *testing.T) {
	n := New(DefaultRegion())
	if got := n.NormalizeZoning("  sf-3 "); got != "SF-3" {
		t.Errorf("got %q, want SF-3", got)
	}
}

func TestParseOwnerType(t *testing.T) {
	cases := map[string]entity.OwnerType{
		"JOHN A SMITH":                entity.OwnerIndividual,
		"HILL COUNTRY HOLDINGS LLC":   entity.OwnerLLC,
		"HILL COUNTRY HOLDINGS L.L.C": entity.OwnerLLC,
		"ACME PROPERTIES INC":         entity.OwnerCorporation,
		"LONE STAR CORP":              entity.OwnerCorporation,
		"SMITH FAMILY TRUST":          entity.OwnerTrust,
		"RIVERBEND PARTNERS LP":       entity.OwnerPartnership,
		"OAKS LTD":                    entity.OwnerPartnership,
		"CITY OF AUSTIN":              entity.OwnerGovernment,
		"AUSTIN ISD":                  entity.OwnerGovernment,
		"":                            entity.OwnerUnknown,
		"SMITH FAMILY TRUST LLC":      entity.OwnerLLC,
	}
	for in, want := range cases {
		if got := ParseOwnerType(in); got != want {
			t.Errorf("ParseOwnerType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestBuildParcelID(t *testing.T) {
	if got := BuildParcelID("hay", 2025, " r 123-456 "); got != "HAY-2025-R123456" {
		t.Errorf("got %q", got)
	}
}

func TestCalculateDerivedFields(t *testing.T) {
	n := New(DefaultRegion())

	r := &entity.PropertyRecord{Price: 500000, Acreage: 10, SquareFeet: 2000}
	n.CalculateDerivedFields(r)
	if r.PricePerAcre != 50000 {
		t.Errorf("PricePerAcre = %v, want 50000", r.PricePerAcre)
	}
	if r.PricePerSquareFoot != 250 {
		t.Errorf("PricePerSquareFoot = %v, want 250", r.PricePerSquareFoot)
	}

	// totalSquareFeet takes precedence when both are present.
	r = &entity.PropertyRecord{Price: 500000, SquareFeet: 2000, TotalSquareFeet: 2500}
	n.CalculateDerivedFields(r)
	if r.PricePerSquareFoot != 200 {
		t.Errorf("PricePerSquareFoot = %v, want 200 (totalSquareFeet precedence)", r.PricePerSquareFoot)
	}

	// Zero denominators leave derived fields unset.
	r = &entity.PropertyRecord{Price: 500000}
	n.CalculateDerivedFields(r)
	if r.PricePerAcre != 0 || r.PricePerSquareFoot != 0 {
		t.Errorf("derived fields set without denominators: %+v", r)
	}
}
