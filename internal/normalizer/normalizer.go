// Package normalizer maps raw scraped values onto the canonical property
// schema. Every function here is pure and deterministic: no I/O, no clock, no
// global state.
package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/property-ingest/internal/entity"
)

// Region bounds coordinate normalization and supplies the default state code
// for partial addresses.
type Region struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
	DefaultState string
}

// DefaultRegion is the central-Texas service area.
func DefaultRegion() Region {
	return Region{
		MinLatitude:  29.0,
		MaxLatitude:  31.0,
		MinLongitude: -99.0,
		MaxLongitude: -97.0,
		DefaultState: "TX",
	}
}

// Normalizer holds the region configuration its functions normalize against.
type Normalizer struct {
	region Region
}

func New(region Region) *Normalizer {
	if region.DefaultState == "" {
		region.DefaultState = DefaultRegion().DefaultState
	}
	return &Normalizer{region: region}
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// NormalizePrice accepts a number or a string with currency noise and returns
// the embedded numeric value. Returns 0 when nothing parses; never fails.
func (n *Normalizer) NormalizePrice(v any) float64 {
	switch p := v.(type) {
	case float64:
		if math.IsNaN(p) {
			return 0
		}
		return p
	case int:
		return float64(p)
	case string:
		return extractNumber(p)
	default:
		return 0
	}
}

// NormalizeAcreage follows the same numeric-extraction policy as price.
func (n *Normalizer) NormalizeAcreage(v any) float64 {
	return n.NormalizePrice(v)
}

// extractNumber strips currency symbols, commas and whitespace, then pulls
// the first numeric token. "$1,250,000.50" -> 1250000.50; "n/a" -> 0.
func extractNumber(s string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "", "\t", "").Replace(s)
	match := numberPattern.FindString(cleaned)
	if match == "" {
		return 0
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return f
}

// NormalizeCoordinates parses string or numeric lat/lng. It returns nil when
// either value is NaN, unparseable, or outside the region bounding box.
// Out-of-box points are rejected, never clamped.
func (n *Normalizer) NormalizeCoordinates(lat, lng any) *entity.Coordinates {
	latF, ok := toFloat(lat)
	if !ok {
		return nil
	}
	lngF, ok := toFloat(lng)
	if !ok {
		return nil
	}
	if latF < n.region.MinLatitude || latF > n.region.MaxLatitude {
		return nil
	}
	if lngF < n.region.MinLongitude || lngF > n.region.MaxLongitude {
		return nil
	}
	return &entity.Coordinates{Latitude: latF, Longitude: lngF}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// NormalizeAddress accepts either a structured entity.Address or a
// comma-delimited "Street, City, County, STATE ZIP" string. Missing parts
// default to empty; state defaults to the region's state code.
func (n *Normalizer) NormalizeAddress(v any) entity.Address {
	var addr entity.Address
	switch a := v.(type) {
	case entity.Address:
		addr = a
	case *entity.Address:
		if a != nil {
			addr = *a
		}
	case string:
		addr = n.parseAddressString(a)
	}
	addr.Street = strings.TrimSpace(addr.Street)
	addr.City = strings.TrimSpace(addr.City)
	addr.County = strings.TrimSpace(addr.County)
	addr.State = strings.ToUpper(strings.TrimSpace(addr.State))
	addr.ZipCode = strings.TrimSpace(addr.ZipCode)
	if addr.State == "" {
		addr.State = n.region.DefaultState
	}
	return addr
}

var zipPattern = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

func (n *Normalizer) parseAddressString(s string) entity.Address {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var addr entity.Address
	if len(parts) > 0 {
		addr.Street = parts[0]
	}
	if len(parts) > 1 {
		addr.City = parts[1]
	}
	if len(parts) > 2 {
		addr.County = parts[2]
	}
	if len(parts) > 3 {
		// "STATE ZIP", either piece optional.
		tail := parts[3]
		if zip := zipPattern.FindString(tail); zip != "" {
			addr.ZipCode = zip
			tail = strings.TrimSpace(strings.Replace(tail, zip, "", 1))
		}
		addr.State = tail
	}
	return addr
}

// NormalizeZoning uppercases and trims a zoning designation.
func (n *Normalizer) NormalizeZoning(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

var statusSynonyms = map[string]entity.ListingStatus{
	"active":         entity.StatusActive,
	"available":      entity.StatusActive,
	"listed":         entity.StatusActive,
	"pending":        entity.StatusPending,
	"under_contract": entity.StatusPending,
	"sold":           entity.StatusSold,
	"closed":         entity.StatusSold,
	"off-market":     entity.StatusOffMarket,
	"withdrawn":      entity.StatusOffMarket,
	"expired":        entity.StatusOffMarket,
}

// NormalizeStatus lowercases, trims and maps known synonyms. Unknown values
// coerce to active.
func (n *Normalizer) NormalizeStatus(s string) entity.ListingStatus {
	key := strings.ToLower(strings.TrimSpace(s))
	if st, ok := statusSynonyms[key]; ok {
		return st
	}
	return entity.StatusActive
}
