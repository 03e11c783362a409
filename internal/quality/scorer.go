// Package quality computes weighted completeness scores over normalized
// property records. Scores are advisory and recomputed on demand; they are
// never a gate on ingestion.
package quality

import (
	"fmt"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/validator"
)

// Component weights. They sum to 100.
const (
	weightRequired  = 40
	weightLocation  = 20
	weightDetails   = 20
	weightMarket    = 10
	weightGenerated = 10
)

var locationFields = []string{
	"address.street",
	"address.city",
	"address.county",
	"address.zipCode",
	"address.coordinates",
}

var marketFields = []string{
	"price",
	"assessedValue",
	"taxableValue",
}

var generatedFields = []string{
	"title",
	"description",
	"metaDescription",
}

// requiredByType lists the fields a record of each type is expected to carry.
var requiredByType = map[entity.PropertyType][]string{
	entity.PropertyTypeLand: {
		"source", "sourceParcelId", "parcelId", "address.county", "price", "acreage", "status",
	},
	entity.PropertyTypeCommercial: {
		"source", "sourceParcelId", "parcelId", "address.street", "price", "squareFeet", "zoning", "status",
	},
	entity.PropertyTypeResidential: {
		"source", "sourceParcelId", "parcelId", "address.street", "price", "squareFeet", "status",
	},
	entity.PropertyTypeResidentialLuxury: {
		"source", "sourceParcelId", "parcelId", "address.street", "price", "squareFeet", "acreage", "status",
	},
}

// detailsByType lists the type-specific detail fields scored at 20 points.
var detailsByType = map[entity.PropertyType][]string{
	entity.PropertyTypeLand: {
		"acreage", "zoning", "pricePerAcre", "taxes.annualTotal",
	},
	entity.PropertyTypeCommercial: {
		"squareFeet", "zoning", "owner.name", "taxes.annualTotal",
	},
	entity.PropertyTypeResidential: {
		"squareFeet", "propertyType", "owner.name", "taxes.annualTotal",
	},
	entity.PropertyTypeResidentialLuxury: {
		"squareFeet", "acreage", "owner.name", "pricePerSquareFoot",
	},
}

// Scorer computes QualityReports. It leans on the validator's dot-path field
// scan so presence semantics stay identical across both components.
type Scorer struct {
	validator *validator.Validator
}

func New(v *validator.Validator) *Scorer {
	return &Scorer{validator: v}
}

// Score computes the weighted 0-100 completeness score and its tier.
func (s *Scorer) Score(record *entity.PropertyRecord) entity.QualityReport {
	required := fieldsFor(requiredByType, record.PropertyType)
	details := fieldsFor(detailsByType, record.PropertyType)

	reqScore, reqMissing := s.component(record, required, weightRequired)
	locScore, locMissing := s.component(record, locationFields, weightLocation)
	detScore, detMissing := s.component(record, details, weightDetails)
	mktScore, mktMissing := s.component(record, marketFields, weightMarket)
	genScore, genMissing := s.component(record, generatedFields, weightGenerated)

	total := reqScore + locScore + detScore + mktScore + genScore

	missing := make([]string, 0, len(reqMissing)+len(locMissing)+len(detMissing)+len(mktMissing)+len(genMissing))
	missing = append(missing, reqMissing...)
	missing = appendNew(missing, locMissing)
	missing = appendNew(missing, detMissing)
	missing = appendNew(missing, mktMissing)
	missing = appendNew(missing, genMissing)

	report := entity.QualityReport{
		Score:         total,
		Tier:          tierFor(total),
		MissingFields: missing,
	}
	report.Suggestions = s.SuggestImprovements(record, missing)
	return report
}

// component scores one field group proportionally to its presence fraction.
func (s *Scorer) component(record *entity.PropertyRecord, fields []string, weight int) (int, []string) {
	if len(fields) == 0 {
		return weight, nil
	}
	res := s.validator.ValidateRequiredFields(record, fields)
	present := len(fields) - len(res.MissingFields)
	return weight * present / len(fields), res.MissingFields
}

func tierFor(score int) entity.QualityTier {
	switch {
	case score >= 80:
		return entity.TierHigh
	case score >= 60:
		return entity.TierMedium
	default:
		return entity.TierLow
	}
}

// SuggestImprovements turns the missing-field list into ranked, type-aware
// remediation hints. Highest-impact groups come first.
func (s *Scorer) SuggestImprovements(record *entity.PropertyRecord, missing []string) []string {
	missingSet := make(map[string]bool, len(missing))
	for _, f := range missing {
		missingSet[f] = true
	}

	var suggestions []string
	add := func(cond bool, msg string) {
		if cond {
			suggestions = append(suggestions, msg)
		}
	}

	add(missingSet["price"], "add a listing or assessed price; records without prices rank lowest in search")
	add(missingSet["address.street"] || missingSet["address.county"],
		"complete the situs address (street and county) from the appraisal roll")
	add(missingSet["address.coordinates"], "geocode the situs address to place the parcel on the map")

	switch record.PropertyType {
	case entity.PropertyTypeLand:
		add(missingSet["acreage"], "land records need acreage; pull the deeded acres from the land segment table")
		add(missingSet["zoning"], "add the zoning designation for land-use filtering")
	case entity.PropertyTypeCommercial:
		add(missingSet["squareFeet"], "commercial records need building square footage from the improvement table")
		add(missingSet["zoning"], "add the commercial zoning designation")
	default:
		add(missingSet["squareFeet"], "add living-area square footage from the improvement detail")
	}

	add(missingSet["owner.name"], "capture the owner of record for deed-history linkage")
	add(missingSet["taxes.annualTotal"], "add the annual tax total from the jurisdiction breakdown")
	add(missingSet["title"] || missingSet["description"] || missingSet["metaDescription"],
		"generate listing title and descriptions for SEO surfacing")

	if len(suggestions) == 0 && len(missing) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("fill remaining fields: %v", missing))
	}
	return suggestions
}

// appendNew appends entries from extra not already present in dst. Field
// groups overlap (price is both required and market data) and the report
// should list each path once.
func appendNew(dst []string, extra []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, f := range dst {
		seen[f] = true
	}
	for _, f := range extra {
		if !seen[f] {
			dst = append(dst, f)
			seen[f] = true
		}
	}
	return dst
}

func fieldsFor(m map[entity.PropertyType][]string, t entity.PropertyType) []string {
	if fields, ok := m[t]; ok {
		return fields
	}
	return m[entity.PropertyTypeLand]
}
