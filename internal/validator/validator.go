// Package validator checks canonical records against business rules. Every
// check returns a result; nothing here panics or returns an error.
package validator

import (
	"math"
	"strings"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/normalizer"
)

// DefaultRequiredFields are the baseline dot-paths every record must populate.
var DefaultRequiredFields = []string{
	"source",
	"sourceParcelId",
	"parcelId",
	"address.street",
	"address.county",
	"price",
	"status",
}

// Validator evaluates records against a region's coordinate bounds.
type Validator struct {
	region normalizer.Region
}

func New(region normalizer.Region) *Validator {
	return &Validator{region: region}
}

// RequiredFieldsResult is the outcome of a required-field scan.
type RequiredFieldsResult struct {
	IsValid       bool
	MissingFields []string
}

// ValidateRequiredFields checks each dot-path on the record. Absent, nil and
// empty-string values count as missing; numeric zeros count as missing for
// value-bearing fields like price.
func (v *Validator) ValidateRequiredFields(record *entity.PropertyRecord, requiredFields []string) RequiredFieldsResult {
	var missing []string
	for _, path := range requiredFields {
		if !fieldPresent(record, path) {
			missing = append(missing, path)
		}
	}
	return RequiredFieldsResult{IsValid: len(missing) == 0, MissingFields: missing}
}

// ValidateCoordinates reports whether lat/lng are numeric, non-NaN, and
// inside the region bounding box.
func (v *Validator) ValidateCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	if lat < v.region.MinLatitude || lat > v.region.MaxLatitude {
		return false
	}
	if lng < v.region.MinLongitude || lng > v.region.MaxLongitude {
		return false
	}
	return true
}

// ValidatePrice reports whether price is a strictly positive real number.
func (v *Validator) ValidatePrice(price float64) bool {
	return !math.IsNaN(price) && price > 0
}

// ValidateStatus reports whether status is one of the fixed enum values.
func (v *Validator) ValidateStatus(status entity.ListingStatus) bool {
	for _, s := range entity.ValidStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// ValidatePropertyRecord runs every check and reports all failure categories
// together. It never short-circuits: a record missing price AND carrying a bad
// status AND lacking a county surfaces all three at once.
func (v *Validator) ValidatePropertyRecord(record *entity.PropertyRecord, requiredFields []string) entity.ValidationResult {
	if requiredFields == nil {
		requiredFields = DefaultRequiredFields
	}

	required := v.ValidateRequiredFields(record, requiredFields)

	result := entity.ValidationResult{
		MissingFields: required.MissingFields,
	}

	// Price zero is reported as missing by the field scan; a present but
	// non-positive price is an invalid one.
	if record.Price != 0 && !v.ValidatePrice(record.Price) {
		result.InvalidPrice = true
	}
	if !v.ValidateStatus(record.Status) {
		result.InvalidStatus = true
	}
	if c := record.Address.Coordinates; c != nil && !v.ValidateCoordinates(c.Latitude, c.Longitude) {
		result.InvalidCoordinates = true
	}

	result.IsValid = required.IsValid && !result.InvalidPrice && !result.InvalidStatus && !result.InvalidCoordinates
	return result
}

// fieldPresent resolves a dot-path against the canonical schema. The schema
// is fixed, so resolution is explicit rather than reflective.
func fieldPresent(r *entity.PropertyRecord, path string) bool {
	switch strings.ToLower(path) {
	case "source":
		return r.Source != ""
	case "sourceparcelid":
		return r.SourceParcelID != ""
	case "parcelid":
		return r.ParcelID != ""
	case "address.street":
		return r.Address.Street != ""
	case "address.city":
		return r.Address.City != ""
	case "address.county":
		return r.Address.County != ""
	case "address.state":
		return r.Address.State != ""
	case "address.zipcode":
		return r.Address.ZipCode != ""
	case "address.coordinates":
		return r.Address.Coordinates != nil
	case "price":
		return r.Price != 0
	case "assessedvalue":
		return r.AssessedValue != 0
	case "taxablevalue":
		return r.TaxableValue != 0
	case "acreage":
		return r.Acreage != 0
	case "squarefeet":
		return r.SquareFeet != 0 || r.TotalSquareFeet != 0
	case "zoning":
		return r.Zoning != ""
	case "propertytype":
		return r.PropertyType != ""
	case "status":
		return r.Status != ""
	case "owner.name":
		return r.Owner.Name != ""
	case "owner.type":
		return r.Owner.Type != "" && r.Owner.Type != entity.OwnerUnknown
	case "taxes.annualtotal":
		return r.Taxes.AnnualTotal != 0
	case "priceperacre":
		return r.PricePerAcre != 0
	case "pricepersquarefoot":
		return r.PricePerSquareFoot != 0
	case "title":
		return r.Title != ""
	case "description":
		return r.Description != ""
	case "metadescription":
		return r.MetaDescription != ""
	case "listingdate":
		return !r.ListingDate.IsZero()
	default:
		return false
	}
}
