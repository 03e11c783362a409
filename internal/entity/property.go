package entity

import "time"

// PropertyType classifies a parcel by its dominant use.
type PropertyType string

const (
	PropertyTypeLand              PropertyType = "land"
	PropertyTypeCommercial        PropertyType = "commercial"
	PropertyTypeResidential       PropertyType = "residential"
	PropertyTypeResidentialLuxury PropertyType = "residential-luxury"
)

// ListingStatus is the market status of a property record.
type ListingStatus string

const (
	StatusActive    ListingStatus = "active"
	StatusPending   ListingStatus = "pending"
	StatusSold      ListingStatus = "sold"
	StatusOffMarket ListingStatus = "off-market"
)

// ValidStatuses is the closed set of listing statuses. Anything outside it is
// coerced to StatusActive during normalization.
var ValidStatuses = []ListingStatus{StatusActive, StatusPending, StatusSold, StatusOffMarket}

// OwnerType is the parsed legal classification of a property owner.
type OwnerType string

const (
	OwnerIndividual  OwnerType = "individual"
	OwnerLLC         OwnerType = "llc"
	OwnerCorporation OwnerType = "corporation"
	OwnerTrust       OwnerType = "trust"
	OwnerPartnership OwnerType = "partnership"
	OwnerGovernment  OwnerType = "government"
	OwnerUnknown     OwnerType = "unknown"
)

// Coordinates is a WGS84 point. A nil *Coordinates means location unknown or
// outside the configured region.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address is the normalized postal address of a parcel.
type Address struct {
	Street      string       `json:"street"`
	City        string       `json:"city"`
	County      string       `json:"county"`
	State       string       `json:"state"`
	ZipCode     string       `json:"zipCode"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Owner is the current owner of record.
type Owner struct {
	Name string    `json:"name"`
	Type OwnerType `json:"type"`
}

// TaxInfo holds the assessment-roll tax data for a parcel.
type TaxInfo struct {
	AnnualTotal float64  `json:"annualTotal"`
	Exemptions  []string `json:"exemptions,omitempty"`
}

// DeedRecord is one entry in a parcel's deed/ownership history.
type DeedRecord struct {
	Date       time.Time `json:"date"`
	Grantor    string    `json:"grantor"`
	Grantee    string    `json:"grantee"`
	Instrument string    `json:"instrument,omitempty"`
}

// Improvement is one structure on a parcel as reported by the appraisal roll.
type Improvement struct {
	Type       string  `json:"type"`
	SquareFeet float64 `json:"squareFeet"`
	YearBuilt  int     `json:"yearBuilt,omitempty"`
	Value      float64 `json:"value,omitempty"`
}

// PropertyRecord is the canonical schema every source adapter normalizes into.
// It mirrors the `properties` PostgreSQL table.
type PropertyRecord struct {
	ID              int64         `json:"-"`
	Source          string        `json:"source"`
	SourceParcelID  string        `json:"sourceParcelId"`
	ParcelID        string        `json:"parcelId"` // "{countyCode}-{year}-{cleanedId}"
	Address         Address       `json:"address"`
	Price           float64       `json:"price"`
	AssessedValue   float64       `json:"assessedValue"`
	TaxableValue    float64       `json:"taxableValue"`
	Acreage         float64       `json:"acreage"`
	SquareFeet      float64       `json:"squareFeet"`
	TotalSquareFeet float64       `json:"totalSquareFeet,omitempty"`
	Zoning          string        `json:"zoning,omitempty"`
	PropertyType    PropertyType  `json:"propertyType"`
	Status          ListingStatus `json:"status"`
	Owner           Owner         `json:"owner"`
	Taxes           TaxInfo       `json:"taxes"`
	DeedHistory     []DeedRecord  `json:"deedHistory,omitempty"`
	Improvements    []Improvement `json:"improvements,omitempty"`

	// Derived fields, computed by the normalizer. Zero when the
	// denominator is absent.
	PricePerAcre       float64 `json:"pricePerAcre,omitempty"`
	PricePerSquareFoot float64 `json:"pricePerSquareFoot,omitempty"`

	// SEO/generated content populated downstream of ingestion.
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`

	ListingDate time.Time `json:"listingDate,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// DedupKey identifies a record across re-scrapes of the same source.
func (r *PropertyRecord) DedupKey() (string, string) {
	return r.Source, r.SourceParcelID
}
