package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/fetcher"
	"github.com/user/property-ingest/internal/normalizer"
	"github.com/user/property-ingest/pkg/utils"
)

const TravisSourceID = "travis-cad"

// TravisAdapter scrapes a county site that exposes numeric, roughly
// sequential property IDs behind /Property/View/{id}. No session is required.
//
// Existence is probed per ID: a 404 or a redirect means the ID is a gap and
// yields (nil, nil), never an error, so range scans skip holes without
// failing the run.
type TravisAdapter struct {
	baseURL    string
	countyCode string
	domain     string
	fetch      *fetcher.Fetcher
	norm       *normalizer.Normalizer
}

func NewTravisAdapter(opts Options) (Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("travis adapter: BaseURL is required")
	}
	if opts.Fetcher == nil || opts.Normalizer == nil {
		return nil, errors.New("travis adapter: Fetcher and Normalizer are required")
	}
	code := opts.CountyCode
	if code == "" {
		code = "TRA"
	}
	return &TravisAdapter{
		baseURL:    base,
		countyCode: code,
		domain:     utils.Domain(base),
		fetch:      opts.Fetcher,
		norm:       opts.Normalizer,
	}, nil
}

func (a *TravisAdapter) Source() string { return TravisSourceID }
func (a *TravisAdapter) Domain() string { return a.domain }

func (a *TravisAdapter) detailURL(id string) string {
	return fmt.Sprintf("%s/Property/View/%s", a.baseURL, id)
}

// ProbeID checks whether a property ID exists. Returns (nil, nil) for gaps.
func (a *TravisAdapter) ProbeID(ctx context.Context, id string) (*entity.SearchResult, error) {
	url := a.detailURL(id)
	doc, err := a.fetch.Fetch(ctx, url, fetcher.Options{})
	if err != nil {
		var ferr *fetcher.FetchError
		if errors.As(err, &ferr) && ferr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if doc.StatusCode == http.StatusMovedPermanently || doc.StatusCode == http.StatusFound {
		return nil, nil
	}
	return &entity.SearchResult{SourceParcelID: id, DetailURL: url}, nil
}

// Search supports either a direct parcel probe or an inclusive [StartID,
// EndID] range scan. Gaps in the ID space are skipped silently.
func (a *TravisAdapter) Search(ctx context.Context, criteria Criteria) ([]entity.SearchResult, error) {
	if criteria.ParcelID != "" {
		hit, err := a.ProbeID(ctx, criteria.ParcelID)
		if err != nil {
			return nil, err
		}
		if hit == nil {
			return nil, nil
		}
		return []entity.SearchResult{*hit}, nil
	}

	if criteria.StartID <= 0 || criteria.EndID < criteria.StartID {
		return nil, fmt.Errorf("travis adapter: search needs a ParcelID or a valid [StartID, EndID] range")
	}

	var results []entity.SearchResult
	for id := criteria.StartID; id <= criteria.EndID; id++ {
		hit, err := a.ProbeID(ctx, strconv.Itoa(id))
		if err != nil {
			return results, err
		}
		if hit != nil {
			results = append(results, *hit)
		}
	}
	return results, nil
}

// GetDetails fetches and parses a property detail page. Nonexistent IDs
// return (nil, nil).
func (a *TravisAdapter) GetDetails(ctx context.Context, id string) (entity.RawFields, error) {
	url := a.detailURL(id)
	doc, err := a.fetch.Fetch(ctx, url, fetcher.Options{})
	if err != nil {
		var ferr *fetcher.FetchError
		if errors.As(err, &ferr) && ferr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if doc.StatusCode == http.StatusMovedPermanently || doc.StatusCode == http.StatusFound {
		return nil, nil
	}

	gq, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}

	values := labelValueTable(gq, "table.property-details tr, #property-details tr")
	if len(values) == 0 {
		return nil, &ParseError{URL: url, Msg: "no property detail rows found"}
	}

	fields := entity.RawFields{"parcel_id": id}
	for key, value := range values {
		fields[key] = value
	}

	// Coordinates ride on the map container when the site renders one.
	if mapEl := gq.Find("#property-map").First(); mapEl.Length() > 0 {
		if lat, ok := mapEl.Attr("data-lat"); ok {
			fields["latitude"] = lat
		}
		if lng, ok := mapEl.Attr("data-lng"); ok {
			fields["longitude"] = lng
		}
	}

	return fields, nil
}

// Normalize maps Travis raw field names onto the canonical record.
func (a *TravisAdapter) Normalize(fields entity.RawFields) (*entity.PropertyRecord, error) {
	parcelID := fields.String("parcel_id")
	if parcelID == "" {
		return nil, &ParseError{Msg: "travis fields missing parcel_id"}
	}

	year := int(fields.Float("tax_year"))
	if year == 0 {
		year = time.Now().Year()
	}

	rec := &entity.PropertyRecord{
		Source:         TravisSourceID,
		SourceParcelID: parcelID,
		ParcelID:       normalizer.BuildParcelID(a.countyCode, year, parcelID),
		Address:        a.norm.NormalizeAddress(fields.String("situs_address")),
		Price:          a.norm.NormalizePrice(fields["market_value"]),
		AssessedValue:  a.norm.NormalizePrice(fields["assessed_value"]),
		TaxableValue:   a.norm.NormalizePrice(fields["taxable_value"]),
		Acreage:        a.norm.NormalizeAcreage(fields["acreage"]),
		SquareFeet:     a.norm.NormalizeAcreage(fields["square_feet"]),
		Zoning:         a.norm.NormalizeZoning(fields.String("zoning")),
		Status:         a.norm.NormalizeStatus(fields.String("status")),
		Owner:          a.norm.NormalizeOwner(fields.String("owner_name")),
		Taxes:          entity.TaxInfo{AnnualTotal: a.norm.NormalizePrice(fields["annual_taxes"])},
		LastUpdated:    time.Now().UTC(),
	}

	if fields.Has("latitude") && fields.Has("longitude") {
		rec.Address.Coordinates = a.norm.NormalizeCoordinates(fields["latitude"], fields["longitude"])
	}

	rec.PropertyType = classifyByAcreage(rec)
	a.norm.CalculateDerivedFields(rec)
	return rec, nil
}

// classifyByAcreage is the coarse fallback typing used when a source has no
// improvement breakdown: square footage implies residential (luxury above
// five acres), bare land otherwise.
func classifyByAcreage(rec *entity.PropertyRecord) entity.PropertyType {
	if rec.SquareFeet > 0 || rec.TotalSquareFeet > 0 {
		if rec.Acreage > 5 {
			return entity.PropertyTypeResidentialLuxury
		}
		return entity.PropertyTypeResidential
	}
	return entity.PropertyTypeLand
}
