package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/fetcher"
	"github.com/user/property-ingest/internal/normalizer"
	"github.com/user/property-ingest/pkg/utils"
)

const WilliamsonSourceID = "williamson-cad"

// WilliamsonAdapter scrapes a county site whose detail pages break a parcel
// into sub-records: deed/ownership history, exemption lists, and an
// improvement table. The aggregation rules (deeds sorted newest-first with
// the head grantee as current owner, improvements summed into total square
// footage, commercial typing from improvement descriptions) live here.
type WilliamsonAdapter struct {
	baseURL    string
	countyCode string
	domain     string
	fetch      *fetcher.Fetcher
	norm       *normalizer.Normalizer
}

func NewWilliamsonAdapter(opts Options) (Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("williamson adapter: BaseURL is required")
	}
	if opts.Fetcher == nil || opts.Normalizer == nil {
		return nil, errors.New("williamson adapter: Fetcher and Normalizer are required")
	}
	code := opts.CountyCode
	if code == "" {
		code = "WIL"
	}
	return &WilliamsonAdapter{
		baseURL:    base,
		countyCode: code,
		domain:     utils.Domain(base),
		fetch:      opts.Fetcher,
		norm:       opts.Normalizer,
	}, nil
}

func (a *WilliamsonAdapter) Source() string { return WilliamsonSourceID }
func (a *WilliamsonAdapter) Domain() string { return a.domain }

// Search queries the quick-search endpoint by owner, address, or parcel ID.
func (a *WilliamsonAdapter) Search(ctx context.Context, criteria Criteria) ([]entity.SearchResult, error) {
	query := criteria.ParcelID
	if query == "" {
		query = criteria.OwnerName
	}
	if query == "" {
		query = criteria.Address
	}
	if query == "" {
		return nil, fmt.Errorf("williamson adapter: search needs a ParcelID, OwnerName, or Address")
	}

	searchURL := fmt.Sprintf("%s/QuickSearch?query=%s", a.baseURL, url.QueryEscape(query))
	doc, err := a.fetch.Fetch(ctx, searchURL, fetcher.Options{})
	if err != nil {
		return nil, err
	}

	gq, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}

	var results []entity.SearchResult
	gq.Find("#results .result-row").Each(func(_ int, row *goquery.Selection) {
		id := cleanText(row.AttrOr("data-property-id", ""))
		if id == "" {
			return
		}
		results = append(results, entity.SearchResult{
			SourceParcelID: id,
			DetailURL:      fmt.Sprintf("%s/PropertyDetail?PropertyID=%s", a.baseURL, url.QueryEscape(id)),
			OwnerName:      cleanText(row.Find(".owner").Text()),
			SitusAddress:   cleanText(row.Find(".situs").Text()),
		})
	})
	return results, nil
}

// GetDetails fetches a detail page and extracts the summary fields plus the
// three structured sub-records. Unknown IDs return (nil, nil).
func (a *WilliamsonAdapter) GetDetails(ctx context.Context, id string) (entity.RawFields, error) {
	detailURL := fmt.Sprintf("%s/PropertyDetail?PropertyID=%s", a.baseURL, url.QueryEscape(id))
	doc, err := a.fetch.Fetch(ctx, detailURL, fetcher.Options{})
	if err != nil {
		var ferr *fetcher.FetchError
		if errors.As(err, &ferr) && ferr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	gq, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}

	values := labelValueTable(gq, "#property-summary tr")
	if len(values) == 0 {
		return nil, &ParseError{URL: detailURL, Msg: "no property summary rows found"}
	}

	fields := entity.RawFields{"parcel_id": id}
	for key, value := range values {
		fields[key] = value
	}

	fields["deed_history"] = a.parseDeedHistory(gq)
	fields["improvements"] = a.parseImprovements(gq)
	fields["exemptions"] = a.parseExemptions(gq)

	return fields, nil
}

// parseDeedHistory reads the deed table and returns entries sorted by date
// descending, so index 0 is the most recent transfer.
func (a *WilliamsonAdapter) parseDeedHistory(gq *goquery.Document) []entity.DeedRecord {
	var deeds []entity.DeedRecord
	gq.Find("#deed-history tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		date, ok := parseDate(cells.Eq(0).Text())
		if !ok {
			return
		}
		deeds = append(deeds, entity.DeedRecord{
			Date:       date,
			Instrument: cleanText(cells.Eq(1).Text()),
			Grantor:    cleanText(cells.Eq(2).Text()),
			Grantee:    cleanText(cells.Eq(3).Text()),
		})
	})
	sort.Slice(deeds, func(i, j int) bool { return deeds[i].Date.After(deeds[j].Date) })
	return deeds
}

func (a *WilliamsonAdapter) parseImprovements(gq *goquery.Document) []entity.Improvement {
	var improvements []entity.Improvement
	gq.Find("#improvements tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		imp := entity.Improvement{
			Type:       cleanText(cells.Eq(0).Text()),
			SquareFeet: a.norm.NormalizeAcreage(cells.Eq(1).Text()),
			YearBuilt:  int(a.norm.NormalizeAcreage(cells.Eq(2).Text())),
		}
		if cells.Length() > 3 {
			imp.Value = a.norm.NormalizePrice(cells.Eq(3).Text())
		}
		if imp.Type != "" {
			improvements = append(improvements, imp)
		}
	})
	return improvements
}

func (a *WilliamsonAdapter) parseExemptions(gq *goquery.Document) []string {
	var exemptions []string
	gq.Find("#exemptions li").Each(func(_ int, li *goquery.Selection) {
		if text := cleanText(li.Text()); text != "" {
			exemptions = append(exemptions, text)
		}
	})
	return exemptions
}

// Normalize maps the summary fields and aggregates the sub-records.
func (a *WilliamsonAdapter) Normalize(fields entity.RawFields) (*entity.PropertyRecord, error) {
	parcelID := fields.String("parcel_id")
	if parcelID == "" {
		return nil, &ParseError{Msg: "williamson fields missing parcel_id"}
	}

	year := int(fields.Float("tax_year"))
	if year == 0 {
		year = time.Now().Year()
	}

	rec := &entity.PropertyRecord{
		Source:         WilliamsonSourceID,
		SourceParcelID: parcelID,
		ParcelID:       normalizer.BuildParcelID(a.countyCode, year, parcelID),
		Address:        a.norm.NormalizeAddress(fields.String("situs_address")),
		Price:          a.norm.NormalizePrice(fields["market_value"]),
		AssessedValue:  a.norm.NormalizePrice(fields["assessed_value"]),
		TaxableValue:   a.norm.NormalizePrice(fields["taxable_value"]),
		Acreage:        a.norm.NormalizeAcreage(fields["land_acres"]),
		Zoning:         a.norm.NormalizeZoning(fields.String("zoning")),
		Status:         a.norm.NormalizeStatus(fields.String("status")),
		Owner:          a.norm.NormalizeOwner(fields.String("owner_name")),
		LastUpdated:    time.Now().UTC(),
	}

	if deeds, ok := fields["deed_history"].([]entity.DeedRecord); ok {
		rec.DeedHistory = deeds
		// Most recent grantee is the current head of the ownership chain;
		// it wins over whatever stale name the summary block shows.
		if len(deeds) > 0 && deeds[0].Grantee != "" {
			rec.Owner = a.norm.NormalizeOwner(deeds[0].Grantee)
		}
	}

	exemptions, _ := fields["exemptions"].([]string)
	rec.Taxes = entity.TaxInfo{
		AnnualTotal: a.norm.NormalizePrice(fields["total_tax"]),
		Exemptions:  exemptions,
	}

	if improvements, ok := fields["improvements"].([]entity.Improvement); ok {
		rec.Improvements = improvements
		for _, imp := range improvements {
			rec.TotalSquareFeet += imp.SquareFeet
		}
	}

	rec.PropertyType = classifyByImprovements(rec)
	a.norm.CalculateDerivedFields(rec)
	return rec, nil
}

// classifyByImprovements refines property type from the improvement table:
// any commercial improvement makes the parcel commercial; otherwise improved
// parcels are residential (luxury above five acres) and bare ones land.
func classifyByImprovements(rec *entity.PropertyRecord) entity.PropertyType {
	for _, imp := range rec.Improvements {
		if strings.Contains(strings.ToLower(imp.Type), "commercial") {
			return entity.PropertyTypeCommercial
		}
	}
	if len(rec.Improvements) > 0 && rec.TotalSquareFeet > 0 {
		if rec.Acreage > 5 {
			return entity.PropertyTypeResidentialLuxury
		}
		return entity.PropertyTypeResidential
	}
	return entity.PropertyTypeLand
}
