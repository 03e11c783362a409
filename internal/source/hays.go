package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/fetcher"
	"github.com/user/property-ingest/internal/normalizer"
	"github.com/user/property-ingest/pkg/utils"
)

const HaysSourceID = "hays-cad"

// HaysAdapter scrapes a county site that gates search behind a server
// session cookie. The handshake, TTL, and refresh-once-then-fail behavior
// live in the SessionManager; this adapter only supplies the authenticated
// calls.
type HaysAdapter struct {
	baseURL    string
	countyCode string
	domain     string
	fetch      *fetcher.Fetcher
	norm       *normalizer.Normalizer
	session    *SessionManager
}

func NewHaysAdapter(opts Options) (Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("hays adapter: BaseURL is required")
	}
	if opts.Fetcher == nil || opts.Normalizer == nil {
		return nil, errors.New("hays adapter: Fetcher and Normalizer are required")
	}
	code := opts.CountyCode
	if code == "" {
		code = "HAY"
	}
	return &HaysAdapter{
		baseURL:    base,
		countyCode: code,
		domain:     utils.Domain(base),
		fetch:      opts.Fetcher,
		norm:       opts.Normalizer,
		session:    NewSessionManager(HaysSourceID, base+"/", opts.Fetcher),
	}, nil
}

func (a *HaysAdapter) Source() string { return HaysSourceID }
func (a *HaysAdapter) Domain() string { return a.domain }

// Search queries by parcel ID, owner name, or situs address, in that
// precedence order.
func (a *HaysAdapter) Search(ctx context.Context, criteria Criteria) ([]entity.SearchResult, error) {
	query := criteria.ParcelID
	if query == "" {
		query = criteria.OwnerName
	}
	if query == "" {
		query = criteria.Address
	}
	if query == "" {
		return nil, fmt.Errorf("hays adapter: search needs a ParcelID, OwnerName, or Address")
	}

	searchURL := fmt.Sprintf("%s/Search/Results?keywords=%s", a.baseURL, url.QueryEscape(query))
	doc, err := a.session.Do(ctx, func(cookie string) (*entity.RawDocument, error) {
		return a.fetch.Fetch(ctx, searchURL, fetcher.Options{Cookie: cookie})
	})
	if err != nil {
		return nil, err
	}

	gq, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(a.baseURL)
	var results []entity.SearchResult
	gq.Find("table#search-results tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		link := cells.Eq(0).Find("a").First()
		id := cleanText(link.Text())
		if id == "" {
			return
		}
		detail := ""
		if href, ok := link.Attr("href"); ok && base != nil {
			if abs, err := utils.ToAbsoluteURL(base, href); err == nil {
				detail = abs
			}
		}
		results = append(results, entity.SearchResult{
			SourceParcelID: id,
			DetailURL:      detail,
			OwnerName:      cleanText(cells.Eq(1).Text()),
			SitusAddress:   cleanText(cells.Eq(2).Text()),
		})
	})

	return results, nil
}

// GetDetails fetches an authenticated detail page. Unknown IDs return
// (nil, nil).
func (a *HaysAdapter) GetDetails(ctx context.Context, id string) (entity.RawFields, error) {
	detailURL := fmt.Sprintf("%s/Property/Detail/%s", a.baseURL, url.PathEscape(id))
	doc, err := a.session.Do(ctx, func(cookie string) (*entity.RawDocument, error) {
		return a.fetch.Fetch(ctx, detailURL, fetcher.Options{Cookie: cookie})
	})
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

	values := labelValueTable(gq, "#parcel-summary tr, table.detail-table tr")
	if len(values) == 0 {
		return nil, &ParseError{URL: detailURL, Msg: "no parcel summary rows found"}
	}

	fields := entity.RawFields{"parcel_id": id}
	for key, value := range values {
		fields[key] = value
	}
	return fields, nil
}

// Normalize maps Hays raw field names onto the canonical record.
func (a *HaysAdapter) Normalize(fields entity.RawFields) (*entity.PropertyRecord, error) {
	parcelID := fields.String("parcel_id")
	if parcelID == "" {
		return nil, &ParseError{Msg: "hays fields missing parcel_id"}
	}

	year := int(fields.Float("tax_year"))
	if year == 0 {
		year = time.Now().Year()
	}

	// Hays prints the situs as one comma-delimited line.
	rec := &entity.PropertyRecord{
		Source:         HaysSourceID,
		SourceParcelID: parcelID,
		ParcelID:       normalizer.BuildParcelID(a.countyCode, year, parcelID),
		Address:        a.norm.NormalizeAddress(fields.String("situs")),
		Price:          a.norm.NormalizePrice(fields["market_value"]),
		AssessedValue:  a.norm.NormalizePrice(fields["appraised_value"]),
		TaxableValue:   a.norm.NormalizePrice(fields["net_taxable_value"]),
		Acreage:        a.norm.NormalizeAcreage(fields["land_acres"]),
		SquareFeet:     a.norm.NormalizeAcreage(fields["living_area"]),
		Zoning:         a.norm.NormalizeZoning(fields.String("zoning")),
		Status:         a.norm.NormalizeStatus(fields.String("listing_status")),
		Owner:          a.norm.NormalizeOwner(fields.String("owner")),
		Taxes:          entity.TaxInfo{AnnualTotal: a.norm.NormalizePrice(fields["total_tax_due"])},
		LastUpdated:    time.Now().UTC(),
	}

	rec.PropertyType = classifyByAcreage(rec)
	a.norm.CalculateDerivedFields(rec)
	return rec, nil
}
