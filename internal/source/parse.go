package source

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/property-ingest/internal/entity"
)

// parseHTML wraps a fetched document for selector queries. A body that the
// HTML parser rejects outright is a ParseError.
func parseHTML(doc *entity.RawDocument) (*goquery.Document, error) {
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, &ParseError{URL: doc.SourceURL, Msg: "invalid html", Cause: err}
	}
	return gq, nil
}

// labelValueTable extracts label/value rows (th/td or first-td/second-td)
// from every row matching rowSelector. Keys are snake_cased labels.
func labelValueTable(gq *goquery.Document, rowSelector string) map[string]string {
	out := make(map[string]string)
	gq.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		label := cleanText(row.Find("th").First().Text())
		value := cleanText(row.Find("td").First().Text())
		if label == "" {
			cells := row.Find("td")
			if cells.Length() >= 2 {
				label = cleanText(cells.Eq(0).Text())
				value = cleanText(cells.Eq(1).Text())
			}
		}
		if key := snakeKey(label); key != "" && value != "" {
			out[key] = value
		}
	})
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// snakeKey turns a display label ("Market Value:") into a field key
// ("market_value").
func snakeKey(label string) string {
	lower := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), ":")))
	return strings.Trim(nonAlnum.ReplaceAllString(lower, "_"), "_")
}

// cleanText collapses runs of whitespace in scraped cell text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var dateLayouts = []string{"01/02/2006", "2006-01-02", "Jan 2, 2006", "1/2/2006"}

// parseDate tries the date formats CAD sites actually print.
func parseDate(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
