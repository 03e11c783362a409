package entity

import (
	"net/http"
	"strconv"
	"time"
)

// RawDocument is an opaque fetched payload. It lives only for the duration of
// one adapter call and is discarded after parsing.
type RawDocument struct {
	Body       []byte
	SourceURL  string
	StatusCode int
	Header     http.Header
	FetchedAt  time.Time
}

// RawFields maps source-specific field names to values extracted from a
// RawDocument. There is no cross-source schema guarantee; adapters own the
// keys they emit and consume.
type RawFields map[string]any

// String returns the value under key as a string, or "" when absent or not
// string-shaped.
func (f RawFields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Float returns the value under key as a float64, or 0 when absent or not
// numeric.
func (f RawFields) Float(key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Has reports whether key is present with a non-nil value.
func (f RawFields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// SearchResult is a lightweight hit returned by an adapter's Search call,
// sufficient to drive a follow-up GetDetails.
type SearchResult struct {
	SourceParcelID string `json:"sourceParcelId"`
	DetailURL      string `json:"detailUrl,omitempty"`
	OwnerName      string `json:"ownerName,omitempty"`
	SitusAddress   string `json:"situsAddress,omitempty"`
}
