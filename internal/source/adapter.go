// Package source contains the pluggable site-specific extraction adapters.
//
// Each adapter owns the selector logic for one origin site and the mapping
// from its raw field names to the canonical property schema. Session and
// identification strategy differ per variant; the fetch, retry and rate-limit
// behavior is composed in from the shared fetcher, never reimplemented.
package source

import (
	"context"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/fetcher"
	"github.com/user/property-ingest/internal/normalizer"
)

// Criteria describes a search against one source. Which fields an adapter
// honors depends on its identification strategy: sequential-ID sources scan
// [StartID, EndID], session sources query by owner or address.
type Criteria struct {
	ParcelID  string
	OwnerName string
	Address   string
	StartID   int
	EndID     int
}

// Adapter is implemented once per origin site.
//
// GetDetails returns (nil, nil) when the identifier does not exist at the
// source; callers treat that as a skippable gap, not a failure. Parse
// failures surface as *ParseError and are non-retryable.
type Adapter interface {
	// Source is the registry identifier, e.g. "travis-cad".
	Source() string

	// Domain is the rate-limit key for this origin.
	Domain() string

	Search(ctx context.Context, criteria Criteria) ([]entity.SearchResult, error)
	GetDetails(ctx context.Context, id string) (entity.RawFields, error)
	Normalize(fields entity.RawFields) (*entity.PropertyRecord, error)
}

// Options carries the shared collaborators every adapter constructor needs.
type Options struct {
	BaseURL    string
	CountyCode string
	Fetcher    *fetcher.Fetcher
	Normalizer *normalizer.Normalizer
}

// Constructor builds an adapter from options. Registered per source ID.
type Constructor func(opts Options) (Adapter, error)
