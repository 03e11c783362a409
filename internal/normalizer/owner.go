package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/user/property-ingest/internal/entity"
)

var (
	llcPattern         = regexp.MustCompile(`\bL\.?L\.?C\.?\b`)
	corpPattern        = regexp.MustCompile(`\b(?:INC|INCORPORATED|CORP|CORPORATION)\b`)
	trustPattern       = regexp.MustCompile(`\b(?:TRUST|TRUSTEE|LIVING TR|REV TR|TR)\b`)
	partnershipPattern = regexp.MustCompile(`\b(?:LP|LLP|LTD|PARTNERSHIP|PARTNERS)\b`)
	governmentPattern  = regexp.MustCompile(`\b(?:CITY OF|COUNTY OF|STATE OF|UNITED STATES|USA|ISD|SCHOOL DISTRICT|HOUSING AUTHORITY)\b`)
)

// ParseOwnerType classifies an owner-of-record name. Appraisal rolls print
// entity suffixes inconsistently, so matching is done on an uppercased,
// punctuation-tolerant form.
func ParseOwnerType(name string) entity.OwnerType {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return entity.OwnerUnknown
	}
	// Order matters: "SMITH FAMILY TRUST LLC" is an LLC on the deed.
	switch {
	case llcPattern.MatchString(upper):
		return entity.OwnerLLC
	case governmentPattern.MatchString(upper):
		return entity.OwnerGovernment
	case corpPattern.MatchString(upper):
		return entity.OwnerCorporation
	case trustPattern.MatchString(upper):
		return entity.OwnerTrust
	case partnershipPattern.MatchString(upper):
		return entity.OwnerPartnership
	default:
		return entity.OwnerIndividual
	}
}

// NormalizeOwner trims the name and attaches its parsed type.
func (n *Normalizer) NormalizeOwner(name string) entity.Owner {
	trimmed := strings.Join(strings.Fields(name), " ")
	return entity.Owner{Name: trimmed, Type: ParseOwnerType(trimmed)}
}

var parcelIDCleaner = regexp.MustCompile(`[^A-Z0-9]`)

// BuildParcelID produces the canonical "{countyCode}-{year}-{cleanedId}"
// identifier. The raw source ID is uppercased and stripped of everything but
// letters and digits.
func BuildParcelID(countyCode string, year int, rawID string) string {
	cleaned := parcelIDCleaner.ReplaceAllString(strings.ToUpper(strings.TrimSpace(rawID)), "")
	code := strings.ToUpper(strings.TrimSpace(countyCode))
	return fmt.Sprintf("%s-%d-%s", code, year, cleaned)
}
