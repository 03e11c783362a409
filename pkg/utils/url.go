package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
)

// HashKey creates a SHA256 hex digest of a dedup key (source + source parcel
// ID). Used as a consistent, safe Redis key.
func HashKey(source, sourceParcelID string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", source, sourceParcelID)
	return hex.EncodeToString(h.Sum(nil))
}

// Domain extracts the hostname from a raw URL, or "" if it cannot be parsed.
// Rate-limit accounting is keyed on this value.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// ToAbsoluteURL resolves a relative link against a base URL. Detail links on
// CAD result pages are usually site-relative.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}
