package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sony/gobreaker/v2"
)

// ErrorKind classifies a fetch failure for retry decisions.
type ErrorKind string

const (
	// KindNetwork covers connection resets, DNS failures and other
	// transport errors. Retryable.
	KindNetwork ErrorKind = "network"
	// KindTimeout is a per-call deadline expiry. Retryable.
	KindTimeout ErrorKind = "timeout"
	// KindClient is any 4xx except 429. Not retryable.
	KindClient ErrorKind = "client"
	// KindRateLimited is HTTP 429. Retryable.
	KindRateLimited ErrorKind = "rate_limited"
	// KindServer is any 5xx. Retryable.
	KindServer ErrorKind = "server"
	// KindCancelled is a caller-initiated cancellation. Not retryable.
	KindCancelled ErrorKind = "cancelled"
	// KindCircuitOpen means the per-domain breaker rejected the call
	// before any request was issued. Retryable once the breaker closes.
	KindCircuitOpen ErrorKind = "circuit_open"
)

// FetchError is the failure type surfaced by Fetcher.Fetch.
type FetchError struct {
	Kind   ErrorKind
	Status int
	URL    string
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Retryable reports whether the fetch policy may try this failure again.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimited, KindServer, KindCircuitOpen:
		return true
	default:
		return false
	}
}

// classifyTransportError maps an http.Client error to a FetchError.
func classifyTransportError(url string, err error) *FetchError {
	switch {
	case errors.Is(err, context.Canceled):
		return &FetchError{Kind: KindCancelled, URL: url, Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: KindTimeout, URL: url, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: url, Cause: err}
	}
	return &FetchError{Kind: KindNetwork, URL: url, Cause: err}
}

// classifyStatus maps a non-2xx HTTP status to a FetchError.
func classifyStatus(url string, status int) *FetchError {
	switch {
	case status == 429:
		return &FetchError{Kind: KindRateLimited, Status: status, URL: url}
	case status >= 500:
		return &FetchError{Kind: KindServer, Status: status, URL: url}
	default:
		return &FetchError{Kind: KindClient, Status: status, URL: url}
	}
}

// IsCircuitOpen reports whether err came from an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
