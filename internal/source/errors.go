package source

import (
	"fmt"
	"strings"
)

// ParseError means a fetched document did not match the shape the adapter
// expects. Non-retryable: the same request would return the same markup.
type ParseError struct {
	URL   string
	Msg   string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Msg, e.Cause)
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// SessionExpiredError is surfaced after a session refresh and single retry
// both fail with an auth rejection. No further retries are made.
type SessionExpiredError struct {
	Source string
	Status int
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired for source %s (status %d after refresh)", e.Source, e.Status)
}

// UnknownSourceError is returned by the registry for an unregistered source
// ID. It names the valid sources to make batch-job misconfiguration obvious.
type UnknownSourceError struct {
	Source string
	Valid  []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q, valid sources: %s", e.Source, strings.Join(e.Valid, ", "))
}
