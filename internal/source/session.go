package source

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/internal/fetcher"
	"github.com/user/property-ingest/pkg/metrics"
)

const sessionTTL = 15 * time.Minute

// sessionCookieNames are matched case-insensitively against Set-Cookie
// headers on the handshake response. CAD sites run on a grab-bag of stacks,
// so the matcher tolerates all the usual names.
var sessionCookieNames = []string{
	"phpsessid",
	"asp.net_sessionid",
	"jsessionid",
	"session_id",
	"session",
	"sid",
}

type sessionState struct {
	cookie string
	expiry time.Time
}

// SessionManager owns the cookie lifecycle for one session-based source.
// Sessions are created lazily on first use, expire after a fixed TTL, and are
// refreshed at most once per failed request. Safe for concurrent workers.
type SessionManager struct {
	source  string
	homeURL string
	fetch   *fetcher.Fetcher

	mu  sync.Mutex
	cur *sessionState
	now func() time.Time
}

func NewSessionManager(sourceID, homeURL string, fetch *fetcher.Fetcher) *SessionManager {
	return &SessionManager{
		source:  sourceID,
		homeURL: homeURL,
		fetch:   fetch,
		now:     time.Now,
	}
}

// EnsureSession returns a live session cookie, performing the homepage
// handshake when none exists or the current one has expired.
func (m *SessionManager) EnsureSession(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur != nil && m.now().Before(m.cur.expiry) {
		return m.cur.cookie, nil
	}
	return m.refreshLocked(ctx)
}

// Invalidate drops the current session so the next call re-handshakes.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = nil
}

func (m *SessionManager) refreshLocked(ctx context.Context) (string, error) {
	doc, err := m.fetch.Fetch(ctx, m.homeURL, fetcher.Options{})
	if err != nil {
		return "", err
	}

	cookie := extractSessionCookie(doc)
	if cookie == "" {
		return "", &ParseError{URL: m.homeURL, Msg: "no session cookie in handshake response"}
	}

	m.cur = &sessionState{cookie: cookie, expiry: m.now().Add(sessionTTL)}
	slog.Debug("session established", "source", m.source)
	if metrics.SessionRefreshesTotal != nil {
		metrics.SessionRefreshesTotal.WithLabelValues(m.source).Inc()
	}
	return cookie, nil
}

// Do runs a session-authenticated call. On a 401/403 it invalidates the
// session, refreshes once, and retries the single failed call exactly once.
// A second auth rejection surfaces as *SessionExpiredError.
func (m *SessionManager) Do(ctx context.Context, call func(cookie string) (*entity.RawDocument, error)) (*entity.RawDocument, error) {
	cookie, err := m.EnsureSession(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := call(cookie)
	status, rejected := authRejection(err)
	if !rejected {
		return doc, err
	}

	slog.Info("session rejected, refreshing once", "source", m.source, "status", status)
	m.Invalidate()
	cookie, err = m.EnsureSession(ctx)
	if err != nil {
		return nil, err
	}

	doc, err = call(cookie)
	if status, rejected := authRejection(err); rejected {
		return nil, &SessionExpiredError{Source: m.source, Status: status}
	}
	return doc, err
}

// authRejection reports whether err is an HTTP 401/403 fetch failure.
func authRejection(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var ferr *fetcher.FetchError
	if errors.As(err, &ferr) && (ferr.Status == 401 || ferr.Status == 403) {
		return ferr.Status, true
	}
	return 0, false
}

// extractSessionCookie scans Set-Cookie headers for a known session cookie
// name and returns it as a "name=value" pair suitable for a Cookie header.
func extractSessionCookie(doc *entity.RawDocument) string {
	if doc == nil || doc.Header == nil {
		return ""
	}
	for _, raw := range doc.Header.Values("Set-Cookie") {
		pair := strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
		name, _, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(name))
		for _, known := range sessionCookieNames {
			if lower == known {
				return pair
			}
		}
	}
	return ""
}
