// Package fetcher implements the shared retry/backoff HTTP layer every source
// adapter fetches through.
package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/user/property-ingest/internal/entity"
	"github.com/user/property-ingest/pkg/metrics"
	"github.com/user/property-ingest/pkg/ratelimit"
	"github.com/user/property-ingest/pkg/utils"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	baseBackoff       = 1 * time.Second
	maxBackoff        = 30 * time.Second
	userAgent         = "property-ingest/1.0"
)

// attemptState is the explicit per-fetch state machine. Transitions:
// pending -> retrying(n) -> succeeded | failed.
type attemptState int

const (
	attemptPending attemptState = iota
	attemptRetrying
	attemptSucceeded
	attemptFailed
)

// Options carries per-request overrides. The zero value issues a plain GET
// with the fetcher defaults.
type Options struct {
	Method     string
	Headers    map[string]string
	Cookie     string
	Body       string
	MaxRetries int // 0 means the fetcher default
}

// Fetcher issues HTTP requests with per-domain rate limiting, bounded
// exponential backoff and a per-domain circuit breaker. One instance is shared
// by all adapters; the retry policy is uniform across sources.
type Fetcher struct {
	client     *http.Client
	limiter    *ratelimit.Limiter
	timeout    time.Duration
	maxRetries int

	sleep func(ctx context.Context, d time.Duration) error

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker[*entity.RawDocument]
}

// New creates a Fetcher. Redirects are not followed: 3xx responses are
// surfaced in the returned document so adapters can interpret them (the
// sequential-ID probe treats a redirect as "parcel does not exist").
func New(limiter *ratelimit.Limiter, timeout time.Duration, maxRetries int) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter:    limiter,
		timeout:    timeout,
		maxRetries: maxRetries,
		sleep:      sleepCtx,
	}
}

// Fetch retrieves a URL, retrying on 429/5xx and transport errors with
// backoff min(1s*2^attempt, 30s). Other 4xx fail immediately. The last error
// is surfaced once retries are exhausted. Backoff sleeps abort on ctx
// cancellation and surface a cancelled FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (*entity.RawDocument, error) {
	domain := utils.Domain(url)
	breaker := f.circuitBreaker(domain)

	doc, err := breaker.Execute(func() (*entity.RawDocument, error) {
		return f.fetchWithRetry(ctx, url, domain, opts)
	})
	if err != nil {
		if IsCircuitOpen(err) {
			return nil, &FetchError{Kind: KindCircuitOpen, URL: url, Cause: err}
		}
		return nil, err
	}
	return doc, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, url, domain string, opts Options) (*entity.RawDocument, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = f.maxRetries
	}

	state := attemptPending
	var lastErr *FetchError

	for attempt := 0; state != attemptSucceeded && state != attemptFailed; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Kind: KindCancelled, URL: url, Cause: err}
		}

		doc, ferr := f.attempt(ctx, url, domain, opts)
		if ferr == nil {
			state = attemptSucceeded
			return doc, nil
		}

		lastErr = ferr
		if ferr.Kind == KindCancelled || !ferr.Retryable() || attempt >= maxRetries-1 {
			state = attemptFailed
			break
		}

		state = attemptRetrying
		wait := backoffFor(attempt)
		slog.Warn("fetch retry scheduled",
			"url", url,
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"kind", string(ferr.Kind),
			"backoff_ms", wait.Milliseconds(),
		)
		if metrics.FetchRetriesTotal != nil {
			metrics.FetchRetriesTotal.WithLabelValues(domain, string(ferr.Kind)).Inc()
		}
		if err := f.sleep(ctx, wait); err != nil {
			return nil, &FetchError{Kind: KindCancelled, URL: url, Cause: err}
		}
	}

	return nil, lastErr
}

// attempt issues exactly one rate-limited HTTP request.
func (f *Fetcher) attempt(ctx context.Context, url, domain string, opts Options) (*entity.RawDocument, *FetchError) {
	if err := f.limiter.Await(ctx, domain); err != nil {
		return nil, &FetchError{Kind: KindCancelled, URL: url, Cause: err}
	}
	f.limiter.Record(domain)

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, body)
	if err != nil {
		return nil, &FetchError{Kind: KindClient, URL: url, Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if opts.Cookie != "" {
		req.Header.Set("Cookie", opts.Cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(url, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(url, err)
	}

	if resp.StatusCode >= 400 {
		return nil, classifyStatus(url, resp.StatusCode)
	}

	return &entity.RawDocument{
		Body:       payload,
		SourceURL:  url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (f *Fetcher) circuitBreaker(domain string) *gobreaker.CircuitBreaker[*entity.RawDocument] {
	f.breakerMu.Lock()
	defer f.breakerMu.Unlock()

	if f.breakers == nil {
		f.breakers = make(map[string]*gobreaker.CircuitBreaker[*entity.RawDocument])
	}
	if b, ok := f.breakers[domain]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        domain,
		MaxRequests: 2,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A 404 on a probe or any other plain client error does not
			// indicate the origin is unhealthy.
			var ferr *FetchError
			if errors.As(err, &ferr) {
				return !ferr.Retryable()
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("fetch circuit breaker state change", "domain", name, "from", from.String(), "to", to.String())
		},
	}

	b := gobreaker.NewCircuitBreaker[*entity.RawDocument](settings)
	f.breakers[domain] = b
	return b
}

func backoffFor(attempt int) time.Duration {
	ms := math.Min(float64(baseBackoff.Milliseconds())*math.Pow(2, float64(attempt)), float64(maxBackoff.Milliseconds()))
	return time.Duration(ms) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
