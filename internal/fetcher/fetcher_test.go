package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/property-ingest/pkg/metrics"
	"github.com/user/property-ingest/pkg/ratelimit"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func newTestFetcher() *Fetcher {
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 1000, Window: time.Second})
	f := New(limiter, 5*time.Second, 3)
	f.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	return f
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	doc, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if doc.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", doc.StatusCode)
	}
	if string(doc.Body) != "<html>ok</html>" {
		t.Errorf("unexpected body %q", doc.Body)
	}
	if doc.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestFetch404FailsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{})
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if ferr.Kind != KindClient || ferr.Status != 404 {
		t.Errorf("got kind=%s status=%d, want client/404", ferr.Kind, ferr.Status)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server hit %d times, want 1 (4xx must not retry)", n)
	}
}

func TestFetchRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	doc, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Fetch failed after retries: %v", err)
	}
	if string(doc.Body) != "recovered" {
		t.Errorf("unexpected body %q", doc.Body)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server hit %d times, want 3", n)
	}
}

func TestFetch429IsRetryable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server hit %d times, want 2", n)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{})
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if ferr.Kind != KindServer || ferr.Status != 503 {
		t.Errorf("got kind=%s status=%d, want server/503", ferr.Kind, ferr.Status)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server hit %d times, want maxRetries=3", n)
	}
}

func TestFetchCancellationInterruptsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 1000, Window: time.Second})
	f := New(limiter, 5*time.Second, 3) // real interruptible sleep

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, srv.URL, Options{})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond) // let the first attempt fail and backoff start
	cancel()

	select {
	case err := <-done:
		var ferr *FetchError
		if !errors.As(err, &ferr) || ferr.Kind != KindCancelled {
			t.Fatalf("expected cancelled FetchError, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not abort promptly on cancellation")
	}
}

func TestFetchSurfacesRedirectStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	doc, err := newTestFetcher().Fetch(context.Background(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if doc.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302 (redirects must be surfaced, not followed)", doc.StatusCode)
	}
}

func TestBackoffSchedule(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 30 * time.Second}, // capped
		{10, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffFor(tc.attempt); got != tc.want {
			t.Errorf("backoffFor(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
