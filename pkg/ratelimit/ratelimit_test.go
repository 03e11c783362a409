package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAdmitsWithinBudget(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Window: 1 * time.Second})

	if !l.CanAdmit("cad.example.org") {
		t.Fatal("expected first request to be admitted")
	}
	l.Record("cad.example.org")
	if l.CanAdmit("cad.example.org") {
		t.Fatal("expected second request inside the window to be denied")
	}
}

func TestWindowExpiryReadmits(t *testing.T) {
	now := time.Now()
	l := New(Config{RequestsPerSecond: 1, Window: 1 * time.Second})
	l.now = func() time.Time { return now }

	l.Record("cad.example.org")
	if l.CanAdmit("cad.example.org") {
		t.Fatal("expected denial inside the window")
	}

	now = now.Add(1100 * time.Millisecond)
	if !l.CanAdmit("cad.example.org") {
		t.Fatal("expected admission after the window expired")
	}
}

func TestDomainsAreIndependent(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Window: 1 * time.Second})
	l.Record("a.example.org")
	if !l.CanAdmit("b.example.org") {
		t.Fatal("recording against one domain must not throttle another")
	}
}

func TestConfigureResetsHistory(t *testing.T) {
	l := New(DefaultConfig())
	l.Record("cad.example.org")
	l.Configure("cad.example.org", Config{RequestsPerSecond: 2, Window: 1 * time.Second})
	if !l.CanAdmit("cad.example.org") {
		t.Fatal("expected admission after reconfiguration reset history")
	}
}

func TestAwaitHonorsCancellation(t *testing.T) {
	// Budget of one per 10s, so a single Record exhausts the window and
	// Await must block until the deadline fires.
	l := New(Config{RequestsPerSecond: 0.1, Window: 10 * time.Second})
	l.Record("cad.example.org")

	if l.CanAdmit("cad.example.org") {
		t.Fatal("expected the recorded request to exhaust the budget")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Await(ctx, "cad.example.org")
	if err == nil {
		t.Fatal("expected Await to fail when the context is cancelled")
	}
}

// Ten concurrent callers against a 1-per-2s budget must never record two
// admissions closer than the window for the same domain.
func TestConcurrentCallersSerialized(t *testing.T) {
	var mu sync.Mutex
	now := time.Now()
	l := New(Config{RequestsPerSecond: 0.5, Window: 2 * time.Second})
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	// Simulated sleeps advance the fake clock instead of blocking.
	l.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
		return nil
	}

	var recMu sync.Mutex
	var admissions []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Await and Record happen back-to-back in a caller; keep the
			// pair atomic here so the fake clock stays deterministic.
			recMu.Lock()
			defer recMu.Unlock()
			if err := l.Await(context.Background(), "cad.example.org"); err != nil {
				t.Errorf("Await failed: %v", err)
				return
			}
			l.Record("cad.example.org")
			mu.Lock()
			admissions = append(admissions, now)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(admissions) != 10 {
		t.Fatalf("expected 10 admissions, got %d", len(admissions))
	}
	for i := 0; i < len(admissions); i++ {
		for j := i + 1; j < len(admissions); j++ {
			gap := admissions[j].Sub(admissions[i])
			if gap < 0 {
				gap = -gap
			}
			if gap < 2*time.Second && gap != 0 {
				t.Fatalf("admissions %v apart, want >= 2s", gap)
			}
			if gap == 0 && i != j {
				t.Fatalf("two admissions in the same instant")
			}
		}
	}
}
