// Package ratelimit provides per-domain sliding-window admission control for
// outbound scraping traffic.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Config is the admission budget for one domain.
type Config struct {
	RequestsPerSecond float64
	Window            time.Duration
}

// DefaultConfig is applied to any domain without an explicit configuration:
// one request per two-second window.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 0.5, Window: 2 * time.Second}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = def.RequestsPerSecond
	}
	if out.Window <= 0 {
		out.Window = def.Window
	}
	return out
}

// budget is the max number of requests admitted inside one window.
func (c Config) budget() int {
	n := int(math.Ceil(c.RequestsPerSecond * c.Window.Seconds()))
	if n < 1 {
		n = 1
	}
	return n
}

type domainState struct {
	timestamps []time.Time
	cfg        Config
}

// Limiter tracks request timestamps per domain. It is shared by all adapter
// workers hitting the same origin, so every method is safe for concurrent use.
//
// Await deliberately polls at the window interval rather than smoothing with a
// token bucket: admission is bursty-then-idle, which matches what the target
// sites tolerate.
type Limiter struct {
	mu      sync.Mutex
	domains map[string]*domainState
	def     Config

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// Optional observer for time spent blocked in Await.
	onWait func(domain string, waited time.Duration)
}

// New creates a Limiter with the given default config for unconfigured domains.
func New(def Config) *Limiter {
	return &Limiter{
		domains: make(map[string]*domainState),
		def:     def.normalize(),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Configure sets a domain-specific budget and resets its recorded history.
func (l *Limiter) Configure(domain string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.domains[domain] = &domainState{cfg: cfg.normalize()}
}

// OnWait registers an observer invoked after every blocked Await.
func (l *Limiter) OnWait(fn func(domain string, waited time.Duration)) {
	l.onWait = fn
}

// CanAdmit reports whether a request to domain would currently be admitted.
func (l *Limiter) CanAdmit(domain string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	ok, _ := l.admitLocked(domain)
	return ok
}

// Await blocks until a request to domain would be admitted or ctx is done.
// It polls at the domain's window interval.
func (l *Limiter) Await(ctx context.Context, domain string) error {
	start := l.now()
	for {
		l.mu.Lock()
		ok, window := l.admitLocked(domain)
		l.mu.Unlock()
		if ok {
			if l.onWait != nil {
				l.onWait(domain, l.now().Sub(start))
			}
			return nil
		}
		if err := l.sleep(ctx, window); err != nil {
			return err
		}
	}
}

// Record notes that a request to domain was just issued.
func (l *Limiter) Record(domain string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.stateLocked(domain)
	st.timestamps = append(st.timestamps, l.now())
}

// admitLocked prunes expired timestamps and compares the remainder against
// the domain budget. Caller holds l.mu.
func (l *Limiter) admitLocked(domain string) (bool, time.Duration) {
	st := l.stateLocked(domain)
	cutoff := l.now().Add(-st.cfg.Window)

	kept := st.timestamps[:0]
	for _, ts := range st.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	st.timestamps = kept

	return len(st.timestamps) < st.cfg.budget(), st.cfg.Window
}

func (l *Limiter) stateLocked(domain string) *domainState {
	st, ok := l.domains[domain]
	if !ok {
		st = &domainState{cfg: l.def}
		l.domains[domain] = st
	}
	return st
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
