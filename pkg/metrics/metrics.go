package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ScrapesTotal   *prometheus.CounterVec
	ScrapeDuration *prometheus.HistogramVec

	FetchRetriesTotal     *prometheus.CounterVec
	RateLimiterWait       *prometheus.HistogramVec
	SessionRefreshesTotal *prometheus.CounterVec

	BatchJobsInQueue prometheus.Gauge
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more
// than once; registration happens on the first call only.
func Init() {
	initOnce.Do(initCollectors)
}

func initCollectors() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapes_total",
			Help: "Total number of scrape attempts per source.",
		},
		[]string{"source", "status"}, // status: success, failure, invalid
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Duration of single-record scrape operations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	FetchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_retries_total",
			Help: "Total number of HTTP fetch retries by error kind.",
		},
		[]string{"domain", "kind"},
	)

	RateLimiterWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rate_limiter_wait_seconds",
			Help:    "Time spent waiting for per-domain rate-limit admission.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	SessionRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_refreshes_total",
			Help: "Total number of adapter session refreshes.",
		},
		[]string{"source"},
	)

	BatchJobsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_jobs_in_queue",
			Help: "Current number of batch scrape jobs waiting in the queue.",
		},
	)
}
