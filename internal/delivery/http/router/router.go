package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/property-ingest/internal/delivery/http/handler"
	"github.com/user/property-ingest/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("GET /api/sources", h.HandleListSources)
	mux.HandleFunc("POST /api/scrape", h.HandleScrape)
	mux.HandleFunc("POST /api/batch", h.HandleSubmitBatch)
	mux.HandleFunc("GET /api/batch/status", h.HandleBatchStatus)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares
	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler)

	return chainedHandler
}
