package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging records one line per request with the resolved status code. The
// scrape endpoints lean on status to signal outcomes (202 queued, 404 gap),
// so the code is captured through the same writer wrapper Metrics uses.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
