package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
)

// Metrics returns middleware recording per-request counters and latency
// histograms. The route pattern is used as the path label so that partner
// identifiers do not explode the cardinality.
func Metrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			prometheus.RecordHTTPRequest(m, r.Method, path, wrapped.statusCode, time.Since(start))
		})
	}
}
