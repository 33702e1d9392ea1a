package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civitas/internal/platform/metrics"
)

// Latency observes request duration labelled by the matched chi route
// pattern, which keeps label cardinality bounded.
func Latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveHTTP(route, r.Method, start)
		})
	}
}
