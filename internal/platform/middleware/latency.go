// Package middleware holds HTTP middleware that depends on internal platform
// packages (metrics). Generic middleware lives in pkg/platform/middleware.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"civicdesk/internal/platform/metrics"
	request "civicdesk/pkg/platform/middleware/request"
)

// LatencyMiddleware records request duration keyed by the chi route pattern,
// so /api/notifications/{id}/read is one series regardless of the id.
func LatencyMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &request.StatusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := rec.Status
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, r.Method, strconv.Itoa(status/100)+"xx", time.Since(start).Seconds())
		})
	}
}
