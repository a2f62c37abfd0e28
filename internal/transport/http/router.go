package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civicdesk/internal/platform/metrics"
	platformmw "civicdesk/internal/platform/middleware"
	"civicdesk/pkg/platform/httputil"
	authmw "civicdesk/pkg/platform/middleware/auth"
	"civicdesk/pkg/platform/middleware/metadata"
	request "civicdesk/pkg/platform/middleware/request"
	"civicdesk/pkg/platform/middleware/requesttime"
)

// Registrar mounts a component's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router mounts. Nil registrars are skipped.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Validator      authmw.JWTValidator
	RequestTimeout time.Duration
	// APILimit, when set, throttles every authenticated API request.
	APILimit func(http.Handler) http.Handler

	// Authenticated routes open to every role.
	Notifications Registrar
	Complaints    Registrar
	Reports       Registrar

	// Admin-only routes.
	Audit     Registrar
	Scheduler Registrar

	// Push is served outside the JSON API middleware; it authenticates in-band.
	Push http.Handler

	// ReportFiles serves generated PDFs under ReportPrefix when set.
	ReportFiles  http.Handler
	ReportPrefix string

	HealthChecks map[string]HealthCheck
}

// NewRouter wires the public surface: /health, /metrics, /ws and the
// authenticated /api tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(platformmw.LatencyMiddleware(d.Metrics))

	r.Get("/health", healthHandler(d.HealthChecks))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Push != nil {
		r.Handle("/ws", d.Push)
	}
	if d.ReportFiles != nil && d.ReportPrefix != "" {
		prefix := strings.TrimRight(d.ReportPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, d.ReportFiles))
	}

	r.Group(func(r chi.Router) {
		r.Use(request.Logger(d.Logger))
		if d.RequestTimeout > 0 {
			r.Use(request.Timeout(d.RequestTimeout))
		}
		r.Use(authmw.RequireAuth(d.Validator, d.Logger))
		if d.APILimit != nil {
			r.Use(d.APILimit)
		}

		mount(r, d.Notifications, d.Complaints, d.Reports)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Logger, "admin"))
			mount(r, d.Audit, d.Scheduler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error":             "not_found",
			"error_description": "Route not found",
		})
	})
	return r
}

func mount(r chi.Router, registrars ...Registrar) {
	for _, reg := range registrars {
		if reg != nil {
			reg.Register(r)
		}
	}
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status":    overall,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}
