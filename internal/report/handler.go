package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civicdesk/internal/directory/models"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/httputil"
	"civicdesk/pkg/platform/middleware/auth"
	"civicdesk/pkg/platform/sentinel"
	"civicdesk/pkg/requestcontext"
)

// ResourceFinder loads a single resource.
type ResourceFinder interface {
	FindByID(ctx context.Context, resourceID id.ResourceID) (*models.Resource, error)
}

// ResourceStore is what the handler reads about resources.
type ResourceStore interface {
	ResourceFinder
	UsageSource
}

// Renderer turns monthly data into a stored report.
type Renderer interface {
	GenerateMonthlyReport(ctx context.Context, data MonthlyData) (Artifact, error)
}

// Handler serves analytics read endpoints and on-demand monthly reports.
type Handler struct {
	resources  ResourceStore
	complaints StatsSource
	renderer   Renderer
	logger     *slog.Logger
	now        func() time.Time
}

func NewHandler(resources ResourceStore, complaints StatsSource, renderer Renderer, logger *slog.Logger) *Handler {
	return &Handler{
		resources:  resources,
		complaints: complaints,
		renderer:   renderer,
		logger:     logger,
		now:        time.Now,
	}
}

// Register mounts the routes. Callers apply authentication; every route here
// is limited to staff.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(h.logger, string(models.RoleAdmin), string(models.RoleOfficer)))
		r.Get("/api/resources/{id}/health", h.handleHealth)
		r.Post("/api/reports/monthly", h.handleMonthly)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resourceID, err := id.ParseResourceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.resources.FindByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "resource not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load resource",
			"request_id", requestcontext.RequestID(ctx),
			"resource_id", resourceID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute health score"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HealthScore(res, h.now()))
}

// MonthlyRequest names the calendar month to report on.
type MonthlyRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Period resolves the request to [from, to) in loc.
func (req MonthlyRequest) Period(loc *time.Location) (time.Time, time.Time, error) {
	if req.Month < 1 || req.Month > 12 {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeValidation, "month must be between 1 and 12")
	}
	if req.Year < 1970 || req.Year > 9999 {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeValidation, "year is out of range")
	}
	from := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0), nil
}

// MonthlyResponse carries the rendered report's location.
type MonthlyResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Report  Artifact `json:"report"`
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req MonthlyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, to, err := req.Period(h.now().Location())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	data, err := CollectMonthly(ctx, h.complaints, h.resources, from, to)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to collect monthly statistics",
			"request_id", requestcontext.RequestID(ctx),
			"from", from,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate report"))
		return
	}
	artifact, err := h.renderer.GenerateMonthlyReport(ctx, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render monthly report",
			"request_id", requestcontext.RequestID(ctx),
			"period", data.Period,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate report"))
		return
	}

	h.logger.InfoContext(ctx, "monthly report generated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx).String(),
		"period", data.Period,
		"file", artifact.FileName,
	)
	httputil.WriteJSON(w, http.StatusOK, MonthlyResponse{
		Success: true,
		Message: "Monthly report generated successfully",
		Report:  artifact,
	})
}
