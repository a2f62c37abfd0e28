package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/httputil"
	"civicdesk/pkg/requestcontext"
)

// Runner is the scheduler surface exposed to admins.
type Runner interface {
	Jobs() []JobInfo
	RunNow(ctx context.Context, name string) error
}

// Handler exposes manual job triggers. Callers restrict it to admins.
type Handler struct {
	runner Runner
	logger *slog.Logger
}

func NewHandler(runner Runner, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/admin/scheduler", func(r chi.Router) {
		r.Get("/jobs", h.handleJobs)
		r.Post("/{job}/run", h.handleRun)
	})
}

func (h *Handler) handleJobs(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"jobs": h.runner.Jobs()})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "job")
	err := h.runner.RunNow(ctx, name)
	if errors.Is(err, ErrJobSkipped) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"job": name, "status": "skipped"})
		return
	}
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "manual job run failed",
				"request_id", requestcontext.RequestID(ctx),
				"job", name,
				"error", err,
			)
			err = dErrors.Wrap(err, dErrors.CodeInternal, "job run failed")
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"job": name, "status": "completed"})
}
