package complaint

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	auditmw "civicdesk/internal/audit"
	"civicdesk/internal/directory/models"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	audit "civicdesk/pkg/platform/audit"
	"civicdesk/pkg/platform/httputil"
	"civicdesk/pkg/platform/middleware/auth"
	"civicdesk/pkg/requestcontext"
)

// ComplaintService defines the complaint operations exposed over HTTP.
type ComplaintService interface {
	Create(ctx context.Context, reporter id.UserID, req CreateRequest) (*models.Complaint, error)
	Update(ctx context.Context, complaintID id.ComplaintID, actor id.UserID, req UpdateRequest) (*models.Complaint, error)
	Resolve(ctx context.Context, complaintID id.ComplaintID, actor id.UserID, req ResolveRequest) (*models.Complaint, error)
}

// Response wraps the complaint; the audit middleware reads data.id from it.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    *models.Complaint `json:"data"`
}

type Handler struct {
	service     ComplaintService
	recorder    auditmw.Recorder
	logger      *slog.Logger
	createLimit func(http.Handler) http.Handler
}

type HandlerOption func(*Handler)

// WithCreateLimit throttles complaint filing, typically per reporter.
func WithCreateLimit(mw func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) {
		h.createLimit = mw
	}
}

func NewHandler(service ComplaintService, recorder auditmw.Recorder, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, recorder: recorder, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the complaint routes. Callers apply authentication; triage
// routes additionally require a staff role. Every write is audited.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/complaints", func(r chi.Router) {
		create := r.With(auditmw.Middleware(h.recorder, audit.ActionCreate, audit.ResourceComplaint, describeCreate))
		if h.createLimit != nil {
			create = create.With(h.createLimit)
		}
		create.Post("/", h.handleCreate)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(h.logger, string(models.RoleAdmin), string(models.RoleOfficer)))
			r.With(auditmw.Middleware(h.recorder, audit.ActionUpdate, audit.ResourceComplaint, describeWith("Updated complaint "))).
				Put("/{id}", h.handleUpdate)
			r.With(auditmw.Middleware(h.recorder, audit.ActionUpdate, audit.ResourceComplaint, describeWith("Resolved complaint "))).
				Put("/{id}/resolve", h.handleResolve)
		})
	})
}

func describeCreate(r *http.Request) string {
	return "Filed complaint as " + requestcontext.Role(r.Context())
}

func describeWith(prefix string) auditmw.DescribeFunc {
	return func(r *http.Request) string {
		return prefix + chi.URLParam(r, "id")
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Create(ctx, userID, req)
	if err != nil {
		h.fail(ctx, w, "failed to create complaint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Complaint submitted successfully",
		Data:    c,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	complaintID, err := id.ParseComplaintID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Update(ctx, complaintID, userID, req)
	if err != nil {
		h.fail(ctx, w, "failed to update complaint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Complaint updated successfully",
		Data:    c,
	})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	complaintID, err := id.ParseComplaintID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req ResolveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Resolve(ctx, complaintID, userID, req)
	if err != nil {
		h.fail(ctx, w, "failed to resolve complaint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Complaint resolved successfully",
		Data:    c,
	})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
