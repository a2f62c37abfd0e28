package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civicdesk/internal/notification/models"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/httputil"
	"civicdesk/pkg/requestcontext"
)

// Service defines the notification operations exposed over HTTP.
type Service interface {
	ListForUser(ctx context.Context, userID id.UserID, filter models.ListFilter) (*models.ListResult, error)
	MarkRead(ctx context.Context, nid id.NotificationID, userID id.UserID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID id.UserID) (int, error)
	Delete(ctx context.Context, nid id.NotificationID, userID id.UserID) error
}

// Handler serves the authenticated user's inbox.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the inbox routes. Callers apply authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Put("/read-all", h.handleMarkAllRead)
		r.Put("/{id}/read", h.handleMarkRead)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	filter := models.ListFilter{
		Page:     httputil.QueryInt(r, "page", 1),
		PageSize: httputil.QueryInt(r, "limit", models.DefaultPageSize),
		IsRead:   httputil.QueryBool(r, "isRead"),
	}
	res, err := h.service.ListForUser(ctx, userID, filter)
	if err != nil {
		h.fail(ctx, w, "failed to list notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	nid, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := h.service.MarkRead(ctx, nid, userID)
	if err != nil {
		h.fail(ctx, w, "failed to mark notification read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	changed, err := h.service.MarkAllRead(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "failed to mark notifications read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"modifiedCount": changed})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	nid, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, nid, userID); err != nil {
		h.fail(ctx, w, "failed to delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
