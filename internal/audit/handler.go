package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	audit "civicdesk/pkg/platform/audit"
	"civicdesk/pkg/platform/httputil"
	"civicdesk/pkg/requestcontext"
)

// Handler serves the admin audit query API. Callers restrict it to admins.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/audit", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/user/{userId}", h.handleListByUser)
		r.Get("/resource/{resourceType}/{resourceId}", h.handleListByResource)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := audit.Filter{
		Action:       audit.Action(q.Get("action")),
		ResourceType: audit.ResourceType(q.Get("resourceType")),
		ResourceID:   q.Get("resourceId"),
		Page:         httputil.QueryInt(r, "page", 1),
		PageSize:     httputil.QueryInt(r, "limit", audit.DefaultPageSize),
	}
	if raw := q.Get("userId"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.UserID = userID
	}
	var err error
	if filter.From, err = parseDate(q.Get("startDate"), false); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filter.To, err = parseDate(q.Get("endDate"), true); err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.List(ctx, filter)
	h.respond(ctx, w, page, err)
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListByUser(r.Context(), userID,
		httputil.QueryInt(r, "page", 1),
		httputil.QueryInt(r, "limit", audit.DefaultPageSize))
	h.respond(r.Context(), w, page, err)
}

func (h *Handler) handleListByResource(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListByResource(r.Context(),
		audit.ResourceType(chi.URLParam(r, "resourceType")),
		chi.URLParam(r, "resourceId"),
		httputil.QueryInt(r, "page", 1),
		httputil.QueryInt(r, "limit", audit.DefaultPageSize))
	h.respond(r.Context(), w, page, err)
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, page *audit.Page, err error) {
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "audit query failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid date: "+raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
