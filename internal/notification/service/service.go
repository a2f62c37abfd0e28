package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"civicdesk/internal/notification/metrics"
	"civicdesk/internal/notification/models"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/sentinel"
	"civicdesk/pkg/requestcontext"
)

// DefaultRetention is how long read notifications stay visible.
const DefaultRetention = 30 * 24 * time.Hour

// EventNotificationNew is the push event emitted for each stored notification.
const EventNotificationNew = "notification:new"

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, ns []*models.Notification) error
	ListByUser(ctx context.Context, userID id.UserID, filter models.ListFilter) ([]*models.Notification, int, error)
	CountUnread(ctx context.Context, userID id.UserID) (int, error)
	MarkRead(ctx context.Context, nid id.NotificationID, userID id.UserID, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID id.UserID, at time.Time) (int, error)
	Delete(ctx context.Context, nid id.NotificationID, userID id.UserID) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Pusher delivers a real-time event to a user's live sessions.
type Pusher interface {
	NotifyUser(userID string, event string, payload any)
}

// Service owns notification lifecycle: creation, inbox reads and retention.
type Service struct {
	store     Store
	pusher    Pusher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	retention time.Duration
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPusher mirrors every stored notification to the recipient's live sessions.
func WithPusher(p Pusher) Option {
	return func(s *Service) {
		s.pusher = p
	}
}

func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    slog.Default(),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores one notification.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (*models.Notification, error) {
	n, err := models.New(req, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, n); err != nil {
		s.metrics.IncCreateFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	s.metrics.IncCreated(string(n.Type))
	s.push(n)
	return n, nil
}

// CreateMany validates every request first, then stores them together.
func (s *Service) CreateMany(ctx context.Context, reqs []models.CreateRequest) ([]*models.Notification, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	now := s.now()
	batch := make([]*models.Notification, 0, len(reqs))
	for _, req := range reqs {
		n, err := models.New(req, now)
		if err != nil {
			return nil, err
		}
		batch = append(batch, n)
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		s.metrics.IncCreateFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notifications")
	}
	for _, n := range batch {
		s.metrics.IncCreated(string(n.Type))
		s.push(n)
	}
	return batch, nil
}

// Notify creates a notification as a side effect of another operation.
// Failures are logged and counted, never returned.
func (s *Service) Notify(ctx context.Context, req models.CreateRequest) *models.Notification {
	n, err := s.Create(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "notification not created",
			"error", err,
			"type", req.Type,
			"user_id", req.UserID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	return n
}

// NotifyMany is the batch form of Notify. It returns how many were stored.
func (s *Service) NotifyMany(ctx context.Context, reqs []models.CreateRequest) int {
	created, err := s.CreateMany(ctx, reqs)
	if err != nil {
		s.logger.WarnContext(ctx, "notification batch not created",
			"error", err,
			"count", len(reqs),
		)
		return 0
	}
	return len(created)
}

// ListForUser returns a page of the user's inbox with the unread count.
// Read notifications past the retention window are never listed.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID, filter models.ListFilter) (*models.ListResult, error) {
	if s.metrics != nil {
		defer s.metrics.ObserveList(time.Now())
	}
	filter = filter.Normalize()
	filter.VisibleAfter = s.now().Add(-s.retention)

	items, total, err := s.store.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unread notifications")
	}
	return &models.ListResult{
		Notifications: items,
		Total:         total,
		UnreadCount:   unread,
		Page:          filter.Page,
		TotalPages:    (total + filter.PageSize - 1) / filter.PageSize,
	}, nil
}

// MarkRead marks a notification owned by userID as read.
func (s *Service) MarkRead(ctx context.Context, nid id.NotificationID, userID id.UserID) (*models.Notification, error) {
	n, err := s.store.MarkRead(ctx, nid, userID, s.now())
	if err != nil {
		return nil, translate(err, "failed to mark notification read")
	}
	return n, nil
}

// MarkAllRead marks every unread notification of userID and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	changed, err := s.store.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return changed, nil
}

func (s *Service) Delete(ctx context.Context, nid id.NotificationID, userID id.UserID) error {
	if err := s.store.Delete(ctx, nid, userID); err != nil {
		return translate(err, "failed to delete notification")
	}
	return nil
}

// PurgeExpired removes read notifications whose ReadAt is older than olderThan.
func (s *Service) PurgeExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "retention must be positive")
	}
	removed, err := s.store.DeleteReadBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge notifications")
	}
	s.metrics.AddPurged(removed)
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired notifications purged",
			"removed", removed,
			"older_than", olderThan.String(),
		)
	}
	return removed, nil
}

func (s *Service) push(n *models.Notification) {
	if s.pusher == nil {
		return
	}
	s.pusher.NotifyUser(n.UserID.String(), EventNotificationNew, n)
}

func translate(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
