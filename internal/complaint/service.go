// Package complaint files and triages citizen complaints. Every state change
// fans out to staff push rooms, and status changes reach the reporter by
// email, SMS and an in-app notification.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"civicdesk/internal/directory/models"
	"civicdesk/internal/dispatch"
	"civicdesk/internal/dispatch/email"
	"civicdesk/internal/dispatch/push"
	"civicdesk/internal/dispatch/sms"
	notifmodels "civicdesk/internal/notification/models"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/sentinel"
	"civicdesk/pkg/requestcontext"
)

// Push actions carried by complaint:update events.
const (
	ActionUpdated  = "updated"
	ActionResolved = "resolved"
)

type Store interface {
	Create(ctx context.Context, c *models.Complaint) error
	FindByID(ctx context.Context, complaintID id.ComplaintID) (*models.Complaint, error)
	Update(ctx context.Context, c *models.Complaint) error
}

type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

// Pusher broadcasts complaint events to live sessions.
type Pusher interface {
	NotifyNewComplaint(c push.ComplaintSummary)
	NotifyComplaintUpdate(c push.ComplaintSummary, action string)
}

type Mailer interface {
	Send(ctx context.Context, msg email.Message) dispatch.Result
}

type Texter interface {
	Send(ctx context.Context, to, body string) dispatch.Result
}

// Notifier stores in-app notifications. Failures never surface to the caller.
type Notifier interface {
	Notify(ctx context.Context, req notifmodels.CreateRequest) *notifmodels.Notification
}

// Runner starts detached background work. Tasks keep ctx's values but not
// its cancellation.
type Runner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}

// CreateRequest is the citizen-supplied part of a new complaint.
type CreateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
	Address     string          `json:"address"`
}

// UpdateRequest carries staff triage changes. Empty fields are left alone.
type UpdateRequest struct {
	Status     models.Status   `json:"status"`
	Priority   models.Priority `json:"priority"`
	AssignedTo string          `json:"assignedTo"`
	Comment    string          `json:"comment"`
}

func (r UpdateRequest) Validate() error {
	if r.Status != "" && !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid status")
	}
	if r.Priority != "" && !r.Priority.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid priority")
	}
	return nil
}

type ResolveRequest struct {
	Description string `json:"description"`
}

type Service struct {
	store    Store
	users    UserDirectory
	pusher   Pusher
	mailer   Mailer
	texter   Texter
	notifier Notifier
	runner   Runner
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithNotifier enables in-app notifications for reporters and assignees.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithRunner replaces the detached runner used for notification, email and
// SMS delivery.
func WithRunner(r Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

func New(store Store, users UserDirectory, pusher Pusher, mailer Mailer, texter Texter, opts ...Option) *Service {
	s := &Service{
		store:  store,
		users:  users,
		pusher: pusher,
		mailer: mailer,
		texter: texter,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = dispatch.NewRunner(dispatch.WithLogger(s.logger))
	}
	return s
}

// Create files a complaint for reporter and tells staff about it. Staff get a
// push event only; no stored notifications are created.
func (s *Service) Create(ctx context.Context, reporter id.UserID, req CreateRequest) (*models.Complaint, error) {
	c, err := models.NewComplaint(req.Title, req.Description, req.Category, req.Address, reporter, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save complaint")
	}

	s.pusher.NotifyNewComplaint(summarize(c))
	s.logger.InfoContext(ctx, "complaint filed",
		"complaint_id", c.ID.String(),
		"category", c.Category,
		"user_id", reporter.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

// Update applies staff triage. A status change notifies the reporter; a new
// assignee is told about the assignment.
func (s *Service) Update(ctx context.Context, complaintID id.ComplaintID, actor id.UserID, req UpdateRequest) (*models.Complaint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.find(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	var assignee *models.User
	if req.AssignedTo != "" {
		assigneeID, err := id.ParseUserID(req.AssignedTo)
		if err != nil {
			return nil, err
		}
		assignee, err = s.users.FindByID(ctx, assigneeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeValidation, "assignee not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignee")
		}
		if assignee.Role == models.RoleCitizen {
			return nil, dErrors.New(dErrors.CodeValidation, "complaints can only be assigned to staff")
		}
	}

	oldStatus := c.Status
	if req.Status != "" {
		c.Status = req.Status
	}
	if req.Priority != "" {
		c.Priority = req.Priority
	}
	reassigned := assignee != nil && (c.AssignedTo == nil || *c.AssignedTo != assignee.ID)
	if assignee != nil {
		c.AssignedTo = &assignee.ID
	}
	c.UpdatedAt = s.now()

	if err := s.store.Update(ctx, c); err != nil {
		return nil, s.translate(err, "failed to update complaint")
	}
	s.pusher.NotifyComplaintUpdate(summarize(c), ActionUpdated)

	if c.Status != oldStatus {
		comment := strings.TrimSpace(req.Comment)
		if comment == "" {
			comment = fmt.Sprintf("Status changed from %s to %s", oldStatus, c.Status)
		}
		s.logger.InfoContext(ctx, "complaint status changed",
			"complaint_id", c.ID.String(),
			"from", oldStatus,
			"to", c.Status,
			"comment", comment,
			"user_id", actor.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.alertReporter(ctx, c)
		s.notify(ctx, "complaint_updated_notification", notifmodels.CreateRequest{
			UserID:   c.ReportedBy,
			Type:     notifmodels.TypeComplaintUpdated,
			Title:    "Complaint Updated",
			Message:  fmt.Sprintf(`Your complaint "%s" is now %s`, c.Title, c.Status),
			Link:     link(c),
			Priority: notifmodels.PriorityMedium,
			Metadata: map[string]any{"complaintId": c.ID.String(), "status": string(c.Status)},
		})
	}
	if reassigned {
		s.notify(ctx, "complaint_assigned_notification", notifmodels.CreateRequest{
			UserID:   assignee.ID,
			Type:     notifmodels.TypeComplaintAssigned,
			Title:    "Complaint Assigned",
			Message:  fmt.Sprintf(`You have been assigned "%s"`, c.Title),
			Link:     link(c),
			Priority: notifmodels.PriorityHigh,
			Metadata: map[string]any{"complaintId": c.ID.String(), "priority": string(c.Priority)},
		})
	}
	return c, nil
}

// Resolve closes a complaint with a resolution note and notifies the reporter.
func (s *Service) Resolve(ctx context.Context, complaintID id.ComplaintID, actor id.UserID, req ResolveRequest) (*models.Complaint, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "resolution description is required")
	}
	c, err := s.find(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c.Status = models.StatusResolved
	c.Resolution = &models.Resolution{
		Description: description,
		ResolvedBy:  actor,
		ResolvedAt:  now,
	}
	c.UpdatedAt = now
	if err := s.store.Update(ctx, c); err != nil {
		return nil, s.translate(err, "failed to resolve complaint")
	}

	s.pusher.NotifyComplaintUpdate(summarize(c), ActionResolved)
	s.logger.InfoContext(ctx, "complaint resolved",
		"complaint_id", c.ID.String(),
		"user_id", actor.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.alertReporter(ctx, c)
	s.notify(ctx, "complaint_resolved_notification", notifmodels.CreateRequest{
		UserID:   c.ReportedBy,
		Type:     notifmodels.TypeComplaintResolved,
		Title:    "Complaint Resolved",
		Message:  fmt.Sprintf(`Your complaint "%s" has been resolved`, c.Title),
		Link:     link(c),
		Priority: notifmodels.PriorityMedium,
		Metadata: map[string]any{"complaintId": c.ID.String()},
	})
	return c, nil
}

func (s *Service) find(ctx context.Context, complaintID id.ComplaintID) (*models.Complaint, error) {
	c, err := s.store.FindByID(ctx, complaintID)
	if err != nil {
		return nil, s.translate(err, "failed to load complaint")
	}
	return c, nil
}

func (s *Service) translate(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "complaint not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// notify stores the in-app notification in the background so the response
// never waits on the insert and a cancelled request cannot lose it.
func (s *Service) notify(ctx context.Context, task string, req notifmodels.CreateRequest) {
	if s.notifier == nil {
		return
	}
	s.runner.Go(ctx, task, func(ctx context.Context) error {
		if n := s.notifier.Notify(ctx, req); n == nil {
			return fmt.Errorf("%s notification for %s not stored", req.Type, req.UserID)
		}
		return nil
	})
}

// alertReporter sends the status email and SMS in the background. The
// reporter is looked up inside each task so the request is never held up by
// the directory or the providers.
func (s *Service) alertReporter(ctx context.Context, c *models.Complaint) {
	info := email.ComplaintInfo{
		ID:       c.ID.String(),
		Title:    c.Title,
		Status:   string(c.Status),
		Category: string(c.Category),
		Assigned: c.AssignedTo != nil,
	}
	if c.Resolution != nil {
		info.Resolution = c.Resolution.Description
	}
	reporterID := c.ReportedBy

	s.runner.Go(ctx, "complaint_status_email", func(ctx context.Context) error {
		reporter, err := s.users.FindByID(ctx, reporterID)
		if err != nil {
			return fmt.Errorf("load reporter: %w", err)
		}
		if reporter.Email == "" {
			return nil
		}
		msg, err := email.ComplaintStatusEmail(info, email.Recipient{
			Name:  reporter.Name,
			Email: reporter.Email,
			Role:  string(reporter.Role),
		}, s.now())
		if err != nil {
			return fmt.Errorf("render status email: %w", err)
		}
		if res := s.mailer.Send(ctx, msg); !res.Success {
			return errors.New(res.Error)
		}
		return nil
	})

	s.runner.Go(ctx, "complaint_status_sms", func(ctx context.Context) error {
		reporter, err := s.users.FindByID(ctx, reporterID)
		if err != nil {
			return fmt.Errorf("load reporter: %w", err)
		}
		if reporter.Phone == "" {
			return nil
		}
		if res := s.texter.Send(ctx, reporter.Phone, sms.ComplaintStatusText(info.Title, info.Status)); !res.Success {
			return errors.New(res.Error)
		}
		return nil
	})
}

func summarize(c *models.Complaint) push.ComplaintSummary {
	return push.ComplaintSummary{
		ID:         c.ID.String(),
		Title:      c.Title,
		Category:   string(c.Category),
		Priority:   string(c.Priority),
		Status:     string(c.Status),
		ReportedBy: c.ReportedBy.String(),
	}
}

func link(c *models.Complaint) string {
	return "/complaints/" + c.ID.String()
}
