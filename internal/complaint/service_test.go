package complaint

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserDirectory,Pusher,Mailer,Texter,Notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"civicdesk/internal/complaint/mocks"
	"civicdesk/internal/directory/models"
	"civicdesk/internal/directory/store/memory"
	"civicdesk/internal/dispatch"
	"civicdesk/internal/dispatch/email"
	"civicdesk/internal/dispatch/push"
	notifmodels "civicdesk/internal/notification/models"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/requestcontext"
)

// syncRunner runs background tasks inline, detached the way dispatch.Runner
// detaches them, and remembers their errors.
type syncRunner struct {
	mu   sync.Mutex
	errs map[string]error
}

func (r *syncRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	err := fn(context.WithoutCancel(ctx))
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs == nil {
		r.errs = make(map[string]error)
	}
	r.errs[name] = err
}

// =============================================================================
// Complaint Service Test Suite
// =============================================================================
// Stores are the in-memory directory stores; every outbound channel is a
// gomock mock, so an unexpected push, email, SMS or notification fails the test.

type ComplaintServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	complaints *memory.Complaints
	users      *memory.Users
	pusher     *mocks.MockPusher
	mailer     *mocks.MockMailer
	texter     *mocks.MockTexter
	notifier   *mocks.MockNotifier
	runner     *syncRunner
	service    *Service
	now        time.Time
	ctx        context.Context

	citizen *models.User
	officer *models.User
}

func TestComplaintServiceSuite(t *testing.T) {
	suite.Run(t, new(ComplaintServiceSuite))
}

func (s *ComplaintServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.complaints = memory.NewComplaints()
	s.users = memory.NewUsers()
	s.pusher = mocks.NewMockPusher(s.ctrl)
	s.mailer = mocks.NewMockMailer(s.ctrl)
	s.texter = mocks.NewMockTexter(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.runner = &syncRunner{}
	s.now = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	s.ctx = context.Background()

	s.citizen = s.saveUser(models.RoleCitizen, "Asha", "+15551234567")
	s.officer = s.saveUser(models.RoleOfficer, "Ravi", "")

	s.service = New(s.complaints, s.users, s.pusher, s.mailer, s.texter,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
		WithNotifier(s.notifier),
		WithRunner(s.runner),
	)
}

func (s *ComplaintServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ComplaintServiceSuite) saveUser(role models.Role, name, phone string) *models.User {
	u := &models.User{
		ID:       id.NewUserID(),
		Name:     name,
		Email:    strings.ToLower(name) + "@village.test",
		Phone:    phone,
		Role:     role,
		IsActive: true,
	}
	s.Require().NoError(s.users.Save(s.ctx, u))
	return u
}

func (s *ComplaintServiceSuite) seedComplaint() *models.Complaint {
	c, err := models.NewComplaint("Broken pipe", "Water leaking on Main St", models.CategoryWater, "Main St", s.citizen.ID, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.complaints.Create(s.ctx, c))
	return c
}

func (s *ComplaintServiceSuite) TestCreate() {
	s.Run("pushes to staff rooms and stores no notifications", func() {
		var pushed push.ComplaintSummary
		s.pusher.EXPECT().NotifyNewComplaint(gomock.Any()).Do(func(c push.ComplaintSummary) {
			pushed = c
		})

		c, err := s.service.Create(s.ctx, s.citizen.ID, CreateRequest{
			Title:       "No water supply",
			Description: "Tap has been dry since morning",
			Category:    models.CategoryWater,
			Address:     "Ward 4",
		})
		s.Require().NoError(err)

		s.Equal(models.StatusPending, c.Status)
		s.Equal(models.PriorityMedium, c.Priority)
		s.Equal(s.citizen.ID, c.ReportedBy)
		s.Equal(s.now, c.CreatedAt)
		s.Equal(c.ID.String(), pushed.ID)
		s.Equal("water", pushed.Category)

		stored, err := s.complaints.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("No water supply", stored.Title)
	})

	s.Run("invalid category is a validation error", func() {
		_, err := s.service.Create(s.ctx, s.citizen.ID, CreateRequest{
			Title:       "Something",
			Description: "Something else",
			Category:    "roads",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ComplaintServiceSuite) TestUpdate_StatusChangeAlertsReporter() {
	c := s.seedComplaint()

	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionUpdated)
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg email.Message) dispatch.Result {
		s.Equal([]string{"asha@village.test"}, msg.To)
		s.Equal("Complaint Status Update: Broken pipe", msg.Subject)
		s.Contains(msg.Text, "Status: IN-PROGRESS")
		return dispatch.Succeeded("m-1")
	})
	s.texter.EXPECT().Send(gomock.Any(), "+15551234567", gomock.Any()).DoAndReturn(func(_ context.Context, _, body string) dispatch.Result {
		s.Contains(body, "status updated to IN-PROGRESS")
		return dispatch.Succeeded("SM1")
	})
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req notifmodels.CreateRequest) *notifmodels.Notification {
		s.Equal(s.citizen.ID, req.UserID)
		s.Equal(notifmodels.TypeComplaintUpdated, req.Type)
		s.Equal("/complaints/"+c.ID.String(), req.Link)
		return &notifmodels.Notification{}
	})

	updated, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{Status: models.StatusInProgress})
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, updated.Status)
	s.Equal(s.now, updated.UpdatedAt)
	s.NoError(s.runner.errs["complaint_status_email"])
	s.NoError(s.runner.errs["complaint_status_sms"])
}

func (s *ComplaintServiceSuite) TestUpdate_PriorityOnlyIsQuiet() {
	c := s.seedComplaint()
	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionUpdated)

	updated, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{Priority: models.PriorityHigh})
	s.Require().NoError(err)
	s.Equal(models.PriorityHigh, updated.Priority)
	s.Empty(s.runner.errs)
}

func (s *ComplaintServiceSuite) TestUpdate_AssignmentNotifiesAssignee() {
	c := s.seedComplaint()
	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionUpdated)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req notifmodels.CreateRequest) *notifmodels.Notification {
		s.Equal(s.officer.ID, req.UserID)
		s.Equal(notifmodels.TypeComplaintAssigned, req.Type)
		s.Equal(notifmodels.PriorityHigh, req.Priority)
		return &notifmodels.Notification{}
	})

	updated, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{AssignedTo: s.officer.ID.String()})
	s.Require().NoError(err)
	s.Require().NotNil(updated.AssignedTo)
	s.Equal(s.officer.ID, *updated.AssignedTo)

	s.Run("reassigning the same officer does not notify again", func() {
		s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionUpdated)
		_, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{AssignedTo: s.officer.ID.String()})
		s.NoError(err)
	})
}

func (s *ComplaintServiceSuite) TestUpdate_Rejections() {
	c := s.seedComplaint()

	s.Run("unknown complaint", func() {
		_, err := s.service.Update(s.ctx, id.NewComplaintID(), s.officer.ID, UpdateRequest{Status: models.StatusResolved})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("invalid status", func() {
		_, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{Status: "closed"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("citizen assignee", func() {
		_, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{AssignedTo: s.citizen.ID.String()})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("unknown assignee", func() {
		_, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{AssignedTo: id.NewUserID().String()})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("malformed assignee", func() {
		_, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{AssignedTo: "not-a-uuid"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	stored, err := s.complaints.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
	s.Nil(stored.AssignedTo)
}

func (s *ComplaintServiceSuite) TestResolve() {
	c := s.seedComplaint()

	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionResolved).Do(func(sum push.ComplaintSummary, _ string) {
		s.Equal("resolved", sum.Status)
	})
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg email.Message) dispatch.Result {
		s.Contains(msg.Text, "Resolution: Pipe replaced")
		return dispatch.Succeeded("m-2")
	})
	s.texter.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(dispatch.Succeeded("SM2"))
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req notifmodels.CreateRequest) *notifmodels.Notification {
		s.Equal(notifmodels.TypeComplaintResolved, req.Type)
		s.Equal(s.citizen.ID, req.UserID)
		return &notifmodels.Notification{}
	})

	resolved, err := s.service.Resolve(s.ctx, c.ID, s.officer.ID, ResolveRequest{Description: " Pipe replaced "})
	s.Require().NoError(err)
	s.Equal(models.StatusResolved, resolved.Status)
	s.Require().NotNil(resolved.Resolution)
	s.Equal("Pipe replaced", resolved.Resolution.Description)
	s.Equal(s.officer.ID, resolved.Resolution.ResolvedBy)
	s.Equal(s.now, resolved.Resolution.ResolvedAt)
}

func (s *ComplaintServiceSuite) TestResolve_RequiresDescription() {
	c := s.seedComplaint()
	_, err := s.service.Resolve(s.ctx, c.ID, s.officer.ID, ResolveRequest{Description: "  "})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ComplaintServiceSuite) TestDispatchFailureDoesNotFailTheUpdate() {
	c := s.seedComplaint()

	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionUpdated)
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(dispatch.Failed(errors.New("smtp down")))
	s.texter.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(dispatch.Failed(errors.New("twilio down")))
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{Status: models.StatusRejected})
	s.Require().NoError(err)
	s.EqualError(s.runner.errs["complaint_status_email"], "smtp down")
	s.EqualError(s.runner.errs["complaint_status_sms"], "twilio down")
	s.ErrorContains(s.runner.errs["complaint_updated_notification"], "not stored")
}

// contextNotifier fails like the Postgres store does once its context is done,
// and blocks until released so the test controls when the insert happens.
type contextNotifier struct {
	release   chan struct{}
	stored    chan notifmodels.CreateRequest
	requestID chan string
}

func (n *contextNotifier) Notify(ctx context.Context, req notifmodels.CreateRequest) *notifmodels.Notification {
	<-n.release
	if ctx.Err() != nil {
		return nil
	}
	n.requestID <- requestcontext.RequestID(ctx)
	n.stored <- req
	return &notifmodels.Notification{UserID: req.UserID, Type: req.Type}
}

func (s *ComplaintServiceSuite) TestNotificationOutlivesTheRequest() {
	notifier := &contextNotifier{
		release:   make(chan struct{}),
		stored:    make(chan notifmodels.CreateRequest, 1),
		requestID: make(chan string, 1),
	}
	runner := dispatch.NewRunner(dispatch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	users := mocks.NewMockUserDirectory(s.ctrl)
	users.EXPECT().FindByID(gomock.Any(), s.citizen.ID).Return(&models.User{ID: s.citizen.ID}, nil).Times(2)
	svc := New(s.complaints, users, s.pusher, s.mailer, s.texter,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
		WithNotifier(notifier),
		WithRunner(runner),
	)
	c := s.seedComplaint()
	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionResolved)

	reqCtx, cancel := context.WithCancel(requestcontext.WithRequestID(s.ctx, "req-resolve-1"))
	_, err := svc.Resolve(reqCtx, c.ID, s.officer.ID, ResolveRequest{Description: "Pipe replaced"})
	s.Require().NoError(err, "resolve returns while the notification insert is still pending")

	// The handler has written its response and the request context is gone.
	cancel()
	close(notifier.release)
	s.Require().NoError(runner.Wait(context.Background()))

	select {
	case req := <-notifier.stored:
		s.Equal(notifmodels.TypeComplaintResolved, req.Type)
		s.Equal(s.citizen.ID, req.UserID)
	default:
		s.Fail("notification was lost when the request ended")
	}
	s.Equal("req-resolve-1", <-notifier.requestID)
}

func (s *ComplaintServiceSuite) TestReporterWithoutPhoneGetsNoSMS() {
	reporter := s.saveUser(models.RoleCitizen, "Meera", "")
	c, err := models.NewComplaint("Streetlight out", "Dark lane", models.CategoryElectricity, "", reporter.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.complaints.Create(s.ctx, c))

	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionUpdated)
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(dispatch.Succeeded("m-3"))
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(&notifmodels.Notification{})

	_, err = s.service.Update(s.ctx, c.ID, s.officer.ID, UpdateRequest{Status: models.StatusInProgress})
	s.Require().NoError(err)
	s.NoError(s.runner.errs["complaint_status_sms"])
}

func (s *ComplaintServiceSuite) TestReporterLookupFailureIsContained() {
	users := mocks.NewMockUserDirectory(s.ctrl)
	users.EXPECT().FindByID(gomock.Any(), s.citizen.ID).Return(nil, errors.New("directory offline")).Times(2)
	svc := New(s.complaints, users, s.pusher, s.mailer, s.texter,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
		WithRunner(s.runner),
	)
	c := s.seedComplaint()
	s.pusher.EXPECT().NotifyComplaintUpdate(gomock.Any(), ActionResolved)

	_, err := svc.Resolve(s.ctx, c.ID, s.officer.ID, ResolveRequest{Description: "Fixed"})
	s.Require().NoError(err)
	s.ErrorContains(s.runner.errs["complaint_status_email"], "directory offline")
	s.ErrorContains(s.runner.errs["complaint_status_sms"], "directory offline")
}
