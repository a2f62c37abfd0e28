package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"civicdesk/internal/notification/metrics"
	"civicdesk/internal/notification/models"
	"civicdesk/internal/notification/store/memory"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
)

type recordingPusher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPusher) NotifyUser(userID, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, userID+"/"+event)
}

type failingStore struct {
	*memory.InMemory
}

func (failingStore) Create(context.Context, *models.Notification) error {
	return errors.New("connection refused")
}

func (failingStore) CreateBatch(context.Context, []*models.Notification) error {
	return errors.New("connection refused")
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *memory.InMemory
	pusher  *recordingPusher
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s.store = memory.NewInMemory()
	s.pusher = &recordingPusher{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store,
		WithPusher(s.pusher),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ServiceSuite) create(userID id.UserID) *models.Notification {
	n, err := s.service.Create(s.ctx, models.CreateRequest{
		UserID:  userID,
		Type:    models.TypeComplaintUpdated,
		Title:   "Complaint Updated",
		Message: `Your complaint "Broken pipe" is now in-progress`,
	})
	s.Require().NoError(err)
	return n
}

func (s *ServiceSuite) TestCreate() {
	s.Run("stores, counts and pushes", func() {
		userID := id.NewUserID()
		n := s.create(userID)
		s.Equal(models.PriorityMedium, n.Priority)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Created.WithLabelValues(string(models.TypeComplaintUpdated))))
		s.Contains(s.pusher.events, userID.String()+"/"+EventNotificationNew)
	})

	s.Run("rejects missing recipient", func() {
		_, err := s.service.Create(s.ctx, models.CreateRequest{Type: models.TypeSystemAlert, Title: "t", Message: "m"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("validates a batch before storing any of it", func() {
		owner := id.NewUserID()
		_, err := s.service.CreateMany(s.ctx, []models.CreateRequest{
			{UserID: owner, Type: models.TypeSystemAlert, Title: "ok", Message: "ok"},
			{UserID: owner, Type: "bogus", Title: "bad", Message: "bad"},
		})
		s.Require().Error(err)
		res, err := s.service.ListForUser(s.ctx, owner, models.ListFilter{})
		s.Require().NoError(err)
		s.Zero(res.Total)
	})
}

func (s *ServiceSuite) TestNotifySwallowsStoreFailures() {
	svc := New(failingStore{memory.NewInMemory()}, WithMetrics(s.metrics))
	req := models.CreateRequest{UserID: id.NewUserID(), Type: models.TypeSystemAlert, Title: "t", Message: "m"}

	s.NotPanics(func() {
		s.Nil(svc.Notify(s.ctx, req))
		s.Zero(svc.NotifyMany(s.ctx, []models.CreateRequest{req, req}))
	})
	s.Equal(2.0, testutil.ToFloat64(s.metrics.CreateFailures))
}

func (s *ServiceSuite) TestListForUser() {
	owner := id.NewUserID()
	first := s.create(owner)
	s.now = s.now.Add(time.Minute)
	second := s.create(owner)

	s.Run("returns unread count and page counts", func() {
		res, err := s.service.ListForUser(s.ctx, owner, models.ListFilter{PageSize: 1})
		s.Require().NoError(err)
		s.Equal(2, res.Total)
		s.Equal(2, res.UnreadCount)
		s.Equal(2, res.TotalPages)
		s.Require().Len(res.Notifications, 1)
		s.Equal(second.ID, res.Notifications[0].ID)
	})

	s.Run("hides read notifications past retention before any sweep", func() {
		_, err := s.service.MarkRead(s.ctx, first.ID, owner)
		s.Require().NoError(err)

		s.now = s.now.Add(31 * 24 * time.Hour)
		res, err := s.service.ListForUser(s.ctx, owner, models.ListFilter{})
		s.Require().NoError(err)
		s.Equal(1, res.Total)
		s.Equal(second.ID, res.Notifications[0].ID)
		s.Equal(1, res.UnreadCount)
	})
}

func (s *ServiceSuite) TestMarkRead() {
	owner := id.NewUserID()
	n := s.create(owner)

	s.Run("other users get not found and state is unchanged", func() {
		_, err := s.service.MarkRead(s.ctx, n.ID, id.NewUserID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		res, err := s.service.ListForUser(s.ctx, owner, models.ListFilter{})
		s.Require().NoError(err)
		s.False(res.Notifications[0].IsRead)
	})

	s.Run("idempotent and keeps the first read time", func() {
		first, err := s.service.MarkRead(s.ctx, n.ID, owner)
		s.Require().NoError(err)
		s.True(first.IsRead)
		s.Require().NotNil(first.ReadAt)

		s.now = s.now.Add(time.Hour)
		again, err := s.service.MarkRead(s.ctx, n.ID, owner)
		s.Require().NoError(err)
		s.Equal(*first.ReadAt, *again.ReadAt)
	})
}

func (s *ServiceSuite) TestMarkAllRead() {
	owner := id.NewUserID()
	s.create(owner)
	s.create(owner)

	changed, err := s.service.MarkAllRead(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(2, changed)

	res, err := s.service.ListForUser(s.ctx, owner, models.ListFilter{})
	s.Require().NoError(err)
	s.Zero(res.UnreadCount)
	for _, n := range res.Notifications {
		s.Require().NotNil(n.ReadAt)
		s.Equal(s.now, *n.ReadAt)
	}

	changed, err = s.service.MarkAllRead(s.ctx, owner)
	s.Require().NoError(err)
	s.Zero(changed)
}

func (s *ServiceSuite) TestDelete() {
	owner := id.NewUserID()
	n := s.create(owner)

	err := s.service.Delete(s.ctx, n.ID, id.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Require().NoError(s.service.Delete(s.ctx, n.ID, owner))
	err = s.service.Delete(s.ctx, n.ID, owner)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestPurgeExpired() {
	owner := id.NewUserID()
	old := s.create(owner)
	_, err := s.service.MarkRead(s.ctx, old.ID, owner)
	s.Require().NoError(err)
	s.create(owner)

	s.now = s.now.Add(61 * 24 * time.Hour)
	removed, err := s.service.PurgeExpired(s.ctx, 60*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, removed)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Purged))

	_, err = s.service.PurgeExpired(s.ctx, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
