package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civicdesk/internal/directory/models"
	id "civicdesk/pkg/domain"
	"civicdesk/pkg/platform/sentinel"
)

type DirectoryStoreSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	users      *Users
	resources  *Resources
	complaints *Complaints
}

func TestDirectoryStoreSuite(t *testing.T) {
	suite.Run(t, new(DirectoryStoreSuite))
}

func (s *DirectoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	s.users = NewUsers()
	s.resources = NewResources()
	s.complaints = NewComplaints()
}

func (s *DirectoryStoreSuite) addUser(role models.Role, active bool, createdAt time.Time) *models.User {
	u := &models.User{
		ID:        id.NewUserID(),
		Name:      string(role),
		Email:     uuid.NewString() + "@village.test",
		Role:      role,
		IsActive:  active,
		CreatedAt: createdAt,
	}
	s.Require().NoError(s.users.Save(s.ctx, u))
	return u
}

func (s *DirectoryStoreSuite) addResource(name string, capacity, usage float64, next *time.Time, status models.ResourceStatus) *models.Resource {
	r := &models.Resource{
		ID:              id.NewResourceID(),
		Type:            models.ResourceWater,
		Name:            name,
		Capacity:        models.Measure{Value: capacity, Unit: "liters"},
		CurrentUsage:    models.Measure{Value: usage, Unit: "liters"},
		Status:          status,
		NextMaintenance: next,
		CreatedAt:       s.now,
		UpdatedAt:       s.now,
	}
	s.Require().NoError(s.resources.Save(s.ctx, r))
	return r
}

func (s *DirectoryStoreSuite) addComplaint(title string, status models.Status, priority models.Priority, createdAt time.Time) *models.Complaint {
	c, err := models.NewComplaint(title, "details", models.CategoryWater, "Main St", id.NewUserID(), createdAt)
	s.Require().NoError(err)
	c.Status = status
	c.Priority = priority
	s.Require().NoError(s.complaints.Create(s.ctx, c))
	return c
}

func (s *DirectoryStoreSuite) TestListByRoles() {
	admin := s.addUser(models.RoleAdmin, true, s.now.Add(-2*time.Hour))
	officer := s.addUser(models.RoleOfficer, true, s.now.Add(-time.Hour))
	s.addUser(models.RoleAdmin, false, s.now)
	s.addUser(models.RoleCitizen, true, s.now)

	s.Run("only active users in the given roles", func() {
		got, err := s.users.ListByRoles(s.ctx, models.RoleAdmin, models.RoleOfficer)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(admin.ID, got[0].ID)
		s.Equal(officer.ID, got[1].ID)
	})

	s.Run("no roles matches nobody", func() {
		got, err := s.users.ListByRoles(s.ctx)
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("find missing user", func() {
		_, err := s.users.FindByID(s.ctx, id.NewUserID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DirectoryStoreSuite) TestListDueForMaintenance() {
	tomorrow := s.now.Add(20 * time.Hour)
	later := s.now.Add(72 * time.Hour)
	due := s.addResource("Tank A", 1000, 100, &tomorrow, models.ResourceActive)
	s.addResource("Tank B", 1000, 100, &later, models.ResourceActive)
	s.addResource("Tank C", 1000, 100, &tomorrow, models.ResourceMaintenance)
	s.addResource("Tank D", 1000, 100, nil, models.ResourceActive)

	got, err := s.resources.ListDueForMaintenance(s.ctx, s.now, s.now.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(due.ID, got[0].ID)

	all, err := s.resources.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 4)
	s.Equal("Tank A", all[0].Name)
}

func (s *DirectoryStoreSuite) TestUsageTotals() {
	r := s.addResource("Tank A", 1000, 0, nil, models.ResourceActive)
	log := func(v float64, at time.Time) {
		s.Require().NoError(s.resources.LogUsage(s.ctx, models.UsageLog{
			ID:           uuid.New(),
			ResourceID:   r.ID,
			ResourceType: r.Type,
			Usage:        models.Measure{Value: v, Unit: "liters"},
			Timestamp:    at,
		}))
	}
	log(100, s.now.Add(-48*time.Hour))
	log(250, s.now.Add(-time.Hour))
	log(999, s.now.Add(time.Hour))

	totals, err := s.resources.UsageTotals(s.ctx, s.now.Add(-72*time.Hour), s.now)
	s.Require().NoError(err)
	s.InDelta(350, totals[models.ResourceWater], 0.001)

	current, err := s.resources.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.InDelta(999, current.CurrentUsage.Value, 0.001)

	err = s.resources.LogUsage(s.ctx, models.UsageLog{ResourceID: id.NewResourceID()})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *DirectoryStoreSuite) TestListOverdue() {
	cutoff := s.now.Add(-7 * 24 * time.Hour)
	old := s.addComplaint("Leaking pipe", models.StatusPending, models.PriorityMedium, cutoff.Add(-time.Hour))
	oldInProgress := s.addComplaint("Broken light", models.StatusInProgress, models.PriorityHigh, cutoff.Add(-time.Minute))
	s.addComplaint("Resolved long ago", models.StatusResolved, models.PriorityLow, cutoff.Add(-time.Hour))
	s.addComplaint("Fresh", models.StatusPending, models.PriorityLow, s.now)

	got, err := s.complaints.ListOverdue(s.ctx, models.OpenStatuses, cutoff)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(old.ID, got[0].ID)
	s.Equal(oldInProgress.ID, got[1].ID)
}

func (s *DirectoryStoreSuite) TestMonthlyStats() {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	s.addComplaint("A", models.StatusResolved, models.PriorityLow, from.Add(time.Hour))
	critical := s.addComplaint("B", models.StatusPending, models.PriorityCritical, from.Add(2*time.Hour))
	s.addComplaint("C", models.StatusInProgress, models.PriorityHigh, from.Add(3*time.Hour))
	s.addComplaint("outside", models.StatusPending, models.PriorityCritical, to)

	stats, err := s.complaints.MonthlyStats(s.ctx, from, to)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(1, stats.Resolved)
	s.Equal(1, stats.Pending)
	s.Equal(1, stats.InProgress)
	s.Equal(3, stats.ByCategory[models.CategoryWater])
	s.Require().Len(stats.TopIssues, 3)
	s.Equal(critical.ID, stats.TopIssues[0].ID)
}

func (s *DirectoryStoreSuite) TestComplaintUpdate() {
	c := s.addComplaint("Leaking pipe", models.StatusPending, models.PriorityMedium, s.now)
	c.Status = models.StatusInProgress
	s.Require().NoError(s.complaints.Update(s.ctx, c))

	got, err := s.complaints.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, got.Status)

	s.ErrorIs(s.complaints.Update(s.ctx, &models.Complaint{ID: id.NewComplaintID()}), sentinel.ErrNotFound)
	s.ErrorIs(s.complaints.Create(s.ctx, c), sentinel.ErrConflict)
}
