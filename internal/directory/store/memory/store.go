// Package memory provides map-backed directory stores for development and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"civicdesk/internal/directory/models"
	id "civicdesk/pkg/domain"
	"civicdesk/pkg/platform/sentinel"
)

// Users is an in-memory user directory.
type Users struct {
	mu    sync.RWMutex
	users map[id.UserID]models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[id.UserID]models.User)}
}

func (s *Users) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *Users) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

// ListByRoles returns active users holding any of roles, oldest account first.
func (s *Users) ListByRoles(_ context.Context, roles ...models.Role) ([]*models.User, error) {
	s.mu.RLock()
	out := make([]*models.User, 0)
	for _, u := range s.users {
		if u.IsActive && slices.Contains(roles, u.Role) {
			out = append(out, &u)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

// Resources is an in-memory resource registry with its usage logs.
type Resources struct {
	mu        sync.RWMutex
	resources map[id.ResourceID]models.Resource
	usage     []models.UsageLog
}

func NewResources() *Resources {
	return &Resources{resources: make(map[id.ResourceID]models.Resource)}
}

func (s *Resources) Save(_ context.Context, r *models.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.ID] = cloneResource(*r)
	return nil
}

func (s *Resources) FindByID(_ context.Context, resourceID id.ResourceID) (*models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[resourceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneResource(r)
	return &out, nil
}

func (s *Resources) ListAll(_ context.Context) ([]*models.Resource, error) {
	return s.filter(func(*models.Resource) bool { return true }), nil
}

// ListDueForMaintenance returns resources whose next maintenance falls in
// [from, to], excluding ones already under maintenance.
func (s *Resources) ListDueForMaintenance(_ context.Context, from, to time.Time) ([]*models.Resource, error) {
	return s.filter(func(r *models.Resource) bool { return r.MaintenanceDue(from, to) }), nil
}

func (s *Resources) filter(keep func(*models.Resource) bool) []*models.Resource {
	s.mu.RLock()
	out := make([]*models.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		r := cloneResource(r)
		if keep(&r) {
			out = append(out, &r)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Resource) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// LogUsage appends a reading and moves the resource's current usage to it.
func (s *Resources) LogUsage(_ context.Context, entry models.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[entry.ResourceID]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.CurrentUsage = entry.Usage
	r.UsageUpdatedAt = entry.Timestamp
	r.UpdatedAt = entry.Timestamp
	s.resources[r.ID] = r
	s.usage = append(s.usage, entry)
	return nil
}

// UsageTotals sums usage logged in [from, to) per resource type.
func (s *Resources) UsageTotals(_ context.Context, from, to time.Time) (map[models.ResourceType]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[models.ResourceType]float64)
	for _, u := range s.usage {
		if !u.Timestamp.Before(from) && u.Timestamp.Before(to) {
			totals[u.ResourceType] += u.Usage.Value
		}
	}
	return totals, nil
}

func cloneResource(r models.Resource) models.Resource {
	if r.LastMaintenance != nil {
		t := *r.LastMaintenance
		r.LastMaintenance = &t
	}
	if r.NextMaintenance != nil {
		t := *r.NextMaintenance
		r.NextMaintenance = &t
	}
	return r
}

// Complaints is an in-memory complaint collection.
type Complaints struct {
	mu         sync.RWMutex
	complaints map[id.ComplaintID]models.Complaint
}

func NewComplaints() *Complaints {
	return &Complaints{complaints: make(map[id.ComplaintID]models.Complaint)}
}

func (s *Complaints) Create(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.complaints[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.complaints[c.ID] = cloneComplaint(*c)
	return nil
}

func (s *Complaints) FindByID(_ context.Context, complaintID id.ComplaintID) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[complaintID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneComplaint(c)
	return &out, nil
}

func (s *Complaints) Update(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.complaints[c.ID] = cloneComplaint(*c)
	return nil
}

// ListOverdue returns complaints in statuses created at or before createdBefore,
// oldest first.
func (s *Complaints) ListOverdue(_ context.Context, statuses []models.Status, createdBefore time.Time) ([]*models.Complaint, error) {
	s.mu.RLock()
	out := make([]*models.Complaint, 0)
	for _, c := range s.complaints {
		if slices.Contains(statuses, c.Status) && !c.CreatedAt.After(createdBefore) {
			c := cloneComplaint(c)
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Complaint) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// MonthlyStats tallies complaints created in [from, to). Usage totals are left
// to the resource store.
func (s *Complaints) MonthlyStats(_ context.Context, from, to time.Time) (*models.MonthlyStats, error) {
	stats := &models.MonthlyStats{From: from, To: to, ByCategory: make(map[models.Category]int)}
	var inPeriod []models.Complaint

	s.mu.RLock()
	for _, c := range s.complaints {
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		stats.Tally(&c)
		inPeriod = append(inPeriod, cloneComplaint(c))
	}
	s.mu.RUnlock()

	slices.SortFunc(inPeriod, func(a, b models.Complaint) int {
		if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	stats.TopIssues = inPeriod[:min(len(inPeriod), models.TopIssueLimit)]
	return stats, nil
}

func cloneComplaint(c models.Complaint) models.Complaint {
	if c.AssignedTo != nil {
		a := *c.AssignedTo
		c.AssignedTo = &a
	}
	if c.Resolution != nil {
		r := *c.Resolution
		c.Resolution = &r
	}
	return c
}
