package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"civicdesk/internal/notification/models"
	id "civicdesk/pkg/domain"
	"civicdesk/pkg/platform/sentinel"
)

// InMemory keeps notifications in a map. Used when no database is configured and in tests.
type InMemory struct {
	mu    sync.RWMutex
	items map[id.NotificationID]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[id.NotificationID]*models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[n.ID] = clone(n)
	return nil
}

// CreateBatch inserts all notifications or none.
func (s *InMemory) CreateBatch(_ context.Context, ns []*models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range ns {
		if _, exists := s.items[n.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, n := range ns {
		s.items[n.ID] = clone(n)
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, nid id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[nid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(n), nil
}

// ListByUser returns a page of the user's notifications newest first, with the
// total match count. Read notifications at or before filter.VisibleAfter are hidden.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID, filter models.ListFilter) ([]*models.Notification, int, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	matched := make([]*models.Notification, 0)
	for _, n := range s.items {
		if !s.visible(n, userID, filter.VisibleAfter) {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		matched = append(matched, clone(n))
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (s *InMemory) CountUnread(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead flips one notification owned by userID to read and returns it.
func (s *InMemory) MarkRead(_ context.Context, nid id.NotificationID, userID id.UserID, at time.Time) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[nid]
	if !ok || n.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	n.MarkRead(at)
	return clone(n), nil
}

// MarkAllRead flips every unread notification of userID and returns how many changed.
func (s *InMemory) MarkAllRead(_ context.Context, userID id.UserID, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, n := range s.items {
		if n.UserID == userID && n.MarkRead(at) {
			changed++
		}
	}
	return changed, nil
}

func (s *InMemory) Delete(_ context.Context, nid id.NotificationID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[nid]
	if !ok || n.UserID != userID {
		return sentinel.ErrNotFound
	}
	delete(s.items, nid)
	return nil
}

// DeleteReadBefore removes read notifications whose ReadAt is before cutoff.
func (s *InMemory) DeleteReadBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for nid, n := range s.items {
		if n.IsRead && n.ReadAt != nil && n.ReadAt.Before(cutoff) {
			delete(s.items, nid)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemory) visible(n *models.Notification, userID id.UserID, after time.Time) bool {
	if n.UserID != userID {
		return false
	}
	if after.IsZero() || !n.IsRead || n.ReadAt == nil {
		return true
	}
	return n.ReadAt.After(after)
}

func clone(n *models.Notification) *models.Notification {
	c := *n
	c.Metadata = maps.Clone(n.Metadata)
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	return &c
}
