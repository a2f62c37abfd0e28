package memory

import (
	"context"
	"slices"
	"sync"

	audit "civicdesk/pkg/platform/audit"
)

// InMemoryStore keeps entries in append order. Used when no database is configured and in tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns matching entries newest first, plus the total match count.
func (s *InMemoryStore) List(_ context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	matched := make([]audit.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b audit.Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

// Len is the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
