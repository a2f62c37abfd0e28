package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "civicdesk/pkg/domain"
)

func TestFilter_Normalize(t *testing.T) {
	f := Filter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 500}.Normalize()
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 200, f.Offset())
}

func TestFilter_Matches(t *testing.T) {
	actor := id.NewUserID()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	entry := Entry{
		UserID:       actor,
		Action:       ActionUpdate,
		ResourceType: ResourceComplaint,
		ResourceID:   "c-1",
		Timestamp:    now,
	}
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"action match", Filter{Action: ActionUpdate}, true},
		{"action mismatch", Filter{Action: ActionDelete}, false},
		{"resource match", Filter{ResourceType: ResourceComplaint, ResourceID: "c-1"}, true},
		{"resource id mismatch", Filter{ResourceID: "c-2"}, false},
		{"other user", Filter{UserID: id.NewUserID()}, false},
		{"inside range", Filter{From: &before, To: &after}, true},
		{"after range", Filter{To: &before}, false},
		{"before range", Filter{From: &after}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(entry))
		})
	}
}

func TestEnums(t *testing.T) {
	assert.True(t, ActionApprove.IsValid())
	assert.False(t, Action("PATCH").IsValid())
	assert.True(t, ResourceUsageLog.IsValid())
	assert.False(t, ResourceType("Invoice").IsValid())
	assert.Equal(t, 3, TotalPages(41, 20))
	assert.Equal(t, 0, TotalPages(0, 20))
}
