package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
)

func TestResourceUtilization(t *testing.T) {
	tests := []struct {
		name     string
		capacity float64
		usage    float64
		want     float64
	}{
		{"critical", 1000, 950, 95},
		{"high", 1000, 850, 85},
		{"half", 200, 100, 50},
		{"zero capacity", 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resource{Capacity: Measure{Value: tt.capacity}, CurrentUsage: Measure{Value: tt.usage}}
			assert.InDelta(t, tt.want, r.UtilizationPercent(), 0.0001)
		})
	}
}

func TestResourceMaintenanceDue(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)
	r := Resource{Status: ResourceActive, NextMaintenance: &tomorrow}

	assert.True(t, r.MaintenanceDue(now, tomorrow))
	assert.False(t, r.MaintenanceDue(now, tomorrow.Add(-time.Second)))

	r.Status = ResourceMaintenance
	assert.False(t, r.MaintenanceDue(now, tomorrow))

	r = Resource{Status: ResourceActive}
	assert.False(t, r.MaintenanceDue(now, tomorrow))
}

func TestNewComplaint(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	reporter := id.NewUserID()

	c, err := NewComplaint("  No water supply ", "Since Monday", CategoryWater, "Ward 3", reporter, now)
	require.NoError(t, err)
	assert.Equal(t, "No water supply", c.Title)
	assert.Equal(t, PriorityMedium, c.Priority)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, 3, c.DaysOpen(now.Add(3*24*time.Hour+time.Hour)))

	_, err = NewComplaint("", "x", CategoryWater, "", reporter, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = NewComplaint("t", "x", Category("roads"), "", reporter, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = NewComplaint("t", "x", CategoryWater, "", id.UserID{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
