package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"civicdesk/internal/directory/models"
)

func TestHealthScore(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	in := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	tests := []struct {
		name   string
		usage  float64
		status models.ResourceStatus
		next   *time.Time
		score  int
		health HealthStatus
		issues []string
		advice []string
	}{
		{
			name:   "healthy",
			usage:  500,
			status: models.ResourceActive,
			next:   in(30 * 24 * time.Hour),
			score:  100,
			health: HealthHealthy,
			issues: []string{},
			advice: []string{},
		},
		{
			name:   "near capacity",
			usage:  950,
			status: models.ResourceActive,
			score:  70,
			health: HealthWarning,
			issues: []string{"Critical: Near capacity limit"},
			advice: []string{"Consider increasing capacity or optimizing usage"},
		},
		{
			name:   "high utilization and maintenance soon",
			usage:  800,
			status: models.ResourceActive,
			next:   in(3 * 24 * time.Hour),
			score:  75,
			health: HealthWarning,
			issues: []string{"Warning: High utilization", "Warning: Maintenance due soon"},
			advice: []string{"Schedule maintenance immediately", "Monitor closely and plan for capacity expansion"},
		},
		{
			name:   "critical and overdue",
			usage:  950,
			status: models.ResourceCritical,
			next:   in(-24 * time.Hour),
			score:  5,
			health: HealthCritical,
			issues: []string{"Critical: Near capacity limit", "Critical: Maintenance overdue", "Critical: Resource marked as critical"},
			advice: []string{
				"Consider increasing capacity or optimizing usage",
				"Schedule maintenance immediately",
				"Immediate attention required - escalate to admin",
			},
		},
		{
			name:   "inactive",
			usage:  100,
			status: models.ResourceInactive,
			score:  0,
			health: HealthCritical,
			issues: []string{"Critical: Resource inactive"},
			advice: []string{"Immediate attention required - escalate to admin"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &models.Resource{
				Name:            "Tank A",
				Type:            models.ResourceWater,
				Capacity:        models.Measure{Value: 1000, Unit: "liters"},
				CurrentUsage:    models.Measure{Value: tt.usage, Unit: "liters"},
				Status:          tt.status,
				NextMaintenance: tt.next,
			}
			got := HealthScore(r, now)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.health, got.Status)
			assert.Equal(t, tt.issues, got.Issues)
			assert.Equal(t, tt.advice, got.Recommendations)
			assert.InDelta(t, tt.usage/10, got.UtilizationRate, 0.001)
		})
	}
}
