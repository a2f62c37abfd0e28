// Package report computes resource health scores and renders the monthly
// statistics report.
package report

import (
	"math"
	"strings"
	"time"

	"civicdesk/internal/directory/models"
	id "civicdesk/pkg/domain"
)

// HealthStatus buckets a health score.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Health is the scored condition of one resource.
type Health struct {
	ResourceID      id.ResourceID       `json:"resourceId"`
	Name            string              `json:"name"`
	Type            models.ResourceType `json:"type"`
	Score           int                 `json:"score"`
	Status          HealthStatus        `json:"status"`
	Issues          []string            `json:"issues"`
	UtilizationRate float64             `json:"utilizationRate"`
	Recommendations []string            `json:"recommendations"`
}

// Utilization thresholds in percent.
const (
	CriticalUtilization = 90.0
	HighUtilization     = 75.0
)

// HealthScore starts at 100 and subtracts penalties for utilization,
// maintenance timing and status. An inactive resource scores zero.
func HealthScore(r *models.Resource, now time.Time) Health {
	score := 100
	issues := make([]string, 0)
	util := r.UtilizationPercent()

	switch {
	case util > CriticalUtilization:
		score -= 30
		issues = append(issues, "Critical: Near capacity limit")
	case util > HighUtilization:
		score -= 15
		issues = append(issues, "Warning: High utilization")
	}

	if r.NextMaintenance != nil {
		days := r.NextMaintenance.Sub(now).Hours() / 24
		switch {
		case days < 0:
			score -= 25
			issues = append(issues, "Critical: Maintenance overdue")
		case days < 7:
			score -= 10
			issues = append(issues, "Warning: Maintenance due soon")
		}
	}

	switch r.Status {
	case models.ResourceCritical:
		score -= 40
		issues = append(issues, "Critical: Resource marked as critical")
	case models.ResourceMaintenance:
		score -= 20
		issues = append(issues, "Info: Under maintenance")
	case models.ResourceInactive:
		score = 0
		issues = append(issues, "Critical: Resource inactive")
	}

	return Health{
		ResourceID:      r.ID,
		Name:            r.Name,
		Type:            r.Type,
		Score:           max(0, score),
		Status:          statusFor(score),
		Issues:          issues,
		UtilizationRate: math.Round(util*100) / 100,
		Recommendations: recommendations(score, issues, util),
	}
}

func statusFor(score int) HealthStatus {
	switch {
	case score >= 80:
		return HealthHealthy
	case score >= 50:
		return HealthWarning
	}
	return HealthCritical
}

func recommendations(score int, issues []string, util float64) []string {
	out := make([]string, 0)
	if util > CriticalUtilization {
		out = append(out, "Consider increasing capacity or optimizing usage")
	}
	for _, issue := range issues {
		if strings.Contains(issue, "Maintenance") {
			out = append(out, "Schedule maintenance immediately")
			break
		}
	}
	if score < 50 {
		out = append(out, "Immediate attention required - escalate to admin")
	}
	if util > HighUtilization && util <= CriticalUtilization {
		out = append(out, "Monitor closely and plan for capacity expansion")
	}
	return out
}
