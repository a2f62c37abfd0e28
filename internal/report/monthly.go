package report

import (
	"context"
	"math"
	"time"

	"civicdesk/internal/directory/models"
)

// ComplaintSummary is the complaints block of a monthly report.
type ComplaintSummary struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	InProgress     int     `json:"inProgress"`
	Resolved       int     `json:"resolved"`
	Rejected       int     `json:"rejected"`
	ResolutionRate float64 `json:"resolutionRate"`
}

// UsageTotal is one resource type's usage over the period.
type UsageTotal struct {
	Type  models.ResourceType `json:"type"`
	Total float64             `json:"total"`
	Unit  string              `json:"unit"`
}

// Issue is one entry of the top issues list.
type Issue struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// CategoryCount keeps category order stable in the rendered report.
type CategoryCount struct {
	Category models.Category `json:"category"`
	Count    int             `json:"count"`
}

// MonthlyData is everything the monthly report renders.
type MonthlyData struct {
	Period     string           `json:"period"`
	MonthLabel string           `json:"monthLabel"`
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Complaints ComplaintSummary `json:"complaints"`
	ByCategory []CategoryCount  `json:"complaintsByCategory"`
	Resources  []UsageTotal     `json:"resources"`
	TopIssues  []Issue          `json:"topIssues"`
}

// PreviousMonth returns the calendar month before now as [from, to).
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return to.AddDate(0, -1, 0), to
}

var categoryOrder = []models.Category{
	models.CategoryWater,
	models.CategoryElectricity,
	models.CategoryWaste,
	models.CategoryInfrastructure,
	models.CategoryOther,
}

// BuildMonthly shapes directory statistics into report data.
func BuildMonthly(stats *models.MonthlyStats, usage map[models.ResourceType]float64) MonthlyData {
	data := MonthlyData{
		Period:     stats.From.Format("2006-01-02") + " to " + stats.To.AddDate(0, 0, -1).Format("2006-01-02"),
		MonthLabel: stats.From.Format("January 2006"),
		From:       stats.From,
		To:         stats.To,
		Complaints: ComplaintSummary{
			Total:      stats.Total,
			Pending:    stats.Pending,
			InProgress: stats.InProgress,
			Resolved:   stats.Resolved,
			Rejected:   stats.Rejected,
		},
		ByCategory: make([]CategoryCount, 0, len(categoryOrder)),
		Resources:  make([]UsageTotal, 0, len(models.ResourceTypes)),
		TopIssues:  make([]Issue, 0, len(stats.TopIssues)),
	}
	if stats.Total > 0 {
		rate := float64(stats.Resolved) / float64(stats.Total) * 100
		data.Complaints.ResolutionRate = math.Round(rate*100) / 100
	}
	for _, c := range categoryOrder {
		if n := stats.ByCategory[c]; n > 0 {
			data.ByCategory = append(data.ByCategory, CategoryCount{Category: c, Count: n})
		}
	}
	for _, t := range models.ResourceTypes {
		data.Resources = append(data.Resources, UsageTotal{Type: t, Total: usage[t], Unit: t.Unit()})
	}
	for _, c := range stats.TopIssues {
		data.TopIssues = append(data.TopIssues, Issue{
			Title:    c.Title,
			Category: string(c.Category),
			Status:   string(c.Status),
			Priority: string(c.Priority),
		})
	}
	return data
}

// StatsSource supplies the raw numbers for a period.
type StatsSource interface {
	MonthlyStats(ctx context.Context, from, to time.Time) (*models.MonthlyStats, error)
}

// UsageSource supplies usage totals for a period.
type UsageSource interface {
	UsageTotals(ctx context.Context, from, to time.Time) (map[models.ResourceType]float64, error)
}

// CollectMonthly gathers and shapes the statistics for [from, to).
func CollectMonthly(ctx context.Context, complaints StatsSource, usage UsageSource, from, to time.Time) (MonthlyData, error) {
	stats, err := complaints.MonthlyStats(ctx, from, to)
	if err != nil {
		return MonthlyData{}, err
	}
	totals, err := usage.UsageTotals(ctx, from, to)
	if err != nil {
		return MonthlyData{}, err
	}
	return BuildMonthly(stats, totals), nil
}
