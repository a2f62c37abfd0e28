package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicdesk/internal/directory/models"
	"civicdesk/internal/dispatch/email"
	notifmodels "civicdesk/internal/notification/models"
	"civicdesk/internal/platform/config"
	"civicdesk/internal/report"
)

// Scan windows and thresholds.
const (
	MaintenanceWindow   = 24 * time.Hour
	OverdueAfter        = 7 * 24 * time.Hour
	CriticalUtilization = 90.0
)

// maintenanceCheck alerts every admin about each resource whose maintenance
// falls within the next day.
func (s *Scheduler) maintenanceCheck(ctx context.Context) error {
	const job = config.JobMaintenanceCheck
	now := s.now()
	resources, err := s.deps.Resources.ListDueForMaintenance(ctx, now, now.Add(MaintenanceWindow))
	if err != nil {
		return fmt.Errorf("list resources due for maintenance: %w", err)
	}
	if len(resources) == 0 {
		return nil
	}
	admins, err := usersByRoles(ctx, s.deps.Users, models.RoleAdmin)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range resources {
		for _, admin := range admins {
			key := DedupKey(job, r.ID.String()+"/"+admin.ID.String(), "maintenance_due", Day(now))
			sent, err := s.fanOut(ctx, job, key, 2*MaintenanceWindow, notifmodels.CreateRequest{
				UserID:   admin.ID,
				Type:     notifmodels.TypeResourceMaintenance,
				Title:    "Maintenance Due Tomorrow",
				Message:  fmt.Sprintf("Resource %q requires maintenance tomorrow", r.Name),
				Link:     "/resources/" + r.ID.String(),
				Priority: notifmodels.PriorityHigh,
				Metadata: map[string]any{
					"resourceId":   r.ID.String(),
					"resourceType": string(r.Type),
				},
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("notify %s about %s: %w", admin.ID, r.ID, err))
				continue
			}
			if !sent {
				continue
			}
			msg, err := email.MaintenanceDueEmail(admin.Email, email.ResourceLine{
				Name:      r.Name,
				Type:      string(r.Type),
				Scheduled: *r.NextMaintenance,
			}, now)
			s.mail(ctx, job, msg, err)
		}
	}
	return errors.Join(errs...)
}

// overdueComplaints alerts admins and officers about complaints left open for
// more than a week.
func (s *Scheduler) overdueComplaints(ctx context.Context) error {
	const job = config.JobOverdueComplaints
	now := s.now()
	complaints, err := s.deps.Complaints.ListOverdue(ctx, models.OpenStatuses, now.Add(-OverdueAfter))
	if err != nil {
		return fmt.Errorf("list overdue complaints: %w", err)
	}
	if len(complaints) == 0 {
		return nil
	}
	staff, err := usersByRoles(ctx, s.deps.Users, models.RoleAdmin, models.RoleOfficer)
	if err != nil {
		return err
	}

	var errs []error
	for _, c := range complaints {
		days := c.DaysOpen(now)
		for _, u := range staff {
			key := DedupKey(job, c.ID.String()+"/"+u.ID.String(), "overdue", Day(now))
			_, err := s.fanOut(ctx, job, key, 2*24*time.Hour, notifmodels.CreateRequest{
				UserID:   u.ID,
				Type:     notifmodels.TypeSystemAlert,
				Title:    "Overdue Complaint",
				Message:  fmt.Sprintf("Complaint %q has been open for more than 7 days", c.Title),
				Link:     "/complaints/" + c.ID.String(),
				Priority: notifmodels.PriorityHigh,
				Metadata: map[string]any{
					"complaintId": c.ID.String(),
					"daysOpen":    days,
				},
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("notify %s about %s: %w", u.ID, c.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// criticalResources sends each admin one urgent notification and one email
// listing every resource above the critical utilization threshold.
func (s *Scheduler) criticalResources(ctx context.Context) error {
	const job = config.JobCriticalResources
	now := s.now()
	all, err := s.deps.Resources.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list resources: %w", err)
	}
	var critical []email.ResourceLine
	var ids []string
	for _, r := range all {
		if r.UtilizationPercent() > CriticalUtilization {
			critical = append(critical, email.ResourceLine{
				Name:        r.Name,
				Type:        string(r.Type),
				Utilization: r.UtilizationPercent(),
			})
			ids = append(ids, r.ID.String())
		}
	}
	if len(critical) == 0 {
		return nil
	}
	admins, err := usersByRoles(ctx, s.deps.Users, models.RoleAdmin)
	if err != nil {
		return err
	}

	var errs []error
	for _, admin := range admins {
		key := DedupKey(job, admin.ID.String(), "over_90", Week(now))
		sent, err := s.fanOut(ctx, job, key, 8*24*time.Hour, notifmodels.CreateRequest{
			UserID:   admin.ID,
			Type:     notifmodels.TypeResourceCritical,
			Title:    "Critical Resource Alert",
			Message:  fmt.Sprintf("%d resources are over 90%% capacity", len(critical)),
			Link:     "/resources",
			Priority: notifmodels.PriorityUrgent,
			Metadata: map[string]any{
				"criticalCount": len(critical),
				"resourceIds":   ids,
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", admin.ID, err))
			continue
		}
		if sent {
			msg, err := email.CriticalResourcesEmail(admin.Email, critical, now)
			s.mail(ctx, job, msg, err)
		}
	}
	return errors.Join(errs...)
}

// monthlyReport renders last month's statistics and delivers the PDF to every
// admin by email and in-app notification.
func (s *Scheduler) monthlyReport(ctx context.Context) error {
	const job = config.JobMonthlyReport
	now := s.now()
	from, to := report.PreviousMonth(now)
	admins, err := usersByRoles(ctx, s.deps.Users, models.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		s.logger.InfoContext(ctx, "no admins to receive monthly report", "job", job)
		return nil
	}

	data, err := report.CollectMonthly(ctx, s.deps.Complaints, s.deps.Resources, from, to)
	if err != nil {
		return fmt.Errorf("collect monthly stats: %w", err)
	}
	artifact, err := s.deps.Reports.GenerateMonthlyReport(ctx, data)
	if err != nil {
		return fmt.Errorf("render monthly report: %w", err)
	}

	var errs []error
	for _, admin := range admins {
		key := DedupKey(job, admin.ID.String(), "report", Month(from))
		sent, err := s.fanOut(ctx, job, key, 40*24*time.Hour, notifmodels.CreateRequest{
			UserID:   admin.ID,
			Type:     notifmodels.TypeReportGenerated,
			Title:    "Monthly Report Generated",
			Message:  "Your monthly statistics report is ready",
			Link:     artifact.RelativePath,
			Priority: notifmodels.PriorityMedium,
			Metadata: map[string]any{"period": data.Period},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", admin.ID, err))
			continue
		}
		if sent {
			msg, err := email.MonthlyReportEmail(admin.Email, data.MonthLabel, data.Period,
				email.Attachment{FileName: artifact.FileName, Path: artifact.FilePath}, now)
			s.mail(ctx, job, msg, err)
		}
	}
	return errors.Join(errs...)
}

// notificationCleanup removes read notifications past the cleanup age.
func (s *Scheduler) notificationCleanup(ctx context.Context) error {
	n, err := s.deps.Notifier.PurgeExpired(ctx, s.cleanupAge)
	if err != nil {
		return fmt.Errorf("purge notifications: %w", err)
	}
	s.logger.InfoContext(ctx, "deleted old notifications", "job", config.JobNotificationCleanup, "count", n)
	return nil
}

// retentionSweep enforces the read-notification retention window.
func (s *Scheduler) retentionSweep(ctx context.Context) error {
	n, err := s.deps.Notifier.PurgeExpired(ctx, s.retention)
	if err != nil {
		return fmt.Errorf("sweep notifications: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "swept expired notifications", "job", config.JobRetentionSweep, "count", n)
	}
	return nil
}
