// Package scheduler runs the periodic maintenance, overdue, critical-resource,
// reporting and retention jobs that drive notifications without a request.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"civicdesk/internal/directory/models"
	"civicdesk/internal/dispatch"
	"civicdesk/internal/dispatch/email"
	notifmodels "civicdesk/internal/notification/models"
	"civicdesk/internal/platform/config"
	"civicdesk/internal/report"
	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
)

// UserDirectory resolves notification recipients.
type UserDirectory interface {
	ListByRoles(ctx context.Context, roles ...models.Role) ([]*models.User, error)
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

// ResourceReader scans municipal resources.
type ResourceReader interface {
	ListDueForMaintenance(ctx context.Context, from, to time.Time) ([]*models.Resource, error)
	ListAll(ctx context.Context) ([]*models.Resource, error)
	UsageTotals(ctx context.Context, from, to time.Time) (map[models.ResourceType]float64, error)
}

// ComplaintReader scans complaints.
type ComplaintReader interface {
	ListOverdue(ctx context.Context, statuses []models.Status, createdBefore time.Time) ([]*models.Complaint, error)
	MonthlyStats(ctx context.Context, from, to time.Time) (*models.MonthlyStats, error)
}

// ReportRenderer renders the monthly statistics report.
type ReportRenderer interface {
	GenerateMonthlyReport(ctx context.Context, data report.MonthlyData) (report.Artifact, error)
}

// Notifier stores in-app notifications and enforces retention.
type Notifier interface {
	Create(ctx context.Context, req notifmodels.CreateRequest) (*notifmodels.Notification, error)
	PurgeExpired(ctx context.Context, olderThan time.Duration) (int, error)
}

// Mailer sends email. Failures come back as results, never as errors.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) dispatch.Result
}

// TaskRunner runs a side effect in the background, detached from the
// caller's cancellation.
type TaskRunner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}

// Deps are the collaborators the jobs read from and write to. Emails go out
// through Runner so a slow mail server never eats into the job timeout.
type Deps struct {
	Users      UserDirectory
	Resources  ResourceReader
	Complaints ComplaintReader
	Reports    ReportRenderer
	Notifier   Notifier
	Mailer     Mailer
	Runner     TaskRunner
}

func (d Deps) validate() error {
	switch {
	case d.Users == nil:
		return errors.New("user directory is required")
	case d.Resources == nil:
		return errors.New("resource reader is required")
	case d.Complaints == nil:
		return errors.New("complaint reader is required")
	case d.Reports == nil:
		return errors.New("report renderer is required")
	case d.Notifier == nil:
		return errors.New("notifier is required")
	case d.Mailer == nil:
		return errors.New("mailer is required")
	case d.Runner == nil:
		return errors.New("task runner is required")
	}
	return nil
}

var (
	// ErrUnknownJob is returned by RunNow for a name no job is registered under.
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobSkipped is returned by RunNow when another instance holds the
	// job's lease and this run did nothing.
	ErrJobSkipped = errors.New("job skipped: lease held elsewhere")
)

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

// Scheduler owns the cron loop and the registered jobs.
type Scheduler struct {
	deps       Deps
	cron       *cron.Cron
	jobs       map[string]*job
	order      []string
	flight     singleflight.Group
	locker     Locker
	dedup      Deduper
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	now        func() time.Time
	lockTTL    time.Duration
	jobTimeout time.Duration
	retention  time.Duration
	cleanupAge time.Duration
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithGuard sets the cross-instance lock and the notification deduper. Both
// default to a shared in-process MemoryGuard.
func WithGuard(locker Locker, dedup Deduper) Option {
	return func(s *Scheduler) {
		if locker != nil {
			s.locker = locker
		}
		if dedup != nil {
			s.dedup = dedup
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithRetention sets the visibility window swept hourly and the age past which
// the daily cleanup removes read notifications.
func WithRetention(retention, cleanupAge time.Duration) Option {
	return func(s *Scheduler) {
		if retention > 0 {
			s.retention = retention
		}
		if cleanupAge > 0 {
			s.cleanupAge = cleanupAge
		}
	}
}

const (
	defaultLockTTL    = 10 * time.Minute
	defaultJobTimeout = 5 * time.Minute
)

// New registers every job on its cadence from cfg.Specs, falling back to
// config.DefaultSpecs. The cron loop does not run until Start.
func New(deps Deps, cfg config.SchedulerConfig, opts ...Option) (*Scheduler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	guard := NewMemoryGuard()
	s := &Scheduler{
		deps:       deps,
		jobs:       make(map[string]*job),
		locker:     guard,
		dedup:      guard,
		logger:     slog.Default(),
		tracer:     otel.Tracer("civicdesk/scheduler"),
		now:        time.Now,
		lockTTL:    cfg.LockTTL,
		jobTimeout: cfg.JobTimeout,
		retention:  30 * 24 * time.Hour,
		cleanupAge: 60 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	clog := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	for _, j := range []*job{
		{name: config.JobMaintenanceCheck, run: s.maintenanceCheck},
		{name: config.JobOverdueComplaints, run: s.overdueComplaints},
		{name: config.JobCriticalResources, run: s.criticalResources},
		{name: config.JobMonthlyReport, run: s.monthlyReport},
		{name: config.JobNotificationCleanup, run: s.notificationCleanup},
		{name: config.JobRetentionSweep, run: s.retentionSweep},
	} {
		j.spec = cfg.Specs[j.name]
		if j.spec == "" {
			j.spec = config.DefaultSpecs[j.name]
		}
		name := j.name
		if _, err := s.cron.AddFunc(j.spec, func() { _ = s.execute(context.Background(), name) }); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", j.name, j.spec, err)
		}
		s.jobs[j.name] = j
		s.order = append(s.order, j.name)
	}
	return s, nil
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name string `json:"name"`
	Spec string `json:"spec"`
}

// Jobs lists registered jobs in registration order.
func (s *Scheduler) Jobs() []JobInfo {
	out := make([]JobInfo, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, JobInfo{Name: name, Spec: s.jobs[name].spec})
	}
	return out
}

// RunNow runs a job immediately, subject to the same single-flight and lock
// guards as a scheduled run. It returns ErrJobSkipped when the lease is held
// by another instance.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	if _, ok := s.jobs[name]; !ok {
		return dErrors.Wrap(ErrUnknownJob, dErrors.CodeNotFound, fmt.Sprintf("unknown job %q", name))
	}
	return s.execute(ctx, name)
}

// execute collapses concurrent runs of a job in this process, then takes the
// cross-instance lease before running it.
func (s *Scheduler) execute(ctx context.Context, name string) error {
	j := s.jobs[name]
	_, err, _ := s.flight.Do(name, func() (any, error) {
		release, ok, err := s.locker.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduler lock failed", "job", name, "error", err)
			s.metrics.observeRun(name, outcomeFailure, 0)
			return nil, err
		}
		if !ok {
			s.logger.InfoContext(ctx, "scheduled job already running elsewhere", "job", name)
			s.metrics.observeRun(name, outcomeSkipped, 0)
			return nil, ErrJobSkipped
		}
		defer release()
		return nil, s.runOnce(ctx, j)
	})
	return err
}

func (s *Scheduler) runOnce(ctx context.Context, j *job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "scheduler."+j.name,
		trace.WithAttributes(attribute.String("scheduler.job", j.name)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		outcome := outcomeSuccess
		if err != nil {
			outcome = outcomeFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.ErrorContext(ctx, "scheduled job failed", "job", j.name, "error", err)
		} else {
			s.logger.InfoContext(ctx, "scheduled job completed", "job", j.name,
				"duration_ms", time.Since(start).Milliseconds())
		}
		s.metrics.observeRun(j.name, outcome, time.Since(start))
	}()

	s.logger.InfoContext(ctx, "scheduled job started", "job", j.name)
	return j.run(ctx)
}

// fanOut claims key, creates the notification, and releases the claim if the
// notification could not be stored so the next run retries it.
func (s *Scheduler) fanOut(ctx context.Context, job, key string, ttl time.Duration, req notifmodels.CreateRequest) (bool, error) {
	claimed, err := s.dedup.Claim(ctx, key, ttl)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.metrics.incSent(job, "duplicate")
		return false, nil
	}
	if _, err := s.deps.Notifier.Create(ctx, req); err != nil {
		if rerr := s.dedup.Release(ctx, key); rerr != nil {
			s.logger.WarnContext(ctx, "failed to release dedup key", "job", job, "key", key, "error", rerr)
		}
		s.metrics.incSent(job, "failed")
		return false, err
	}
	s.metrics.incSent(job, "sent")
	return true, nil
}

// mail hands msg to the task runner and returns at once. A failed send is
// logged by the runner and never fails the job.
func (s *Scheduler) mail(ctx context.Context, job string, msg email.Message, buildErr error) {
	if buildErr != nil {
		s.logger.ErrorContext(ctx, "failed to build email", "job", job, "error", buildErr)
		return
	}
	s.deps.Runner.Go(ctx, job+"_email", func(ctx context.Context) error {
		if res := s.deps.Mailer.Send(ctx, msg); !res.Success {
			return fmt.Errorf("email %q to %v not delivered: %s", msg.Subject, msg.To, res.Error)
		}
		return nil
	})
}

func usersByRoles(ctx context.Context, dir UserDirectory, roles ...models.Role) ([]*models.User, error) {
	users, err := dir.ListByRoles(ctx, roles...)
	if err != nil {
		return nil, fmt.Errorf("list %v users: %w", roles, err)
	}
	// A user listed under two roles is still one recipient.
	seen := make(map[id.UserID]bool, len(users))
	return slices.DeleteFunc(users, func(u *models.User) bool {
		dup := seen[u.ID]
		seen[u.ID] = true
		return dup
	}), nil
}
