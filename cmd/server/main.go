package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	auditapi "civicdesk/internal/audit"
	"civicdesk/internal/complaint"
	"civicdesk/internal/dispatch"
	"civicdesk/internal/dispatch/email"
	"civicdesk/internal/dispatch/push"
	"civicdesk/internal/dispatch/sms"
	jwttoken "civicdesk/internal/jwt_token"
	notifhandler "civicdesk/internal/notification/handler"
	notifmetrics "civicdesk/internal/notification/metrics"
	notifservice "civicdesk/internal/notification/service"
	"civicdesk/internal/platform/config"
	"civicdesk/internal/platform/httpserver"
	"civicdesk/internal/platform/kafka"
	"civicdesk/internal/platform/logger"
	"civicdesk/internal/platform/metrics"
	platformredis "civicdesk/internal/platform/redis"
	"civicdesk/internal/ratelimit"
	"civicdesk/internal/report"
	"civicdesk/internal/scheduler"
	httptransport "civicdesk/internal/transport/http"
	audit "civicdesk/pkg/platform/audit"
	"civicdesk/pkg/platform/audit/recorder"
	"civicdesk/pkg/platform/audit/stream"
	"civicdesk/pkg/platform/circuit"
)

// main loads configuration and hands over to run. Business logic lives in the
// internal packages; this file only wires them together.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "civicdesk: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	if err := run(cfg, log); err != nil {
		log.Error("civicdesk stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := make(map[string]httptransport.HealthCheck)

	st, err := openStores(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.close()
	if st.db != nil {
		checks["postgres"] = st.db.PingContext
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = rdb.Health
	} else {
		log.Warn("REDIS_URL not set, scheduler locks and dedup are process-local")
	}

	var sinks []audit.Sink
	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	if producer != nil {
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("audit topic not ensured", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		defer producer.Close(context.Background())
		checks["kafka"] = producer.Ping
		sinks = append(sinks, stream.NewSink(producer))
	}

	// Audit pipeline.
	sampler := recorder.NewSampler(1)
	sampler.SetRate(audit.ActionView, cfg.Audit.ViewSampleRate)
	auditRecorder := recorder.New(st.audit,
		recorder.WithLogger(log),
		recorder.WithMetrics(audit.NewMetrics(reg)),
		recorder.WithBufferSize(cfg.Audit.BufferSize),
		recorder.WithSampler(sampler),
		recorder.WithBreaker(circuit.New("audit_store",
			circuit.WithFailureThreshold(cfg.Audit.FailureLimit),
			circuit.WithCooldown(cfg.Audit.Cooldown),
		)),
		recorder.WithSinks(sinks...),
	)

	// Dispatch channels.
	dispatchMetrics := dispatch.NewMetrics(reg)
	hub := push.NewHub(push.WithLogger(log), push.WithMetrics(dispatchMetrics))
	var transport email.Transport
	if cfg.SMTP.Configured() {
		transport = email.NewSMTPTransport(cfg.SMTP)
	} else {
		log.Warn("SMTP_HOST not set, emails will be reported as not configured")
	}
	mailer := email.NewSender(transport, cfg.SMTP.From,
		email.WithLogger(log),
		email.WithMetrics(dispatchMetrics),
	)
	texter := sms.New(cfg.Twilio, sms.WithLogger(log), sms.WithMetrics(dispatchMetrics))
	runner := dispatch.NewRunner(dispatch.WithLogger(log), dispatch.WithMetrics(dispatchMetrics))

	notifications := notifservice.New(st.notifications,
		notifservice.WithLogger(log),
		notifservice.WithMetrics(notifmetrics.New(reg)),
		notifservice.WithPusher(hub),
		notifservice.WithRetention(cfg.Notifications.Retention),
	)
	complaints := complaint.New(st.complaints, st.users, hub, mailer, texter,
		complaint.WithLogger(log),
		complaint.WithNotifier(notifications),
		complaint.WithRunner(runner),
	)

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithMetrics(scheduler.NewMetrics(reg)),
		scheduler.WithRetention(cfg.Notifications.Retention, cfg.Notifications.CleanupAge),
	}
	if rdb != nil {
		guard := scheduler.NewRedisGuard(rdb, "")
		schedOpts = append(schedOpts, scheduler.WithGuard(guard, guard))
	}
	renderer := report.NewPDFRenderer(cfg.Reports)
	sched, err := scheduler.New(scheduler.Deps{
		Users:      st.users,
		Resources:  st.resources,
		Complaints: st.complaints,
		Reports:    renderer,
		Notifier:   notifications,
		Mailer:     mailer,
		Runner:     runner,
	}, cfg.Scheduler, schedOpts...)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if rdb != nil {
		limiter = ratelimit.NewRedisLimiter(rdb, "")
	}
	limits := ratelimit.New(limiter, log, ratelimit.WithDisabled(!cfg.RateLimit.Enabled))
	complaintRoutes := complaint.NewHandler(complaints, auditRecorder, log,
		complaint.WithCreateLimit(limits.PerUser(ratelimit.Rule{
			Name:   "complaints",
			Limit:  cfg.RateLimit.ComplaintsPerHour,
			Window: time.Hour,
		})),
	)

	validator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience),
	)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		Validator:      validator,
		RequestTimeout: cfg.Server.RequestTimeout,
		APILimit:       limits.PerUser(ratelimit.Rule{Name: "api", Limit: cfg.RateLimit.APIPerMinute, Window: time.Minute}),
		Notifications:  notifhandler.New(notifications, log),
		Complaints:     complaintRoutes,
		Reports:        report.NewHandler(st.resources, st.complaints, renderer, log),
		Audit:          auditapi.NewHandler(auditapi.NewService(auditRecorder), log),
		Scheduler:      scheduler.NewHandler(sched, log),
		Push:           push.NewWSHandler(hub, validator, log, originPatterns(cfg.Server.FrontendURL)...),
		ReportFiles:    http.FileServer(http.Dir(cfg.Reports.Dir)),
		ReportPrefix:   cfg.Reports.PublicPrefix,
		HealthChecks:   checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	if cfg.Scheduler.Enabled {
		sched.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting civicdesk", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if cfg.Scheduler.Enabled {
			if err := sched.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
			}
		}

		waitCtx, cancelWait := context.WithTimeout(context.Background(), cfg.Notifications.DispatchWait)
		defer cancelWait()
		if err := runner.Wait(waitCtx); err != nil {
			log.Warn("pending deliveries abandoned", "error", err)
		}
		auditRecorder.Close()
		return errors.Join(errs...)
	})
	return g.Wait()
}

// originPatterns turns the frontend URL into the websocket origin allowlist.
func originPatterns(frontendURL string) []string {
	u, err := url.Parse(frontendURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
