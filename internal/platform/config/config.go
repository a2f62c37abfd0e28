// Package config loads civicdesk configuration from the environment (and an
// optional YAML file named by CONFIG_FILE) through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server        Server
	Log           LogConfig
	Auth          AuthConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	SMTP          SMTPConfig
	Twilio        TwilioConfig
	Scheduler     SchedulerConfig
	Notifications NotificationsConfig
	Audit         AuditConfig
	Reports       ReportsConfig
	RateLimit     RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	FrontendURL     string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig validates tokens issued by the identity service.
type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// PostgresConfig is empty-URL tolerant: no URL means in-memory stores.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	ClientID   string
	AuditTopic string
	Linger     time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
	Timeout  time.Duration
}

// Configured reports whether an SMTP host is set.
func (c SMTPConfig) Configured() bool { return c.Host != "" }

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// Configured reports whether Twilio credentials are present.
func (c TwilioConfig) Configured() bool { return c.AccountSID != "" && c.AuthToken != "" }

// SchedulerConfig holds one cron spec per job name.
type SchedulerConfig struct {
	Enabled    bool
	Timezone   string
	LockTTL    time.Duration
	JobTimeout time.Duration
	Specs      map[string]string
}

type NotificationsConfig struct {
	Retention    time.Duration
	CleanupAge   time.Duration
	DispatchWait time.Duration
}

type AuditConfig struct {
	BufferSize     int
	ViewSampleRate float64
	FailureLimit   int
	Cooldown       time.Duration
}

type ReportsConfig struct {
	Dir          string
	PublicPrefix string
}

// RateLimitConfig caps request rates per caller. Zero limits disable a rule.
type RateLimitConfig struct {
	Enabled           bool
	APIPerMinute      int
	ComplaintsPerHour int
}

// Job names used as keys in SchedulerConfig.Specs.
const (
	JobMaintenanceCheck    = "maintenance_check"
	JobOverdueComplaints   = "overdue_complaints"
	JobCriticalResources   = "critical_resources"
	JobMonthlyReport       = "monthly_report"
	JobNotificationCleanup = "notification_cleanup"
	JobRetentionSweep      = "retention_sweep"
)

// DefaultSpecs are the cron cadences of every scheduled job.
var DefaultSpecs = map[string]string{
	JobMaintenanceCheck:    "0 9 * * *",
	JobOverdueComplaints:   "0 10 * * *",
	JobCriticalResources:   "0 8 * * 1",
	JobMonthlyReport:       "0 9 1 * *",
	JobNotificationCleanup: "0 2 * * *",
	JobRetentionSweep:      "@hourly",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.frontend_url", "http://localhost:5173")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("jwt.signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("jwt.issuer", "civicdesk")
	v.SetDefault("jwt.audience", "civicdesk-api")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.client_id", "civicdesk")
	v.SetDefault("kafka.audit_topic", "civicdesk.audit")
	v.SetDefault("kafka.linger", 20*time.Millisecond)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "Smart Village <no-reply@smartvillage.local>")
	v.SetDefault("smtp.starttls", true)
	v.SetDefault("smtp.timeout", 15*time.Second)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.lock_ttl", 10*time.Minute)
	v.SetDefault("scheduler.job_timeout", 5*time.Minute)
	for job, spec := range DefaultSpecs {
		v.SetDefault("scheduler."+job+"_spec", spec)
	}

	v.SetDefault("notifications.retention", 30*24*time.Hour)
	v.SetDefault("notifications.cleanup_age", 60*24*time.Hour)
	v.SetDefault("notifications.dispatch_wait", 30*time.Second)

	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.view_sample_rate", 1.0)
	v.SetDefault("audit.failure_limit", 5)
	v.SetDefault("audit.cooldown", 30*time.Second)

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.public_prefix", "/reports")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.api_per_minute", 300)
	v.SetDefault("ratelimit.complaints_per_hour", 10)
}

// Load reads defaults, the optional CONFIG_FILE, then environment variables.
// Environment keys are the upper-cased dotted keys with "." replaced by "_"
// (DATABASE_URL, SCHEDULER_MONTHLY_REPORT_SPEC, ...).
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is the conventional platform override for the listen address.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SERVER_ADDR") == "" {
		v.SetDefault("server.addr", ":"+port)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			FrontendURL:     strings.TrimRight(v.GetString("server.frontend_url"), "/"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Auth: AuthConfig{
			JWTSigningKey: v.GetString("jwt.signing_key"),
			Issuer:        v.GetString("jwt.issuer"),
			Audience:      v.GetString("jwt.audience"),
		},
		Postgres: PostgresConfig{
			URL:          v.GetString("database.url"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			AutoMigrate:  v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("kafka.brokers")),
			ClientID:   v.GetString("kafka.client_id"),
			AuditTopic: v.GetString("kafka.audit_topic"),
			Linger:     v.GetDuration("kafka.linger"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			StartTLS: v.GetBool("smtp.starttls"),
			Timeout:  v.GetDuration("smtp.timeout"),
		},
		Twilio: TwilioConfig{
			AccountSID:  v.GetString("twilio.account_sid"),
			AuthToken:   v.GetString("twilio.auth_token"),
			PhoneNumber: v.GetString("twilio.phone_number"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    v.GetBool("scheduler.enabled"),
			Timezone:   v.GetString("scheduler.timezone"),
			LockTTL:    v.GetDuration("scheduler.lock_ttl"),
			JobTimeout: v.GetDuration("scheduler.job_timeout"),
			Specs:      make(map[string]string, len(DefaultSpecs)),
		},
		Notifications: NotificationsConfig{
			Retention:    v.GetDuration("notifications.retention"),
			CleanupAge:   v.GetDuration("notifications.cleanup_age"),
			DispatchWait: v.GetDuration("notifications.dispatch_wait"),
		},
		Audit: AuditConfig{
			BufferSize:     v.GetInt("audit.buffer_size"),
			ViewSampleRate: v.GetFloat64("audit.view_sample_rate"),
			FailureLimit:   v.GetInt("audit.failure_limit"),
			Cooldown:       v.GetDuration("audit.cooldown"),
		},
		Reports: ReportsConfig{
			Dir:          v.GetString("reports.dir"),
			PublicPrefix: v.GetString("reports.public_prefix"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("ratelimit.enabled"),
			APIPerMinute:      v.GetInt("ratelimit.api_per_minute"),
			ComplaintsPerHour: v.GetInt("ratelimit.complaints_per_hour"),
		},
	}
	for job := range DefaultSpecs {
		cfg.Scheduler.Specs[job] = v.GetString("scheduler." + job + "_spec")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Auth.JWTSigningKey == "" {
		return errors.New("config: JWT_SIGNING_KEY must not be empty")
	}
	if c.Notifications.Retention <= 0 {
		return errors.New("config: NOTIFICATIONS_RETENTION must be positive")
	}
	if c.Notifications.CleanupAge < c.Notifications.Retention {
		return fmt.Errorf("config: NOTIFICATIONS_CLEANUP_AGE (%s) must not be shorter than NOTIFICATIONS_RETENTION (%s)",
			c.Notifications.CleanupAge, c.Notifications.Retention)
	}
	if c.Audit.ViewSampleRate < 0 || c.Audit.ViewSampleRate > 1 {
		return errors.New("config: AUDIT_VIEW_SAMPLE_RATE must be within [0, 1]")
	}
	if c.RateLimit.APIPerMinute < 0 || c.RateLimit.ComplaintsPerHour < 0 {
		return errors.New("config: RATELIMIT limits must not be negative")
	}
	return nil
}

// Location resolves the scheduler timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
