package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"civicdesk/internal/complaint"
	dirmemory "civicdesk/internal/directory/store/memory"
	dirpostgres "civicdesk/internal/directory/store/postgres"
	notifservice "civicdesk/internal/notification/service"
	notifmemory "civicdesk/internal/notification/store/memory"
	notifpostgres "civicdesk/internal/notification/store/postgres"
	"civicdesk/internal/platform/config"
	"civicdesk/internal/platform/postgres"
	"civicdesk/internal/report"
	"civicdesk/internal/scheduler"
	audit "civicdesk/pkg/platform/audit"
	auditmemory "civicdesk/pkg/platform/audit/store/memory"
	auditpostgres "civicdesk/pkg/platform/audit/store/postgres"
)

type resourceStore interface {
	scheduler.ResourceReader
	report.ResourceStore
}

type complaintStore interface {
	scheduler.ComplaintReader
	complaint.Store
}

// stores groups every persistence backend. db is nil in memory mode.
type stores struct {
	db            *sqlx.DB
	notifications notifservice.Store
	audit         audit.Store
	users         scheduler.UserDirectory
	resources     resourceStore
	complaints    complaintStore
}

// openStores picks Postgres when DATABASE_URL is set and in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*stores, error) {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		logger.Warn("DATABASE_URL not set, using in-memory stores; data is lost on restart")
		return &stores{
			notifications: notifmemory.NewInMemory(),
			audit:         auditmemory.NewInMemoryStore(),
			users:         dirmemory.NewUsers(),
			resources:     dirmemory.NewResources(),
			complaints:    dirmemory.NewComplaints(),
		}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrations applied")
	}
	return &stores{
		db:            db,
		notifications: notifpostgres.NewPostgres(db),
		audit:         auditpostgres.New(db),
		users:         dirpostgres.NewUserStore(db),
		resources:     dirpostgres.NewResourceStore(db),
		complaints:    dirpostgres.NewComplaintStore(db),
	}, nil
}

func (s *stores) close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}
