// Package postgres implements the directory stores on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"civicdesk/internal/directory/models"
	id "civicdesk/pkg/domain"
	"civicdesk/pkg/platform/sentinel"
	txcontext "civicdesk/pkg/platform/tx"
)

// UserStore reads and writes the users table.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

type userRow struct {
	ID        id.UserID `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Role      string    `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

func (r userRow) toModel() *models.User {
	return &models.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Role:      models.Role(r.Role),
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
}

const userColumns = `id, name, email, phone, role, is_active, created_at`

func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.Phone, string(u.Role), u.IsActive, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	var row userRow
	err := txcontext.Pick(ctx, s.db).GetContext(ctx, &row,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toModel(), nil
}

// ListByRoles returns active users holding any of roles, oldest account first.
func (s *UserStore) ListByRoles(ctx context.Context, roles ...models.Role) ([]*models.User, error) {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	var rows []userRow
	err := txcontext.Pick(ctx, s.db).SelectContext(ctx, &rows, `
		SELECT `+userColumns+` FROM users
		WHERE is_active AND role = ANY($1)
		ORDER BY created_at, id`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	out := make([]*models.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// ResourceStore reads and writes resources and usage_logs.
type ResourceStore struct {
	db *sqlx.DB
}

func NewResourceStore(db *sqlx.DB) *ResourceStore {
	return &ResourceStore{db: db}
}

type resourceRow struct {
	ID              id.ResourceID `db:"id"`
	Type            string        `db:"type"`
	Name            string        `db:"name"`
	Description     string        `db:"description"`
	Address         string        `db:"address"`
	CapacityValue   float64       `db:"capacity_value"`
	CapacityUnit    string        `db:"capacity_unit"`
	UsageValue      float64       `db:"usage_value"`
	UsageUnit       string        `db:"usage_unit"`
	UsageUpdatedAt  time.Time     `db:"usage_updated_at"`
	Status          string        `db:"status"`
	LastMaintenance sql.NullTime  `db:"last_maintenance"`
	NextMaintenance sql.NullTime  `db:"next_maintenance"`
	CreatedBy       id.UserID     `db:"created_by"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

func (r resourceRow) toModel() *models.Resource {
	return &models.Resource{
		ID:              r.ID,
		Type:            models.ResourceType(r.Type),
		Name:            r.Name,
		Description:     r.Description,
		Address:         r.Address,
		Capacity:        models.Measure{Value: r.CapacityValue, Unit: r.CapacityUnit},
		CurrentUsage:    models.Measure{Value: r.UsageValue, Unit: r.UsageUnit},
		UsageUpdatedAt:  r.UsageUpdatedAt,
		Status:          models.ResourceStatus(r.Status),
		LastMaintenance: timePtr(r.LastMaintenance),
		NextMaintenance: timePtr(r.NextMaintenance),
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

const resourceColumns = `id, type, name, description, address, capacity_value, capacity_unit,
	usage_value, usage_unit, usage_updated_at, status, last_maintenance, next_maintenance,
	created_by, created_at, updated_at`

func (s *ResourceStore) Save(ctx context.Context, r *models.Resource) error {
	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			address = EXCLUDED.address,
			capacity_value = EXCLUDED.capacity_value,
			capacity_unit = EXCLUDED.capacity_unit,
			usage_value = EXCLUDED.usage_value,
			usage_unit = EXCLUDED.usage_unit,
			usage_updated_at = EXCLUDED.usage_updated_at,
			status = EXCLUDED.status,
			last_maintenance = EXCLUDED.last_maintenance,
			next_maintenance = EXCLUDED.next_maintenance,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		r.ID, string(r.Type), r.Name, r.Description, r.Address,
		r.Capacity.Value, r.Capacity.Unit, r.CurrentUsage.Value, r.CurrentUsage.Unit, r.UsageUpdatedAt,
		string(r.Status), r.LastMaintenance, r.NextMaintenance,
		r.CreatedBy, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save resource: %w", err)
	}
	return nil
}

func (s *ResourceStore) FindByID(ctx context.Context, resourceID id.ResourceID) (*models.Resource, error) {
	var row resourceRow
	err := txcontext.Pick(ctx, s.db).GetContext(ctx, &row,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1`, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return row.toModel(), nil
}

func (s *ResourceStore) ListAll(ctx context.Context) ([]*models.Resource, error) {
	return s.list(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name, id`)
}

// ListDueForMaintenance returns resources whose next maintenance falls in
// [from, to], excluding ones already under maintenance.
func (s *ResourceStore) ListDueForMaintenance(ctx context.Context, from, to time.Time) ([]*models.Resource, error) {
	return s.list(ctx, `
		SELECT `+resourceColumns+` FROM resources
		WHERE next_maintenance BETWEEN $1 AND $2 AND status <> 'maintenance'
		ORDER BY name, id`, from, to)
}

func (s *ResourceStore) list(ctx context.Context, query string, args ...any) ([]*models.Resource, error) {
	var rows []resourceRow
	if err := txcontext.Pick(ctx, s.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	out := make([]*models.Resource, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// LogUsage appends a reading and moves the resource's current usage to it in
// one transaction.
func (s *ResourceStore) LogUsage(ctx context.Context, entry models.UsageLog) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
			UPDATE resources
			SET usage_value = $2, usage_unit = $3, usage_updated_at = $4, updated_at = $4
			WHERE id = $1`,
			entry.ResourceID, entry.Usage.Value, entry.Usage.Unit, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("update resource usage: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sentinel.ErrNotFound
		}
		_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, `
			INSERT INTO usage_logs (id, resource_id, resource_type, usage_value, usage_unit, user_id, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.ID, entry.ResourceID, string(entry.ResourceType),
			entry.Usage.Value, entry.Usage.Unit, entry.UserID, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("insert usage log: %w", err)
		}
		return nil
	})
}

// UsageTotals sums usage logged in [from, to) per resource type.
func (s *ResourceStore) UsageTotals(ctx context.Context, from, to time.Time) (map[models.ResourceType]float64, error) {
	var rows []struct {
		Type  string  `db:"resource_type"`
		Total float64 `db:"total"`
	}
	err := txcontext.Pick(ctx, s.db).SelectContext(ctx, &rows, `
		SELECT resource_type, COALESCE(SUM(usage_value), 0) AS total
		FROM usage_logs
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY resource_type`, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum usage: %w", err)
	}
	totals := make(map[models.ResourceType]float64, len(rows))
	for _, r := range rows {
		totals[models.ResourceType(r.Type)] = r.Total
	}
	return totals, nil
}

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// ComplaintStore reads and writes the complaints table.
type ComplaintStore struct {
	db *sqlx.DB
}

func NewComplaintStore(db *sqlx.DB) *ComplaintStore {
	return &ComplaintStore{db: db}
}

type complaintRow struct {
	ID                    id.ComplaintID `db:"id"`
	Title                 string         `db:"title"`
	Description           string         `db:"description"`
	Category              string         `db:"category"`
	Priority              string         `db:"priority"`
	Status                string         `db:"status"`
	Address               string         `db:"address"`
	ReportedBy            id.UserID      `db:"reported_by"`
	AssignedTo            id.UserID      `db:"assigned_to"`
	ResolutionDescription string         `db:"resolution_description"`
	ResolvedBy            id.UserID      `db:"resolved_by"`
	ResolvedAt            sql.NullTime   `db:"resolved_at"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

func (r complaintRow) toModel() *models.Complaint {
	c := &models.Complaint{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    models.Category(r.Category),
		Priority:    models.Priority(r.Priority),
		Status:      models.Status(r.Status),
		Address:     r.Address,
		ReportedBy:  r.ReportedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if !r.AssignedTo.IsNil() {
		a := r.AssignedTo
		c.AssignedTo = &a
	}
	if r.ResolvedAt.Valid {
		c.Resolution = &models.Resolution{
			Description: r.ResolutionDescription,
			ResolvedBy:  r.ResolvedBy,
			ResolvedAt:  r.ResolvedAt.Time,
		}
	}
	return c
}

const complaintColumns = `id, title, description, category, priority, status, address,
	reported_by, assigned_to, resolution_description, resolved_by, resolved_at, created_at, updated_at`

func complaintArgs(c *models.Complaint) []any {
	var (
		assigned   id.UserID
		resolution string
		resolvedBy id.UserID
		resolvedAt *time.Time
	)
	if c.AssignedTo != nil {
		assigned = *c.AssignedTo
	}
	if c.Resolution != nil {
		resolution = c.Resolution.Description
		resolvedBy = c.Resolution.ResolvedBy
		resolvedAt = &c.Resolution.ResolvedAt
	}
	return []any{
		c.ID, c.Title, c.Description, string(c.Category), string(c.Priority), string(c.Status), c.Address,
		c.ReportedBy, assigned, resolution, resolvedBy, resolvedAt, c.CreatedAt, c.UpdatedAt,
	}
}

func (s *ComplaintStore) Create(ctx context.Context, c *models.Complaint) error {
	query := `
		INSERT INTO complaints (` + complaintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, complaintArgs(c)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (s *ComplaintStore) FindByID(ctx context.Context, complaintID id.ComplaintID) (*models.Complaint, error) {
	var row complaintRow
	err := txcontext.Pick(ctx, s.db).GetContext(ctx, &row,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, complaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find complaint: %w", err)
	}
	return row.toModel(), nil
}

// Update overwrites the mutable fields of an existing complaint.
func (s *ComplaintStore) Update(ctx context.Context, c *models.Complaint) error {
	args := complaintArgs(c)
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE complaints SET
			title = $2, description = $3, category = $4, priority = $5, status = $6, address = $7,
			assigned_to = $8, resolution_description = $9, resolved_by = $10, resolved_at = $11,
			updated_at = $12
		WHERE id = $1`,
		args[0], args[1], args[2], args[3], args[4], args[5], args[6],
		args[8], args[9], args[10], args[11], args[13])
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListOverdue returns complaints in statuses created at or before createdBefore,
// oldest first.
func (s *ComplaintStore) ListOverdue(ctx context.Context, statuses []models.Status, createdBefore time.Time) ([]*models.Complaint, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	var rows []complaintRow
	err := txcontext.Pick(ctx, s.db).SelectContext(ctx, &rows, `
		SELECT `+complaintColumns+` FROM complaints
		WHERE status = ANY($1) AND created_at <= $2
		ORDER BY created_at`, pq.Array(names), createdBefore)
	if err != nil {
		return nil, fmt.Errorf("list overdue complaints: %w", err)
	}
	out := make([]*models.Complaint, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// MonthlyStats tallies complaints created in [from, to). Usage totals are left
// to the resource store.
func (s *ComplaintStore) MonthlyStats(ctx context.Context, from, to time.Time) (*models.MonthlyStats, error) {
	db := txcontext.Pick(ctx, s.db)
	stats := &models.MonthlyStats{From: from, To: to, ByCategory: make(map[models.Category]int)}

	var buckets []struct {
		Category string `db:"category"`
		Status   string `db:"status"`
		Count    int    `db:"n"`
	}
	err := db.SelectContext(ctx, &buckets, `
		SELECT category, status, COUNT(*) AS n FROM complaints
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY category, status`, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate complaints: %w", err)
	}
	for _, b := range buckets {
		c := models.Complaint{Category: models.Category(b.Category), Status: models.Status(b.Status)}
		for range b.Count {
			stats.Tally(&c)
		}
	}

	var rows []complaintRow
	err = db.SelectContext(ctx, &rows, `
		SELECT `+complaintColumns+` FROM complaints
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY CASE priority WHEN 'critical' THEN 3 WHEN 'high' THEN 2 WHEN 'medium' THEN 1 ELSE 0 END DESC,
			created_at DESC
		LIMIT $3`, from, to, models.TopIssueLimit)
	if err != nil {
		return nil, fmt.Errorf("list top issues: %w", err)
	}
	for _, r := range rows {
		stats.TopIssues = append(stats.TopIssues, *r.toModel())
	}
	return stats, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
