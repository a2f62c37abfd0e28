package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"civicdesk/internal/notification/models"
	id "civicdesk/pkg/domain"
	"civicdesk/pkg/platform/sentinel"
	txcontext "civicdesk/pkg/platform/tx"
)

// PostgresStore persists notifications in PostgreSQL.
// Ownership checks are part of each statement's WHERE clause, so a row owned by
// someone else is indistinguishable from a missing one.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type notificationRow struct {
	ID        id.NotificationID `db:"id"`
	UserID    id.UserID         `db:"user_id"`
	Type      string            `db:"type"`
	Title     string            `db:"title"`
	Message   string            `db:"message"`
	Link      string            `db:"link"`
	IsRead    bool              `db:"is_read"`
	ReadAt    sql.NullTime      `db:"read_at"`
	Priority  string            `db:"priority"`
	Metadata  []byte            `db:"metadata"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}

const columns = `id, user_id, type, title, message, link, is_read, read_at, priority, metadata, created_at, updated_at`

func (r notificationRow) toModel() (*models.Notification, error) {
	n := &models.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      models.Type(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Link:      r.Link,
		IsRead:    r.IsRead,
		Priority:  models.Priority(r.Priority),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ReadAt.Valid {
		t := r.ReadAt.Time
		n.ReadAt = &t
	}
	if len(r.Metadata) > 0 && string(r.Metadata) != "{}" {
		if err := json.Unmarshal(r.Metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode notification metadata: %w", err)
		}
	}
	return n, nil
}

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	meta, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO notifications (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		n.ID,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		n.Link,
		n.IsRead,
		n.ReadAt,
		string(n.Priority),
		meta,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// CreateBatch inserts all notifications in one transaction.
func (s *PostgresStore) CreateBatch(ctx context.Context, ns []*models.Notification) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, n := range ns {
			if err := s.Create(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, nid id.NotificationID) (*models.Notification, error) {
	var row notificationRow
	err := txcontext.Pick(ctx, s.db).GetContext(ctx, &row,
		`SELECT `+columns+` FROM notifications WHERE id = $1`, nid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, filter models.ListFilter) ([]*models.Notification, int, error) {
	filter = filter.Normalize()

	where := ` WHERE user_id = $1 AND (NOT is_read OR $2::timestamptz IS NULL OR read_at > $2)`
	args := []any{userID, nullTime(filter.VisibleAfter)}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		where += fmt.Sprintf(" AND is_read = $%d", len(args))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	args = append(args, filter.PageSize, filter.Offset())
	query := fmt.Sprintf(`SELECT %s FROM notifications%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, columns, where, len(args)-1, len(args))

	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]*models.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := r.toModel()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead sets the read flag in one statement. COALESCE keeps the first read_at.
func (s *PostgresStore) MarkRead(ctx context.Context, nid id.NotificationID, userID id.UserID, at time.Time) (*models.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE,
			read_at = COALESCE(read_at, $3),
			updated_at = CASE WHEN is_read THEN updated_at ELSE $3 END
		WHERE id = $1 AND user_id = $2
		RETURNING ` + columns
	var row notificationRow
	if err := txcontext.Pick(ctx, s.db).GetContext(ctx, &row, query, nid, userID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID id.UserID, at time.Time) (int, error) {
	result, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2, updated_at = $2
		WHERE user_id = $1 AND NOT is_read
	`, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return rowsAffected(result)
}

func (s *PostgresStore) Delete(ctx context.Context, nid id.NotificationID, userID id.UserID) error {
	result, err := txcontext.Pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, nid, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteReadBefore removes read notifications whose read_at is before cutoff.
// The partial index on read_at serves this query.
func (s *PostgresStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read AND read_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return rowsAffected(result)
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal notification metadata: %w", err)
	}
	return b, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func rowsAffected(result sql.Result) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
