package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	audit "civicdesk/pkg/platform/audit"
	txcontext "civicdesk/pkg/platform/tx"
)

// Store implements audit.Store on the audit_logs table.
type Store struct {
	db *sqlx.DB
}

// New creates a PostgreSQL audit store.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	audit.Entry
	MetadataRaw []byte `db:"metadata"`
}

const selectColumns = `id, user_id, action, resource_type, COALESCE(resource_id, '') AS resource_id,
	description, metadata, ip_address, user_agent, request_id, timestamp`

// Append inserts one entry. Entries are immutable; there is no update path.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	if entry.Metadata == nil {
		meta = []byte("{}")
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, description,
			metadata, ip_address, user_agent, request_id, timestamp)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
	`
	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		string(entry.Action),
		string(entry.ResourceType),
		entry.ResourceID,
		entry.Description,
		meta,
		entry.IPAddress,
		entry.UserAgent,
		entry.RequestID,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns matching entries newest first with the total match count.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	filter = filter.Normalize()
	where, args := whereClause(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs" + where
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	args = append(args, filter.PageSize, filter.Offset())
	query := fmt.Sprintf(`SELECT %s FROM audit_logs%s
		ORDER BY timestamp DESC
		LIMIT $%d OFFSET $%d`, selectColumns, where, len(args)-1, len(args))

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		if len(r.MetadataRaw) > 0 {
			if err := json.Unmarshal(r.MetadataRaw, &r.Metadata); err != nil {
				return nil, 0, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		entries = append(entries, r.Entry)
	}
	return entries, total, nil
}

func whereClause(f audit.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", string(f.ResourceType))
	}
	if !f.UserID.IsNil() {
		add("user_id = $%d", f.UserID)
	}
	if f.ResourceID != "" {
		add("resource_id = $%d", f.ResourceID)
	}
	if f.From != nil {
		add("timestamp >= $%d", *f.From)
	}
	if f.To != nil {
		add("timestamp <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
