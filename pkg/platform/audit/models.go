// Package audit records "who did what to what" for mutating operations.
//
// Recording is a side channel: callers enqueue entries and never see a
// persistence error. The Recorder buffers entries, the worker drains them into
// a Store, and optional Sinks (the Kafka stream) receive a copy.
package audit

import (
	"context"
	"time"

	id "civicdesk/pkg/domain"
)

// Action is the verb of an audit entry.
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionLogin   Action = "LOGIN"
	ActionLogout  Action = "LOGOUT"
	ActionView    Action = "VIEW"
	ActionExport  Action = "EXPORT"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

var validActions = map[Action]struct{}{
	ActionCreate: {}, ActionUpdate: {}, ActionDelete: {}, ActionLogin: {}, ActionLogout: {},
	ActionView: {}, ActionExport: {}, ActionApprove: {}, ActionReject: {},
}

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	_, ok := validActions[a]
	return ok
}

// ResourceType names the kind of thing acted upon.
type ResourceType string

const (
	ResourceUser      ResourceType = "User"
	ResourceComplaint ResourceType = "Complaint"
	ResourceResource  ResourceType = "Resource"
	ResourceUsageLog  ResourceType = "UsageLog"
	ResourceSystem    ResourceType = "System"
)

func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceUser, ResourceComplaint, ResourceResource, ResourceUsageLog, ResourceSystem:
		return true
	}
	return false
}

// Entry is one append-only audit record. ResourceID is a string because the
// (ResourceType, ResourceID) pair is a polymorphic reference.
type Entry struct {
	ID           id.AuditEntryID `json:"id" db:"id"`
	UserID       id.UserID       `json:"userId" db:"user_id"`
	Action       Action          `json:"action" db:"action"`
	ResourceType ResourceType    `json:"resourceType" db:"resource_type"`
	ResourceID   string          `json:"resourceId,omitempty" db:"resource_id"`
	Description  string          `json:"description,omitempty" db:"description"`
	Metadata     map[string]any  `json:"metadata,omitempty" db:"-"`
	IPAddress    string          `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent    string          `json:"userAgent,omitempty" db:"user_agent"`
	RequestID    string          `json:"requestId,omitempty" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter narrows an audit query. Zero fields are ignored.
type Filter struct {
	Action       Action
	ResourceType ResourceType
	UserID       id.UserID
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// Normalize applies paging defaults and bounds.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset is the row offset of the normalized page.
func (f Filter) Offset() int { return (f.Page - 1) * f.PageSize }

// Matches reports whether e satisfies every non-zero field of f.
func (f Filter) Matches(e Entry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if !f.UserID.IsNil() && e.UserID != f.UserID {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// Page is one page of entries plus the total match count.
type Page struct {
	Entries    []Entry `json:"auditLogs"`
	Total      int     `json:"total"`
	Page       int     `json:"currentPage"`
	TotalPages int     `json:"totalPages"`
}

// TotalPages computes ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Store persists and queries entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, int, error)
}

// Sink receives a copy of every persisted entry (event stream, SIEM).
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}
