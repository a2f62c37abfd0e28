package models

import (
	"strings"
	"time"

	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
)

// Type classifies a notification.
type Type string

const (
	TypeComplaintCreated    Type = "complaint_created"
	TypeComplaintUpdated    Type = "complaint_updated"
	TypeComplaintResolved   Type = "complaint_resolved"
	TypeComplaintAssigned   Type = "complaint_assigned"
	TypeResourceCritical    Type = "resource_critical"
	TypeResourceMaintenance Type = "resource_maintenance"
	TypeSystemAlert         Type = "system_alert"
	TypeReportGenerated     Type = "report_generated"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeComplaintCreated, TypeComplaintUpdated, TypeComplaintResolved, TypeComplaintAssigned,
		TypeResourceCritical, TypeResourceMaintenance, TypeSystemAlert, TypeReportGenerated:
		return true
	}
	return false
}

// Priority orders notifications for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification is a persisted, user-directed alert.
//
// Invariants:
//   - UserID is set at creation and never changes
//   - IsRead implies ReadAt != nil, and ReadAt never moves once set
//   - only the read state mutates after creation
type Notification struct {
	ID        id.NotificationID `json:"id"`
	UserID    id.UserID         `json:"userId"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Link      string            `json:"link,omitempty"`
	IsRead    bool              `json:"isRead"`
	ReadAt    *time.Time        `json:"readAt,omitempty"`
	Priority  Priority          `json:"priority"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// CreateRequest carries the caller-supplied fields of a new notification.
type CreateRequest struct {
	UserID   id.UserID
	Type     Type
	Title    string
	Message  string
	Link     string
	Priority Priority
	Metadata map[string]any
}

// New validates req and builds an unread notification.
func New(req CreateRequest, now time.Time) (*Notification, error) {
	if req.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "notification recipient is required")
	}
	if !req.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid notification type")
	}
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if title == "" || message == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "notification title and message are required")
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid notification priority")
	}
	return &Notification{
		ID:        id.NewNotificationID(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     title,
		Message:   message,
		Link:      req.Link,
		Priority:  priority,
		Metadata:  req.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkRead flips the notification to read. Re-marking keeps the first ReadAt
// and reports false.
func (n *Notification) MarkRead(now time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.ReadAt = &now
	n.UpdatedAt = now
	return true
}

// Expired reports whether a read notification has outlived the retention window.
func (n *Notification) Expired(now time.Time, retention time.Duration) bool {
	return n.IsRead && n.ReadAt != nil && !n.ReadAt.After(now.Add(-retention))
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter selects a page of a user's notifications.
type ListFilter struct {
	IsRead   *bool
	Page     int
	PageSize int
	// VisibleAfter hides read notifications whose ReadAt is at or before it.
	VisibleAfter time.Time
}

// Normalize applies paging defaults and bounds.
func (f ListFilter) Normalize() ListFilter {
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

func (f ListFilter) Offset() int { return (f.Page - 1) * f.PageSize }

// ListResult is one page of notifications.
type ListResult struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	UnreadCount   int             `json:"unreadCount"`
	Page          int             `json:"currentPage"`
	TotalPages    int             `json:"totalPages"`
}
