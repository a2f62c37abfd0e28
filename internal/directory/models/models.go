// Package models holds the directory records the notification subsystem reads:
// users, municipal resources, complaints and usage logs.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
)

// Role is a user's authorization role.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// User is a directory entry. Phone may be empty.
type User struct {
	ID        id.UserID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// ResourceType is the utility a resource provides.
type ResourceType string

const (
	ResourceWater       ResourceType = "water"
	ResourceElectricity ResourceType = "electricity"
	ResourceWaste       ResourceType = "waste"
)

// ResourceTypes lists every resource type in report order.
var ResourceTypes = []ResourceType{ResourceWater, ResourceElectricity, ResourceWaste}

func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceWater, ResourceElectricity, ResourceWaste:
		return true
	}
	return false
}

// Unit is the reporting unit for usage totals of this type.
func (t ResourceType) Unit() string {
	switch t {
	case ResourceWater:
		return "liters"
	case ResourceElectricity:
		return "kWh"
	case ResourceWaste:
		return "kg"
	}
	return ""
}

type ResourceStatus string

const (
	ResourceActive      ResourceStatus = "active"
	ResourceInactive    ResourceStatus = "inactive"
	ResourceMaintenance ResourceStatus = "maintenance"
	ResourceCritical    ResourceStatus = "critical"
)

// Measure is a value with its unit.
type Measure struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Resource is a tracked municipal asset such as a water tank or transformer.
type Resource struct {
	ID              id.ResourceID  `json:"id"`
	Type            ResourceType   `json:"type"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Address         string         `json:"address,omitempty"`
	Capacity        Measure        `json:"capacity"`
	CurrentUsage    Measure        `json:"currentUsage"`
	UsageUpdatedAt  time.Time      `json:"usageUpdatedAt"`
	Status          ResourceStatus `json:"status"`
	LastMaintenance *time.Time     `json:"lastMaintenance,omitempty"`
	NextMaintenance *time.Time     `json:"nextMaintenance,omitempty"`
	CreatedBy       id.UserID      `json:"createdBy"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Utilization is current usage over capacity as a fraction. A resource without
// a positive capacity reports zero.
func (r *Resource) Utilization() float64 {
	if r.Capacity.Value <= 0 {
		return 0
	}
	return r.CurrentUsage.Value / r.Capacity.Value
}

// UtilizationPercent is Utilization scaled to 0..100.
func (r *Resource) UtilizationPercent() float64 {
	return r.Utilization() * 100
}

// MaintenanceDue reports whether next maintenance falls within [from, to] and
// the resource is not already under maintenance.
func (r *Resource) MaintenanceDue(from, to time.Time) bool {
	if r.NextMaintenance == nil || r.Status == ResourceMaintenance {
		return false
	}
	next := *r.NextMaintenance
	return !next.Before(from) && !next.After(to)
}

type Category string

const (
	CategoryWater          Category = "water"
	CategoryElectricity    Category = "electricity"
	CategoryWaste          Category = "waste"
	CategoryInfrastructure Category = "infrastructure"
	CategoryOther          Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryWater, CategoryElectricity, CategoryWaste, CategoryInfrastructure, CategoryOther:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank orders priorities, critical highest.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// OpenStatuses are the statuses the overdue check scans.
var OpenStatuses = []Status{StatusPending, StatusInProgress}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Resolution is set once a complaint is resolved.
type Resolution struct {
	Description string    `json:"description"`
	ResolvedBy  id.UserID `json:"resolvedBy"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

// Complaint is a citizen-filed issue.
type Complaint struct {
	ID          id.ComplaintID `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	Priority    Priority       `json:"priority"`
	Status      Status         `json:"status"`
	Address     string         `json:"address,omitempty"`
	ReportedBy  id.UserID      `json:"reportedBy"`
	AssignedTo  *id.UserID     `json:"assignedTo,omitempty"`
	Resolution  *Resolution    `json:"resolution,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// DaysOpen is the number of whole days since the complaint was filed.
func (c *Complaint) DaysOpen(now time.Time) int {
	return int(now.Sub(c.CreatedAt).Hours() / 24)
}

// NewComplaint validates the citizen-supplied fields. Priority starts at medium
// and status at pending.
func NewComplaint(title, description string, category Category, address string, reporter id.UserID, now time.Time) (*Complaint, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if reporter.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "reporter is required")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if len(title) > 200 {
		return nil, dErrors.New(dErrors.CodeValidation, "title cannot exceed 200 characters")
	}
	if description == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid category")
	}
	return &Complaint{
		ID:          id.NewComplaintID(),
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    PriorityMedium,
		Status:      StatusPending,
		Address:     strings.TrimSpace(address),
		ReportedBy:  reporter,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UsageLog is one metered reading against a resource.
type UsageLog struct {
	ID           uuid.UUID     `json:"id"`
	ResourceID   id.ResourceID `json:"resourceId"`
	ResourceType ResourceType  `json:"resourceType"`
	Usage        Measure       `json:"usage"`
	UserID       id.UserID     `json:"userId,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// MonthlyStats aggregates complaints created and usage logged within a period.
type MonthlyStats struct {
	From        time.Time
	To          time.Time
	Total       int
	Pending     int
	InProgress  int
	Resolved    int
	Rejected    int
	ByCategory  map[Category]int
	UsageByType map[ResourceType]float64
	TopIssues   []Complaint
}

// TopIssueLimit caps MonthlyStats.TopIssues.
const TopIssueLimit = 5

// Tally counts c into the status and category buckets.
func (s *MonthlyStats) Tally(c *Complaint) {
	if s.ByCategory == nil {
		s.ByCategory = make(map[Category]int)
	}
	s.Total++
	s.ByCategory[c.Category]++
	switch c.Status {
	case StatusPending:
		s.Pending++
	case StatusInProgress:
		s.InProgress++
	case StatusResolved:
		s.Resolved++
	case StatusRejected:
		s.Rejected++
	}
}
