// Package domain holds typed identifiers shared across modules.
//
// Each identifier is a distinct type over uuid.UUID so a UserID can never be
// passed where a NotificationID is expected. Parsing happens once at trust
// boundaries (HTTP params, token claims, DB rows).
package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dErrors "civicdesk/pkg/domain-errors"
)

// ID is a UUID tagged with a phantom kind.
type ID[K any] uuid.UUID

type (
	userKind         struct{}
	notificationKind struct{}
	auditEntryKind   struct{}
	complaintKind    struct{}
	resourceKind     struct{}
)

type (
	UserID         = ID[userKind]
	NotificationID = ID[notificationKind]
	AuditEntryID   = ID[auditEntryKind]
	ComplaintID    = ID[complaintKind]
	ResourceID     = ID[resourceKind]
)

// New returns a random identifier of the requested kind.
func New[K any]() ID[K] { return ID[K](uuid.New()) }

func NewUserID() UserID                 { return New[userKind]() }
func NewNotificationID() NotificationID { return New[notificationKind]() }
func NewAuditEntryID() AuditEntryID     { return New[auditEntryKind]() }
func NewComplaintID() ComplaintID       { return New[complaintKind]() }
func NewResourceID() ResourceID         { return New[resourceKind]() }

func (i ID[K]) String() string { return uuid.UUID(i).String() }

// IsNil reports whether the identifier is the zero UUID.
func (i ID[K]) IsNil() bool { return uuid.UUID(i) == uuid.Nil }

func (i ID[K]) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID[K]) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*i = ID[K](u)
	return nil
}

// Value stores nil identifiers as SQL NULL.
func (i ID[K]) Value() (driver.Value, error) {
	if i.IsNil() {
		return nil, nil
	}
	return i.String(), nil
}

func (i *ID[K]) Scan(src any) error {
	if src == nil {
		*i = ID[K](uuid.Nil)
		return nil
	}
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return err
	}
	*i = ID[K](u)
	return nil
}

func parse[K any](s, kind string) (ID[K], error) {
	if strings.TrimSpace(s) == "" {
		return ID[K]{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s id is required", kind))
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ID[K]{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid %s id", kind))
	}
	if u == uuid.Nil {
		return ID[K]{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s id must not be nil", kind))
	}
	return ID[K](u), nil
}

func ParseUserID(s string) (UserID, error) { return parse[userKind](s, "user") }

func ParseNotificationID(s string) (NotificationID, error) {
	return parse[notificationKind](s, "notification")
}

func ParseAuditEntryID(s string) (AuditEntryID, error) {
	return parse[auditEntryKind](s, "audit entry")
}

func ParseComplaintID(s string) (ComplaintID, error) { return parse[complaintKind](s, "complaint") }

func ParseResourceID(s string) (ResourceID, error) { return parse[resourceKind](s, "resource") }
