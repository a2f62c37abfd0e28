// Package audit exposes the audit trail to administrators and attaches
// recording to mutating HTTP routes.
package audit

import (
	"context"

	id "civicdesk/pkg/domain"
	dErrors "civicdesk/pkg/domain-errors"
	audit "civicdesk/pkg/platform/audit"
)

// Reader lists persisted audit entries.
type Reader interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error)
}

// Service answers audit queries. It is read-only; writes go through the recorder.
type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// List returns one page of entries newest first.
func (s *Service) List(ctx context.Context, filter audit.Filter) (*audit.Page, error) {
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid action")
	}
	if filter.ResourceType != "" && !filter.ResourceType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid resource type")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, dErrors.New(dErrors.CodeValidation, "endDate must not be before startDate")
	}
	filter = filter.Normalize()

	entries, total, err := s.reader.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit logs")
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return &audit.Page{
		Entries:    entries,
		Total:      total,
		Page:       filter.Page,
		TotalPages: audit.TotalPages(total, filter.PageSize),
	}, nil
}

// ListByUser returns the entries a single actor produced.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID, page, pageSize int) (*audit.Page, error) {
	return s.List(ctx, audit.Filter{UserID: userID, Page: page, PageSize: pageSize})
}

// ListByResource returns the history of one polymorphic resource reference.
func (s *Service) ListByResource(ctx context.Context, resourceType audit.ResourceType, resourceID string, page, pageSize int) (*audit.Page, error) {
	if resourceID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "resource id is required")
	}
	if !resourceType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid resource type")
	}
	return s.List(ctx, audit.Filter{ResourceType: resourceType, ResourceID: resourceID, Page: page, PageSize: pageSize})
}
