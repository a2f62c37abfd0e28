// Package stream publishes persisted audit entries to an event stream so
// downstream consumers (SIEM, analytics) see them without polling the database.
package stream

import (
	"context"

	audit "civicdesk/pkg/platform/audit"
)

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	ProduceJSON(ctx context.Context, key string, headers map[string]string, v any) error
}

// Sink implements audit.Sink on top of a Producer.
type Sink struct {
	producer Producer
}

func NewSink(p Producer) *Sink {
	return &Sink{producer: p}
}

// Publish keys records by entry ID so replays are idempotent for consumers.
func (s *Sink) Publish(ctx context.Context, entry audit.Entry) error {
	return s.producer.ProduceJSON(ctx, entry.ID.String(), map[string]string{
		"action":        string(entry.Action),
		"resource_type": string(entry.ResourceType),
	}, entry)
}
