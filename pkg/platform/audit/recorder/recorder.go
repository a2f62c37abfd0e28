// Package recorder is the non-blocking front door of the audit pipeline.
//
// Record enriches an entry from the request context and enqueues it on a
// bounded buffer; a worker goroutine persists it. Callers never block on the
// store and never see an error: a full buffer, a missing actor or an open
// circuit drop the entry and bump a counter.
package recorder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mssola/useragent"

	id "civicdesk/pkg/domain"
	audit "civicdesk/pkg/platform/audit"
	"civicdesk/pkg/platform/audit/worker"
	"civicdesk/pkg/platform/circuit"
	"civicdesk/pkg/requestcontext"
)

const defaultBufferSize = 1024

// Recorder buffers audit entries for asynchronous persistence.
type Recorder struct {
	inbox   chan audit.Entry
	store   audit.Store
	logger  *slog.Logger
	metrics *audit.Metrics
	sampler *Sampler
	breaker *circuit.Breaker
	sinks   []audit.Sink
	bufSize int

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Option configures the Recorder.
type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithMetrics(m *audit.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithBufferSize bounds the number of entries waiting for the worker.
func WithBufferSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

func WithSampler(s *Sampler) Option {
	return func(r *Recorder) { r.sampler = s }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Recorder) { r.breaker = b }
}

// WithSinks adds downstream sinks that receive every persisted entry.
func WithSinks(sinks ...audit.Sink) Option {
	return func(r *Recorder) { r.sinks = append(r.sinks, sinks...) }
}

// New creates a Recorder and starts its worker.
func New(store audit.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		logger:  slog.Default(),
		sampler: NewSampler(1),
		bufSize: defaultBufferSize,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.inbox = make(chan audit.Entry, r.bufSize)

	w := worker.NewWorker(store, r.inbox,
		worker.WithLogger(r.logger),
		worker.WithMetrics(r.metrics),
		worker.WithBreaker(r.breaker),
		worker.WithSinks(r.sinks...),
	)
	go func() {
		defer close(r.done)
		_ = w.Run(context.Background())
	}()
	return r
}

// Record enqueues entry without blocking. Entries without an actor are dropped.
func (r *Recorder) Record(ctx context.Context, entry audit.Entry) {
	if entry.UserID.IsNil() {
		entry.UserID = requestcontext.UserID(ctx)
	}
	if entry.UserID.IsNil() {
		r.metrics.IncDropped(audit.DropNoActor)
		return
	}
	if !r.sampler.ShouldSample(entry.Action) {
		r.metrics.IncDropped(audit.DropSampled)
		return
	}

	r.enrich(ctx, &entry)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.metrics.IncDropped(audit.DropClosed)
		return
	}
	select {
	case r.inbox <- entry:
		r.metrics.IncRecorded()
	default:
		r.metrics.IncDropped(audit.DropBufferFull)
		r.logger.WarnContext(ctx, "audit buffer full, entry dropped",
			"log_type", "audit",
			"action", string(entry.Action),
			"resource_type", string(entry.ResourceType),
			"request_id", entry.RequestID,
		)
	}
}

// List reads through to the store.
func (r *Recorder) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	return r.store.List(ctx, filter)
}

// Close stops accepting entries and waits for the buffer to drain.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.inbox)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) enrich(ctx context.Context, e *audit.Entry) {
	if e.ID.IsNil() {
		e.ID = id.NewAuditEntryID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if e.IPAddress == "" {
		e.IPAddress = requestcontext.ClientIP(ctx)
	}
	if e.UserAgent == "" {
		e.UserAgent = requestcontext.UserAgent(ctx)
	}
	if e.UserAgent != "" {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, 1)
		}
		if _, ok := e.Metadata["client"]; !ok {
			e.Metadata["client"] = describeUserAgent(e.UserAgent)
		}
	}
}

func describeUserAgent(raw string) map[string]any {
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	return map[string]any{
		"browser": browser,
		"version": version,
		"os":      ua.OS(),
		"mobile":  ua.Mobile(),
		"bot":     ua.Bot(),
	}
}
