package worker

import (
	"context"
	"log/slog"
	"time"

	audit "civicdesk/pkg/platform/audit"
	"civicdesk/pkg/platform/circuit"
)

const defaultPersistTimeout = 5 * time.Second

// Worker drains audit entries from a channel into the store and fans each
// persisted entry out to the configured sinks. Failures never leave the worker.
type Worker struct {
	store   audit.Store
	sinks   []audit.Sink
	inbox   <-chan audit.Entry
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *audit.Metrics
	timeout time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithMetrics(m *audit.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(w *Worker) { w.breaker = b }
}

func WithSinks(sinks ...audit.Sink) Option {
	return func(w *Worker) { w.sinks = append(w.sinks, sinks...) }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Entry, opts ...Option) *Worker {
	w := &Worker{
		store:   store,
		inbox:   inbox,
		logger:  slog.Default(),
		timeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.breaker == nil {
		w.breaker = circuit.New("audit_store")
	}
	return w
}

// Run persists entries until the inbox is closed (returns nil) or ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.persist(ctx, entry)
		}
	}
}

func (w *Worker) persist(ctx context.Context, entry audit.Entry) {
	if !w.breaker.Allow() {
		w.metrics.IncDropped(audit.DropCircuitOpen)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	if err := w.store.Append(writeCtx, entry); err != nil {
		w.metrics.IncPersistFailures()
		_, change := w.breaker.RecordFailure()
		if change.Opened {
			w.metrics.SetCircuitBreakerState(true)
			w.logger.WarnContext(ctx, "audit store circuit opened",
				"log_type", "audit",
				"breaker", w.breaker.Name(),
			)
		}
		w.logger.ErrorContext(ctx, "failed to persist audit entry",
			"log_type", "audit",
			"action", string(entry.Action),
			"resource_type", string(entry.ResourceType),
			"request_id", entry.RequestID,
			"error", err,
		)
		return
	}

	if _, change := w.breaker.RecordSuccess(); change.Closed {
		w.metrics.SetCircuitBreakerState(false)
		w.logger.InfoContext(ctx, "audit store circuit closed", "log_type", "audit")
	}
	w.metrics.IncPersisted()

	for _, sink := range w.sinks {
		if err := sink.Publish(writeCtx, entry); err != nil {
			w.metrics.IncSinkFailures()
			w.logger.WarnContext(ctx, "failed to publish audit entry to sink",
				"log_type", "audit",
				"action", string(entry.Action),
				"error", err,
			)
		}
	}
}
