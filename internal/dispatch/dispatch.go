// Package dispatch runs side-channel deliveries (email, SMS, push) detached
// from the request that triggered them.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultTimeout = 30 * time.Second

// Result is the outcome of one delivery attempt. Channels report failures
// here instead of returning errors.
type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Succeeded(id string) Result {
	return Result{Success: true, ID: id}
}

func Failed(err error) Result {
	if err == nil {
		return Result{Error: "unknown error"}
	}
	return Result{Error: err.Error()}
}

// Err converts a failed result back into an error, or nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("dispatch failed: %s", r.Error)
}

// Runner starts detached deliveries. Each task gets its own goroutine, a panic
// boundary and its own deadline. The task context keeps the caller's values
// (request id, trace) but not its cancellation, so a finished or aborted
// request never cancels the send.
type Runner struct {
	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: slog.Default(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go runs fn in the background. Errors and panics are logged and counted.
func (r *Runner) Go(parent context.Context, name string, fn func(ctx context.Context) error) {
	if parent == nil {
		parent = context.Background()
	}
	base := context.WithoutCancel(parent)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(base, r.timeout)
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				r.metrics.IncTask(name, OutcomePanic)
				r.logger.ErrorContext(ctx, "dispatch task panicked",
					"task", name,
					"panic", fmt.Sprint(rec),
				)
			}
		}()

		if err := fn(ctx); err != nil {
			r.metrics.IncTask(name, OutcomeFailure)
			r.logger.WarnContext(ctx, "dispatch task failed",
				"task", name,
				"error", err,
			)
			return
		}
		r.metrics.IncTask(name, OutcomeSuccess)
	}()
}

// Wait blocks until every started task finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
