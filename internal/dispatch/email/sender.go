package email

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"civicdesk/internal/dispatch"
	strutil "civicdesk/pkg/platform/strings"
)

var errNotConfigured = errors.New("not configured")

// Sender delivers Messages. Send never returns an error or panics; the outcome
// is reported in the Result.
type Sender struct {
	transport Transport
	from      string
	logger    *slog.Logger
	metrics   *dispatch.Metrics
	now       func() time.Time
}

type Option func(*Sender)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

func WithMetrics(m *dispatch.Metrics) Option {
	return func(s *Sender) {
		s.metrics = m
	}
}

// NewSender builds a Sender. A nil transport yields "not configured" results.
func NewSender(transport Transport, from string, opts ...Option) *Sender {
	s := &Sender{
		transport: transport,
		from:      from,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) Send(ctx context.Context, msg Message) (res dispatch.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = dispatch.Result{Error: "email send panicked"}
		}
		s.metrics.Observe(dispatch.ChannelEmail, res)
		if !res.Success {
			s.logger.WarnContext(ctx, "email not sent",
				"subject", msg.Subject,
				"recipients", len(msg.To),
				"error", res.Error,
			)
		}
	}()

	if s.transport == nil {
		return dispatch.Failed(errNotConfigured)
	}
	raw, messageID, err := compose(s.from, msg, s.now())
	if err != nil {
		return dispatch.Failed(err)
	}
	if err := s.transport.Deliver(ctx, s.from, strutil.NormalizeAddresses(msg.To), raw); err != nil {
		return dispatch.Failed(err)
	}
	s.logger.InfoContext(ctx, "email sent", "message_id", messageID, "subject", msg.Subject)
	return dispatch.Succeeded(messageID)
}
