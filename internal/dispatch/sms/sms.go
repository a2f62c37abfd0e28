// Package sms sends text messages through Twilio.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"civicdesk/internal/dispatch"
	"civicdesk/internal/platform/config"
	strutil "civicdesk/pkg/platform/strings"
)

var errNotConfigured = errors.New("not configured")

// MessageCreator is the slice of the Twilio REST API used here.
type MessageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// Sender delivers SMS. Send never returns an error or panics.
type Sender struct {
	api     MessageCreator
	from    string
	logger  *slog.Logger
	metrics *dispatch.Metrics
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

// New builds a Sender from Twilio credentials. Missing credentials produce a
// Sender whose results all report "not configured".
func New(cfg config.TwilioConfig, opts ...Option) *Sender {
	var api MessageCreator
	if cfg.Configured() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		api = client.Api
	}
	return NewWithAPI(api, cfg.PhoneNumber, opts...)
}

func NewWithAPI(api MessageCreator, from string, opts ...Option) *Sender {
	s := &Sender{api: api, from: from, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether messages can actually be sent.
func (s *Sender) Configured() bool { return s.api != nil }

func (s *Sender) Send(ctx context.Context, to, body string) (res dispatch.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = dispatch.Result{Error: "sms send panicked"}
		}
		s.metrics.Observe(dispatch.ChannelSMS, res)
		if !res.Success && res.Error != errNotConfigured.Error() {
			s.logger.WarnContext(ctx, "sms not sent", "error", res.Error)
		}
	}()

	if s.api == nil {
		s.logger.DebugContext(ctx, "twilio not configured, skipping sms")
		return dispatch.Failed(errNotConfigured)
	}
	number := strutil.NormalizePhone(to)
	if number == "" {
		return dispatch.Failed(fmt.Errorf("invalid phone number %q", to))
	}
	if err := ctx.Err(); err != nil {
		return dispatch.Failed(err)
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(number)
	params.SetFrom(s.from)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return dispatch.Failed(err)
	}
	sid := ""
	if msg != nil && msg.Sid != nil {
		sid = *msg.Sid
	}
	s.logger.InfoContext(ctx, "sms sent", "sid", sid)
	return dispatch.Succeeded(sid)
}

// ComplaintStatusText is the body of the complaint status SMS.
func ComplaintStatusText(title, status string) string {
	return fmt.Sprintf(`Smart Village Alert: Your complaint "%s" status updated to %s. Check portal for details.`,
		title, strings.ToUpper(status))
}
