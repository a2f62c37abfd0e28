package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/dispatch"
)

type captureTransport struct {
	from string
	to   []string
	raw  []byte
	err  error
}

func (c *captureTransport) Deliver(_ context.Context, from string, to []string, raw []byte) error {
	c.from, c.to, c.raw = from, to, raw
	return c.err
}

type panickingTransport struct{}

func (panickingTransport) Deliver(context.Context, string, []string, []byte) error {
	panic("socket closed")
}

var fixedNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func newSender(t Transport, m *dispatch.Metrics) *Sender {
	s := NewSender(t, "noreply@village.gov",
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
	)
	s.now = func() time.Time { return fixedNow }
	return s
}

type part struct {
	contentType string
	filename    string
	body        string
}

func parse(t *testing.T, raw []byte) (*mail.Reader, []part) {
	t.Helper()
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	var parts []part
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			parts = append(parts, part{contentType: ct, body: string(body)})
		case *mail.AttachmentHeader:
			ct, _, _ := h.ContentType()
			name, _ := h.Filename()
			parts = append(parts, part{contentType: ct, filename: name, body: string(body)})
		}
	}
	return mr, parts
}

func TestSender_ComposesMultipartWithAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monthly-report-2024-06.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3 fake"), 0o600))

	transport := &captureTransport{}
	m := dispatch.NewMetrics(prometheus.NewRegistry())
	res := newSender(transport, m).Send(context.Background(), Message{
		To:          []string{" Admin@Village.gov ", "admin@village.gov"},
		Subject:     "Monthly Report - June 2024",
		Text:        "report attached",
		HTML:        "<p>report attached</p>",
		Attachments: []Attachment{{Path: path}},
	})

	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, []string{"admin@village.gov"}, transport.to)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues(dispatch.ChannelEmail, dispatch.OutcomeSuccess)))

	mr, parts := parse(t, transport.raw)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Monthly Report - June 2024", subject)

	require.Len(t, parts, 3)
	assert.Equal(t, "text/plain", parts[0].contentType)
	assert.Equal(t, "text/html", parts[1].contentType)
	assert.Equal(t, "monthly-report-2024-06.pdf", parts[2].filename)
	assert.Equal(t, "application/pdf", parts[2].contentType)
	assert.Equal(t, "%PDF-1.3 fake", parts[2].body)
}

func TestSender_FailuresAreResults(t *testing.T) {
	tests := []struct {
		name      string
		transport Transport
		msg       Message
		wantErr   string
	}{
		{"not configured", nil, Message{To: []string{"a@x.io"}, Text: "x"}, "not configured"},
		{"no recipients", &captureTransport{}, Message{To: []string{"not-an-address"}, Text: "x"}, "no recipients"},
		{"no body", &captureTransport{}, Message{To: []string{"a@x.io"}}, "message has no body"},
		{"transport error", &captureTransport{err: errors.New("550 mailbox unavailable")}, Message{To: []string{"a@x.io"}, Text: "x"}, "550 mailbox unavailable"},
		{"missing attachment", &captureTransport{}, Message{To: []string{"a@x.io"}, Text: "x", Attachments: []Attachment{{Path: "/nonexistent/report.pdf"}}}, "read attachment"},
		{"transport panic", panickingTransport{}, Message{To: []string{"a@x.io"}, Text: "x"}, "email send panicked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := dispatch.NewMetrics(prometheus.NewRegistry())
			var res dispatch.Result
			assert.NotPanics(t, func() {
				res = newSender(tt.transport, m).Send(context.Background(), tt.msg)
			})
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.wantErr)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues(dispatch.ChannelEmail, dispatch.OutcomeFailure)))
		})
	}
}
