package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"civicdesk/internal/platform/config"
)

// Transport hands a composed message to a mail server.
type Transport interface {
	Deliver(ctx context.Context, from string, to []string, raw []byte) error
}

// SMTPTransport opens one connection per message.
type SMTPTransport struct {
	addr     string
	host     string
	username string
	password string
	startTLS bool
	timeout  time.Duration
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPTransport{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		startTLS: cfg.StartTLS,
		timeout:  timeout,
	}
}

func (t *SMTPTransport) Deliver(ctx context.Context, from string, to []string, raw []byte) error {
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", t.addr, err)
	}
	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	var c *smtp.Client
	if t.startTLS {
		c, err = smtp.NewClientStartTLS(conn, &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12})
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	} else {
		c = smtp.NewClient(conn)
	}
	defer func() { _ = c.Close() }()

	if t.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.username, t.password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.SendMail(from, to, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return c.Quit()
}
