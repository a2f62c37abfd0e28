// Package email composes MIME messages and delivers them over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-message/mail"

	strutil "civicdesk/pkg/platform/strings"
)

// Message is one outgoing email. At least one of Text and HTML must be set.
type Message struct {
	To          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment is read from Path when Data is empty.
type Attachment struct {
	FileName    string
	ContentType string
	Path        string
	Data        []byte
}

var (
	errNoRecipients = errors.New("no recipients")
	errNoBody       = errors.New("message has no body")
)

// compose renders msg as RFC 5322 bytes and returns them with the Message-ID.
func compose(from string, msg Message, now time.Time) ([]byte, string, error) {
	to := strutil.NormalizeAddresses(msg.To)
	if len(to) == 0 {
		return nil, "", errNoRecipients
	}
	if msg.Text == "" && msg.HTML == "" {
		return nil, "", errNoBody
	}

	var h mail.Header
	h.SetDate(now)
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	rcpts := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		rcpts = append(rcpts, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", rcpts)
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("generate message id: %w", err)
	}
	messageID, _ := h.MessageID()

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("create mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, "", fmt.Errorf("create inline part: %w", err)
	}
	if msg.Text != "" {
		if err := writeInline(tw, "text/plain", msg.Text); err != nil {
			return nil, "", err
		}
	}
	if msg.HTML != "" {
		if err := writeInline(tw, "text/html", msg.HTML); err != nil {
			return nil, "", err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, "", fmt.Errorf("close inline part: %w", err)
	}

	for _, att := range msg.Attachments {
		if err := writeAttachment(mw, att); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), messageID, nil
}

func writeInline(tw *mail.InlineWriter, contentType, body string) error {
	var ih mail.InlineHeader
	ih.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ih)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return w.Close()
}

func writeAttachment(mw *mail.Writer, att Attachment) error {
	data := att.Data
	if len(data) == 0 && att.Path != "" {
		var err error
		if data, err = os.ReadFile(att.Path); err != nil {
			return fmt.Errorf("read attachment %s: %w", att.Path, err)
		}
	}
	name := att.FileName
	if name == "" {
		name = filepath.Base(att.Path)
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(contentType, nil)
	ah.SetFilename(name)
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("create attachment %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write attachment %s: %w", name, err)
	}
	return w.Close()
}
