package messaging

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"rebanho/backend/internal/config"
)

// Attachment is one in-memory file to be carried on an outgoing email.
type Attachment struct {
	Filename string
	Bytes    []byte
	MIMEType string
}

// EmailSender abstracts the outbound email transport. A nil sender means the
// channel is not configured; callers record that as a channel-level outcome
// instead of failing the whole dispatch.
type EmailSender interface {
	Send(toEmail, subject, body string, attachments []Attachment) error
}

// Mailer sends report emails over SMTP.
type Mailer struct {
	dialer   *gomail.Dialer
	fromName string
	fromAddr string
}

// NewMailer returns nil when the SMTP settings are incomplete.
func NewMailer(cfg config.Config) *Mailer {
	if cfg.SMTPHost == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "" || cfg.FromEmail == "" {
		return nil
	}
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	dialer.SSL = cfg.SMTPSecure
	return &Mailer{
		dialer:   dialer,
		fromName: cfg.FromName,
		fromAddr: cfg.FromEmail,
	}
}

// Send delivers one email with the given attachments.
func (m *Mailer) Send(toEmail, subject, body string, attachments []Attachment) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("destinatário sem email")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.fromAddr, m.fromName))
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	for _, a := range attachments {
		a := a
		msg.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(a.Bytes))
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.MIMEType}}),
		)
	}

	return m.dialer.DialAndSend(msg)
}
