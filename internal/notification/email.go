package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"sipro/internal/platform/config"
)

// EmailSender delivers one message to a set of recipients.
type EmailSender interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// SMTPSender sends plain-text mail over SMTP with optional AUTH.
type SMTPSender struct {
	cfg config.SMTP
}

func NewSMTPSender(cfg config.SMTP) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, recipients []string, subject, body string) error {
	if s.cfg.Host == "" {
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	msg := strings.Builder{}
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// NopSender discards mail. Used when SMTP is not configured and in tests
// that do not care about email.
type NopSender struct{}

func (NopSender) Send(context.Context, []string, string, string) error { return nil }
