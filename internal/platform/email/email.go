// Package email delivers notification mail over SMTP.
package email

import (
	"context"
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

// SMTPMailer sends plain-text mail through a single SMTP endpoint.
type SMTPMailer struct {
	dialer *gomail.Dialer
}

func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, username, password)}
}

func (m *SMTPMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// NoopMailer logs instead of sending. Used when email delivery is disabled,
// typically in development environments.
type NoopMailer struct{}

func (NoopMailer) Send(_ context.Context, _, to, subject, _ string) error {
	slog.Info("email delivery disabled, dropping message", "to", to, "subject", subject)
	return nil
}
