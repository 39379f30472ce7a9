// Package email renders and delivers notification emails.
package email

import (
	"context"

	"production_backend/platform/logger"
)

// Notification is the content of one notification email.
type Notification struct {
	Subject  string
	Heading  string
	Body     string
	CTALabel string
	CTAURL   string
}

type Sender interface {
	SendNotificationEmail(ctx context.Context, toEmail, toName string, n Notification) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender logs instead of sending. Used when email is disabled.
type NoopSender struct {
	log *logger.Logger
}

func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) SendNotificationEmail(_ context.Context, toEmail, _ string, n Notification) error {
	s.log.Info("email disabled, skipping notification email", "to", toEmail, "subject", n.Subject)
	return nil
}

func (s *NoopSender) SendCustomEmail(_ context.Context, toEmail, subject, _ string) error {
	s.log.Info("email disabled, skipping email", "to", toEmail, "subject", subject)
	return nil
}
