package notifier

import (
	"context"
	"errors"

	"social-dashboard/infrastructure/logger"
)

var ErrEmailUnavailable = errors.New("no e-mail transport configured")

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, templateID string, data map[string]interface{}) error
}

// Notifier joins an e-mail transport and the webhook poster into the usecase Notifier.
type Notifier struct {
	email   EmailSender
	webhook *WebhookPoster
}

func New(email EmailSender, webhook *WebhookPoster) *Notifier {
	if webhook == nil {
		webhook = NewWebhookPoster(DefaultWebhookConfig())
	}
	return &Notifier{email: email, webhook: webhook}
}

func (n *Notifier) SendEmail(ctx context.Context, to, subject, templateID string, data map[string]interface{}) error {
	if n.email == nil {
		return ErrEmailUnavailable
	}
	return n.email.SendEmail(ctx, to, subject, templateID, data)
}

func (n *Notifier) PostWebhook(ctx context.Context, url string, payload interface{}) error {
	return n.webhook.PostWebhook(ctx, url, payload)
}

// LogEmailSender writes e-mails to the log instead of sending them. Used when no
// message bus is configured.
type LogEmailSender struct{}

func (LogEmailSender) SendEmail(_ context.Context, to, subject, templateID string, _ map[string]interface{}) error {
	logger.GetLogger().
		WithField("to", to).
		WithField("subject", subject).
		WithField("template", templateID).
		Info("e-mail not sent: transport disabled")
	return nil
}
