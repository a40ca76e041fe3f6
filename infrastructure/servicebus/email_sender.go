package servicebus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"

	"social-dashboard/infrastructure/logger"
)

// EmailMessage is the body the mail relay consumes from the queue.
type EmailMessage struct {
	From     string                 `json:"from"`
	To       string                 `json:"to"`
	Subject  string                 `json:"subject"`
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// EmailSender enqueues outbound e-mail for the relay worker.
type EmailSender struct {
	sender messageSender
	from   string
}

func NewEmailSender(client *azservicebus.Client, queue, from string) (*EmailSender, error) {
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		return nil, fmt.Errorf("create sender for %s: %w", queue, err)
	}
	return newEmailSender(sender, from), nil
}

func newEmailSender(sender messageSender, from string) *EmailSender {
	return &EmailSender{sender: sender, from: from}
}

func (s *EmailSender) SendEmail(ctx context.Context, to, subject, templateID string, data map[string]interface{}) error {
	body, err := json.Marshal(EmailMessage{From: s.from, To: to, Subject: subject, Template: templateID, Data: data})
	if err != nil {
		return fmt.Errorf("encode e-mail: %w", err)
	}
	contentType := "application/json"
	messageID := uuid.NewString()
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		MessageID:   &messageID,
		Subject:     &templateID,
		ApplicationProperties: map[string]interface{}{
			"template": templateID,
		},
	}
	if err := s.sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).WithField("template", templateID).Error("Error while sending e-mail message.")
		return err
	}
	return nil
}

func (s *EmailSender) Close(ctx context.Context) error {
	return s.sender.Close(ctx)
}
