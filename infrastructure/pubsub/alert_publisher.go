package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"social-dashboard/domain/model"
	"social-dashboard/infrastructure/logger"
)

const eventAlertCreated = "alert.created"

type alertEnvelope struct {
	Type  string                 `json:"type"`
	Alert *model.MonitoringAlert `json:"alert"`
}

// AlertPublisher fans raised alerts out on a topic for downstream consumers.
type AlertPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewAlertPublisher(client *pubsub.Client, topicID string) *AlertPublisher {
	return &AlertPublisher{client: client, topic: client.Topic(topicID)}
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *AlertPublisher) EnsureTopic(ctx context.Context) error {
	exists, err := p.topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check topic %s: %w", p.topic.ID(), err)
	}
	if exists {
		return nil
	}
	logger.GetLogger().WithField("topic", p.topic.ID()).Info("Topic doesn't exist - creating it")
	if _, err := p.client.CreateTopic(ctx, p.topic.ID()); err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic.ID(), err)
	}
	return nil
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, alert *model.MonitoringAlert) error {
	data, err := json.Marshal(alertEnvelope{Type: eventAlertCreated, Alert: alert})
	if err != nil {
		return fmt.Errorf("encode alert event: %w", err)
	}
	serverID, err := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":     string(alert.Type),
			"severity": string(alert.Severity),
			"user_id":  alert.UserID,
		},
	}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	logger.GetLogger().WithField("server_id", serverID).WithField("alert_id", alert.ID).Debug("alert event published")
	return nil
}

// Stop flushes pending messages.
func (p *AlertPublisher) Stop() {
	p.topic.Stop()
}
