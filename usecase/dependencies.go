package usecase

import (
	"context"

	"social-dashboard/domain/model"
)

// Notifier delivers e-mail and webhook messages. Callers log failures instead of propagating them.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, templateID string, data map[string]interface{}) error
	PostWebhook(ctx context.Context, url string, payload interface{}) error
}

// AlertBroadcaster pushes alert events to connected dashboards.
type AlertBroadcaster interface {
	BroadcastAlert(alert *model.MonitoringAlert)
	BroadcastResolved(alert *model.MonitoringAlert)
}

// AlertEventPublisher fans alert events out to other services.
type AlertEventPublisher interface {
	PublishAlert(ctx context.Context, alert *model.MonitoringAlert) error
}

// PlatformClient is one social network's publish capability. Errors should carry
// *model.PlatformError so they can be classified for retry.
type PlatformClient interface {
	Upload(ctx context.Context, mediaURL, mediaType string) (string, error)
	Publish(ctx context.Context, content string, mediaIDs []string) (model.PostResult, error)
}

// PlatformRegistry resolves the client for a platform.
type PlatformRegistry interface {
	Client(platform model.Platform) (PlatformClient, bool)
}

// IDGenerator produces unique record identifiers.
type IDGenerator func() string
