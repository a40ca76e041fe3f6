package repository

import (
	"context"
	"time"

	"social-dashboard/domain/model"
)

type INotification interface {
	GetPreference(ctx context.Context, userID string) (*model.NotificationPreference, error)
	SavePreference(ctx context.Context, pref *model.NotificationPreference) error
	Enqueue(ctx context.Context, n *model.QueuedNotification) error
	// Pending returns unsent notifications of the frequency, oldest first.
	Pending(ctx context.Context, frequency model.NotificationFrequency) ([]*model.QueuedNotification, error)
	MarkSent(ctx context.Context, ids []string, sentAt time.Time) error
}
