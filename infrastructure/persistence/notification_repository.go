package persistence

import (
	"context"
	"errors"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

const (
	preferenceCollection = "notification_preferences"
	queueCollection      = "notification_queue"
)

type NotificationRepository struct {
	store repository.IStore
}

func NewNotificationRepository(store repository.IStore) repository.INotification {
	return &NotificationRepository{store: store}
}

func (r *NotificationRepository) GetPreference(ctx context.Context, userID string) (*model.NotificationPreference, error) {
	var p model.NotificationPreference
	if err := r.store.Get(ctx, preferenceCollection, userID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *NotificationRepository) SavePreference(ctx context.Context, p *model.NotificationPreference) error {
	return r.store.Set(ctx, preferenceCollection, p.UserID, p)
}

func (r *NotificationRepository) Enqueue(ctx context.Context, n *model.QueuedNotification) error {
	return r.store.Set(ctx, queueCollection, n.ID, n)
}

func (r *NotificationRepository) Pending(ctx context.Context, frequency model.NotificationFrequency) ([]*model.QueuedNotification, error) {
	var list []*model.QueuedNotification
	err := r.store.Query(ctx, queueCollection, repository.Filter{
		Equals:    map[string]interface{}{"frequency": frequency},
		Missing:   []string{"sentAt"},
		SortField: "createdAt",
	}, &list)
	return list, err
}

// MarkSent stamps each queued item; items already gone are skipped.
func (r *NotificationRepository) MarkSent(ctx context.Context, ids []string, sentAt time.Time) error {
	for _, id := range ids {
		var n model.QueuedNotification
		if err := r.store.Get(ctx, queueCollection, id, &n); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return err
		}
		n.SentAt = &sentAt
		if err := r.store.Set(ctx, queueCollection, id, &n); err != nil {
			return err
		}
	}
	return nil
}
