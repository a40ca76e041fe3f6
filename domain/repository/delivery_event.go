package repository

import (
	"context"
	"time"

	"social-dashboard/domain/model"
)

// IDeliveryEvent is the source of the rolling metrics the monitor samples.
type IDeliveryEvent interface {
	Record(ctx context.Context, event *model.DeliveryEvent) error
	// Aggregate counts events for the user in [from, to]. A nil platform aggregates all platforms.
	Aggregate(ctx context.Context, userID string, platform *model.Platform, from, to time.Time) (model.DeliveryCounts, error)
	CountKind(ctx context.Context, userID string, kind model.DeliveryEventKind, since time.Time) (int64, error)
	Platforms(ctx context.Context, userID string, since time.Time) ([]model.Platform, error)
}
