package repository

import (
	"context"

	"social-dashboard/domain/model"
)

// IRateLimit stores fixed-window counters. Update runs fn with the current record
// (nil when absent) serialized per key; the returned record is persisted when non-nil.
type IRateLimit interface {
	Get(ctx context.Context, userID string, category model.RateLimitCategory) (*model.RateLimitRecord, error)
	Update(ctx context.Context, userID string, category model.RateLimitCategory, fn func(current *model.RateLimitRecord) *model.RateLimitRecord) error
	Delete(ctx context.Context, userID string, category model.RateLimitCategory) error
}
