package repository

import (
	"context"

	"social-dashboard/domain/model"
)

// IRetryLog persists the append-only attempt history of a job
type IRetryLog interface {
	Append(ctx context.Context, entry *model.RetryAttemptLog) error
	ListByJob(ctx context.Context, jobID string) ([]*model.RetryAttemptLog, error)
}
