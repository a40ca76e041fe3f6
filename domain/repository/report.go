package repository

import (
	"context"

	"social-dashboard/domain/model"
)

type IReportSchedule interface {
	Save(ctx context.Context, schedule *model.ReportSchedule) error
	GetByID(ctx context.Context, id string) (*model.ReportSchedule, error)
	ListByUser(ctx context.Context, userID string) ([]*model.ReportSchedule, error)
	ListEnabled(ctx context.Context) ([]*model.ReportSchedule, error)
	Delete(ctx context.Context, id string) error
}
