package repository

import (
	"context"
	"time"

	"social-dashboard/domain/model"
)

type IAlertConfig interface {
	// GetConfig returns model.ErrNotFound when the user has never been configured.
	GetConfig(ctx context.Context, userID string) (*model.AlertConfig, error)
	SaveConfig(ctx context.Context, cfg *model.AlertConfig) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

type IAlert interface {
	Create(ctx context.Context, alert *model.MonitoringAlert) error
	GetByID(ctx context.Context, id string) (*model.MonitoringAlert, error)
	Update(ctx context.Context, alert *model.MonitoringAlert) error
	// LatestActive returns the most recent active alert of the type, or nil.
	LatestActive(ctx context.Context, userID string, alertType model.AlertType) (*model.MonitoringAlert, error)
	List(ctx context.Context, userID string, status *model.AlertStatus, since *time.Time) ([]*model.MonitoringAlert, error)
}
