package persistence

import (
	"context"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

const (
	alertConfigCollection = "alert_configs"
	alertCollection       = "monitoring_alerts"
)

// AlertConfigRepository keeps one alert configuration per user in the document store.
type AlertConfigRepository struct {
	store repository.IStore
}

func NewAlertConfigRepository(store repository.IStore) repository.IAlertConfig {
	return &AlertConfigRepository{store: store}
}

func (r *AlertConfigRepository) GetConfig(ctx context.Context, userID string) (*model.AlertConfig, error) {
	var cfg model.AlertConfig
	if err := r.store.Get(ctx, alertConfigCollection, userID, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *AlertConfigRepository) SaveConfig(ctx context.Context, cfg *model.AlertConfig) error {
	return r.store.Set(ctx, alertConfigCollection, cfg.UserID, cfg)
}

func (r *AlertConfigRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var configs []model.AlertConfig
	if err := r.store.Query(ctx, alertConfigCollection, repository.Filter{SortField: "userId"}, &configs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(configs))
	for _, c := range configs {
		ids = append(ids, c.UserID)
	}
	return ids, nil
}

// AlertRepository stores monitoring alerts keyed by id.
type AlertRepository struct {
	store repository.IStore
}

func NewAlertRepository(store repository.IStore) repository.IAlert {
	return &AlertRepository{store: store}
}

func (r *AlertRepository) Create(ctx context.Context, a *model.MonitoringAlert) error {
	return r.store.Set(ctx, alertCollection, a.ID, a)
}

func (r *AlertRepository) Update(ctx context.Context, a *model.MonitoringAlert) error {
	return r.store.Set(ctx, alertCollection, a.ID, a)
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*model.MonitoringAlert, error) {
	var a model.MonitoringAlert
	if err := r.store.Get(ctx, alertCollection, id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepository) LatestActive(ctx context.Context, userID string, alertType model.AlertType) (*model.MonitoringAlert, error) {
	var list []*model.MonitoringAlert
	err := r.store.Query(ctx, alertCollection, repository.Filter{
		Equals:     map[string]interface{}{"userId": userID, "type": alertType, "status": model.AlertStatusActive},
		SortField:  "timestamp",
		Descending: true,
		Limit:      1,
	}, &list)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *AlertRepository) List(ctx context.Context, userID string, status *model.AlertStatus, since *time.Time) ([]*model.MonitoringAlert, error) {
	f := repository.Filter{
		Equals:     map[string]interface{}{"userId": userID},
		SortField:  "timestamp",
		Descending: true,
	}
	if status != nil {
		f.Equals["status"] = *status
	}
	if since != nil {
		f.SinceField = "timestamp"
		f.Since = since
	}
	var list []*model.MonitoringAlert
	if err := r.store.Query(ctx, alertCollection, f, &list); err != nil {
		return nil, err
	}
	return list, nil
}
