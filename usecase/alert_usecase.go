package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/logger"
)

type IAlertUsecase interface {
	// GetConfig returns the user's configuration, creating the defaults on first access.
	GetConfig(ctx context.Context, userID string) (*model.AlertConfig, error)
	UpdateConfig(ctx context.Context, cfg *model.AlertConfig) (*model.AlertConfig, error)

	// EvaluateSnapshot raises an alert for every rate threshold the snapshot breaches.
	// Internal failures are logged and produce no alert.
	EvaluateSnapshot(ctx context.Context, userID string, snapshot model.MetricSnapshot) []*model.MonitoringAlert
	// EvaluateFailures breaches when count reaches the configured failure threshold.
	EvaluateFailures(ctx context.Context, userID string, count int64, windowStart, windowEnd time.Time) *model.MonitoringAlert

	GetAlert(ctx context.Context, id string) (*model.MonitoringAlert, error)
	ListAlerts(ctx context.Context, userID string, status *model.AlertStatus, since *time.Time) ([]*model.MonitoringAlert, error)
	// ResolveAlert is idempotent on resolved alerts.
	ResolveAlert(ctx context.Context, id string) (*model.MonitoringAlert, error)
}

// AlertChannels are the optional delivery paths of a raised alert.
type AlertChannels struct {
	Email       INotificationUsecase
	Webhook     Notifier
	Dashboard   AlertBroadcaster
	EventStream AlertEventPublisher
}

type alertUsecase struct {
	configs  repository.IAlertConfig
	alerts   repository.IAlert
	limiter  IRateLimiter
	channels AlertChannels
	clock    clock.Clock
	metrics  Metrics
	newID    IDGenerator

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex
}

func NewAlertUsecase(configs repository.IAlertConfig, alerts repository.IAlert, limiter IRateLimiter, channels AlertChannels, clk clock.Clock, metrics Metrics) IAlertUsecase {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &alertUsecase{
		configs:  configs,
		alerts:   alerts,
		limiter:  limiter,
		channels: channels,
		clock:    clk,
		metrics:  metrics,
		newID:    uuid.NewString,
		keys:     make(map[string]*sync.Mutex),
	}
}

func (u *alertUsecase) GetConfig(ctx context.Context, userID string) (*model.AlertConfig, error) {
	cfg, err := u.configs.GetConfig(ctx, userID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	def := model.DefaultAlertConfig(userID)
	def.UpdatedAt = u.clock.Now()
	if err := u.configs.SaveConfig(ctx, &def); err != nil {
		logger.GetLogger().WithField("user_id", userID).WithField("error", err).Warn("failed to persist default alert config")
	}
	return &def, nil
}

func (u *alertUsecase) UpdateConfig(ctx context.Context, cfg *model.AlertConfig) (*model.AlertConfig, error) {
	if err := validateAlertConfig(cfg); err != nil {
		return nil, err
	}
	cfg.UpdatedAt = u.clock.Now()
	if err := u.configs.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save alert config: %w", err)
	}
	return cfg, nil
}

func validateAlertConfig(cfg *model.AlertConfig) error {
	if cfg == nil || cfg.UserID == "" {
		return fmt.Errorf("%w: user id required", model.ErrInvalidAlertConfig)
	}
	th := cfg.Thresholds
	for name, v := range map[string]float64{"deliveryRate": th.DeliveryRate, "openRate": th.OpenRate, "clickRate": th.ClickRate} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s must be between 0 and 100", model.ErrInvalidAlertConfig, name)
		}
	}
	if th.FailureCount < 1 {
		return fmt.Errorf("%w: failureCount must be positive", model.ErrInvalidAlertConfig)
	}
	if th.ResponseTime < 0 {
		return fmt.Errorf("%w: responseTime must not be negative", model.ErrInvalidAlertConfig)
	}
	if cfg.CooldownMinutes < 0 {
		return fmt.Errorf("%w: cooldownMinutes must not be negative", model.ErrInvalidAlertConfig)
	}
	if s := cfg.NotificationChannels.SlackURL; s != "" {
		parsed, err := url.Parse(s)
		if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
			return fmt.Errorf("%w: slackUrl must be an http(s) URL", model.ErrInvalidAlertConfig)
		}
	}
	return nil
}

type breach struct {
	kind      model.AlertType
	metric    string
	value     float64
	threshold float64
	platform  *model.Platform
	details   map[string]interface{}
}

func (u *alertUsecase) EvaluateSnapshot(ctx context.Context, userID string, snapshot model.MetricSnapshot) []*model.MonitoringAlert {
	cfg, ok := u.enabledConfig(ctx, userID)
	if !ok {
		return nil
	}
	details := map[string]interface{}{
		"sent":        snapshot.Sent,
		"windowStart": snapshot.WindowStart,
		"windowEnd":   snapshot.WindowEnd,
	}
	var breaches []breach
	th := cfg.Thresholds
	if snapshot.Sent > 0 {
		if snapshot.DeliveryRate < th.DeliveryRate {
			breaches = append(breaches, breach{model.AlertDeliveryRate, "deliveryRate", snapshot.DeliveryRate, th.DeliveryRate, snapshot.Platform, details})
		}
		// open and click rates without a denominator have no data
		if snapshot.Delivered > 0 && snapshot.OpenRate < th.OpenRate {
			breaches = append(breaches, breach{model.AlertOpenRate, "openRate", snapshot.OpenRate, th.OpenRate, snapshot.Platform, details})
		}
		if snapshot.Opened > 0 && snapshot.ClickRate < th.ClickRate {
			breaches = append(breaches, breach{model.AlertClickRate, "clickRate", snapshot.ClickRate, th.ClickRate, snapshot.Platform, details})
		}
	}
	if th.ResponseTime > 0 && snapshot.ResponseTimeMs > th.ResponseTime {
		breaches = append(breaches, breach{model.AlertResponseTime, "responseTime", snapshot.ResponseTimeMs, th.ResponseTime, snapshot.Platform, details})
	}

	var raised []*model.MonitoringAlert
	for _, b := range breaches {
		if a := u.raise(ctx, cfg, b); a != nil {
			raised = append(raised, a)
		}
	}
	return raised
}

func (u *alertUsecase) EvaluateFailures(ctx context.Context, userID string, count int64, windowStart, windowEnd time.Time) *model.MonitoringAlert {
	cfg, ok := u.enabledConfig(ctx, userID)
	if !ok || count < int64(cfg.Thresholds.FailureCount) {
		return nil
	}
	return u.raise(ctx, cfg, breach{
		kind:      model.AlertFailureCount,
		metric:    "failureCount",
		value:     float64(count),
		threshold: float64(cfg.Thresholds.FailureCount),
		details:   map[string]interface{}{"windowStart": windowStart, "windowEnd": windowEnd},
	})
}

func (u *alertUsecase) enabledConfig(ctx context.Context, userID string) (*model.AlertConfig, bool) {
	cfg, err := u.GetConfig(ctx, userID)
	if err != nil {
		logger.GetLogger().WithField("user_id", userID).WithField("error", err).Warn("alert evaluation skipped: config unavailable")
		return nil, false
	}
	return cfg, cfg.Enabled
}

func (u *alertUsecase) lock(userID string, kind model.AlertType) func() {
	key := userID + "|" + string(kind)
	u.keyMu.Lock()
	mu, ok := u.keys[key]
	if !ok {
		mu = &sync.Mutex{}
		u.keys[key] = mu
	}
	u.keyMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// raise applies cooldown and the alert rate limit and persists the alert under the
// per-key lock, then dispatches each channel independently outside it.
func (u *alertUsecase) raise(ctx context.Context, cfg *model.AlertConfig, b breach) *model.MonitoringAlert {
	alert := u.admit(ctx, cfg, b)
	if alert == nil {
		return nil
	}
	u.dispatch(ctx, cfg, alert)
	return alert
}

func (u *alertUsecase) admit(ctx context.Context, cfg *model.AlertConfig, b breach) *model.MonitoringAlert {
	log := logger.GetLogger().WithField("user_id", cfg.UserID).WithField("type", b.kind)
	unlock := u.lock(cfg.UserID, b.kind)
	defer unlock()

	now := u.clock.Now()
	latest, err := u.alerts.LatestActive(ctx, cfg.UserID, b.kind)
	if err != nil {
		log.WithField("error", err).Warn("alert evaluation failed: cannot read previous alerts")
		return nil
	}
	cooldown := time.Duration(cfg.CooldownMinutes) * time.Minute
	if latest != nil && now.Sub(latest.Timestamp) < cooldown {
		u.metrics.AlertSuppressed(string(b.kind), "cooldown")
		log.Debug("alert suppressed by cooldown")
		return nil
	}
	if u.limiter != nil && u.limiter.IsLimited(ctx, cfg.UserID, model.RateLimitAlert) {
		u.metrics.AlertSuppressed(string(b.kind), "rate_limited")
		log.Warn("alert dropped: alert rate limit reached")
		return nil
	}

	alert := &model.MonitoringAlert{
		ID:        u.newID(),
		UserID:    cfg.UserID,
		Type:      b.kind,
		Severity:  severityOf(b.kind, b.value, b.threshold),
		Metric:    b.metric,
		Value:     b.value,
		Threshold: b.threshold,
		Timestamp: now,
		Status:    model.AlertStatusActive,
		Platform:  b.platform,
		Details:   b.details,
	}
	if err := u.alerts.Create(ctx, alert); err != nil {
		log.WithField("error", err).Warn("alert evaluation failed: cannot persist alert")
		return nil
	}
	u.metrics.AlertRaised(string(b.kind))
	log.WithField("alert_id", alert.ID).WithField("value", b.value).Info("alert raised")
	return alert
}

func (u *alertUsecase) dispatch(ctx context.Context, cfg *model.AlertConfig, alert *model.MonitoringAlert) {
	log := logger.GetLogger().WithField("alert_id", alert.ID).WithField("user_id", alert.UserID)
	ch := cfg.NotificationChannels

	if ch.Email && u.channels.Email != nil {
		if err := u.channels.Email.Dispatch(ctx, alert); err != nil {
			log.WithField("error", err).Warn("email channel failed")
		}
	}

	if ch.SlackURL != "" && u.channels.Webhook != nil {
		switch {
		case u.limiter != nil && u.limiter.IsLimited(ctx, alert.UserID, model.RateLimitNotification):
			log.Warn("slack channel skipped: notification rate limit reached")
		default:
			err := u.channels.Webhook.PostWebhook(ctx, ch.SlackURL, slackMessage(alert))
			u.metrics.NotificationSent("slack", err == nil)
			if err != nil {
				log.WithField("error", err).Warn("slack channel failed")
			}
		}
	}

	if ch.Dashboard && u.channels.Dashboard != nil {
		u.channels.Dashboard.BroadcastAlert(alert)
	}

	if u.channels.EventStream != nil {
		if err := u.channels.EventStream.PublishAlert(ctx, alert); err != nil {
			log.WithField("error", err).Warn("alert event publish failed")
		}
	}
}

func (u *alertUsecase) GetAlert(ctx context.Context, id string) (*model.MonitoringAlert, error) {
	alert, err := u.alerts.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrAlertNotFound
	}
	return alert, err
}

func (u *alertUsecase) ListAlerts(ctx context.Context, userID string, status *model.AlertStatus, since *time.Time) ([]*model.MonitoringAlert, error) {
	return u.alerts.List(ctx, userID, status, since)
}

func (u *alertUsecase) ResolveAlert(ctx context.Context, id string) (*model.MonitoringAlert, error) {
	alert, err := u.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == model.AlertStatusResolved {
		return alert, nil
	}
	now := u.clock.Now()
	alert.Status = model.AlertStatusResolved
	alert.ResolvedAt = &now
	if err := u.alerts.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("resolve alert %s: %w", id, err)
	}
	if u.channels.Dashboard != nil {
		u.channels.Dashboard.BroadcastResolved(alert)
	}
	return alert, nil
}
