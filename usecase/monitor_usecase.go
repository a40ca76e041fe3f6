package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/logger"
)

// MonitorWindows are the trailing windows sampled for rates and failures.
type MonitorWindows struct {
	Metrics  time.Duration
	Failures time.Duration
}

var DefaultMonitorWindows = MonitorWindows{Metrics: time.Hour, Failures: 15 * time.Minute}

type IMonitorUsecase interface {
	// RecordEvent stores a delivery event; failures trigger a reactive failure check.
	RecordEvent(ctx context.Context, event *model.DeliveryEvent) error
	// SampleUser evaluates the trailing metric window globally and per platform.
	SampleUser(ctx context.Context, userID string) ([]*model.MonitoringAlert, error)
	CheckFailures(ctx context.Context, userID string) (*model.MonitoringAlert, error)
	// SampleAll samples every user with an alert configuration.
	SampleAll(ctx context.Context) error
	// Run samples every interval until ctx is done.
	Run(ctx context.Context, interval time.Duration) error
}

type monitorUsecase struct {
	events  repository.IDeliveryEvent
	configs repository.IAlertConfig
	alerts  IAlertUsecase
	clock   clock.Clock
	windows MonitorWindows
}

func NewMonitorUsecase(events repository.IDeliveryEvent, configs repository.IAlertConfig, alerts IAlertUsecase, clk clock.Clock, windows MonitorWindows) IMonitorUsecase {
	if clk == nil {
		clk = clock.New()
	}
	if windows.Metrics <= 0 {
		windows.Metrics = DefaultMonitorWindows.Metrics
	}
	if windows.Failures <= 0 {
		windows.Failures = DefaultMonitorWindows.Failures
	}
	return &monitorUsecase{events: events, configs: configs, alerts: alerts, clock: clk, windows: windows}
}

func (u *monitorUsecase) RecordEvent(ctx context.Context, event *model.DeliveryEvent) error {
	if event == nil || event.UserID == "" {
		return errors.New("delivery event requires a user id")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = u.clock.Now()
	}
	if err := u.events.Record(ctx, event); err != nil {
		return fmt.Errorf("record delivery event: %w", err)
	}
	if event.Kind == model.DeliveryFailed {
		if _, err := u.CheckFailures(ctx, event.UserID); err != nil {
			logger.GetLogger().WithField("user_id", event.UserID).WithField("error", err).Warn("reactive failure check failed")
		}
	}
	return nil
}

func (u *monitorUsecase) SampleUser(ctx context.Context, userID string) ([]*model.MonitoringAlert, error) {
	to := u.clock.Now()
	from := to.Add(-u.windows.Metrics)

	counts, err := u.events.Aggregate(ctx, userID, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate delivery events: %w", err)
	}
	raised := u.alerts.EvaluateSnapshot(ctx, userID, counts.Snapshot(nil, from, to))

	platforms, err := u.events.Platforms(ctx, userID, from)
	if err != nil {
		return raised, fmt.Errorf("list active platforms: %w", err)
	}
	for _, p := range platforms {
		p := p
		pc, err := u.events.Aggregate(ctx, userID, &p, from, to)
		if err != nil {
			logger.GetLogger().WithField("user_id", userID).WithField("platform", p).WithField("error", err).Warn("platform sample skipped")
			continue
		}
		raised = append(raised, u.alerts.EvaluateSnapshot(ctx, userID, pc.Snapshot(&p, from, to))...)
	}
	return raised, nil
}

func (u *monitorUsecase) CheckFailures(ctx context.Context, userID string) (*model.MonitoringAlert, error) {
	to := u.clock.Now()
	from := to.Add(-u.windows.Failures)
	count, err := u.events.CountKind(ctx, userID, model.DeliveryFailed, from)
	if err != nil {
		return nil, fmt.Errorf("count failed deliveries: %w", err)
	}
	return u.alerts.EvaluateFailures(ctx, userID, count, from, to), nil
}

func (u *monitorUsecase) SampleAll(ctx context.Context) error {
	users, err := u.configs.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list monitored users: %w", err)
	}
	for _, userID := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := u.SampleUser(ctx, userID); err != nil {
			logger.GetLogger().WithField("user_id", userID).WithField("error", err).Warn("metric sample failed")
		}
		if _, err := u.CheckFailures(ctx, userID); err != nil {
			logger.GetLogger().WithField("user_id", userID).WithField("error", err).Warn("failure sample failed")
		}
	}
	return nil
}

func (u *monitorUsecase) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	for {
		if err := u.clock.Sleep(ctx, interval); err != nil {
			return nil
		}
		if err := u.SampleAll(ctx); err != nil && ctx.Err() == nil {
			logger.GetLogger().WithField("error", err).Warn("monitoring pass failed")
		}
	}
}
