package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"social-dashboard/domain/model"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/logger"
)

type IPublishUsecase interface {
	// Publish fans the post out to every platform concurrently. A failing platform
	// never fails the others; the outcome lists both.
	Publish(ctx context.Context, post *model.Post, platforms []model.Platform) (*model.PublishOutcome, error)
}

type publishUsecase struct {
	registry PlatformRegistry
	retry    IRetryOrchestrator
	monitor  IMonitorUsecase
	clock    clock.Clock
	metrics  Metrics
}

// NewPublishUsecase wires the publisher. A nil monitor skips delivery event recording.
func NewPublishUsecase(registry PlatformRegistry, retry IRetryOrchestrator, monitor IMonitorUsecase, clk clock.Clock, metrics Metrics) IPublishUsecase {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &publishUsecase{registry: registry, retry: retry, monitor: monitor, clock: clk, metrics: metrics}
}

type platformResult struct {
	platform model.Platform
	result   model.PostResult
	err      error
}

func (u *publishUsecase) Publish(ctx context.Context, post *model.Post, platforms []model.Platform) (*model.PublishOutcome, error) {
	if post == nil || post.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", model.ErrInvalidPost)
	}
	if post.Content == "" && len(post.MediaURLs) == 0 {
		return nil, fmt.Errorf("%w: content or media required", model.ErrInvalidPost)
	}
	targets := dedupePlatforms(platforms)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: at least one platform required", model.ErrInvalidPost)
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}

	results := make([]platformResult, len(targets))
	var g errgroup.Group
	for i, p := range targets {
		i, p := i, p
		g.Go(func() error {
			results[i] = u.publishTo(ctx, post, p)
			return nil
		})
	}
	_ = g.Wait()

	outcome := &model.PublishOutcome{Success: []model.Platform{}, Failed: []model.PlatformFailure{}}
	for _, r := range results {
		if r.err != nil {
			outcome.Failed = append(outcome.Failed, model.PlatformFailure{Platform: r.platform, Error: r.err.Error()})
			continue
		}
		outcome.Success = append(outcome.Success, r.platform)
		outcome.Results = append(outcome.Results, r.result)
	}
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("success", len(outcome.Success)).
		WithField("failed", len(outcome.Failed)).
		Info("post published")
	return outcome, nil
}

func (u *publishUsecase) publishTo(ctx context.Context, post *model.Post, p model.Platform) platformResult {
	client, ok := u.registry.Client(p)
	if !ok {
		err := fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, p)
		u.recordFailure(ctx, post.UserID, p, 0)
		u.metrics.PublishOutcome(string(p), false)
		return platformResult{platform: p, err: err}
	}

	start := u.clock.Now()
	jobID := post.ID + ":" + string(p)
	res, err := ExecuteValue(ctx, u.retry, p, jobID, func(ctx context.Context) (model.PostResult, error) {
		mediaIDs := make([]string, 0, len(post.MediaURLs))
		for _, m := range post.MediaURLs {
			id, err := client.Upload(ctx, m, post.MediaType)
			if err != nil {
				return model.PostResult{}, err
			}
			mediaIDs = append(mediaIDs, id)
		}
		return client.Publish(ctx, post.Content, mediaIDs)
	})
	elapsed := u.clock.Now().Sub(start)
	u.metrics.PublishOutcome(string(p), err == nil)
	if err != nil {
		logger.GetLogger().WithField("post_id", post.ID).WithField("platform", p).WithField("error", err).Warn("publish failed")
		u.recordFailure(ctx, post.UserID, p, elapsed)
		return platformResult{platform: p, err: err}
	}
	if res.Platform == "" {
		res.Platform = p
	}
	return platformResult{platform: p, result: res}
}

// recordFailure feeds the failure-count alert. It is best-effort.
func (u *publishUsecase) recordFailure(ctx context.Context, userID string, p model.Platform, elapsed time.Duration) {
	if u.monitor == nil {
		return
	}
	platform := p
	err := u.monitor.RecordEvent(ctx, &model.DeliveryEvent{
		UserID:       userID,
		Platform:     &platform,
		Kind:         model.DeliveryFailed,
		ResponseTime: elapsed,
		OccurredAt:   u.clock.Now(),
	})
	if err != nil {
		logger.GetLogger().WithField("platform", p).WithField("error", err).Warn("failed to record delivery event")
	}
}

func dedupePlatforms(platforms []model.Platform) []model.Platform {
	seen := make(map[model.Platform]struct{}, len(platforms))
	out := make([]model.Platform, 0, len(platforms))
	for _, p := range platforms {
		p = model.Platform(strings.ToLower(strings.TrimSpace(string(p))))
		if _, ok := seen[p]; ok || p == "" {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
