package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/logger"
)

// Operation is one attempt of a safe-to-repeat platform call.
type Operation func(ctx context.Context) error

type IRetryOrchestrator interface {
	// Execute runs op until it succeeds, fails with a non-retryable error, or
	// exhausts the platform's attempts. The last error is returned unchanged.
	Execute(ctx context.Context, platform model.Platform, jobID string, op Operation) error
	Config(platform model.Platform) model.RetryConfig
}

// FallbackRetryConfig applies to Twitter and any platform without its own entry.
var FallbackRetryConfig = model.RetryConfig{
	MaxAttempts:   3,
	InitialDelay:  time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2,
}

// DefaultRetryConfigs is the per-platform backoff table.
func DefaultRetryConfigs() map[model.Platform]model.RetryConfig {
	facebook := FallbackRetryConfig
	facebook.MaxAttempts = 5
	instagram := FallbackRetryConfig
	instagram.MaxDelay = 60 * time.Second
	linkedin := FallbackRetryConfig
	linkedin.MaxAttempts = 4
	return map[model.Platform]model.RetryConfig{
		model.PlatformFacebook:  facebook,
		model.PlatformInstagram: instagram,
		model.PlatformTwitter:   FallbackRetryConfig,
		model.PlatformLinkedIn:  linkedin,
	}
}

// MergeRetryConfigs overlays overrides on the defaults; zero fields keep the default value.
func MergeRetryConfigs(overrides map[model.Platform]model.RetryConfig) map[model.Platform]model.RetryConfig {
	out := DefaultRetryConfigs()
	for p, o := range overrides {
		p = model.Platform(strings.ToLower(string(p)))
		base, ok := out[p]
		if !ok {
			base = FallbackRetryConfig
		}
		if o.MaxAttempts > 0 {
			base.MaxAttempts = o.MaxAttempts
		}
		if o.InitialDelay > 0 {
			base.InitialDelay = o.InitialDelay
		}
		if o.MaxDelay > 0 {
			base.MaxDelay = o.MaxDelay
		}
		if o.BackoffFactor > 0 {
			base.BackoffFactor = o.BackoffFactor
		}
		out[p] = base
	}
	return out
}

// BackoffDelay is min(initialDelay * backoffFactor^(attempt-1), maxDelay).
func BackoffDelay(cfg model.RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if d > float64(cfg.MaxDelay) || math.IsInf(d, 0) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}

type retryOrchestrator struct {
	configs     map[model.Platform]model.RetryConfig
	classifiers map[model.Platform]ErrorClassifier
	logRepo     repository.IRetryLog
	clock       clock.Clock
	metrics     Metrics
}

// NewRetryOrchestrator builds the orchestrator. A nil logRepo disables attempt logging.
func NewRetryOrchestrator(configs map[model.Platform]model.RetryConfig, classifiers map[model.Platform]ErrorClassifier, logRepo repository.IRetryLog, clk clock.Clock, metrics Metrics) IRetryOrchestrator {
	if configs == nil {
		configs = DefaultRetryConfigs()
	}
	if classifiers == nil {
		classifiers = DefaultClassifiers()
	}
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &retryOrchestrator{configs: configs, classifiers: classifiers, logRepo: logRepo, clock: clk, metrics: metrics}
}

func (r *retryOrchestrator) Config(platform model.Platform) model.RetryConfig {
	cfg, ok := r.configs[platform]
	if !ok {
		cfg = FallbackRetryConfig
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return cfg
}

func (r *retryOrchestrator) Execute(ctx context.Context, platform model.Platform, jobID string, op Operation) error {
	cfg := r.Config(platform)
	classifier := r.classifiers[platform]
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			r.metrics.RetryAttempt(string(platform), "success")
			return nil
		}
		r.appendLog(ctx, platform, jobID, attempt, err)

		if !ClassifyError(err, classifier) {
			r.metrics.RetryAttempt(string(platform), "terminal")
			return err
		}
		if attempt >= cfg.MaxAttempts {
			r.metrics.RetryAttempt(string(platform), "exhausted")
			logger.GetLogger().
				WithField("platform", platform).
				WithField("job_id", jobID).
				WithField("attempts", attempt).
				Warn("retry attempts exhausted")
			return err
		}
		r.metrics.RetryAttempt(string(platform), "retry")

		delay := BackoffDelay(cfg, attempt)
		if sleepErr := r.clock.Sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("retry canceled after attempt %d: %w: %w", attempt, sleepErr, err)
		}
	}
}

// appendLog is best-effort: a failed write never aborts the retry flow.
func (r *retryOrchestrator) appendLog(ctx context.Context, platform model.Platform, jobID string, attempt int, cause error) {
	if r.logRepo == nil {
		return
	}
	entry := &model.RetryAttemptLog{
		JobID:        jobID,
		Platform:     platform,
		Attempt:      attempt,
		Timestamp:    r.clock.Now(),
		ErrorMessage: cause.Error(),
		ErrorCode:    statusCodeOf(cause),
	}
	if err := r.logRepo.Append(context.WithoutCancel(ctx), entry); err != nil {
		logger.GetLogger().
			WithField("platform", platform).
			WithField("job_id", jobID).
			WithField("error", err).
			Warn("failed to append retry attempt log")
	}
}

// ExecuteValue is Execute for operations that produce a value.
func ExecuteValue[T any](ctx context.Context, r IRetryOrchestrator, platform model.Platform, jobID string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Execute(ctx, platform, jobID, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
