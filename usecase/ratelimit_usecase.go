package usecase

import (
	"context"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/logger"
)

// RateLimitPolicy is a fixed window of Window length allowing MaxRequests.
type RateLimitPolicy struct {
	Window      time.Duration
	MaxRequests int
}

// DefaultRateLimitPolicies are the per-category quotas.
func DefaultRateLimitPolicies() map[model.RateLimitCategory]RateLimitPolicy {
	return map[model.RateLimitCategory]RateLimitPolicy{
		model.RateLimitEmail:        {Window: time.Hour, MaxRequests: 100},
		model.RateLimitNotification: {Window: 5 * time.Minute, MaxRequests: 50},
		model.RateLimitAlert:        {Window: time.Minute, MaxRequests: 10},
	}
}

// fallbackRateLimitPolicy covers categories without an entry.
var fallbackRateLimitPolicy = RateLimitPolicy{Window: time.Minute, MaxRequests: 60}

type IRateLimiter interface {
	// IsLimited counts the request against the window. An override replaces the category policy.
	// Storage errors fail open.
	IsLimited(ctx context.Context, userID string, category model.RateLimitCategory, override ...RateLimitPolicy) bool
	GetStatus(ctx context.Context, userID string, category model.RateLimitCategory) (model.RateLimitStatus, error)
	Clear(ctx context.Context, userID string, category model.RateLimitCategory) error
}

type rateLimiter struct {
	store    repository.IRateLimit
	policies map[model.RateLimitCategory]RateLimitPolicy
	clock    clock.Clock
	metrics  Metrics
}

func NewRateLimiter(store repository.IRateLimit, policies map[model.RateLimitCategory]RateLimitPolicy, clk clock.Clock, metrics Metrics) IRateLimiter {
	merged := DefaultRateLimitPolicies()
	for c, p := range policies {
		base, ok := merged[c]
		if !ok {
			base = fallbackRateLimitPolicy
		}
		if p.Window > 0 {
			base.Window = p.Window
		}
		if p.MaxRequests > 0 {
			base.MaxRequests = p.MaxRequests
		}
		merged[c] = base
	}
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &rateLimiter{store: store, policies: merged, clock: clk, metrics: metrics}
}

func (r *rateLimiter) policy(category model.RateLimitCategory, override []RateLimitPolicy) RateLimitPolicy {
	p, ok := r.policies[category]
	if !ok {
		p = fallbackRateLimitPolicy
	}
	if len(override) > 0 {
		if override[0].Window > 0 {
			p.Window = override[0].Window
		}
		if override[0].MaxRequests > 0 {
			p.MaxRequests = override[0].MaxRequests
		}
	}
	return p
}

func (r *rateLimiter) IsLimited(ctx context.Context, userID string, category model.RateLimitCategory, override ...RateLimitPolicy) bool {
	p := r.policy(category, override)
	now := r.clock.Now()
	limited := false
	err := r.store.Update(ctx, userID, category, func(current *model.RateLimitRecord) *model.RateLimitRecord {
		limited = false
		switch {
		case current == nil, now.Sub(current.WindowStart) > p.Window:
			return &model.RateLimitRecord{UserID: userID, Category: category, Count: 1, WindowStart: now, Window: p.Window, LastUpdated: now}
		case current.Count >= p.MaxRequests:
			limited = true
			return nil
		default:
			next := *current
			next.Count++
			next.Window = p.Window
			next.LastUpdated = now
			return &next
		}
	})
	if err != nil {
		logger.GetLogger().
			WithField("user_id", userID).
			WithField("category", category).
			WithField("error", err).
			Warn("rate limit check failed, allowing request")
		r.metrics.RateLimitDecision(string(category), false)
		return false
	}
	r.metrics.RateLimitDecision(string(category), limited)
	return limited
}

func (r *rateLimiter) GetStatus(ctx context.Context, userID string, category model.RateLimitCategory) (model.RateLimitStatus, error) {
	p := r.policy(category, nil)
	now := r.clock.Now()
	rec, err := r.store.Get(ctx, userID, category)
	if err != nil {
		return model.RateLimitStatus{}, err
	}
	if rec == nil || now.Sub(rec.WindowStart) > p.Window {
		return model.RateLimitStatus{Remaining: p.MaxRequests, ResetTime: now.Add(p.Window)}, nil
	}
	remaining := p.MaxRequests - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	return model.RateLimitStatus{
		Remaining: remaining,
		ResetTime: rec.WindowStart.Add(p.Window),
		IsLimited: rec.Count >= p.MaxRequests,
	}, nil
}

func (r *rateLimiter) Clear(ctx context.Context, userID string, category model.RateLimitCategory) error {
	return r.store.Delete(ctx, userID, category)
}
