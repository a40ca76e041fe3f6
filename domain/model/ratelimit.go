package model

import "time"

// RateLimitCategory groups outbound traffic that shares a quota
type RateLimitCategory string

const (
	RateLimitEmail        RateLimitCategory = "email"
	RateLimitNotification RateLimitCategory = "notification"
	RateLimitAlert        RateLimitCategory = "alert"
)

// RateLimitRecord is the fixed-window counter for one (user, category) pair.
type RateLimitRecord struct {
	UserID      string            `json:"user_id"`
	Category    RateLimitCategory `json:"category"`
	Count       int               `json:"count"`
	WindowStart time.Time         `json:"window_start"`
	// Window is the policy length the counter was taken under; stores keep the
	// record at least that long.
	Window      time.Duration `json:"window,omitempty"`
	LastUpdated time.Time     `json:"last_updated"`
}

// RateLimitStatus is a read-only view of a counter.
type RateLimitStatus struct {
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
	IsLimited bool      `json:"is_limited"`
}
