package model

import (
	"fmt"
	"time"
)

// Platform identifies a social network a post can be published to.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
)

// RetryConfig holds the backoff policy for one platform. Loaded once at startup.
type RetryConfig struct {
	MaxAttempts   int           `json:"maxAttempts"`
	InitialDelay  time.Duration `json:"initialDelay"`
	MaxDelay      time.Duration `json:"maxDelay"`
	BackoffFactor float64       `json:"backoffFactor"`
}

// RetryAttemptLog is an append-only record of one failed attempt of a job
type RetryAttemptLog struct {
	ID           int64     `json:"id"`
	JobID        string    `json:"job_id"`
	Platform     Platform  `json:"platform"`
	Attempt      int       `json:"attempt"`
	Timestamp    time.Time `json:"timestamp"`
	ErrorMessage string    `json:"error_message"`
	ErrorCode    *int      `json:"error_code,omitempty"`
}

// PlatformError is the error shape returned by platform clients.
// Retryable is nil when the client has no opinion.
type PlatformError struct {
	Message    string
	StatusCode int
	Retryable  *bool
}

func (e *PlatformError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// NewRetryableError builds a PlatformError with an explicit retryable flag.
func NewRetryableError(message string, retryable bool) *PlatformError {
	return &PlatformError{Message: message, Retryable: &retryable}
}
