package usecase

import (
	"errors"
	"net/http"
	"strings"

	"social-dashboard/domain/model"
)

// Retryability is the verdict of an error classifier.
type Retryability int

const (
	RetryUnknown Retryability = iota
	RetryYes
	RetryNo
)

// ErrorClassifier inspects an error a platform returned. RetryUnknown defers to the next rule.
type ErrorClassifier func(err error) Retryability

var retryableStatusCodes = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// MessageClassifier returns a classifier that marks an error retryable when its
// message contains any of the fragments (case-insensitive).
func MessageClassifier(fragments ...string) ErrorClassifier {
	lowered := make([]string, 0, len(fragments))
	for _, f := range fragments {
		lowered = append(lowered, strings.ToLower(f))
	}
	return func(err error) Retryability {
		if err == nil {
			return RetryUnknown
		}
		msg := strings.ToLower(err.Error())
		for _, f := range lowered {
			if strings.Contains(msg, f) {
				return RetryYes
			}
		}
		return RetryUnknown
	}
}

// DefaultClassifiers holds the message fragments each platform uses for transient failures.
func DefaultClassifiers() map[model.Platform]ErrorClassifier {
	return map[model.Platform]ErrorClassifier{
		model.PlatformFacebook:  MessageClassifier("rate limit", "temporary", "temporarily unavailable", "server error", "timed out"),
		model.PlatformInstagram: MessageClassifier("media processing", "processing", "rate limit", "timed out"),
		model.PlatformTwitter:   MessageClassifier("rate limit", "over capacity", "temporary"),
		model.PlatformLinkedIn:  MessageClassifier("server error", "throttle", "temporary"),
	}
}

// ClassifyError applies, in order: the explicit Retryable flag, the retryable HTTP
// status set, then the platform classifier. Anything else is not retryable.
func ClassifyError(err error, classifier ErrorClassifier) bool {
	if err == nil {
		return false
	}
	var pe *model.PlatformError
	if errors.As(err, &pe) {
		if pe.Retryable != nil {
			return *pe.Retryable
		}
		if _, ok := retryableStatusCodes[pe.StatusCode]; ok {
			return true
		}
	}
	if classifier != nil {
		switch classifier(err) {
		case RetryYes:
			return true
		case RetryNo:
			return false
		}
	}
	return false
}
