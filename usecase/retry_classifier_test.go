package usecase_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

func TestClassifyError(t *testing.T) {
	classifiers := usecase.DefaultClassifiers()
	tests := []struct {
		name     string
		platform model.Platform
		err      error
		want     bool
	}{
		{"explicit true wins over status", model.PlatformFacebook, &model.PlatformError{Message: "x", StatusCode: 400, Retryable: boolPtr(true)}, true},
		{"explicit false wins over status", model.PlatformFacebook, &model.PlatformError{Message: "x", StatusCode: 503, Retryable: boolPtr(false)}, false},
		{"408", model.PlatformTwitter, &model.PlatformError{Message: "x", StatusCode: 408}, true},
		{"429", model.PlatformTwitter, &model.PlatformError{Message: "x", StatusCode: 429}, true},
		{"504", model.PlatformTwitter, &model.PlatformError{Message: "x", StatusCode: 504}, true},
		{"501 falls through", model.PlatformTwitter, &model.PlatformError{Message: "x", StatusCode: 501}, false},
		{"wrapped status", model.PlatformTwitter, fmt.Errorf("publish: %w", &model.PlatformError{Message: "x", StatusCode: 502}), true},
		{"facebook rate limit message", model.PlatformFacebook, errors.New("Application request limit reached: Rate Limit"), true},
		{"facebook media processing is terminal", model.PlatformFacebook, errors.New("media processing"), false},
		{"instagram processing", model.PlatformInstagram, errors.New("Video still PROCESSING"), true},
		{"twitter over capacity", model.PlatformTwitter, errors.New("over capacity"), true},
		{"linkedin throttle", model.PlatformLinkedIn, errors.New("request throttled"), true},
		{"unknown platform defaults to terminal", "mastodon", errors.New("temporary failure"), false},
		{"nil", model.PlatformFacebook, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usecase.ClassifyError(tt.err, classifiers[tt.platform]))
		})
	}
}

func TestMessageClassifier(t *testing.T) {
	c := usecase.MessageClassifier("Server Error")
	assert.Equal(t, usecase.RetryYes, c(errors.New("internal server error")))
	assert.Equal(t, usecase.RetryUnknown, c(errors.New("bad token")))
	assert.Equal(t, usecase.RetryUnknown, c(nil))
}

func TestClassifyError_CustomNoOverridesDefault(t *testing.T) {
	deny := func(error) usecase.Retryability { return usecase.RetryNo }
	assert.False(t, usecase.ClassifyError(errors.New("temporary"), deny))
}

func boolPtr(b bool) *bool { return &b }
