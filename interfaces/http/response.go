package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
	"social-dashboard/infrastructure/logger"
)

const (
	ErrorUnmarshal    = "Error while unmarshal"
	ErrorUnauthorized = "Unauthorized"
)

// currentUser reads the id populated by the auth middleware.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrorUnauthorized})
		return "", false
	}
	return userID, true
}

func badRequest(c *gin.Context, err error) {
	logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondError maps domain sentinels onto status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrAlertNotFound),
		errors.Is(err, model.ErrScheduleNotFound),
		errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidSchedule),
		errors.Is(err, model.ErrInvalidAlertConfig),
		errors.Is(err, model.ErrInvalidPreference),
		errors.Is(err, model.ErrInvalidPost),
		errors.Is(err, model.ErrUnsupportedPlatform):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.GetLogger().
			WithField("path", c.FullPath()).
			WithField("error", err).
			Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
