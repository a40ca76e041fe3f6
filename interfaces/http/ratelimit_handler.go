package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

type IRateLimitHandler interface {
	Status(c *gin.Context)
	Clear(c *gin.Context)
}

type RateLimitHandler struct {
	limiter usecase.IRateLimiter
}

func NewRateLimitHandler(limiter usecase.IRateLimiter) IRateLimitHandler {
	return &RateLimitHandler{limiter: limiter}
}

func category(c *gin.Context) (model.RateLimitCategory, bool) {
	cat := model.RateLimitCategory(c.Param("category"))
	switch cat {
	case model.RateLimitEmail, model.RateLimitNotification, model.RateLimitAlert:
		return cat, true
	}
	badRequest(c, fmt.Errorf("unknown rate limit category %q", cat))
	return "", false
}

func (h *RateLimitHandler) Status(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cat, ok := category(c)
	if !ok {
		return
	}
	status, err := h.limiter.GetStatus(c.Request.Context(), userID, cat)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *RateLimitHandler) Clear(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cat, ok := category(c)
	if !ok {
		return
	}
	if err := h.limiter.Clear(c.Request.Context(), userID, cat); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
