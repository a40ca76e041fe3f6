package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

type PublishRequest struct {
	Content   string           `json:"content"`
	MediaURLs []string         `json:"mediaUrls"`
	MediaType string           `json:"mediaType"`
	Platforms []model.Platform `json:"platforms" binding:"required"`
}

type IPostHandler interface {
	Publish(c *gin.Context)
}

type PostHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPostHandler(publishUsecase usecase.IPublishUsecase) IPostHandler {
	return &PostHandler{publishUsecase: publishUsecase}
}

// Publish answers 207 on partial failure and 502 when no platform succeeded.
func (h *PostHandler) Publish(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post := &model.Post{
		UserID:    userID,
		Content:   req.Content,
		MediaURLs: req.MediaURLs,
		MediaType: req.MediaType,
	}
	outcome, err := h.publishUsecase.Publish(c.Request.Context(), post, req.Platforms)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	switch {
	case len(outcome.Success) == 0:
		status = http.StatusBadGateway
	case len(outcome.Failed) > 0:
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"postId": post.ID, "outcome": outcome})
}
