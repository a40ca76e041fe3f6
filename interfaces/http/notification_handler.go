package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

type INotificationHandler interface {
	GetPreference(c *gin.Context)
	UpdatePreference(c *gin.Context)
}

type NotificationHandler struct {
	notificationUsecase usecase.INotificationUsecase
}

func NewNotificationHandler(notificationUsecase usecase.INotificationUsecase) INotificationHandler {
	return &NotificationHandler{notificationUsecase: notificationUsecase}
}

func (h *NotificationHandler) GetPreference(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	pref, err := h.notificationUsecase.GetPreference(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (h *NotificationHandler) UpdatePreference(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req model.NotificationPreference
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID
	pref, err := h.notificationUsecase.SetPreference(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}
