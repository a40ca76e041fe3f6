package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

type DeliveryEventRequest struct {
	Platform       *model.Platform         `json:"platform"`
	Kind           model.DeliveryEventKind `json:"kind" binding:"required"`
	ResponseTimeMs int64                   `json:"responseTimeMs"`
	OccurredAt     time.Time               `json:"occurredAt"`
}

type IMonitoringHandler interface {
	Sample(c *gin.Context)
	RecordEvent(c *gin.Context)
}

type MonitoringHandler struct {
	monitorUsecase usecase.IMonitorUsecase
}

func NewMonitoringHandler(monitorUsecase usecase.IMonitorUsecase) IMonitoringHandler {
	return &MonitoringHandler{monitorUsecase: monitorUsecase}
}

// Sample evaluates the caller's metrics now and returns the alerts raised.
func (h *MonitoringHandler) Sample(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	alerts, err := h.monitorUsecase.SampleUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	failure, err := h.monitorUsecase.CheckFailures(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if failure != nil {
		alerts = append(alerts, failure)
	}
	if alerts == nil {
		alerts = []*model.MonitoringAlert{}
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (h *MonitoringHandler) RecordEvent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req DeliveryEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Kind.Valid() {
		badRequest(c, fmt.Errorf("unknown event kind %q", req.Kind))
		return
	}
	event := &model.DeliveryEvent{
		UserID:       userID,
		Platform:     req.Platform,
		Kind:         req.Kind,
		ResponseTime: time.Duration(req.ResponseTimeMs) * time.Millisecond,
		OccurredAt:   req.OccurredAt,
	}
	if err := h.monitorUsecase.RecordEvent(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
