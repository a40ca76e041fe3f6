package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

type IAlertHandler interface {
	GetConfig(c *gin.Context)
	UpdateConfig(c *gin.Context)
	List(c *gin.Context)
	Resolve(c *gin.Context)
}

type AlertHandler struct {
	alertUsecase usecase.IAlertUsecase
}

func NewAlertHandler(alertUsecase usecase.IAlertUsecase) IAlertHandler {
	return &AlertHandler{alertUsecase: alertUsecase}
}

func (h *AlertHandler) GetConfig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cfg, err := h.alertUsecase.GetConfig(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *AlertHandler) UpdateConfig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req model.AlertConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID
	cfg, err := h.alertUsecase.UpdateConfig(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// List accepts ?status=active|resolved and ?since=RFC3339.
func (h *AlertHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var status *model.AlertStatus
	if v := c.Query("status"); v != "" {
		s := model.AlertStatus(v)
		if s != model.AlertStatusActive && s != model.AlertStatusResolved {
			badRequest(c, fmt.Errorf("unknown status %q", v))
			return
		}
		status = &s
	}
	var since *time.Time
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, fmt.Errorf("since: %w", err))
			return
		}
		since = &t
	}
	alerts, err := h.alertUsecase.ListAlerts(c.Request.Context(), userID, status, since)
	if err != nil {
		respondError(c, err)
		return
	}
	if alerts == nil {
		alerts = []*model.MonitoringAlert{}
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (h *AlertHandler) Resolve(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	alert, err := h.alertUsecase.GetAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	// alerts of other users are reported as missing
	if alert.UserID != userID {
		respondError(c, model.ErrAlertNotFound)
		return
	}
	alert, err = h.alertUsecase.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
