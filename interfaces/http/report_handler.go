package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

type IReportHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type ReportHandler struct {
	reportUsecase usecase.IReportUsecase
}

func NewReportHandler(reportUsecase usecase.IReportUsecase) IReportHandler {
	return &ReportHandler{reportUsecase: reportUsecase}
}

func (h *ReportHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	schedules, err := h.reportUsecase.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if schedules == nil {
		schedules = []*model.ReportSchedule{}
	}
	c.JSON(http.StatusOK, gin.H{"data": schedules})
}

func (h *ReportHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req model.ReportSchedule
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.ID = ""
	req.UserID = userID
	saved, err := h.reportUsecase.Upsert(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *ReportHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req model.ReportSchedule
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.owned(c, userID); err != nil {
		respondError(c, err)
		return
	}
	req.ID = c.Param("id")
	req.UserID = userID
	saved, err := h.reportUsecase.Upsert(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if _, err := h.owned(c, userID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.reportUsecase.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReportHandler) owned(c *gin.Context, userID string) (*model.ReportSchedule, error) {
	s, err := h.reportUsecase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, model.ErrScheduleNotFound
	}
	return s, nil
}
