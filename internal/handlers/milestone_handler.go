package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"obsp_backend/internal/models"
	"obsp_backend/internal/services"
	"obsp_backend/internal/services/dto"
	"obsp_backend/pkg/apperrors"
)

type MilestoneHandler struct {
	milestones services.MilestoneService
}

func NewMilestoneHandler(milestones services.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones}
}

// ListProgress - GET /responses/:responseID/milestones
func (h *MilestoneHandler) ListProgress(c *gin.Context) {
	entries, tierPrice, err := h.milestones.GetProgress(getDB(c), c.Param("responseID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	out := make([]*dto.MilestoneProgressResponse, 0, len(entries))
	for i := range entries {
		out = append(out, dto.NewMilestoneProgressResponse(&entries[i], tierPrice))
	}
	c.JSON(http.StatusOK, gin.H{"milestones": out})
}

// RecalculateDeadlines - POST /responses/:responseID/milestones/deadlines
// Пересчитывает цепочку дедлайнов от переданной даты (по умолчанию - от
// текущего момента)
func (h *MilestoneHandler) RecalculateDeadlines(c *gin.Context) {
	var req struct {
		Start *time.Time `json:"start"`
	}
	_ = c.ShouldBindJSON(&req)

	start := time.Now().UTC()
	if req.Start != nil {
		start = req.Start.UTC()
	}

	err := h.milestones.CalculateAndSetDeadlines(
		c.Request.Context(), getDB(c), c.Param("responseID"), start)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deadlines_set"})
}

// Complete - POST /responses/:responseID/milestones/:milestoneID/complete
func (h *MilestoneHandler) Complete(c *gin.Context) {
	entry, err := h.milestones.CompleteMilestone(
		c.Request.Context(), getDB(c),
		c.Param("responseID"), c.Param("milestoneID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMilestoneProgressResponse(entry, 0))
}

// ExtendDeadline - POST /responses/:responseID/milestones/:milestoneID/extend
func (h *MilestoneHandler) ExtendDeadline(c *gin.Context) {
	var req struct {
		Deadline     time.Time `json:"deadline" binding:"required"`
		DeadlineType string    `json:"deadline_type" binding:"omitempty,deadlinetype"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	entry, err := h.milestones.ExtendDeadline(
		getDB(c), c.Param("responseID"), c.Param("milestoneID"),
		req.Deadline.UTC(), models.DeadlineType(req.DeadlineType))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMilestoneProgressResponse(entry, 0))
}
