package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"obsp_backend/internal/models"
	"obsp_backend/internal/services"
	"obsp_backend/internal/services/dto"
	"obsp_backend/pkg/apperrors"
)

type AssignmentHandler struct {
	assignments services.AssignmentService
}

func NewAssignmentHandler(assignments services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Assign - POST /responses/:responseID/assign
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	assignment, err := h.assignments.Assign(
		c.Request.Context(), getDB(c), c.Param("responseID"), req.FreelancerID,
		req.Payout, req.Fee)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAssignmentResponse(assignment))
}

// GetByID - GET /assignments/:assignmentID
func (h *AssignmentHandler) GetByID(c *gin.Context) {
	assignment, err := h.assignments.GetByID(getDB(c), c.Param("assignmentID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAssignmentResponse(assignment))
}

// StartWork - POST /assignments/:assignmentID/start
// Запускает работу и цепочку дедлайнов вех
func (h *AssignmentHandler) StartWork(c *gin.Context) {
	h.transition(c, h.assignments.StartWork)
}

// SubmitForReview - POST /assignments/:assignmentID/review
func (h *AssignmentHandler) SubmitForReview(c *gin.Context) {
	h.transition(c, h.assignments.SubmitForReview)
}

// Complete - POST /assignments/:assignmentID/complete
func (h *AssignmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.assignments.Complete)
}

// Cancel - POST /assignments/:assignmentID/cancel
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	h.transition(c, h.assignments.Cancel)
}

// Dispute - POST /assignments/:assignmentID/dispute
func (h *AssignmentHandler) Dispute(c *gin.Context) {
	h.transition(c, h.assignments.Dispute)
}

type transitionFunc func(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error)

func (h *AssignmentHandler) transition(c *gin.Context, fn transitionFunc) {
	assignment, err := fn(c.Request.Context(), getDB(c), c.Param("assignmentID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAssignmentResponse(assignment))
}
