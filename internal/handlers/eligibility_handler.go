package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"obsp_backend/internal/config"
	"obsp_backend/internal/services"
	"obsp_backend/internal/services/dto"
	"obsp_backend/pkg/apperrors"
)

type EligibilityHandler struct {
	eligibility services.EligibilityService
}

func NewEligibilityHandler(eligibility services.EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibility: eligibility}
}

// GetRecord - GET /freelancers/:freelancerID/eligibility/:templateID
// Read-through: отсутствующая запись вычисляется на месте
func (h *EligibilityHandler) GetRecord(c *gin.Context) {
	record, err := h.eligibility.GetOrCreate(
		c.Request.Context(), getDB(c),
		c.Param("freelancerID"), c.Param("templateID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEligibilityRecordResponse(record))
}

// Recalculate - POST /freelancers/:freelancerID/eligibility/recalculate
// С template_id в теле пересчитывает один шаблон, без него - все
func (h *EligibilityHandler) Recalculate(c *gin.Context) {
	var req dto.RecalculateRequest
	// Пустое тело допустимо
	_ = c.ShouldBindJSON(&req)

	freelancerID := c.Param("freelancerID")
	ctx := c.Request.Context()

	if req.TemplateID != "" {
		record, err := h.eligibility.CalculateAndStore(ctx, getDB(c), freelancerID, req.TemplateID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewEligibilityRecordResponse(record))
		return
	}

	if err := h.eligibility.RecalculateFreelancer(ctx, getDB(c), freelancerID); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recalculated"})
}

// GetSummary - GET /freelancers/:freelancerID/eligibility-summary
func (h *EligibilityHandler) GetSummary(c *gin.Context) {
	summary, err := h.eligibility.GetSummary(
		c.Request.Context(), getDB(c), c.Param("freelancerID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEligibilitySummaryResponse(summary))
}

// RecalculateAll - POST /admin/eligibility/recalculate
// Offline batch по всем фрилансерам
func (h *EligibilityHandler) RecalculateAll(c *gin.Context) {
	result, err := h.eligibility.RecalculateAll(
		c.Request.Context(), getDB(c),
		config.GetConfig().Eligibility.BatchWorkers)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
