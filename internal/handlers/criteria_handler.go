package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"obsp_backend/internal/models"
	"obsp_backend/internal/services"
	"obsp_backend/pkg/apperrors"
)

type CriteriaHandler struct {
	criteria services.CriteriaService
}

func NewCriteriaHandler(criteria services.CriteriaService) *CriteriaHandler {
	return &CriteriaHandler{criteria: criteria}
}

// criteriaRequest - тело создания/обновления конфигурации критериев
type criteriaRequest struct {
	Level models.TierLevel `json:"level" binding:"required,tierlevel"`

	ExperienceWeight float64 `json:"experience_weight" binding:"min=0,max=1"`
	SkillWeight      float64 `json:"skill_weight" binding:"min=0,max=1"`
	RatingWeight     float64 `json:"rating_weight" binding:"min=0,max=1"`
	DeadlineWeight   float64 `json:"deadline_weight" binding:"min=0,max=1"`

	MinCompletedProjects     int     `json:"min_completed_projects" binding:"min=0"`
	MinAvgRating             float64 `json:"min_avg_rating" binding:"min=0,max=5"`
	MinSkillMatch            float64 `json:"min_skill_match" binding:"min=0,max=100"`
	MinDeadlineCompliance    float64 `json:"min_deadline_compliance" binding:"min=0,max=100"`
	RequiredPriorCompletions int     `json:"required_prior_completions" binding:"min=0"`

	MinProjectBudget       float64 `json:"min_project_budget" binding:"min=0"`
	MinProjectDurationDays int     `json:"min_project_duration_days" binding:"min=0"`

	RequiredSkills  []string           `json:"required_skills"`
	CoreSkills      []string           `json:"core_skills"`
	OptionalSkills  []string           `json:"optional_skills"`
	RequiredDomains []string           `json:"required_domains"`
	BonusTable      map[string]float64 `json:"bonus_table"`
	PenaltyTable    map[string]float64 `json:"penalty_table"`
}

func (r *criteriaRequest) toModel(templateID string) *models.TierCriteria {
	criteria := &models.TierCriteria{
		TemplateID:               templateID,
		Level:                    r.Level,
		ExperienceWeight:         r.ExperienceWeight,
		SkillWeight:              r.SkillWeight,
		RatingWeight:             r.RatingWeight,
		DeadlineWeight:           r.DeadlineWeight,
		MinCompletedProjects:     r.MinCompletedProjects,
		MinAvgRating:             r.MinAvgRating,
		MinSkillMatch:            r.MinSkillMatch,
		MinDeadlineCompliance:    r.MinDeadlineCompliance,
		RequiredPriorCompletions: r.RequiredPriorCompletions,
		MinProjectBudget:         r.MinProjectBudget,
		MinProjectDurationDays:   r.MinProjectDurationDays,
	}
	criteria.SetRequiredSkills(r.RequiredSkills)
	criteria.SetCoreSkills(r.CoreSkills)
	criteria.SetOptionalSkills(r.OptionalSkills)
	criteria.SetRequiredDomains(r.RequiredDomains)
	criteria.SetBonusTable(r.BonusTable)
	criteria.SetPenaltyTable(r.PenaltyTable)
	return criteria
}

// Create - POST /admin/templates/:templateID/criteria
func (h *CriteriaHandler) Create(c *gin.Context) {
	var req criteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	criteria := req.toModel(c.Param("templateID"))
	if err := h.criteria.Create(getDB(c), criteria); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, criteria)
}

// Update - PUT /admin/templates/:templateID/criteria
// Создает следующую версию конфигурации
func (h *CriteriaHandler) Update(c *gin.Context) {
	var req criteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	criteria := req.toModel(c.Param("templateID"))
	if err := h.criteria.Update(getDB(c), criteria); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

// Get - GET /templates/:templateID/criteria/:level
func (h *CriteriaHandler) Get(c *gin.Context) {
	criteria, err := h.criteria.Get(
		getDB(c), c.Param("templateID"), models.TierLevel(c.Param("level")))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

// List - GET /templates/:templateID/criteria
func (h *CriteriaHandler) List(c *gin.Context) {
	criteria, err := h.criteria.ListForTemplate(getDB(c), c.Param("templateID"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"criteria": criteria})
}
