package services

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
	"obsp_backend/pkg/apperrors"
)

// Веса критериев должны сходиться к 1.0 в пределах epsilon
const weightSumEpsilon = 0.001

// CriteriaService - управление конфигурациями порогов и весов.
// Конфигурации версионируются: evaluator всегда берет последнюю
// версию пары (template, tier).
type CriteriaService interface {
	Create(db *gorm.DB, criteria *models.TierCriteria) error
	Update(db *gorm.DB, criteria *models.TierCriteria) error
	Get(db *gorm.DB, templateID string, level models.TierLevel) (*models.TierCriteria, error)
	ListForTemplate(db *gorm.DB, templateID string) ([]models.TierCriteria, error)
}

type criteriaService struct {
	criteria repositories.CriteriaRepository
}

func NewCriteriaService(criteria repositories.CriteriaRepository) CriteriaService {
	return &criteriaService{criteria: criteria}
}

func (s *criteriaService) Create(db *gorm.DB, criteria *models.TierCriteria) error {
	if err := validateCriteria(criteria); err != nil {
		return err
	}
	if criteria.Version <= 0 {
		criteria.Version = 1
	}
	if err := s.criteria.Create(db, criteria); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// Update перезаписывает конфигурацию пары (template, tier), поднимая
// версию. Прошлые оценки хранят свои evidence, так что история
// не теряется.
func (s *criteriaService) Update(db *gorm.DB, criteria *models.TierCriteria) error {
	if err := validateCriteria(criteria); err != nil {
		return err
	}

	current, err := s.criteria.FindByTemplateAndTier(db, criteria.TemplateID, criteria.Level)
	if err != nil {
		if errors.Is(err, repositories.ErrCriteriaNotFound) {
			return apperrors.ErrCriteriaNotConfigured(err)
		}
		return apperrors.InternalError(err)
	}

	criteria.ID = current.ID
	criteria.CreatedAt = current.CreatedAt
	criteria.Version = current.Version + 1
	if err := s.criteria.Update(db, criteria); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *criteriaService) Get(db *gorm.DB, templateID string, level models.TierLevel) (*models.TierCriteria, error) {
	criteria, err := s.criteria.FindByTemplateAndTier(db, templateID, level)
	if err != nil {
		if errors.Is(err, repositories.ErrCriteriaNotFound) {
			return nil, apperrors.ErrCriteriaNotConfigured(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return criteria, nil
}

func (s *criteriaService) ListForTemplate(db *gorm.DB, templateID string) ([]models.TierCriteria, error) {
	criteria, err := s.criteria.FindByTemplate(db, templateID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return criteria, nil
}

func validateCriteria(c *models.TierCriteria) error {
	var problems []string

	weightSum := c.ExperienceWeight + c.SkillWeight + c.RatingWeight + c.DeadlineWeight
	if math.Abs(weightSum-1.0) > weightSumEpsilon {
		problems = append(problems, fmt.Sprintf("criterion weights must sum to 1.0, got %.3f", weightSum))
	}
	for _, w := range []float64{c.ExperienceWeight, c.SkillWeight, c.RatingWeight, c.DeadlineWeight} {
		if w < 0 {
			problems = append(problems, "criterion weights must be non-negative")
			break
		}
	}
	if c.MinCompletedProjects < 0 || c.RequiredPriorCompletions < 0 {
		problems = append(problems, "minimum counts must be non-negative")
	}
	if c.MinAvgRating < 0 || c.MinAvgRating > 5 {
		problems = append(problems, "min_avg_rating must be within [0, 5]")
	}
	if c.MinSkillMatch < 0 || c.MinSkillMatch > 100 {
		problems = append(problems, "min_skill_match must be within [0, 100]")
	}
	if c.MinDeadlineCompliance < 0 || c.MinDeadlineCompliance > 100 {
		problems = append(problems, "min_deadline_compliance must be within [0, 100]")
	}

	if len(problems) > 0 {
		return apperrors.ValidationError(problems)
	}
	return nil
}
