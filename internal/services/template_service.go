package services

import (
	"errors"
	"math"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
	"obsp_backend/pkg/apperrors"
)

const payoutSumEpsilon = 0.01

// TemplateService - чтение каталога шаблонов и публикация.
// Публикация блокируется, если выплаты по вехам какого-либо уровня
// не суммируются в 100.
type TemplateService interface {
	GetTemplate(db *gorm.DB, templateID string) (*models.ServiceTemplate, error)
	ListPublished(db *gorm.DB) ([]models.ServiceTemplate, error)
	Publish(db *gorm.DB, templateID string) error
	GetResponse(db *gorm.DB, responseID string) (*models.TemplateResponse, error)
}

type templateService struct {
	templates  repositories.TemplateRepository
	milestones repositories.MilestoneRepository
}

func NewTemplateService(templates repositories.TemplateRepository, milestones repositories.MilestoneRepository) TemplateService {
	return &templateService{templates: templates, milestones: milestones}
}

func (s *templateService) GetTemplate(db *gorm.DB, templateID string) (*models.ServiceTemplate, error) {
	template, err := s.templates.FindTemplateByID(db, templateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return template, nil
}

func (s *templateService) ListPublished(db *gorm.DB) ([]models.ServiceTemplate, error) {
	templates, err := s.templates.FindTemplatesByStatus(db, models.TemplateStatusPublished)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return templates, nil
}

// Publish валидирует суммы выплат по вехам каждого уровня и переводит
// шаблон в published
func (s *templateService) Publish(db *gorm.DB, templateID string) error {
	template, err := s.templates.FindTemplateByID(db, templateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}

	for _, tier := range template.Tiers {
		milestones, err := s.milestones.FindByTier(db, tier.ID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		if len(milestones) == 0 {
			continue
		}

		sum := 0.0
		for _, m := range milestones {
			sum += m.PayoutPercentage
		}
		if math.Abs(sum-100) > payoutSumEpsilon {
			return apperrors.ErrPayoutSumInvalid("template", sum)
		}
	}

	if err := s.templates.PublishTemplate(db, templateID); err != nil {
		if errors.Is(err, repositories.ErrPayoutSumMismatch) {
			return apperrors.ErrPayoutSumInvalid("template", 0)
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *templateService) GetResponse(db *gorm.DB, responseID string) (*models.TemplateResponse, error) {
	response, err := s.templates.FindResponseByID(db, responseID)
	if err != nil {
		if errors.Is(err, repositories.ErrResponseNotFound) {
			return nil, apperrors.ErrResponseNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return response, nil
}
