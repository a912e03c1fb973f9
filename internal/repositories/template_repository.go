package repositories

import (
	"errors"
	"math"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
)

var (
	ErrTemplateNotFound  = errors.New("service template not found")
	ErrTierNotFound      = errors.New("template tier not found")
	ErrResponseNotFound  = errors.New("template response not found")
	ErrPayoutSumMismatch = errors.New("milestone payout percentages do not sum to 100")
)

// Проценты выплат по вехам уровня должны сходиться к 100 в пределах epsilon
const payoutSumEpsilon = 0.01

type TemplateRepository interface {
	FindTemplateByID(db *gorm.DB, id string) (*models.ServiceTemplate, error)
	FindTemplatesByStatus(db *gorm.DB, status models.TemplateStatus) ([]models.ServiceTemplate, error)
	FindTierByID(db *gorm.DB, id string) (*models.TemplateTier, error)
	FindTier(db *gorm.DB, templateID string, level models.TierLevel) (*models.TemplateTier, error)
	PublishTemplate(db *gorm.DB, templateID string) error

	FindResponseByID(db *gorm.DB, id string) (*models.TemplateResponse, error)
	UpdateResponseStatus(db *gorm.DB, responseID string, status models.ResponseStatus) error
	SetActiveAssignment(db *gorm.DB, responseID, assignmentID string) error
	ClearActiveAssignment(db *gorm.DB, responseID string) error
}

type TemplateRepositoryImpl struct{}

func NewTemplateRepository() TemplateRepository {
	return &TemplateRepositoryImpl{}
}

func (r *TemplateRepositoryImpl) FindTemplateByID(db *gorm.DB, id string) (*models.ServiceTemplate, error) {
	var template models.ServiceTemplate
	err := db.Preload("Tiers").First(&template, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &template, nil
}

func (r *TemplateRepositoryImpl) FindTemplatesByStatus(db *gorm.DB, status models.TemplateStatus) ([]models.ServiceTemplate, error) {
	var templates []models.ServiceTemplate
	err := db.Where("status = ?", status).Order("created_at ASC").Find(&templates).Error
	return templates, err
}

func (r *TemplateRepositoryImpl) FindTierByID(db *gorm.DB, id string) (*models.TemplateTier, error) {
	var tier models.TemplateTier
	err := db.Preload("Milestones", func(db *gorm.DB) *gorm.DB {
		return db.Order(`milestones."order" ASC`)
	}).First(&tier, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	return &tier, nil
}

func (r *TemplateRepositoryImpl) FindTier(db *gorm.DB, templateID string, level models.TierLevel) (*models.TemplateTier, error) {
	var tier models.TemplateTier
	err := db.Where("template_id = ? AND level = ?", templateID, level).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	return &tier, nil
}

// PublishTemplate переводит шаблон в published, предварительно проверяя,
// что выплаты по вехам каждого уровня суммируются в 100. Нарушение
// блокирует публикацию.
func (r *TemplateRepositoryImpl) PublishTemplate(db *gorm.DB, templateID string) error {
	template, err := r.FindTemplateByID(db, templateID)
	if err != nil {
		return err
	}

	for _, tier := range template.Tiers {
		var milestones []models.Milestone
		if err := db.Where("tier_id = ?", tier.ID).Find(&milestones).Error; err != nil {
			return err
		}

		sum := 0.0
		for _, m := range milestones {
			sum += m.PayoutPercentage
		}
		if len(milestones) > 0 && math.Abs(sum-100) > payoutSumEpsilon {
			return ErrPayoutSumMismatch
		}
	}

	return db.Model(&models.ServiceTemplate{}).
		Where("id = ?", templateID).
		Update("status", models.TemplateStatusPublished).Error
}

func (r *TemplateRepositoryImpl) FindResponseByID(db *gorm.DB, id string) (*models.TemplateResponse, error) {
	var response models.TemplateResponse
	err := db.Preload("Tier").First(&response, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}
	return &response, nil
}

func (r *TemplateRepositoryImpl) UpdateResponseStatus(db *gorm.DB, responseID string, status models.ResponseStatus) error {
	result := db.Model(&models.TemplateResponse{}).
		Where("id = ?", responseID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResponseNotFound
	}
	return nil
}

// SetActiveAssignment выставляет явную ссылку на активное назначение.
// Вызывается в той же транзакции, что и создание назначения.
func (r *TemplateRepositoryImpl) SetActiveAssignment(db *gorm.DB, responseID, assignmentID string) error {
	result := db.Model(&models.TemplateResponse{}).
		Where("id = ?", responseID).
		Update("active_assignment_id", assignmentID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResponseNotFound
	}
	return nil
}

// ClearActiveAssignment снимает ссылку на активное назначение
// (отмена или спор освобождают response для переназначения)
func (r *TemplateRepositoryImpl) ClearActiveAssignment(db *gorm.DB, responseID string) error {
	result := db.Model(&models.TemplateResponse{}).
		Where("id = ?", responseID).
		Update("active_assignment_id", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResponseNotFound
	}
	return nil
}
