package repositories

import (
	"errors"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
)

var (
	ErrCriteriaNotFound = errors.New("criteria not found for template tier")
)

// CriteriaRepository - хранилище конфигураций порогов/весов (CriteriaStore).
// Методы принимают db, чтобы вызывающий контролировал транзакцию.
type CriteriaRepository interface {
	FindByTemplateAndTier(db *gorm.DB, templateID string, level models.TierLevel) (*models.TierCriteria, error)
	FindByTemplate(db *gorm.DB, templateID string) ([]models.TierCriteria, error)
	Create(db *gorm.DB, criteria *models.TierCriteria) error
	Update(db *gorm.DB, criteria *models.TierCriteria) error
}

type CriteriaRepositoryImpl struct{}

func NewCriteriaRepository() CriteriaRepository {
	return &CriteriaRepositoryImpl{}
}

func (r *CriteriaRepositoryImpl) FindByTemplateAndTier(db *gorm.DB, templateID string, level models.TierLevel) (*models.TierCriteria, error) {
	var criteria models.TierCriteria
	err := db.Where("template_id = ? AND level = ?", templateID, level).
		Order("version DESC").
		First(&criteria).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCriteriaNotFound
		}
		return nil, err
	}
	return &criteria, nil
}

func (r *CriteriaRepositoryImpl) FindByTemplate(db *gorm.DB, templateID string) ([]models.TierCriteria, error) {
	var criteria []models.TierCriteria
	err := db.Where("template_id = ?", templateID).
		Order("level ASC, version DESC").
		Find(&criteria).Error
	return criteria, err
}

func (r *CriteriaRepositoryImpl) Create(db *gorm.DB, criteria *models.TierCriteria) error {
	return db.Create(criteria).Error
}

// Update перезаписывает строку целиком: нулевые пороги и веса -
// валидные значения, частичный Updates их потерял бы
func (r *CriteriaRepositoryImpl) Update(db *gorm.DB, criteria *models.TierCriteria) error {
	if criteria.ID == "" {
		return ErrCriteriaNotFound
	}
	return db.Save(criteria).Error
}
