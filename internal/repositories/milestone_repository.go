package repositories

import (
	"errors"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
)

var (
	ErrMilestoneNotFound         = errors.New("milestone not found")
	ErrMilestoneProgressNotFound = errors.New("milestone progress not found")
)

type MilestoneRepository interface {
	FindByTier(db *gorm.DB, tierID string) ([]models.Milestone, error)
	FindByID(db *gorm.DB, id string) (*models.Milestone, error)

	CreateProgressEntries(db *gorm.DB, entries []models.MilestoneProgress) error
	FindProgressByResponse(db *gorm.DB, responseID string) ([]models.MilestoneProgress, error)
	FindProgressEntry(db *gorm.DB, responseID, milestoneID string) (*models.MilestoneProgress, error)
	UpdateProgressEntry(db *gorm.DB, entry *models.MilestoneProgress) error
}

type MilestoneRepositoryImpl struct{}

func NewMilestoneRepository() MilestoneRepository {
	return &MilestoneRepositoryImpl{}
}

// FindByTier возвращает вехи уровня строго в порядке следования
func (r *MilestoneRepositoryImpl) FindByTier(db *gorm.DB, tierID string) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := db.Where("tier_id = ?", tierID).
		Order(`"order" ASC`).
		Find(&milestones).Error
	return milestones, err
}

func (r *MilestoneRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Milestone, error) {
	var milestone models.Milestone
	err := db.First(&milestone, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	return &milestone, nil
}

func (r *MilestoneRepositoryImpl) CreateProgressEntries(db *gorm.DB, entries []models.MilestoneProgress) error {
	if len(entries) == 0 {
		return nil
	}
	return db.Create(&entries).Error
}

// FindProgressByResponse возвращает прогресс вех response-а
// в порядке следования вех уровня
func (r *MilestoneRepositoryImpl) FindProgressByResponse(db *gorm.DB, responseID string) ([]models.MilestoneProgress, error) {
	var entries []models.MilestoneProgress
	err := db.Preload("Milestone").
		Joins("JOIN milestones ON milestones.id = milestone_progresses.milestone_id").
		Where("milestone_progresses.response_id = ?", responseID).
		Order(`milestones."order" ASC`).
		Find(&entries).Error
	return entries, err
}

func (r *MilestoneRepositoryImpl) FindProgressEntry(db *gorm.DB, responseID, milestoneID string) (*models.MilestoneProgress, error) {
	var entry models.MilestoneProgress
	err := db.Preload("Milestone").
		Where("response_id = ? AND milestone_id = ?", responseID, milestoneID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneProgressNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *MilestoneRepositoryImpl) UpdateProgressEntry(db *gorm.DB, entry *models.MilestoneProgress) error {
	result := db.Model(entry).Updates(map[string]interface{}{
		"status":        entry.Status,
		"deadline":      entry.Deadline,
		"deadline_type": entry.DeadlineType,
		"completed_at":  entry.CompletedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMilestoneProgressNotFound
	}
	return nil
}
