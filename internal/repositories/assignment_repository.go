package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
)

var (
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrDuplicateAssignment = errors.New("assignment already exists for this response and freelancer")
)

type AssignmentRepository interface {
	Create(db *gorm.DB, assignment *models.Assignment) error
	FindByID(db *gorm.DB, id string) (*models.Assignment, error)
	FindByResponseAndFreelancer(db *gorm.DB, responseID, freelancerID string) (*models.Assignment, error)
	FindActiveByResponse(db *gorm.DB, responseID string) (*models.Assignment, error)
	Update(db *gorm.DB, assignment *models.Assignment) error
	UpdateProgress(db *gorm.DB, assignmentID string, progress float64) error
	CountCompletedForTier(db *gorm.DB, freelancerID, templateID string, level models.TierLevel) (int64, error)
}

type AssignmentRepositoryImpl struct{}

func NewAssignmentRepository() AssignmentRepository {
	return &AssignmentRepositoryImpl{}
}

// Create вставляет назначение под уникальным индексом
// (response_id, freelancer_id). Нарушение уникальности - проигранная
// гонка конкурентных assign(), наверх уходит ErrDuplicateAssignment.
func (r *AssignmentRepositoryImpl) Create(db *gorm.DB, assignment *models.Assignment) error {
	err := db.Create(assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrDuplicateAssignment
		}
		return err
	}
	return nil
}

func (r *AssignmentRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := db.Preload("Response").First(&assignment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepositoryImpl) FindByResponseAndFreelancer(db *gorm.DB, responseID, freelancerID string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := db.Where("response_id = ? AND freelancer_id = ?", responseID, freelancerID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// FindActiveByResponse возвращает активное назначение response-а.
// Сначала по явной ссылке active_assignment_id, затем fallback на выборку
// по статусу для записей, созданных до ее введения.
func (r *AssignmentRepositoryImpl) FindActiveByResponse(db *gorm.DB, responseID string) (*models.Assignment, error) {
	var response models.TemplateResponse
	if err := db.Select("active_assignment_id").First(&response, "id = ?", responseID).Error; err == nil &&
		response.ActiveAssignmentID != nil {
		assignment, err := r.FindByID(db, *response.ActiveAssignmentID)
		if err == nil && assignment.IsActive() {
			return assignment, nil
		}
	}

	var assignment models.Assignment
	err := db.Where("response_id = ? AND status IN ?", responseID, models.ActiveAssignmentStatuses).
		Order("created_at ASC").
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepositoryImpl) Update(db *gorm.DB, assignment *models.Assignment) error {
	result := db.Model(assignment).Updates(map[string]interface{}{
		"status":            assignment.Status,
		"progress":          assignment.Progress,
		"freelancer_payout": assignment.FreelancerPayout,
		"platform_fee":      assignment.PlatformFee,
		"assigned_at":       assignment.AssignedAt,
		"started_at":        assignment.StartedAt,
		"completed_at":      assignment.CompletedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *AssignmentRepositoryImpl) UpdateProgress(db *gorm.DB, assignmentID string, progress float64) error {
	result := db.Model(&models.Assignment{}).
		Where("id = ?", assignmentID).
		Update("progress", progress)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// CountCompletedForTier - сколько назначений фрилансер завершил
// на данном уровне данного шаблона (гейт obsp_experience)
func (r *AssignmentRepositoryImpl) CountCompletedForTier(db *gorm.DB, freelancerID, templateID string, level models.TierLevel) (int64, error) {
	var count int64
	err := db.Model(&models.Assignment{}).
		Joins("JOIN template_responses ON template_responses.id = assignments.response_id").
		Joins("JOIN template_tiers ON template_tiers.id = template_responses.tier_id").
		Where("assignments.freelancer_id = ? AND assignments.status = ?", freelancerID, models.AssignmentStatusCompleted).
		Where("template_responses.template_id = ? AND template_tiers.level = ?", templateID, level).
		Count(&count).Error
	return count, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}
