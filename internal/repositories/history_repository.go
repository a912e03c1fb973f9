package repositories

import (
	"errors"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
)

var (
	ErrProfileNotFound = errors.New("freelancer profile not found")
)

// ProjectFilter - фильтры истории проектов для project_experience критерия
type ProjectFilter struct {
	Domains         []string
	MinBudget       float64
	MinDurationDays int
	Status          models.ProjectStatus
}

// HistoryRepository - GORM-реализация провайдеров истории фрилансера:
// проекты, скиллы, оценки из двух источников фидбека.
type HistoryRepository interface {
	FindProfile(db *gorm.DB, freelancerID string) (*models.FreelancerProfile, error)
	QueryProjects(db *gorm.DB, freelancerID string, filter ProjectFilter) ([]models.Project, error)
	FreelancerSkills(db *gorm.DB, freelancerID string) ([]string, error)
	Ratings(db *gorm.DB, freelancerID string) ([]int, error)
	FeedbackCount(db *gorm.DB, freelancerID string) (int64, error)
	ListFreelancerIDs(db *gorm.DB) ([]string, error)
}

type HistoryRepositoryImpl struct{}

func NewHistoryRepository() HistoryRepository {
	return &HistoryRepositoryImpl{}
}

func (r *HistoryRepositoryImpl) FindProfile(db *gorm.DB, freelancerID string) (*models.FreelancerProfile, error) {
	var profile models.FreelancerProfile
	err := db.First(&profile, "id = ?", freelancerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *HistoryRepositoryImpl) QueryProjects(db *gorm.DB, freelancerID string, filter ProjectFilter) ([]models.Project, error) {
	query := db.Where("freelancer_id = ?", freelancerID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if len(filter.Domains) > 0 {
		query = query.Where("domain IN ?", filter.Domains)
	}
	if filter.MinBudget > 0 {
		query = query.Where("budget >= ?", filter.MinBudget)
	}
	if filter.MinDurationDays > 0 {
		query = query.Where("duration_days >= ?", filter.MinDurationDays)
	}

	var projects []models.Project
	err := query.Order("created_at DESC").Find(&projects).Error
	return projects, err
}

// FreelancerSkills - скиллы профиля, объединенные с тегами скиллов
// на завершенных проектах (без дублей)
func (r *HistoryRepositoryImpl) FreelancerSkills(db *gorm.DB, freelancerID string) ([]string, error) {
	profile, err := r.FindProfile(db, freelancerID)
	if err != nil {
		return nil, err
	}

	var projects []models.Project
	if err := db.Where("freelancer_id = ? AND status = ?", freelancerID, models.ProjectStatusCompleted).
		Find(&projects).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var skills []string
	for _, skill := range profile.GetSkills() {
		if !seen[skill] {
			seen[skill] = true
			skills = append(skills, skill)
		}
	}
	for _, project := range projects {
		for _, skill := range project.GetSkills() {
			if !seen[skill] {
				seen[skill] = true
				skills = append(skills, skill)
			}
		}
	}
	return skills, nil
}

// Ratings - оценки из обоих источников фидбека, просто конкатенированные:
// среднее считается по всем, без взвешивания по источнику
func (r *HistoryRepositoryImpl) Ratings(db *gorm.DB, freelancerID string) ([]int, error) {
	var feedback []models.ProjectFeedback
	err := db.Where("freelancer_id = ?", freelancerID).
		Order("created_at ASC").
		Find(&feedback).Error
	if err != nil {
		return nil, err
	}

	ratings := make([]int, 0, len(feedback))
	for _, f := range feedback {
		ratings = append(ratings, f.Rating)
	}
	return ratings, nil
}

func (r *HistoryRepositoryImpl) FeedbackCount(db *gorm.DB, freelancerID string) (int64, error) {
	var count int64
	err := db.Model(&models.ProjectFeedback{}).
		Where("freelancer_id = ?", freelancerID).
		Count(&count).Error
	return count, err
}

// ListFreelancerIDs - все фрилансеры для offline batch-пересчета
func (r *HistoryRepositoryImpl) ListFreelancerIDs(db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.Model(&models.FreelancerProfile{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}
