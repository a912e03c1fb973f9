package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"obsp_backend/internal/models"
)

var (
	ErrEligibilityRecordNotFound  = errors.New("eligibility record not found")
	ErrEligibilitySummaryNotFound = errors.New("eligibility summary not found")
)

type EligibilityRepository interface {
	FindRecord(db *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error)
	FindRecordsByFreelancer(db *gorm.DB, freelancerID string) ([]models.EligibilityRecord, error)
	UpsertRecord(db *gorm.DB, record *models.EligibilityRecord) error

	FindSummary(db *gorm.DB, freelancerID string) (*models.EligibilitySummary, error)
	SaveSummary(db *gorm.DB, summary *models.EligibilitySummary) error
}

type EligibilityRepositoryImpl struct{}

func NewEligibilityRepository() EligibilityRepository {
	return &EligibilityRepositoryImpl{}
}

func (r *EligibilityRepositoryImpl) FindRecord(db *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error) {
	var record models.EligibilityRecord
	err := db.Where("freelancer_id = ? AND template_id = ?", freelancerID, templateID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEligibilityRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *EligibilityRepositoryImpl) FindRecordsByFreelancer(db *gorm.DB, freelancerID string) ([]models.EligibilityRecord, error) {
	var records []models.EligibilityRecord
	err := db.Where("freelancer_id = ?", freelancerID).
		Order("template_id ASC").
		Find(&records).Error
	return records, err
}

// UpsertRecord пишет полную карту tier -> оценка для (freelancer, template).
// Конкурентные писатели по одному ключу сериализуются на уникальном индексе:
// проигравший INSERT превращается в UPDATE.
func (r *EligibilityRepositoryImpl) UpsertRecord(db *gorm.DB, record *models.EligibilityRecord) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "freelancer_id"}, {Name: "template_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tiers":      record.Tiers,
			"updated_at": time.Now(),
		}),
	}).Create(record).Error
}

func (r *EligibilityRepositoryImpl) FindSummary(db *gorm.DB, freelancerID string) (*models.EligibilitySummary, error) {
	var summary models.EligibilitySummary
	err := db.Where("freelancer_id = ?", freelancerID).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEligibilitySummaryNotFound
		}
		return nil, err
	}
	return &summary, nil
}

func (r *EligibilityRepositoryImpl) SaveSummary(db *gorm.DB, summary *models.EligibilitySummary) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "freelancer_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"templates_checked": summary.TemplatesChecked,
			"total_eligible":    summary.TotalEligible,
			"average_score":     summary.AverageScore,
			"per_tier":          summary.PerTier,
			"recalculated_at":   summary.RecalculatedAt,
			"updated_at":        time.Now(),
		}),
	}).Create(summary).Error
}
