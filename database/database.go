package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"obsp_backend/internal/logger"
	"obsp_backend/internal/models"
)

// Connect открывает соединение с Postgres.
// TranslateError включен, чтобы нарушения уникальных индексов
// приходили как gorm.ErrDuplicatedKey.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("database connection established")
	return db, nil
}

// Migrate прогоняет автомиграции всех моделей
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.ServiceTemplate{},
		&models.TemplateTier{},
		&models.Milestone{},
		&models.TemplateResponse{},
		&models.MilestoneProgress{},
		&models.TierCriteria{},
		&models.FreelancerProfile{},
		&models.Project{},
		&models.ProjectFeedback{},
		&models.EligibilityRecord{},
		&models.EligibilitySummary{},
		&models.Assignment{},
		&models.Notification{},
	)
}
