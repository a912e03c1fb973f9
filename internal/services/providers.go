package services

import (
	"context"

	"gorm.io/gorm"

	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
)

// Провайдеры данных для evaluator-а. Реализации живут в repositories
// (GORM поверх локальных таблиц), но evaluator знает только интерфейсы:
// отсутствие данных - это 0 в sub-score, а не ошибка.

// ProjectHistoryProvider - история проектов фрилансера с фильтрами
// по домену, бюджету и длительности
type ProjectHistoryProvider interface {
	QueryProjects(db *gorm.DB, freelancerID string, filter repositories.ProjectFilter) ([]models.Project, error)
}

// SkillProfileProvider - скиллы профиля, объединенные с тегами
// завершенных проектов
type SkillProfileProvider interface {
	FreelancerSkills(db *gorm.DB, freelancerID string) ([]string, error)
}

// RatingProvider - оценки 1..5 из двух независимых источников фидбека,
// конкатенированные без взвешивания
type RatingProvider interface {
	Ratings(db *gorm.DB, freelancerID string) ([]int, error)
}

// ObspHistoryProvider - завершенные OBSP-назначения фрилансера
// на конкретном уровне шаблона
type ObspHistoryProvider interface {
	CountCompletedForTier(db *gorm.DB, freelancerID, templateID string, level models.TierLevel) (int64, error)
}

// BonusSourceProvider - данные для бонусной таблицы: сертификаты,
// портфолио, количество фидбека
type BonusSourceProvider interface {
	FindProfile(db *gorm.DB, freelancerID string) (*models.FreelancerProfile, error)
	FeedbackCount(db *gorm.DB, freelancerID string) (int64, error)
}

// WalletHoldService - внешний финансовый сервис. Ядро только считает
// payout/fee и передает их сюда; балансы оно не трогает.
type WalletHoldService interface {
	CreateHold(ctx context.Context, assignmentID string, payout, fee float64) error
	ReleaseHold(ctx context.Context, assignmentID string) error
}

// Notifier - best-effort уведомления: не блокируют и не роняют
// вызвавшую транзакцию
type Notifier interface {
	Notify(ctx context.Context, freelancerID, notificationType, title, message string, data map[string]any)
}
