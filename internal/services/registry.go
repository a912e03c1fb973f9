package services

import (
	"gorm.io/gorm"

	"obsp_backend/internal/cache"
	"obsp_backend/internal/config"
	"obsp_backend/internal/events"
	"obsp_backend/internal/repositories"
)

// ServiceContainer - реестр сервисов, собирается один раз на старте
type ServiceContainer struct {
	Templates     TemplateService
	Criteria      CriteriaService
	Eligibility   EligibilityService
	Assignments   AssignmentService
	Milestones    MilestoneService
	Notifications NotificationService

	SummaryCache *cache.SummaryCache
	Bus          *events.Bus
}

// NewServiceContainer связывает репозитории, evaluator, кэш и шину
// событий в готовый набор сервисов
func NewServiceContainer(db *gorm.DB, cfg *config.Config) *ServiceContainer {
	templateRepo := repositories.NewTemplateRepository()
	criteriaRepo := repositories.NewCriteriaRepository()
	eligibilityRepo := repositories.NewEligibilityRepository()
	assignmentRepo := repositories.NewAssignmentRepository()
	milestoneRepo := repositories.NewMilestoneRepository()
	historyRepo := repositories.NewHistoryRepository()
	notificationRepo := repositories.NewNotificationRepository()

	summaryCache := cache.NewSummaryCache(
		cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SummaryTTL)
	bus := events.NewBus(cfg.Eligibility.EventQueueSize)

	evaluator := NewEligibilityEvaluator(
		historyRepo, historyRepo, historyRepo, assignmentRepo, historyRepo,
		cfg.Eligibility.PassScore,
		cfg.Eligibility.CoreSkillGate,
		cfg.Eligibility.OptionalBonus,
	)

	notifications := NewNotificationService(db, notificationRepo, historyRepo, cfg)
	wallet := NewWalletHoldService()

	eligibility := NewEligibilityService(
		evaluator, eligibilityRepo, criteriaRepo, templateRepo, historyRepo, summaryCache)
	milestones := NewMilestoneService(milestoneRepo, templateRepo, assignmentRepo, notifications)
	assignments := NewAssignmentService(
		assignmentRepo, templateRepo, eligibility, milestones, wallet, notifications, bus,
		cfg.Eligibility.PlatformFeeRate)

	return &ServiceContainer{
		Templates:     NewTemplateService(templateRepo, milestoneRepo),
		Criteria:      NewCriteriaService(criteriaRepo),
		Eligibility:   eligibility,
		Assignments:   assignments,
		Milestones:    milestones,
		Notifications: notifications,
		SummaryCache:  summaryCache,
		Bus:           bus,
	}
}
