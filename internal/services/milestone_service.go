package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"obsp_backend/internal/logger"
	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
	"obsp_backend/pkg/apperrors"
)

// MilestoneService - вехи оплаченного response-а: создание прогресса,
// цепочка дедлайнов, завершение вех с продвижением прогресса назначения.
type MilestoneService interface {
	InitializeProgress(db *gorm.DB, response *models.TemplateResponse) error
	CalculateAndSetDeadlines(ctx context.Context, db *gorm.DB, responseID string, start time.Time) error
	GetProgress(db *gorm.DB, responseID string) ([]models.MilestoneProgress, float64, error)
	CompleteMilestone(ctx context.Context, db *gorm.DB, responseID, milestoneID string) (*models.MilestoneProgress, error)
	ExtendDeadline(db *gorm.DB, responseID, milestoneID string, deadline time.Time, deadlineType models.DeadlineType) (*models.MilestoneProgress, error)
}

type milestoneService struct {
	milestones  repositories.MilestoneRepository
	templates   repositories.TemplateRepository
	assignments repositories.AssignmentRepository
	notifier    Notifier
}

func NewMilestoneService(
	milestones repositories.MilestoneRepository,
	templates repositories.TemplateRepository,
	assignments repositories.AssignmentRepository,
	notifier Notifier,
) MilestoneService {
	return &milestoneService{
		milestones:  milestones,
		templates:   templates,
		assignments: assignments,
		notifier:    notifier,
	}
}

// InitializeProgress создает pending-записи прогресса для всех вех
// уровня response-а. Вызывается при назначении, в его транзакции.
// Повторный вызов для уже инициализированного response - no-op.
func (s *milestoneService) InitializeProgress(db *gorm.DB, response *models.TemplateResponse) error {
	existing, err := s.milestones.FindProgressByResponse(db, response.ID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if len(existing) > 0 {
		return nil
	}

	milestones, err := s.milestones.FindByTier(db, response.TierID)
	if err != nil {
		return apperrors.InternalError(err)
	}

	entries := make([]models.MilestoneProgress, 0, len(milestones))
	for _, m := range milestones {
		entries = append(entries, models.MilestoneProgress{
			ResponseID:   response.ID,
			MilestoneID:  m.ID,
			Status:       models.MilestoneStatusPending,
			DeadlineType: models.DeadlineTypeDefault,
		})
	}

	if err := s.milestones.CreateProgressEntries(db, entries); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// CalculateAndSetDeadlines проставляет дедлайны цепочкой от стартовой
// даты: дедлайн вехи = курсор + estimated_days, курсор сдвигается на
// каждой вехе. Первая веха переводится в in_progress, остальные
// остаются pending. Response без активного назначения - no-op с логом,
// не ошибка: дедлайны имеют смысл только у идущей работы.
func (s *milestoneService) CalculateAndSetDeadlines(ctx context.Context, db *gorm.DB, responseID string, start time.Time) error {
	assignment, err := s.assignments.FindActiveByResponse(db, responseID)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			logger.CtxWarn(ctx, "deadline calculation skipped: response has no active assignment",
				"response_id", responseID)
			return nil
		}
		return apperrors.InternalError(err)
	}

	entries, err := s.milestones.FindProgressByResponse(db, responseID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if len(entries) == 0 {
		// У уровня нет вех - нечего планировать
		return nil
	}

	cursor := start
	for i := range entries {
		entry := &entries[i]
		if entry.Milestone == nil {
			return apperrors.InternalError(errors.New("milestone progress entry without milestone"))
		}

		deadline := cursor.AddDate(0, 0, entry.Milestone.EstimatedDays)
		cursor = deadline

		entry.Deadline = &deadline
		entry.DeadlineType = models.DeadlineTypeDefault
		if i == 0 {
			entry.Status = models.MilestoneStatusInProgress
		}

		if err := s.milestones.UpdateProgressEntry(db, entry); err != nil {
			return apperrors.InternalError(err)
		}
	}

	logger.CtxInfo(ctx, "milestone deadlines set",
		"response_id", responseID,
		"milestones", len(entries),
		"final_deadline", cursor)

	s.notifier.Notify(ctx, assignment.FreelancerID, models.NotificationTypeMilestoneDeadlines,
		"Milestone deadlines set",
		"Deadlines for your engagement milestones have been scheduled",
		map[string]any{
			"response_id":    responseID,
			"final_deadline": cursor.Format(time.RFC3339),
		})
	return nil
}

// GetProgress возвращает вехи response-а в порядке следования
// вместе с ценой уровня для расчета выплат
func (s *milestoneService) GetProgress(db *gorm.DB, responseID string) ([]models.MilestoneProgress, float64, error) {
	response, err := s.templates.FindResponseByID(db, responseID)
	if err != nil {
		if errors.Is(err, repositories.ErrResponseNotFound) {
			return nil, 0, apperrors.ErrResponseNotFound
		}
		return nil, 0, apperrors.InternalError(err)
	}

	entries, err := s.milestones.FindProgressByResponse(db, responseID)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return entries, response.Price, nil
}

// CompleteMilestone завершает веху, переводит следующую pending-веху
// в in_progress и обновляет процент прогресса активного назначения
func (s *milestoneService) CompleteMilestone(ctx context.Context, db *gorm.DB, responseID, milestoneID string) (*models.MilestoneProgress, error) {
	var completed *models.MilestoneProgress

	err := db.Transaction(func(tx *gorm.DB) error {
		entry, err := s.milestones.FindProgressEntry(tx, responseID, milestoneID)
		if err != nil {
			if errors.Is(err, repositories.ErrMilestoneProgressNotFound) {
				return apperrors.ErrMilestoneNotFound
			}
			return apperrors.InternalError(err)
		}

		if entry.Status == models.MilestoneStatusCompleted {
			return apperrors.ErrInvalidOperation("milestone", "Milestone is already completed")
		}

		now := time.Now().UTC()
		entry.Status = models.MilestoneStatusCompleted
		entry.CompletedAt = &now
		if err := s.milestones.UpdateProgressEntry(tx, entry); err != nil {
			return apperrors.InternalError(err)
		}

		entries, err := s.milestones.FindProgressByResponse(tx, responseID)
		if err != nil {
			return apperrors.InternalError(err)
		}

		done := 0
		hasCurrent := false
		for i := range entries {
			switch entries[i].Status {
			case models.MilestoneStatusCompleted:
				done++
			case models.MilestoneStatusInProgress:
				hasCurrent = true
			}
		}

		// Следующая pending-веха становится текущей, только если
		// никакая другая веха не осталась в работе
		if !hasCurrent {
			for i := range entries {
				if entries[i].Status == models.MilestoneStatusPending {
					entries[i].Status = models.MilestoneStatusInProgress
					if err := s.milestones.UpdateProgressEntry(tx, &entries[i]); err != nil {
						return apperrors.InternalError(err)
					}
					break
				}
			}
		}

		if assignment, err := s.assignments.FindActiveByResponse(tx, responseID); err == nil {
			progress := 0.0
			if len(entries) > 0 {
				progress = round2(float64(done) / float64(len(entries)) * 100)
			}
			if err := s.assignments.UpdateProgress(tx, assignment.ID, progress); err != nil {
				return apperrors.InternalError(err)
			}
		} else if !errors.Is(err, repositories.ErrAssignmentNotFound) {
			return apperrors.InternalError(err)
		}

		completed = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "milestone completed",
		"response_id", responseID,
		"milestone_id", milestoneID)
	return completed, nil
}

// ExtendDeadline сдвигает дедлайн одной вехи вручную. Дедлайны
// последующих вех не пересчитываются: продление - точечное решение,
// а не сдвиг всей цепочки.
func (s *milestoneService) ExtendDeadline(db *gorm.DB, responseID, milestoneID string, deadline time.Time, deadlineType models.DeadlineType) (*models.MilestoneProgress, error) {
	entry, err := s.milestones.FindProgressEntry(db, responseID, milestoneID)
	if err != nil {
		if errors.Is(err, repositories.ErrMilestoneProgressNotFound) {
			return nil, apperrors.ErrMilestoneNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if entry.Status == models.MilestoneStatusCompleted {
		return nil, apperrors.ErrInvalidOperation("milestone", "Cannot extend a completed milestone")
	}
	if entry.Deadline != nil && !deadline.After(*entry.Deadline) {
		return nil, apperrors.ErrInvalidOperation("milestone", "New deadline must be later than the current one")
	}

	if deadlineType == "" {
		deadlineType = models.DeadlineTypeExtended
	}
	entry.Deadline = &deadline
	entry.DeadlineType = deadlineType

	if err := s.milestones.UpdateProgressEntry(db, entry); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return entry, nil
}
