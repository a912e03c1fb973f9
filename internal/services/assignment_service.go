package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"obsp_backend/internal/events"
	"obsp_backend/internal/logger"
	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
	"obsp_backend/pkg/apperrors"
)

// AssignmentService - жизненный цикл назначения фрилансера на оплаченный
// response. Переходы состояний валидируются машиной состояний модели;
// недопустимый переход не производит никаких мутаций. Дубль назначения
// на ту же пару (response, freelancer) ловится уникальным индексом
// хранилища и отдается как конфликт, без ретраев.
type AssignmentService interface {
	Assign(ctx context.Context, db *gorm.DB, responseID, freelancerID string, payout, fee *float64) (*models.Assignment, error)
	StartWork(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error)
	SubmitForReview(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error)
	Complete(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error)
	Cancel(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error)
	Dispute(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error)
	GetByID(db *gorm.DB, assignmentID string) (*models.Assignment, error)
}

type assignmentService struct {
	assignments repositories.AssignmentRepository
	templates   repositories.TemplateRepository
	eligibility EligibilityService
	milestones  MilestoneService
	wallet      WalletHoldService
	notifier    Notifier
	bus         *events.Bus

	platformFeeRate float64
}

func NewAssignmentService(
	assignments repositories.AssignmentRepository,
	templates repositories.TemplateRepository,
	eligibility EligibilityService,
	milestones MilestoneService,
	wallet WalletHoldService,
	notifier Notifier,
	bus *events.Bus,
	platformFeeRate float64,
) AssignmentService {
	return &assignmentService{
		assignments:     assignments,
		templates:       templates,
		eligibility:     eligibility,
		milestones:      milestones,
		wallet:          wallet,
		notifier:        notifier,
		bus:             bus,
		platformFeeRate: platformFeeRate,
	}
}

// Assign назначает фрилансера на response: проверяет eligibility для
// уровня response-а, считает payout/fee от снапшота цены (либо берет
// явно переданные), создает назначение, прогресс вех и их дедлайны в одной
// транзакции. Ссылка на активное назначение выставляется там же.
// Финансовый hold создается после коммита: его отказ логируется,
// но назначение не откатывает.
func (s *assignmentService) Assign(ctx context.Context, db *gorm.DB, responseID, freelancerID string, payout, fee *float64) (*models.Assignment, error) {
	response, err := s.templates.FindResponseByID(db, responseID)
	if err != nil {
		if errors.Is(err, repositories.ErrResponseNotFound) {
			return nil, apperrors.ErrResponseNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if response.Status != models.ResponseStatusPending {
		return nil, apperrors.ErrInvalidOperation("assignment",
			"Response is not awaiting assignment")
	}
	if response.Tier == nil {
		return nil, apperrors.InternalError(errors.New("response has no tier"))
	}

	record, err := s.eligibility.GetOrCreate(ctx, db, freelancerID, response.TemplateID)
	if err != nil {
		return nil, err
	}
	eval, ok := record.GetTiers()[response.Tier.Level]
	if !ok || !eval.IsEligible {
		return nil, apperrors.NewForbiddenError(
			"Freelancer is not eligible for this template tier")
	}

	freelancerPayout := round2(response.Price * (1 - s.platformFeeRate))
	platformFee := round2(response.Price * s.platformFeeRate)
	if payout != nil {
		freelancerPayout = *payout
	}
	if fee != nil {
		platformFee = *fee
	}

	now := time.Now().UTC()
	assignment := &models.Assignment{
		ResponseID:       responseID,
		FreelancerID:     freelancerID,
		Status:           models.AssignmentStatusPending,
		FreelancerPayout: freelancerPayout,
		PlatformFee:      platformFee,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.assignments.Create(tx, assignment); err != nil {
			if errors.Is(err, repositories.ErrDuplicateAssignment) {
				return apperrors.ErrAlreadyAssigned(err)
			}
			return apperrors.InternalError(err)
		}

		if err := s.applyTransition(tx, assignment, models.AssignmentStatusAssigned, now); err != nil {
			return err
		}

		if err := s.templates.SetActiveAssignment(tx, responseID, assignment.ID); err != nil {
			return apperrors.InternalError(err)
		}
		if err := s.templates.UpdateResponseStatus(tx, responseID, models.ResponseStatusProcessing); err != nil {
			return apperrors.InternalError(err)
		}

		if err := s.milestones.InitializeProgress(tx, response); err != nil {
			return err
		}
		// Переход в assigned запускает цепочку дедлайнов от момента
		// назначения; StartWork потом пересчитает ее от фактического старта
		return s.milestones.CalculateAndSetDeadlines(ctx, tx, responseID, now)
	})
	if err != nil {
		return nil, err
	}

	if err := s.wallet.CreateHold(ctx, assignment.ID, assignment.FreelancerPayout, assignment.PlatformFee); err != nil {
		logger.CtxWithError(ctx, "wallet hold creation failed", err,
			"assignment_id", assignment.ID)
	}

	s.notifier.Notify(ctx, freelancerID, models.NotificationTypeAssigned,
		"New assignment",
		"You have been assigned to a new engagement",
		map[string]any{"assignment_id": assignment.ID, "response_id": responseID})

	logger.CtxInfo(ctx, "freelancer assigned",
		"assignment_id", assignment.ID,
		"response_id", responseID,
		"freelancer_id", freelancerID)
	return assignment, nil
}

// StartWork переводит назначение в in_progress и запускает цепочку
// дедлайнов вех от момента старта
func (s *assignmentService) StartWork(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error) {
	var assignment *models.Assignment
	now := time.Now().UTC()

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = s.findForUpdate(tx, assignmentID)
		if err != nil {
			return err
		}
		if err := s.applyTransition(tx, assignment, models.AssignmentStatusInProgress, now); err != nil {
			return err
		}
		return s.milestones.CalculateAndSetDeadlines(ctx, tx, assignment.ResponseID, now)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, assignment.FreelancerID, models.NotificationTypeAssignmentStarted,
		"Work started",
		"Your engagement is now in progress",
		map[string]any{"assignment_id": assignment.ID})
	return assignment, nil
}

// SubmitForReview переводит работу на проверку клиентом
func (s *assignmentService) SubmitForReview(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error) {
	return s.simpleTransition(ctx, db, assignmentID, models.AssignmentStatusReview)
}

// Complete завершает назначение: прогресс 100%, response закрывается,
// hold освобождается, в шину уходит событие для пересчета eligibility
func (s *assignmentService) Complete(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error) {
	var assignment *models.Assignment
	var templateID string
	now := time.Now().UTC()

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = s.findForUpdate(tx, assignmentID)
		if err != nil {
			return err
		}
		if err := s.applyTransition(tx, assignment, models.AssignmentStatusCompleted, now); err != nil {
			return err
		}

		assignment.Progress = 100
		if err := s.assignments.UpdateProgress(tx, assignment.ID, 100); err != nil {
			return apperrors.InternalError(err)
		}

		response, err := s.templates.FindResponseByID(tx, assignment.ResponseID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		templateID = response.TemplateID

		return s.templates.UpdateResponseStatus(tx, assignment.ResponseID, models.ResponseStatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	if err := s.wallet.ReleaseHold(ctx, assignment.ID); err != nil {
		logger.CtxWithError(ctx, "wallet hold release failed", err,
			"assignment_id", assignment.ID)
	}

	s.bus.Publish(events.Event{
		Type:         events.EngagementCompleted,
		FreelancerID: assignment.FreelancerID,
		TemplateID:   templateID,
	})

	s.notifier.Notify(ctx, assignment.FreelancerID, models.NotificationTypeAssignmentComplete,
		"Engagement completed",
		"Your engagement has been completed and the payout hold released",
		map[string]any{"assignment_id": assignment.ID})

	logger.CtxInfo(ctx, "assignment completed",
		"assignment_id", assignment.ID,
		"freelancer_id", assignment.FreelancerID)
	return assignment, nil
}

// Cancel отменяет назначение и освобождает response для переназначения.
// Hold возвращается клиенту на стороне финансового сервиса.
func (s *assignmentService) Cancel(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error) {
	var assignment *models.Assignment
	now := time.Now().UTC()

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = s.findForUpdate(tx, assignmentID)
		if err != nil {
			return err
		}
		if err := s.applyTransition(tx, assignment, models.AssignmentStatusCancelled, now); err != nil {
			return err
		}
		if err := s.templates.ClearActiveAssignment(tx, assignment.ResponseID); err != nil {
			return apperrors.InternalError(err)
		}
		return s.templates.UpdateResponseStatus(tx, assignment.ResponseID, models.ResponseStatusPending)
	})
	if err != nil {
		return nil, err
	}

	if err := s.wallet.ReleaseHold(ctx, assignment.ID); err != nil {
		logger.CtxWithError(ctx, "wallet hold release failed", err,
			"assignment_id", assignment.ID)
	}

	logger.CtxInfo(ctx, "assignment cancelled", "assignment_id", assignment.ID)
	return assignment, nil
}

// Dispute переводит назначение в спор. Hold остается замороженным
// до разрешения спора вне ядра.
func (s *assignmentService) Dispute(ctx context.Context, db *gorm.DB, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.simpleTransition(ctx, db, assignmentID, models.AssignmentStatusDisputed)
	if err != nil {
		return nil, err
	}
	logger.CtxWarn(ctx, "assignment disputed", "assignment_id", assignment.ID)
	return assignment, nil
}

func (s *assignmentService) GetByID(db *gorm.DB, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(db, assignmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return assignment, nil
}

// --- helpers ---

func (s *assignmentService) findForUpdate(tx *gorm.DB, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(tx, assignmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return assignment, nil
}

// applyTransition валидирует и применяет переход, проставляя
// соответствующий timestamp
func (s *assignmentService) applyTransition(tx *gorm.DB, assignment *models.Assignment, target models.AssignmentStatus, now time.Time) error {
	if !assignment.CanTransitionTo(target) {
		return apperrors.ErrInvalidTransition(string(assignment.Status), string(target))
	}

	assignment.Status = target
	switch target {
	case models.AssignmentStatusAssigned:
		assignment.AssignedAt = &now
	case models.AssignmentStatusInProgress:
		if assignment.StartedAt == nil {
			assignment.StartedAt = &now
		}
	case models.AssignmentStatusCompleted:
		assignment.CompletedAt = &now
	}

	if err := s.assignments.Update(tx, assignment); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *assignmentService) simpleTransition(ctx context.Context, db *gorm.DB, assignmentID string, target models.AssignmentStatus) (*models.Assignment, error) {
	var assignment *models.Assignment
	now := time.Now().UTC()

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = s.findForUpdate(tx, assignmentID)
		if err != nil {
			return err
		}
		return s.applyTransition(tx, assignment, target, now)
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}
