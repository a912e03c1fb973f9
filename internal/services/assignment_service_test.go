package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"obsp_backend/internal/events"
	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
	"obsp_backend/internal/services/dto"
	"obsp_backend/pkg/apperrors"
)

type eligibilityServiceStub struct {
	record *models.EligibilityRecord
	err    error
}

func (s *eligibilityServiceStub) CalculateAndStore(_ context.Context, _ *gorm.DB, _, _ string) (*models.EligibilityRecord, error) {
	return s.record, s.err
}

func (s *eligibilityServiceStub) GetOrCreate(_ context.Context, _ *gorm.DB, _, _ string) (*models.EligibilityRecord, error) {
	return s.record, s.err
}

func (s *eligibilityServiceStub) GetSummary(_ context.Context, _ *gorm.DB, _ string) (*models.EligibilitySummary, error) {
	return nil, nil
}

func (s *eligibilityServiceStub) RecalculateFreelancer(_ context.Context, _ *gorm.DB, _ string) error {
	return s.err
}

func (s *eligibilityServiceStub) RecalculateAll(_ context.Context, _ *gorm.DB, _ int) (*dto.BatchRecalculateResult, error) {
	return &dto.BatchRecalculateResult{}, nil
}

type milestoneServiceStub struct {
	initialized  int
	deadlinesSet int
}

func (s *milestoneServiceStub) InitializeProgress(_ *gorm.DB, _ *models.TemplateResponse) error {
	s.initialized++
	return nil
}

func (s *milestoneServiceStub) CalculateAndSetDeadlines(_ context.Context, _ *gorm.DB, _ string, _ time.Time) error {
	s.deadlinesSet++
	return nil
}

func (s *milestoneServiceStub) GetProgress(_ *gorm.DB, _ string) ([]models.MilestoneProgress, float64, error) {
	return nil, 0, nil
}

func (s *milestoneServiceStub) CompleteMilestone(_ context.Context, _ *gorm.DB, _, _ string) (*models.MilestoneProgress, error) {
	return nil, nil
}

func (s *milestoneServiceStub) ExtendDeadline(_ *gorm.DB, _, _ string, _ time.Time, _ models.DeadlineType) (*models.MilestoneProgress, error) {
	return nil, nil
}

type assignmentFixture struct {
	svc         AssignmentService
	assignments *assignmentRepoStub
	templates   *templateRepoStub
	milestones  *milestoneServiceStub
	wallet      *walletStub
	notifier    *notifierStub
	bus         *events.Bus
}

func eligibleRecord(templateID string, level models.TierLevel) *models.EligibilityRecord {
	record := &models.EligibilityRecord{FreelancerID: "fr-1", TemplateID: templateID}
	record.SetTiers(map[models.TierLevel]models.TierEvaluation{
		level: {IsEligible: true, Score: 90},
	})
	return record
}

func newAssignmentFixture(record *models.EligibilityRecord) *assignmentFixture {
	templates := newTemplateRepoStub()
	templates.responses["resp-1"] = &models.TemplateResponse{
		BaseModel:  models.BaseModel{ID: "resp-1"},
		TemplateID: "tpl-1",
		TierID:     "tier-e",
		Status:     models.ResponseStatusPending,
		Price:      10000,
		Tier: &models.TemplateTier{
			BaseModel: models.BaseModel{ID: "tier-e"},
			Level:     models.TierEasy,
			Price:     10000,
		},
	}

	f := &assignmentFixture{
		assignments: newAssignmentRepoStub(),
		templates:   templates,
		milestones:  &milestoneServiceStub{},
		wallet:      &walletStub{},
		notifier:    &notifierStub{},
		bus:         events.NewBus(4),
	}
	f.svc = NewAssignmentService(
		f.assignments, f.templates,
		&eligibilityServiceStub{record: record},
		f.milestones, f.wallet, f.notifier, f.bus, 0.15)
	return f
}

func TestAssignHappyPath(t *testing.T) {
	f := newAssignmentFixture(eligibleRecord("tpl-1", models.TierEasy))

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	assignment, err := f.svc.Assign(context.Background(), db, "resp-1", "fr-1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentStatusAssigned, assignment.Status)
	require.NotNil(t, assignment.AssignedAt)

	// Payout/fee от снапшота цены и ставки платформы
	assert.Equal(t, 8500.0, assignment.FreelancerPayout)
	assert.Equal(t, 1500.0, assignment.PlatformFee)

	// Response переведен в processing со ссылкой на активное назначение
	assert.Equal(t, models.ResponseStatusProcessing, f.templates.statuses["resp-1"])
	assert.Equal(t, assignment.ID, f.templates.active["resp-1"])

	// Переход в assigned сразу проставляет дедлайны вех
	assert.Equal(t, 1, f.milestones.initialized)
	assert.Equal(t, 1, f.milestones.deadlinesSet)
	assert.Contains(t, f.wallet.holds, assignment.ID)
	assert.Contains(t, f.notifier.notifications, models.NotificationTypeAssigned)
}

func TestAssignExplicitPayoutOverride(t *testing.T) {
	f := newAssignmentFixture(eligibleRecord("tpl-1", models.TierEasy))

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	payout, fee := 9000.0, 1000.0
	assignment, err := f.svc.Assign(context.Background(), db, "resp-1", "fr-1", &payout, &fee)
	require.NoError(t, err)

	assert.Equal(t, 9000.0, assignment.FreelancerPayout)
	assert.Equal(t, 1000.0, assignment.PlatformFee)
}

func TestAssignDuplicateIsConcurrencyConflict(t *testing.T) {
	f := newAssignmentFixture(eligibleRecord("tpl-1", models.TierEasy))
	f.assignments.createErr = repositories.ErrDuplicateAssignment

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.svc.Assign(context.Background(), db, "resp-1", "fr-1", nil, nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeConcurrencyConflict, appErr.Code)

	// Проигравший вызов не оставляет побочных эффектов
	assert.Empty(t, f.wallet.holds)
	assert.Zero(t, f.milestones.initialized)
	assert.Zero(t, f.milestones.deadlinesSet)
}

func TestAssignIneligibleFreelancer(t *testing.T) {
	record := &models.EligibilityRecord{FreelancerID: "fr-1", TemplateID: "tpl-1"}
	record.SetTiers(map[models.TierLevel]models.TierEvaluation{
		models.TierEasy: {IsEligible: false, Score: 40},
	})
	f := newAssignmentFixture(record)

	_, err := f.svc.Assign(context.Background(), nil, "resp-1", "fr-1", nil, nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestStartWorkSetsDeadlines(t *testing.T) {
	f := newAssignmentFixture(eligibleRecord("tpl-1", models.TierEasy))
	assignedAt := time.Now()
	f.assignments.assignments["asg-1"] = &models.Assignment{
		BaseModel:    models.BaseModel{ID: "asg-1"},
		ResponseID:   "resp-1",
		FreelancerID: "fr-1",
		Status:       models.AssignmentStatusAssigned,
		AssignedAt:   &assignedAt,
	}

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	assignment, err := f.svc.StartWork(context.Background(), db, "asg-1")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentStatusInProgress, assignment.Status)
	require.NotNil(t, assignment.StartedAt)
	assert.Equal(t, 1, f.milestones.deadlinesSet)
	assert.Contains(t, f.notifier.notifications, models.NotificationTypeAssignmentStarted)
}

func TestInvalidTransitionLeavesStateUntouched(t *testing.T) {
	f := newAssignmentFixture(eligibleRecord("tpl-1", models.TierEasy))
	f.assignments.assignments["asg-1"] = &models.Assignment{
		BaseModel:  models.BaseModel{ID: "asg-1"},
		ResponseID: "resp-1",
		Status:     models.AssignmentStatusCompleted,
	}

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.svc.StartWork(context.Background(), db, "asg-1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidStateTransition, appErr.Code)

	// Терминальный статус не изменился
	assert.Equal(t, models.AssignmentStatusCompleted, f.assignments.assignments["asg-1"].Status)
	assert.Zero(t, f.milestones.deadlinesSet)
}

func TestCompletePublishesEvent(t *testing.T) {
	f := newAssignmentFixture(eligibleRecord("tpl-1", models.TierEasy))
	f.assignments.assignments["asg-1"] = &models.Assignment{
		BaseModel:    models.BaseModel{ID: "asg-1"},
		ResponseID:   "resp-1",
		FreelancerID: "fr-1",
		Status:       models.AssignmentStatusInProgress,
	}

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	assignment, err := f.svc.Complete(context.Background(), db, "asg-1")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentStatusCompleted, assignment.Status)
	require.NotNil(t, assignment.CompletedAt)
	assert.Equal(t, 100.0, f.assignments.progress["asg-1"])
	assert.Equal(t, models.ResponseStatusCompleted, f.templates.statuses["resp-1"])
	assert.Contains(t, f.wallet.releases, "asg-1")

	// Завершение порождает событие пересчета eligibility
	select {
	case event := <-f.bus.Events():
		assert.Equal(t, events.EngagementCompleted, event.Type)
		assert.Equal(t, "fr-1", event.FreelancerID)
		assert.Equal(t, "tpl-1", event.TemplateID)
	default:
		t.Fatal("expected an engagement.completed event on the bus")
	}
}

func TestCancelFreesResponse(t *testing.T) {
	f := newAssignmentFixture(eligibleRecord("tpl-1", models.TierEasy))
	f.assignments.assignments["asg-1"] = &models.Assignment{
		BaseModel:    models.BaseModel{ID: "asg-1"},
		ResponseID:   "resp-1",
		FreelancerID: "fr-1",
		Status:       models.AssignmentStatusAssigned,
	}
	activeID := "asg-1"
	f.templates.responses["resp-1"].ActiveAssignmentID = &activeID

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	assignment, err := f.svc.Cancel(context.Background(), db, "asg-1")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentStatusCancelled, assignment.Status)
	assert.Nil(t, f.templates.responses["resp-1"].ActiveAssignmentID)
	assert.Equal(t, models.ResponseStatusPending, f.templates.statuses["resp-1"])
	assert.Contains(t, f.wallet.releases, "asg-1")
}
