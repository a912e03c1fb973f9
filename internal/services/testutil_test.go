package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
)

// newGormMock дает *gorm.DB поверх sqlmock: сервисные тесты гоняют
// только Begin/Commit, сами запросы уходят в репозитории-стабы
func newGormMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

// --- repository stubs ---

type milestoneRepoStub struct {
	milestones []models.Milestone
	entries    []models.MilestoneProgress
	updates    int
}

func (s *milestoneRepoStub) FindByTier(_ *gorm.DB, _ string) ([]models.Milestone, error) {
	return s.milestones, nil
}

func (s *milestoneRepoStub) FindByID(_ *gorm.DB, id string) (*models.Milestone, error) {
	for i := range s.milestones {
		if s.milestones[i].ID == id {
			return &s.milestones[i], nil
		}
	}
	return nil, repositories.ErrMilestoneNotFound
}

func (s *milestoneRepoStub) CreateProgressEntries(_ *gorm.DB, entries []models.MilestoneProgress) error {
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *milestoneRepoStub) FindProgressByResponse(_ *gorm.DB, responseID string) ([]models.MilestoneProgress, error) {
	var out []models.MilestoneProgress
	for _, e := range s.entries {
		if e.ResponseID == responseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *milestoneRepoStub) FindProgressEntry(_ *gorm.DB, responseID, milestoneID string) (*models.MilestoneProgress, error) {
	for i := range s.entries {
		if s.entries[i].ResponseID == responseID && s.entries[i].MilestoneID == milestoneID {
			entry := s.entries[i]
			return &entry, nil
		}
	}
	return nil, repositories.ErrMilestoneProgressNotFound
}

func (s *milestoneRepoStub) UpdateProgressEntry(_ *gorm.DB, entry *models.MilestoneProgress) error {
	for i := range s.entries {
		if s.entries[i].ResponseID == entry.ResponseID && s.entries[i].MilestoneID == entry.MilestoneID {
			milestone := s.entries[i].Milestone
			s.entries[i] = *entry
			if s.entries[i].Milestone == nil {
				s.entries[i].Milestone = milestone
			}
			s.updates++
			return nil
		}
	}
	return repositories.ErrMilestoneProgressNotFound
}

type assignmentRepoStub struct {
	assignments map[string]*models.Assignment
	createErr   error
	progress    map[string]float64
}

func newAssignmentRepoStub() *assignmentRepoStub {
	return &assignmentRepoStub{
		assignments: make(map[string]*models.Assignment),
		progress:    make(map[string]float64),
	}
}

func (s *assignmentRepoStub) Create(_ *gorm.DB, assignment *models.Assignment) error {
	if s.createErr != nil {
		return s.createErr
	}
	if assignment.ID == "" {
		assignment.ID = "asg-" + assignment.ResponseID + "-" + assignment.FreelancerID
	}
	s.assignments[assignment.ID] = assignment
	return nil
}

func (s *assignmentRepoStub) FindByID(_ *gorm.DB, id string) (*models.Assignment, error) {
	if a, ok := s.assignments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, repositories.ErrAssignmentNotFound
}

func (s *assignmentRepoStub) FindByResponseAndFreelancer(_ *gorm.DB, responseID, freelancerID string) (*models.Assignment, error) {
	for _, a := range s.assignments {
		if a.ResponseID == responseID && a.FreelancerID == freelancerID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repositories.ErrAssignmentNotFound
}

func (s *assignmentRepoStub) FindActiveByResponse(_ *gorm.DB, responseID string) (*models.Assignment, error) {
	for _, a := range s.assignments {
		if a.ResponseID == responseID && a.IsActive() {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repositories.ErrAssignmentNotFound
}

func (s *assignmentRepoStub) Update(_ *gorm.DB, assignment *models.Assignment) error {
	if _, ok := s.assignments[assignment.ID]; !ok {
		return repositories.ErrAssignmentNotFound
	}
	copied := *assignment
	s.assignments[assignment.ID] = &copied
	return nil
}

func (s *assignmentRepoStub) UpdateProgress(_ *gorm.DB, assignmentID string, progress float64) error {
	if a, ok := s.assignments[assignmentID]; ok {
		a.Progress = progress
		s.progress[assignmentID] = progress
		return nil
	}
	return repositories.ErrAssignmentNotFound
}

func (s *assignmentRepoStub) CountCompletedForTier(_ *gorm.DB, _, _ string, _ models.TierLevel) (int64, error) {
	return 0, nil
}

type templateRepoStub struct {
	templates map[string]*models.ServiceTemplate
	responses map[string]*models.TemplateResponse
	statuses  map[string]models.ResponseStatus
	active    map[string]string
}

func newTemplateRepoStub() *templateRepoStub {
	return &templateRepoStub{
		templates: make(map[string]*models.ServiceTemplate),
		responses: make(map[string]*models.TemplateResponse),
		statuses:  make(map[string]models.ResponseStatus),
		active:    make(map[string]string),
	}
}

func (s *templateRepoStub) FindTemplateByID(_ *gorm.DB, id string) (*models.ServiceTemplate, error) {
	if tpl, ok := s.templates[id]; ok {
		return tpl, nil
	}
	return nil, repositories.ErrTemplateNotFound
}

func (s *templateRepoStub) FindTemplatesByStatus(_ *gorm.DB, status models.TemplateStatus) ([]models.ServiceTemplate, error) {
	var out []models.ServiceTemplate
	for _, tpl := range s.templates {
		if tpl.Status == status {
			out = append(out, *tpl)
		}
	}
	return out, nil
}

func (s *templateRepoStub) FindTierByID(_ *gorm.DB, id string) (*models.TemplateTier, error) {
	for _, tpl := range s.templates {
		for i := range tpl.Tiers {
			if tpl.Tiers[i].ID == id {
				return &tpl.Tiers[i], nil
			}
		}
	}
	return nil, repositories.ErrTierNotFound
}

func (s *templateRepoStub) FindTier(_ *gorm.DB, templateID string, level models.TierLevel) (*models.TemplateTier, error) {
	tpl, ok := s.templates[templateID]
	if !ok {
		return nil, repositories.ErrTierNotFound
	}
	for i := range tpl.Tiers {
		if tpl.Tiers[i].Level == level {
			return &tpl.Tiers[i], nil
		}
	}
	return nil, repositories.ErrTierNotFound
}

func (s *templateRepoStub) PublishTemplate(_ *gorm.DB, templateID string) error {
	if tpl, ok := s.templates[templateID]; ok {
		tpl.Status = models.TemplateStatusPublished
		return nil
	}
	return repositories.ErrTemplateNotFound
}

func (s *templateRepoStub) FindResponseByID(_ *gorm.DB, id string) (*models.TemplateResponse, error) {
	if r, ok := s.responses[id]; ok {
		return r, nil
	}
	return nil, repositories.ErrResponseNotFound
}

func (s *templateRepoStub) UpdateResponseStatus(_ *gorm.DB, responseID string, status models.ResponseStatus) error {
	if r, ok := s.responses[responseID]; ok {
		r.Status = status
		s.statuses[responseID] = status
		return nil
	}
	return repositories.ErrResponseNotFound
}

func (s *templateRepoStub) SetActiveAssignment(_ *gorm.DB, responseID, assignmentID string) error {
	if r, ok := s.responses[responseID]; ok {
		r.ActiveAssignmentID = &assignmentID
		s.active[responseID] = assignmentID
		return nil
	}
	return repositories.ErrResponseNotFound
}

func (s *templateRepoStub) ClearActiveAssignment(_ *gorm.DB, responseID string) error {
	if r, ok := s.responses[responseID]; ok {
		r.ActiveAssignmentID = nil
		delete(s.active, responseID)
		return nil
	}
	return repositories.ErrResponseNotFound
}

// --- service stubs ---

type notifierStub struct {
	notifications []string
}

func (s *notifierStub) Notify(_ context.Context, _ string, notificationType, _, _ string, _ map[string]any) {
	s.notifications = append(s.notifications, notificationType)
}

type walletStub struct {
	holds    []string
	releases []string
}

func (s *walletStub) CreateHold(_ context.Context, assignmentID string, _, _ float64) error {
	s.holds = append(s.holds, assignmentID)
	return nil
}

func (s *walletStub) ReleaseHold(_ context.Context, assignmentID string) error {
	s.releases = append(s.releases, assignmentID)
	return nil
}
