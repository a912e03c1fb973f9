package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"obsp_backend/internal/cache"
	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
)

type eligibilityRepoStub struct {
	records []models.EligibilityRecord
	summary *models.EligibilitySummary
	saved   *models.EligibilitySummary
	upserts int
}

func (s *eligibilityRepoStub) FindRecord(_ *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error) {
	for i := range s.records {
		if s.records[i].FreelancerID == freelancerID && s.records[i].TemplateID == templateID {
			return &s.records[i], nil
		}
	}
	return nil, repositories.ErrEligibilityRecordNotFound
}

func (s *eligibilityRepoStub) FindRecordsByFreelancer(_ *gorm.DB, freelancerID string) ([]models.EligibilityRecord, error) {
	var out []models.EligibilityRecord
	for _, r := range s.records {
		if r.FreelancerID == freelancerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *eligibilityRepoStub) UpsertRecord(_ *gorm.DB, record *models.EligibilityRecord) error {
	s.upserts++
	for i := range s.records {
		if s.records[i].FreelancerID == record.FreelancerID && s.records[i].TemplateID == record.TemplateID {
			s.records[i] = *record
			return nil
		}
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *eligibilityRepoStub) FindSummary(_ *gorm.DB, _ string) (*models.EligibilitySummary, error) {
	if s.summary == nil {
		return nil, repositories.ErrEligibilitySummaryNotFound
	}
	return s.summary, nil
}

func (s *eligibilityRepoStub) SaveSummary(_ *gorm.DB, summary *models.EligibilitySummary) error {
	s.saved = summary
	return nil
}

type criteriaRepoStub struct {
	byTier map[models.TierLevel]*models.TierCriteria
}

func (s *criteriaRepoStub) FindByTemplateAndTier(_ *gorm.DB, _ string, level models.TierLevel) (*models.TierCriteria, error) {
	if c, ok := s.byTier[level]; ok {
		return c, nil
	}
	return nil, repositories.ErrCriteriaNotFound
}

func (s *criteriaRepoStub) FindByTemplate(_ *gorm.DB, _ string) ([]models.TierCriteria, error) {
	var out []models.TierCriteria
	for _, c := range s.byTier {
		out = append(out, *c)
	}
	return out, nil
}

func (s *criteriaRepoStub) Create(_ *gorm.DB, _ *models.TierCriteria) error { return nil }
func (s *criteriaRepoStub) Update(_ *gorm.DB, _ *models.TierCriteria) error { return nil }

type historyRepoStub struct {
	freelancerIDs []string
}

func (s *historyRepoStub) FindProfile(_ *gorm.DB, _ string) (*models.FreelancerProfile, error) {
	return &models.FreelancerProfile{}, nil
}

func (s *historyRepoStub) QueryProjects(_ *gorm.DB, _ string, _ repositories.ProjectFilter) ([]models.Project, error) {
	return nil, nil
}

func (s *historyRepoStub) FreelancerSkills(_ *gorm.DB, _ string) ([]string, error) {
	return nil, nil
}

func (s *historyRepoStub) Ratings(_ *gorm.DB, _ string) ([]int, error) {
	return nil, nil
}

func (s *historyRepoStub) FeedbackCount(_ *gorm.DB, _ string) (int64, error) {
	return 0, nil
}

func (s *historyRepoStub) ListFreelancerIDs(_ *gorm.DB) ([]string, error) {
	return s.freelancerIDs, nil
}

type evaluatorStub struct {
	calls  int
	result models.TierEvaluation
}

func (s *evaluatorStub) Evaluate(_ *gorm.DB, _ string, _ *models.ServiceTemplate, _ models.TierLevel, _ *models.TierCriteria) *models.TierEvaluation {
	s.calls++
	result := s.result
	return &result
}

func recordWithScores(freelancerID, templateID string, scores map[models.TierLevel]float64) models.EligibilityRecord {
	record := models.EligibilityRecord{FreelancerID: freelancerID, TemplateID: templateID}
	tiers := make(map[models.TierLevel]models.TierEvaluation)
	for level, score := range scores {
		tiers[level] = models.TierEvaluation{Score: score, EvaluatedAt: time.Now()}
	}
	record.SetTiers(tiers)
	return record
}

func emptyCache() *cache.SummaryCache {
	return cache.NewSummaryCache("", "", 0, 0)
}

func TestGetSummaryAveragesAllScores(t *testing.T) {
	// Фрилансер нигде не проходит: баллы 10/20/30 - среднее 20, eligible 0
	repo := &eligibilityRepoStub{
		records: []models.EligibilityRecord{
			recordWithScores("fr-1", "tpl-1", map[models.TierLevel]float64{
				models.TierEasy:   10,
				models.TierMedium: 20,
				models.TierHard:   30,
			}),
		},
	}

	svc := NewEligibilityService(&evaluatorStub{}, repo, &criteriaRepoStub{}, newTemplateRepoStub(), &historyRepoStub{}, emptyCache())

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	summary, err := svc.GetSummary(context.Background(), db, "fr-1")
	require.NoError(t, err)

	assert.Equal(t, 20.0, summary.AverageScore)
	assert.Equal(t, 0, summary.TotalEligible)
	assert.Equal(t, 1, summary.TemplatesChecked)

	perTier := summary.GetPerTier()
	require.Len(t, perTier, 3)
	assert.Equal(t, 1, perTier[models.TierEasy].Total)
	assert.Equal(t, 0, perTier[models.TierEasy].Eligible)
	assert.Equal(t, 10.0, perTier[models.TierEasy].AverageScore)
}

func TestGetOrCreateReturnsExistingRecord(t *testing.T) {
	evaluator := &evaluatorStub{}
	repo := &eligibilityRepoStub{
		records: []models.EligibilityRecord{
			recordWithScores("fr-1", "tpl-1", map[models.TierLevel]float64{models.TierEasy: 80}),
		},
	}
	svc := NewEligibilityService(evaluator, repo, &criteriaRepoStub{}, newTemplateRepoStub(), &historyRepoStub{}, emptyCache())

	record, err := svc.GetOrCreate(context.Background(), nil, "fr-1", "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", record.TemplateID)

	// Существующая запись отдается как есть: возраст не триггер
	assert.Zero(t, evaluator.calls)
	assert.Zero(t, repo.upserts)
}

func TestCalculateAndStoreSkipsUnconfiguredTiers(t *testing.T) {
	templateRepo := newTemplateRepoStub()
	templateRepo.templates["tpl-1"] = &models.ServiceTemplate{
		BaseModel: models.BaseModel{ID: "tpl-1"},
		Status:    models.TemplateStatusPublished,
		Tiers: []models.TemplateTier{
			{BaseModel: models.BaseModel{ID: "tier-e"}, TemplateID: "tpl-1", Level: models.TierEasy},
			{BaseModel: models.BaseModel{ID: "tier-m"}, TemplateID: "tpl-1", Level: models.TierMedium},
		},
	}

	evaluator := &evaluatorStub{result: models.TierEvaluation{IsEligible: true, Score: 85}}
	repo := &eligibilityRepoStub{}
	criteria := &criteriaRepoStub{byTier: map[models.TierLevel]*models.TierCriteria{
		models.TierEasy: {Level: models.TierEasy},
	}}
	svc := NewEligibilityService(evaluator, repo, criteria, templateRepo, &historyRepoStub{}, emptyCache())

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	record, err := svc.CalculateAndStore(context.Background(), db, "fr-1", "tpl-1")
	require.NoError(t, err)

	// Оценен только easy: у medium нет критериев
	tiers := record.GetTiers()
	require.Len(t, tiers, 1)
	assert.True(t, tiers[models.TierEasy].IsEligible)
	assert.Equal(t, 1, evaluator.calls)

	// Сводка пересобрана в той же транзакции
	require.NotNil(t, repo.saved)
	assert.Equal(t, 1, repo.saved.TotalEligible)
	assert.Equal(t, 85.0, repo.saved.AverageScore)
}

func TestCalculateAndStoreNoCriteriaAtAll(t *testing.T) {
	templateRepo := newTemplateRepoStub()
	templateRepo.templates["tpl-1"] = &models.ServiceTemplate{
		BaseModel: models.BaseModel{ID: "tpl-1"},
		Tiers: []models.TemplateTier{
			{BaseModel: models.BaseModel{ID: "tier-e"}, TemplateID: "tpl-1", Level: models.TierEasy},
		},
	}

	svc := NewEligibilityService(&evaluatorStub{}, &eligibilityRepoStub{}, &criteriaRepoStub{}, templateRepo, &historyRepoStub{}, emptyCache())

	db, mock := newGormMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.CalculateAndStore(context.Background(), db, "fr-1", "tpl-1")
	require.Error(t, err)
}
