package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
)

// providerStub реализует все провайдеры evaluator-а поверх данных в памяти
type providerStub struct {
	projects      []models.Project
	projectsErr   error
	skills        []string
	skillsErr     error
	ratings       []int
	ratingsErr    error
	priorCount    int64
	priorErr      error
	profile       *models.FreelancerProfile
	profileErr    error
	feedbackCount int64
}

func (s *providerStub) QueryProjects(_ *gorm.DB, _ string, filter repositories.ProjectFilter) ([]models.Project, error) {
	if s.projectsErr != nil {
		return nil, s.projectsErr
	}
	var out []models.Project
	for _, p := range s.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.MinBudget > 0 && p.Budget < filter.MinBudget {
			continue
		}
		if filter.MinDurationDays > 0 && p.DurationDays < filter.MinDurationDays {
			continue
		}
		if len(filter.Domains) > 0 {
			matched := false
			for _, d := range filter.Domains {
				if p.Domain == d {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *providerStub) FreelancerSkills(_ *gorm.DB, _ string) ([]string, error) {
	return s.skills, s.skillsErr
}

func (s *providerStub) Ratings(_ *gorm.DB, _ string) ([]int, error) {
	return s.ratings, s.ratingsErr
}

func (s *providerStub) CountCompletedForTier(_ *gorm.DB, _, _ string, _ models.TierLevel) (int64, error) {
	return s.priorCount, s.priorErr
}

func (s *providerStub) FindProfile(_ *gorm.DB, _ string) (*models.FreelancerProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	if s.profile == nil {
		return &models.FreelancerProfile{}, nil
	}
	return s.profile, nil
}

func (s *providerStub) FeedbackCount(_ *gorm.DB, _ string) (int64, error) {
	return s.feedbackCount, nil
}

func newTestEvaluator(stub *providerStub) EligibilityEvaluator {
	return NewEligibilityEvaluator(stub, stub, stub, stub, stub, 70.0, 80.0, 5.0)
}

func mediumCriteria() *models.TierCriteria {
	criteria := &models.TierCriteria{
		Level:                 models.TierMedium,
		ExperienceWeight:      0.5,
		SkillWeight:           0.3,
		RatingWeight:          0.1,
		DeadlineWeight:        0.1,
		MinCompletedProjects:  5,
		MinAvgRating:          4.5,
		MinSkillMatch:         90,
		MinDeadlineCompliance: 90,
		MinProjectBudget:      1000,
	}
	required := make([]string, 25)
	for i := range required {
		required[i] = fmt.Sprintf("skill-%d", i)
	}
	criteria.SetRequiredSkills(required)
	return criteria
}

func webTemplate() *models.ServiceTemplate {
	return &models.ServiceTemplate{
		BaseModel: models.BaseModel{ID: "tpl-1"},
		Title:     "Landing page",
		Category:  "web",
	}
}

func TestEvaluateMediumTier(t *testing.T) {
	// 20 завершенных проектов, 19 в срок; 5 из них проходят фильтр бюджета
	projects := make([]models.Project, 0, 20)
	for i := 0; i < 20; i++ {
		p := models.Project{
			Status:          models.ProjectStatusCompleted,
			Budget:          100,
			CompletedOnTime: i != 0,
		}
		if i < 5 {
			p.Budget = 2000
		}
		projects = append(projects, p)
	}

	// 23 из 25 required-скиллов = 92% покрытия
	skills := make([]string, 23)
	for i := range skills {
		skills[i] = fmt.Sprintf("skill-%d", i)
	}

	stub := &providerStub{
		projects: projects,
		skills:   skills,
		ratings:  []int{5, 5, 4, 4, 5}, // avg 4.6
	}

	eval := newTestEvaluator(stub).Evaluate(nil, "fr-1", webTemplate(), models.TierMedium, mediumCriteria())

	// 0.5*100 + 0.3*100 + 0.1*92 + 0.1*100 = 99.2
	assert.Equal(t, 99.2, eval.Score)
	assert.True(t, eval.IsEligible)
	assert.Empty(t, eval.Evidence.Errors)

	breakdown := eval.Evidence.Breakdown
	assert.Equal(t, 100.0, breakdown[models.CriterionProjectExperience].Value)
	assert.Equal(t, 100.0, breakdown[models.CriterionSkillMatch].Value)
	assert.Equal(t, 92.0, breakdown[models.CriterionRating].Value)
	assert.Equal(t, 100.0, breakdown[models.CriterionDeadlineCompliance].Value)
	assert.Equal(t, 9.2, breakdown[models.CriterionRating].Weighted)

	for gate, passed := range eval.Evidence.Gates {
		assert.True(t, passed, "gate %s must pass", gate)
	}
}

func TestEvaluateFailedCriterionIsIsolated(t *testing.T) {
	stub := &providerStub{
		projects: []models.Project{
			{Status: models.ProjectStatusCompleted, Budget: 2000, CompletedOnTime: true},
		},
		skills:     []string{"skill-0"},
		ratingsErr: fmt.Errorf("feedback store unavailable"),
	}

	criteria := &models.TierCriteria{
		Level:                models.TierEasy,
		ExperienceWeight:     0.4,
		SkillWeight:          0.3,
		RatingWeight:         0.2,
		DeadlineWeight:       0.1,
		MinCompletedProjects: 1,
	}
	criteria.SetRequiredSkills([]string{"skill-0"})

	eval := newTestEvaluator(stub).Evaluate(nil, "fr-1", webTemplate(), models.TierEasy, criteria)

	// Отказавший критерий дает 0 и запись об ошибке, остальные считаются
	require.Contains(t, eval.Evidence.Errors, models.CriterionRating)
	assert.Equal(t, 0.0, eval.Evidence.Breakdown[models.CriterionRating].Value)
	assert.Equal(t, 100.0, eval.Evidence.Breakdown[models.CriterionProjectExperience].Value)
	assert.Equal(t, 100.0, eval.Evidence.Breakdown[models.CriterionSkillMatch].Value)

	// Гейт отказавшего критерия провален - eligible быть не может
	assert.False(t, eval.Evidence.Gates["min_avg_rating"])
	assert.False(t, eval.IsEligible)
}

func TestEvaluatePriorTierGate(t *testing.T) {
	stub := &providerStub{
		projects: []models.Project{
			{Status: models.ProjectStatusCompleted, CompletedOnTime: true},
			{Status: models.ProjectStatusCompleted, CompletedOnTime: true},
		},
		skills:     []string{"go"},
		ratings:    []int{5, 5, 5},
		priorCount: 1, // требуется 2
	}

	criteria := &models.TierCriteria{
		Level:                    models.TierHard,
		ExperienceWeight:         0.4,
		SkillWeight:              0.3,
		RatingWeight:             0.2,
		DeadlineWeight:           0.1,
		MinCompletedProjects:     1,
		RequiredPriorCompletions: 2,
	}
	criteria.SetRequiredSkills([]string{"go"})

	eval := newTestEvaluator(stub).Evaluate(nil, "fr-1", webTemplate(), models.TierHard, criteria)

	// Балл проходной, но hard-гейт prior-tier провален
	assert.GreaterOrEqual(t, eval.Score, 70.0)
	assert.False(t, eval.Evidence.Gates["prior_tier_completions"])
	assert.False(t, eval.IsEligible)
	assert.Contains(t, eval.Reasons, "missing completed engagements on the prior tier")
}

func TestEvaluateScoreClampedWithBonuses(t *testing.T) {
	profile := &models.FreelancerProfile{PortfolioItems: 10}
	profile.SetCertifications([]string{"cert-a", "cert-b", "cert-c"})

	stub := &providerStub{
		projects: []models.Project{
			{Status: models.ProjectStatusCompleted, CompletedOnTime: true},
		},
		skills:  []string{"go"},
		ratings: []int{5},
		profile: profile,
	}

	criteria := &models.TierCriteria{
		Level:                models.TierEasy,
		ExperienceWeight:     0.4,
		SkillWeight:          0.3,
		RatingWeight:         0.2,
		DeadlineWeight:       0.1,
		MinCompletedProjects: 1,
	}
	criteria.SetRequiredSkills([]string{"go"})
	criteria.SetBonusTable(map[string]float64{"certifications": 50})

	eval := newTestEvaluator(stub).Evaluate(nil, "fr-1", webTemplate(), models.TierEasy, criteria)

	// Бонусы не ограничены сами по себе, но итог зажат в [0, 100]
	assert.Equal(t, 150.0, eval.Evidence.BonusPoints)
	assert.Equal(t, 100.0, eval.Score)
	assert.True(t, eval.IsEligible)
}

func TestEvaluateNoFeedbackScoresZero(t *testing.T) {
	stub := &providerStub{
		projects: []models.Project{
			{Status: models.ProjectStatusCompleted, CompletedOnTime: true},
		},
		skills: []string{"go"},
	}

	criteria := &models.TierCriteria{
		Level:                models.TierEasy,
		ExperienceWeight:     0.4,
		SkillWeight:          0.3,
		RatingWeight:         0.2,
		DeadlineWeight:       0.1,
		MinCompletedProjects: 1,
		MinAvgRating:         4.0,
	}
	criteria.SetRequiredSkills([]string{"go"})

	eval := newTestEvaluator(stub).Evaluate(nil, "fr-1", webTemplate(), models.TierEasy, criteria)

	assert.Equal(t, 0.0, eval.Evidence.Breakdown[models.CriterionRating].Value)
	assert.False(t, eval.Evidence.Gates["min_avg_rating"])
	assert.False(t, eval.IsEligible)
}
