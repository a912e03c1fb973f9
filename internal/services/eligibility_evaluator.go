package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"obsp_backend/internal/logger"
	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
)

// EligibilityEvaluator - чистый движок скоринга: одна пара
// (freelancer, tier) за вызов, без записи в БД.
//
// Итоговый балл = взвешенная сумма первых четырех критериев + бонусы -
// штрафы, clamp в [0, 100]. Eligible = балл >= проходного И все
// hard-гейты пройдены. Падение одного критерия не роняет оценку:
// критерий получает 0 и запись в Evidence.Errors, остальные считаются.
type EligibilityEvaluator interface {
	Evaluate(db *gorm.DB, freelancerID string, template *models.ServiceTemplate, level models.TierLevel, criteria *models.TierCriteria) *models.TierEvaluation
}

type eligibilityEvaluator struct {
	history ProjectHistoryProvider
	skills  SkillProfileProvider
	ratings RatingProvider
	obsp    ObspHistoryProvider
	bonus   BonusSourceProvider

	passScore     float64
	coreSkillGate float64 // % покрытия core-скиллов для гейта skill_match
	optionalBonus float64 // очки за каждый optional-скилл
}

func NewEligibilityEvaluator(
	history ProjectHistoryProvider,
	skills SkillProfileProvider,
	ratings RatingProvider,
	obsp ObspHistoryProvider,
	bonus BonusSourceProvider,
	passScore, coreSkillGate, optionalBonus float64,
) EligibilityEvaluator {
	return &eligibilityEvaluator{
		history:       history,
		skills:        skills,
		ratings:       ratings,
		obsp:          obsp,
		bonus:         bonus,
		passScore:     passScore,
		coreSkillGate: coreSkillGate,
		optionalBonus: optionalBonus,
	}
}

// Гейты в Evidence.Gates
const (
	gateMinProjects = "min_completed_projects"
	gateSkillMatch  = "skill_match"
	gateMinRating   = "min_avg_rating"
	gatePriorTier   = "prior_tier_completions"
)

func (e *eligibilityEvaluator) Evaluate(db *gorm.DB, freelancerID string, template *models.ServiceTemplate, level models.TierLevel, criteria *models.TierCriteria) *models.TierEvaluation {
	evidence := models.EvaluationEvidence{
		Breakdown: make(map[string]models.CriterionScore),
		Gates:     make(map[string]bool),
		Errors:    make(map[string]string),
	}

	expScore, expGate := e.safeScore(models.CriterionProjectExperience, &evidence, func() (float64, bool, string, error) {
		return e.projectExperienceScore(db, freelancerID, criteria)
	})
	skillScore, skillGate := e.safeScore(models.CriterionSkillMatch, &evidence, func() (float64, bool, string, error) {
		return e.skillMatchScore(db, freelancerID, criteria)
	})
	ratingScore, ratingGate := e.safeScore(models.CriterionRating, &evidence, func() (float64, bool, string, error) {
		return e.ratingScore(db, freelancerID, criteria)
	})
	deadlineScore, _ := e.safeScore(models.CriterionDeadlineCompliance, &evidence, func() (float64, bool, string, error) {
		return e.deadlineComplianceScore(db, freelancerID, criteria)
	})
	// obsp_experience - только гейт, в сумму не входит (вес 0)
	_, obspGate := e.safeScore(models.CriterionObspExperience, &evidence, func() (float64, bool, string, error) {
		return e.obspExperienceScore(db, freelancerID, template.ID, level, criteria)
	})

	evidence.Breakdown[models.CriterionProjectExperience] = weighted(expScore, criteria.ExperienceWeight, evidence.Breakdown[models.CriterionProjectExperience])
	evidence.Breakdown[models.CriterionSkillMatch] = weighted(skillScore, criteria.SkillWeight, evidence.Breakdown[models.CriterionSkillMatch])
	evidence.Breakdown[models.CriterionRating] = weighted(ratingScore, criteria.RatingWeight, evidence.Breakdown[models.CriterionRating])
	evidence.Breakdown[models.CriterionDeadlineCompliance] = weighted(deadlineScore, criteria.DeadlineWeight, evidence.Breakdown[models.CriterionDeadlineCompliance])

	evidence.Gates[gateMinProjects] = expGate
	evidence.Gates[gateSkillMatch] = skillGate
	evidence.Gates[gateMinRating] = ratingGate
	evidence.Gates[gatePriorTier] = obspGate

	score := expScore*criteria.ExperienceWeight +
		skillScore*criteria.SkillWeight +
		ratingScore*criteria.RatingWeight +
		deadlineScore*criteria.DeadlineWeight

	bonusPoints := e.bonusPoints(db, freelancerID, template, criteria, &evidence)
	evidence.BonusPoints = bonusPoints
	score = clamp(score+bonusPoints, 0, 100)

	gatesPassed := expGate && skillGate && ratingGate && obspGate
	eligible := score >= e.passScore && gatesPassed

	eval := &models.TierEvaluation{
		IsEligible:  eligible,
		Score:       round2(score),
		EvaluatedAt: time.Now().UTC(),
		Evidence:    evidence,
		Reasons:     e.buildReasons(score, gatesPassed, &evidence),
	}

	logger.Debug("tier evaluated",
		"freelancer_id", freelancerID,
		"template_id", template.ID,
		"tier", level,
		"score", eval.Score,
		"eligible", eval.IsEligible)

	return eval
}

// safeScore изолирует вычисление одного критерия: ошибка или паника
// дает 0 и проваленный гейт, но не прерывает остальные критерии
func (e *eligibilityEvaluator) safeScore(criterion string, evidence *models.EvaluationEvidence, fn func() (float64, bool, string, error)) (score float64, gate bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("criterion evaluation panicked", "criterion", criterion, "panic", r)
			evidence.Errors[criterion] = fmt.Sprintf("panic: %v", r)
			evidence.Breakdown[criterion] = models.CriterionScore{Detail: "evaluation failed"}
			score, gate = 0, false
		}
	}()

	value, met, detail, err := fn()
	if err != nil {
		logger.Warn("criterion evaluation failed", "criterion", criterion, "error", err)
		evidence.Errors[criterion] = err.Error()
		evidence.Breakdown[criterion] = models.CriterionScore{Detail: "evaluation failed"}
		return 0, false
	}

	value = clamp(value, 0, 100)
	evidence.Breakdown[criterion] = models.CriterionScore{Value: round2(value), Detail: detail}
	return value, met
}

// projectExperienceScore: количество завершенных проектов под фильтрами
// критериев против минимума. На минимуме и выше - 100, ниже -
// пропорционально. Гейт: count >= min.
func (e *eligibilityEvaluator) projectExperienceScore(db *gorm.DB, freelancerID string, criteria *models.TierCriteria) (float64, bool, string, error) {
	projects, err := e.history.QueryProjects(db, freelancerID, repositories.ProjectFilter{
		Status:          models.ProjectStatusCompleted,
		Domains:         criteria.GetRequiredDomains(),
		MinBudget:       criteria.MinProjectBudget,
		MinDurationDays: criteria.MinProjectDurationDays,
	})
	if err != nil {
		return 0, false, "", err
	}

	count := len(projects)
	detail := fmt.Sprintf("%d completed projects, %d required", count, criteria.MinCompletedProjects)

	if criteria.MinCompletedProjects <= 0 {
		return 100, true, detail, nil
	}
	met := count >= criteria.MinCompletedProjects
	score := float64(count) / float64(criteria.MinCompletedProjects) * 100
	return math.Min(score, 100), met, detail, nil
}

// skillMatchScore: покрытие required-скиллов против минимума; гейт
// требует еще и покрытия core-скиллов не ниже coreSkillGate.
// Optional-скиллы дают по optionalBonus очков каждый, но только когда
// оба гейта пройдены.
func (e *eligibilityEvaluator) skillMatchScore(db *gorm.DB, freelancerID string, criteria *models.TierCriteria) (float64, bool, string, error) {
	skills, err := e.skills.FreelancerSkills(db, freelancerID)
	if err != nil {
		return 0, false, "", err
	}

	have := make(map[string]bool, len(skills))
	for _, s := range skills {
		have[normalizeSkill(s)] = true
	}

	required := criteria.GetRequiredSkills()
	coverage := 100.0
	if len(required) > 0 {
		matched := 0
		for _, s := range required {
			if have[normalizeSkill(s)] {
				matched++
			}
		}
		coverage = float64(matched) / float64(len(required)) * 100
	}

	coreCoverage := 100.0
	core := criteria.GetCoreSkills()
	if len(core) > 0 {
		matched := 0
		for _, s := range core {
			if have[normalizeSkill(s)] {
				matched++
			}
		}
		coreCoverage = float64(matched) / float64(len(core)) * 100
	}

	met := coverage >= criteria.MinSkillMatch && coreCoverage >= e.coreSkillGate

	score := coverage
	if criteria.MinSkillMatch > 0 {
		score = math.Min(coverage/criteria.MinSkillMatch*100, 100)
	}

	optionalMatched := 0
	if met {
		for _, s := range criteria.GetOptionalSkills() {
			if have[normalizeSkill(s)] {
				optionalMatched++
			}
		}
		score = math.Min(score+float64(optionalMatched)*e.optionalBonus, 100)
	}

	detail := fmt.Sprintf("required coverage %.1f%% (min %.1f%%), core coverage %.1f%%, optional matched %d",
		coverage, criteria.MinSkillMatch, coreCoverage, optionalMatched)
	return score, met, detail, nil
}

// ratingScore: средняя оценка по всем источникам фидбека как процент
// от 5. Гейт: avg >= MinAvgRating. Без фидбека - 0.
func (e *eligibilityEvaluator) ratingScore(db *gorm.DB, freelancerID string, criteria *models.TierCriteria) (float64, bool, string, error) {
	ratings, err := e.ratings.Ratings(db, freelancerID)
	if err != nil {
		return 0, false, "", err
	}

	if len(ratings) == 0 {
		return 0, criteria.MinAvgRating <= 0, "no feedback yet", nil
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	detail := fmt.Sprintf("avg rating %.2f over %d reviews, %.2f required", avg, len(ratings), criteria.MinAvgRating)
	return avg / 5 * 100, avg >= criteria.MinAvgRating, detail, nil
}

// deadlineComplianceScore: доля завершенных в срок проектов против
// минимума. Hard-гейтом не является.
func (e *eligibilityEvaluator) deadlineComplianceScore(db *gorm.DB, freelancerID string, criteria *models.TierCriteria) (float64, bool, string, error) {
	projects, err := e.history.QueryProjects(db, freelancerID, repositories.ProjectFilter{
		Status: models.ProjectStatusCompleted,
	})
	if err != nil {
		return 0, false, "", err
	}

	if len(projects) == 0 {
		return 0, true, "no completed projects", nil
	}

	onTime := 0
	for _, p := range projects {
		if p.CompletedOnTime {
			onTime++
		}
	}
	compliance := float64(onTime) / float64(len(projects)) * 100
	detail := fmt.Sprintf("%.1f%% on-time over %d projects, %.1f%% required", compliance, len(projects), criteria.MinDeadlineCompliance)

	if criteria.MinDeadlineCompliance <= 0 {
		return compliance, true, detail, nil
	}
	return math.Min(compliance/criteria.MinDeadlineCompliance*100, 100), compliance >= criteria.MinDeadlineCompliance, detail, nil
}

// obspExperienceScore: завершенные назначения на предыдущем уровне
// этого же шаблона против требования. Вклада в сумму не дает, только
// гейт. Нулевое требование - автоматический проход.
func (e *eligibilityEvaluator) obspExperienceScore(db *gorm.DB, freelancerID, templateID string, level models.TierLevel, criteria *models.TierCriteria) (float64, bool, string, error) {
	if criteria.RequiredPriorCompletions <= 0 {
		return 100, true, "no prior completions required", nil
	}

	// У easy нет предыдущего уровня: требование трактуется как
	// завершения на самом easy
	priorLevel, ok := level.PriorTier()
	if !ok {
		priorLevel = level
	}

	count, err := e.obsp.CountCompletedForTier(db, freelancerID, templateID, priorLevel)
	if err != nil {
		return 0, false, "", err
	}

	detail := fmt.Sprintf("%d completed %s-tier engagements, %d required", count, priorLevel, criteria.RequiredPriorCompletions)
	score := float64(count) / float64(criteria.RequiredPriorCompletions) * 100
	return math.Min(score, 100), count >= int64(criteria.RequiredPriorCompletions), detail, nil
}

// Ключи бонусной таблицы. Значение - очки за единицу
// (сертификат, элемент портфолио, отзыв, проект в вертикали шаблона).
const (
	bonusCertifications = "certifications"
	bonusPortfolioItems = "portfolio_items"
	bonusFeedbackCount  = "feedback_count"
	bonusVerticalPrefix = "vertical:"

	penaltyCancelledProjects = "cancelled_projects"
)

// bonusPoints применяет бонусную и штрафную таблицы критериев.
// Бонусы не ограничены сверху сами по себе, clamp происходит уже
// на итоговом балле. Ошибки источников бонусов не роняют оценку.
func (e *eligibilityEvaluator) bonusPoints(db *gorm.DB, freelancerID string, template *models.ServiceTemplate, criteria *models.TierCriteria, evidence *models.EvaluationEvidence) float64 {
	bonusTable := criteria.GetBonusTable()
	penaltyTable := criteria.GetPenaltyTable()
	if len(bonusTable) == 0 && len(penaltyTable) == 0 {
		return 0
	}

	total := 0.0

	if pts, ok := bonusTable[bonusCertifications]; ok || bonusTable[bonusPortfolioItems] != 0 {
		profile, err := e.bonus.FindProfile(db, freelancerID)
		if err != nil {
			logger.Warn("bonus profile lookup failed", "freelancer_id", freelancerID, "error", err)
			evidence.Errors["bonus_profile"] = err.Error()
		} else {
			if ok {
				total += pts * float64(len(profile.GetCertifications()))
			}
			if pts, ok := bonusTable[bonusPortfolioItems]; ok {
				total += pts * float64(profile.PortfolioItems)
			}
		}
	}

	if pts, ok := bonusTable[bonusFeedbackCount]; ok {
		count, err := e.bonus.FeedbackCount(db, freelancerID)
		if err != nil {
			logger.Warn("bonus feedback count failed", "freelancer_id", freelancerID, "error", err)
			evidence.Errors["bonus_feedback"] = err.Error()
		} else {
			total += pts * float64(count)
		}
	}

	verticalKey := bonusVerticalPrefix + strings.ToLower(template.Category)
	needProjects := bonusTable[verticalKey] != 0 || penaltyTable[penaltyCancelledProjects] != 0
	if needProjects {
		projects, err := e.history.QueryProjects(db, freelancerID, repositories.ProjectFilter{})
		if err != nil {
			logger.Warn("bonus project lookup failed", "freelancer_id", freelancerID, "error", err)
			evidence.Errors["bonus_projects"] = err.Error()
		} else {
			if pts := bonusTable[verticalKey]; pts != 0 {
				for _, p := range projects {
					if p.Status == models.ProjectStatusCompleted && strings.EqualFold(p.Domain, template.Category) {
						total += pts
					}
				}
			}
			if pts := penaltyTable[penaltyCancelledProjects]; pts != 0 {
				for _, p := range projects {
					if p.Status == models.ProjectStatusCancelled {
						total -= pts
					}
				}
			}
		}
	}

	return round2(total)
}

// buildReasons собирает человекочитаемые причины решения
func (e *eligibilityEvaluator) buildReasons(score float64, gatesPassed bool, evidence *models.EvaluationEvidence) []string {
	var reasons []string

	if score < e.passScore {
		reasons = append(reasons, fmt.Sprintf("overall score %.1f below passing score %.1f", score, e.passScore))
	}
	if !evidence.Gates[gateMinProjects] {
		reasons = append(reasons, "not enough completed projects")
	}
	if !evidence.Gates[gateSkillMatch] {
		reasons = append(reasons, "skill coverage below the required threshold")
	}
	if !evidence.Gates[gateMinRating] {
		reasons = append(reasons, "average rating below the required minimum")
	}
	if !evidence.Gates[gatePriorTier] {
		reasons = append(reasons, "missing completed engagements on the prior tier")
	}

	if len(reasons) == 0 && gatesPassed {
		reasons = append(reasons, fmt.Sprintf("score %.1f meets the passing score, all gates passed", score))
	}
	return reasons
}

func weighted(value, weight float64, base models.CriterionScore) models.CriterionScore {
	base.Value = round2(value)
	base.Weight = weight
	base.Weighted = round2(value * weight)
	return base
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
