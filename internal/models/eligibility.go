package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Имена критериев в breakdown/evidence. Первые четыре входят во взвешенную
// сумму, obsp_experience используется только как hard-гейт.
const (
	CriterionProjectExperience  = "project_experience"
	CriterionSkillMatch         = "skill_match"
	CriterionRating             = "rating"
	CriterionDeadlineCompliance = "deadline_compliance"
	CriterionObspExperience     = "obsp_experience"
)

// CriterionScore - вклад одного критерия в итоговый score
type CriterionScore struct {
	Value    float64 `json:"value"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
	Detail   string  `json:"detail,omitempty"`
}

// EvaluationEvidence - аудируемый след оценки одного уровня
type EvaluationEvidence struct {
	Breakdown   map[string]CriterionScore `json:"breakdown"`
	BonusPoints float64                   `json:"bonus_points"`
	Gates       map[string]bool           `json:"gates"`
	// Ошибки вычисления отдельных критериев; остальные критерии
	// при этом досчитываются (изоляция per-criterion)
	Errors map[string]string `json:"errors,omitempty"`
}

// TierEvaluation - результат evaluator-а для одного уровня
type TierEvaluation struct {
	IsEligible  bool               `json:"is_eligible"`
	Score       float64            `json:"score"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
	Evidence    EvaluationEvidence `json:"evidence"`
	Reasons     []string           `json:"reasons,omitempty"`
}

// EligibilityRecord - персистентный снапшот оценок фрилансера по одному
// шаблону: карта tier -> TierEvaluation. Уникален по (freelancer, template).
// Устаревает только по триггерам, без TTL.
type EligibilityRecord struct {
	BaseModel
	FreelancerID string         `gorm:"not null;uniqueIndex:idx_eligibility_freelancer_template"`
	TemplateID   string         `gorm:"not null;uniqueIndex:idx_eligibility_freelancer_template"`
	Tiers        datatypes.JSON `gorm:"type:jsonb"`
}

// GetTiers возвращает карту оценок по уровням
func (r *EligibilityRecord) GetTiers() map[TierLevel]TierEvaluation {
	tiers := make(map[TierLevel]TierEvaluation)
	if len(r.Tiers) > 0 {
		_ = json.Unmarshal(r.Tiers, &tiers)
	}
	return tiers
}

// SetTiers устанавливает карту оценок по уровням
func (r *EligibilityRecord) SetTiers(tiers map[TierLevel]TierEvaluation) {
	data, _ := json.Marshal(tiers)
	r.Tiers = datatypes.JSON(data)
}

// IsEmpty - запись без единой оценки считается отсутствующей
// для read-through логики get_or_create
func (r *EligibilityRecord) IsEmpty() bool {
	return len(r.GetTiers()) == 0
}

// TierSummary - агрегат по одному уровню в сводке фрилансера
type TierSummary struct {
	Eligible     int     `json:"eligible"`
	Total        int     `json:"total"`
	AverageScore float64 `json:"average_score"`
}

// EligibilitySummary - сводка по фрилансеру поверх всех его
// EligibilityRecord. AverageScore считается по ВСЕМ оценкам,
// не только по проходным.
type EligibilitySummary struct {
	BaseModel
	FreelancerID     string         `gorm:"not null;uniqueIndex"`
	TemplatesChecked int            `gorm:"default:0"`
	TotalEligible    int            `gorm:"default:0"`
	AverageScore     float64        `gorm:"default:0"`
	PerTier          datatypes.JSON `gorm:"type:jsonb"`
	RecalculatedAt   time.Time
}

// GetPerTier возвращает разбивку сводки по уровням
func (s *EligibilitySummary) GetPerTier() map[TierLevel]TierSummary {
	perTier := make(map[TierLevel]TierSummary)
	if len(s.PerTier) > 0 {
		_ = json.Unmarshal(s.PerTier, &perTier)
	}
	return perTier
}

// SetPerTier устанавливает разбивку сводки по уровням
func (s *EligibilitySummary) SetPerTier(perTier map[TierLevel]TierSummary) {
	data, _ := json.Marshal(perTier)
	s.PerTier = datatypes.JSON(data)
}
