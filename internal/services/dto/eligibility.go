package dto

import (
	"time"

	"obsp_backend/internal/models"
)

// TierEligibilityResponse - оценка одного уровня в API-ответе
type TierEligibilityResponse struct {
	Tier        models.TierLevel          `json:"tier"`
	IsEligible  bool                      `json:"is_eligible"`
	Score       float64                   `json:"score"`
	EvaluatedAt time.Time                 `json:"evaluated_at"`
	Evidence    models.EvaluationEvidence `json:"evidence"`
	Reasons     []string                  `json:"reasons,omitempty"`
}

// EligibilityRecordResponse - полная запись по паре (freelancer, template)
type EligibilityRecordResponse struct {
	FreelancerID string                    `json:"freelancer_id"`
	TemplateID   string                    `json:"template_id"`
	Tiers        []TierEligibilityResponse `json:"tiers"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// TierSummaryResponse - агрегат сводки по одному уровню
type TierSummaryResponse struct {
	Tier         models.TierLevel `json:"tier"`
	Eligible     int              `json:"eligible"`
	Total        int              `json:"total"`
	AverageScore float64          `json:"average_score"`
}

// EligibilitySummaryResponse - сводка фрилансера по всем шаблонам
type EligibilitySummaryResponse struct {
	FreelancerID     string                `json:"freelancer_id"`
	TemplatesChecked int                   `json:"templates_checked"`
	TotalEligible    int                   `json:"total_eligible"`
	AverageScore     float64               `json:"average_score"`
	PerTier          []TierSummaryResponse `json:"per_tier"`
	RecalculatedAt   time.Time             `json:"recalculated_at"`
}

// RecalculateRequest - ручной пересчет по freelancer (+ опционально template)
type RecalculateRequest struct {
	TemplateID string `json:"template_id"`
}

// BatchRecalculateResult - итог offline batch-пересчета
type BatchRecalculateResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

func NewEligibilityRecordResponse(record *models.EligibilityRecord) *EligibilityRecordResponse {
	tiers := record.GetTiers()
	resp := &EligibilityRecordResponse{
		FreelancerID: record.FreelancerID,
		TemplateID:   record.TemplateID,
		Tiers:        make([]TierEligibilityResponse, 0, len(tiers)),
		UpdatedAt:    record.UpdatedAt,
	}
	for _, level := range models.AllTiers {
		eval, ok := tiers[level]
		if !ok {
			continue
		}
		resp.Tiers = append(resp.Tiers, TierEligibilityResponse{
			Tier:        level,
			IsEligible:  eval.IsEligible,
			Score:       eval.Score,
			EvaluatedAt: eval.EvaluatedAt,
			Evidence:    eval.Evidence,
			Reasons:     eval.Reasons,
		})
	}
	return resp
}

func NewEligibilitySummaryResponse(summary *models.EligibilitySummary) *EligibilitySummaryResponse {
	perTier := summary.GetPerTier()
	resp := &EligibilitySummaryResponse{
		FreelancerID:     summary.FreelancerID,
		TemplatesChecked: summary.TemplatesChecked,
		TotalEligible:    summary.TotalEligible,
		AverageScore:     summary.AverageScore,
		PerTier:          make([]TierSummaryResponse, 0, len(perTier)),
		RecalculatedAt:   summary.RecalculatedAt,
	}
	for _, level := range models.AllTiers {
		ts, ok := perTier[level]
		if !ok {
			continue
		}
		resp.PerTier = append(resp.PerTier, TierSummaryResponse{
			Tier:         level,
			Eligible:     ts.Eligible,
			Total:        ts.Total,
			AverageScore: ts.AverageScore,
		})
	}
	return resp
}
