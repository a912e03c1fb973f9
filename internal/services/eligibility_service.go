package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"obsp_backend/internal/cache"
	"obsp_backend/internal/logger"
	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
	"obsp_backend/internal/services/dto"
	"obsp_backend/pkg/apperrors"
)

// EligibilityService - оркестратор скоринга: гоняет evaluator по уровням
// шаблона, персистит снапшоты, пересобирает сводку и держит кэш сводок
// в актуальном состоянии. Записи не имеют TTL - устаревают только по
// триггерам (событие домена, ручной пересчет, batch).
type EligibilityService interface {
	CalculateAndStore(ctx context.Context, db *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error)
	GetOrCreate(ctx context.Context, db *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error)
	GetSummary(ctx context.Context, db *gorm.DB, freelancerID string) (*models.EligibilitySummary, error)
	RecalculateFreelancer(ctx context.Context, db *gorm.DB, freelancerID string) error
	RecalculateAll(ctx context.Context, db *gorm.DB, workers int) (*dto.BatchRecalculateResult, error)
}

type eligibilityService struct {
	evaluator    EligibilityEvaluator
	eligibility  repositories.EligibilityRepository
	criteria     repositories.CriteriaRepository
	templates    repositories.TemplateRepository
	history      repositories.HistoryRepository
	summaryCache *cache.SummaryCache
}

func NewEligibilityService(
	evaluator EligibilityEvaluator,
	eligibility repositories.EligibilityRepository,
	criteria repositories.CriteriaRepository,
	templates repositories.TemplateRepository,
	history repositories.HistoryRepository,
	summaryCache *cache.SummaryCache,
) EligibilityService {
	return &eligibilityService{
		evaluator:    evaluator,
		eligibility:  eligibility,
		criteria:     criteria,
		templates:    templates,
		history:      history,
		summaryCache: summaryCache,
	}
}

// CalculateAndStore пересчитывает все уровни одного шаблона для фрилансера,
// перезаписывает запись целиком и пересобирает сводку в одной транзакции.
// Кэш сводки инвалидируется после коммита.
func (s *eligibilityService) CalculateAndStore(ctx context.Context, db *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error) {
	var record *models.EligibilityRecord

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = s.calculateTemplate(tx, freelancerID, templateID)
		if err != nil {
			return err
		}
		_, err = s.rebuildSummary(tx, freelancerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.summaryCache.Invalidate(ctx, freelancerID)

	logger.CtxInfo(ctx, "eligibility recalculated",
		"freelancer_id", freelancerID,
		"template_id", templateID)
	return record, nil
}

// calculateTemplate оценивает все уровни шаблона и апсертит запись.
// Уровни без настроенных критериев пропускаются; шаблон, у которого
// не настроен ни один уровень, - ошибка конфигурации.
func (s *eligibilityService) calculateTemplate(tx *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error) {
	template, err := s.templates.FindTemplateByID(tx, templateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	tiers := make(map[models.TierLevel]models.TierEvaluation)
	for _, tier := range template.Tiers {
		criteria, err := s.criteria.FindByTemplateAndTier(tx, templateID, tier.Level)
		if err != nil {
			if errors.Is(err, repositories.ErrCriteriaNotFound) {
				logger.Debug("tier has no criteria configured, skipping",
					"template_id", templateID, "tier", tier.Level)
				continue
			}
			return nil, apperrors.InternalError(err)
		}
		tiers[tier.Level] = *s.evaluator.Evaluate(tx, freelancerID, template, tier.Level, criteria)
	}

	if len(tiers) == 0 {
		return nil, apperrors.ErrCriteriaNotConfigured(nil)
	}

	record := &models.EligibilityRecord{
		FreelancerID: freelancerID,
		TemplateID:   templateID,
	}
	record.SetTiers(tiers)

	if err := s.eligibility.UpsertRecord(tx, record); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return record, nil
}

// GetOrCreate - read-through: существующая непустая запись отдается
// как есть, независимо от возраста; отсутствующая или пустая
// вычисляется на месте
func (s *eligibilityService) GetOrCreate(ctx context.Context, db *gorm.DB, freelancerID, templateID string) (*models.EligibilityRecord, error) {
	record, err := s.eligibility.FindRecord(db, freelancerID, templateID)
	if err == nil && !record.IsEmpty() {
		return record, nil
	}
	if err != nil && !errors.Is(err, repositories.ErrEligibilityRecordNotFound) {
		return nil, apperrors.InternalError(err)
	}

	return s.CalculateAndStore(ctx, db, freelancerID, templateID)
}

// GetSummary отдает сводку: кэш -> БД -> пересборка из записей
func (s *eligibilityService) GetSummary(ctx context.Context, db *gorm.DB, freelancerID string) (*models.EligibilitySummary, error) {
	if summary := s.summaryCache.Get(ctx, freelancerID); summary != nil {
		return summary, nil
	}

	summary, err := s.eligibility.FindSummary(db, freelancerID)
	if err != nil {
		if !errors.Is(err, repositories.ErrEligibilitySummaryNotFound) {
			return nil, apperrors.InternalError(err)
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			summary, err = s.rebuildSummary(tx, freelancerID)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	s.summaryCache.Set(ctx, summary)
	return summary, nil
}

// rebuildSummary пересобирает сводку фрилансера из всех его записей.
// AverageScore - по всем оценкам, не только по проходным: сводка
// отражает общий уровень, а не только лучшие результаты.
func (s *eligibilityService) rebuildSummary(tx *gorm.DB, freelancerID string) (*models.EligibilitySummary, error) {
	records, err := s.eligibility.FindRecordsByFreelancer(tx, freelancerID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	summary := &models.EligibilitySummary{
		FreelancerID:   freelancerID,
		RecalculatedAt: time.Now().UTC(),
	}

	perTier := make(map[models.TierLevel]models.TierSummary)
	scoreSum := 0.0
	scoreCount := 0

	for _, record := range records {
		tiers := record.GetTiers()
		if len(tiers) == 0 {
			continue
		}
		summary.TemplatesChecked++

		for level, eval := range tiers {
			ts := perTier[level]
			ts.Total++
			scoreSum += eval.Score
			scoreCount++
			if eval.IsEligible {
				ts.Eligible++
				summary.TotalEligible++
			}
			// AverageScore уровня доводится ниже, здесь копим сумму
			ts.AverageScore += eval.Score
			perTier[level] = ts
		}
	}

	for level, ts := range perTier {
		if ts.Total > 0 {
			ts.AverageScore = round2(ts.AverageScore / float64(ts.Total))
		}
		perTier[level] = ts
	}
	if scoreCount > 0 {
		summary.AverageScore = round2(scoreSum / float64(scoreCount))
	}
	summary.SetPerTier(perTier)

	if err := s.eligibility.SaveSummary(tx, summary); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return summary, nil
}

// RecalculateFreelancer пересчитывает фрилансера по всем опубликованным
// шаблонам, затем один раз пересобирает сводку
func (s *eligibilityService) RecalculateFreelancer(ctx context.Context, db *gorm.DB, freelancerID string) error {
	templates, err := s.templates.FindTemplatesByStatus(db, models.TemplateStatusPublished)
	if err != nil {
		return apperrors.InternalError(err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, template := range templates {
			if _, err := s.calculateTemplate(tx, freelancerID, template.ID); err != nil {
				var appErr *apperrors.AppError
				if apperrors.As(err, &appErr) && appErr.Code == apperrors.CodeCriteriaNotConfigured {
					continue
				}
				return err
			}
		}
		_, err := s.rebuildSummary(tx, freelancerID)
		return err
	})
	if err != nil {
		return err
	}

	s.summaryCache.Invalidate(ctx, freelancerID)
	return nil
}

// RecalculateAll - offline batch: все фрилансеры, ограниченный пул
// workers. Единица отказа - фрилансер: его ошибка попадает в итог,
// остальные продолжаются.
func (s *eligibilityService) RecalculateAll(ctx context.Context, db *gorm.DB, workers int) (*dto.BatchRecalculateResult, error) {
	ids, err := s.history.ListFreelancerIDs(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if workers <= 0 {
		workers = 1
	}

	var mu sync.Mutex
	result := &dto.BatchRecalculateResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, id := range ids {
		freelancerID := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := s.RecalculateFreelancer(gctx, db, freelancerID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.CtxWithError(gctx, "batch recalculation failed for freelancer", err,
					"freelancer_id", freelancerID)
				result.Failed++
				result.FailedIDs = append(result.FailedIDs, freelancerID)
			} else {
				result.Processed++
			}
			// Ошибка одного фрилансера не отменяет batch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	logger.Info("batch eligibility recalculation finished",
		"processed", result.Processed,
		"failed", result.Failed)
	return result, nil
}
