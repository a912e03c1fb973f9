package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"obsp_backend/internal/logger"
	"obsp_backend/internal/models"
)

// SummaryCache - горячий кэш сводок eligibility поверх Redis.
// Источник истины - строка в Postgres; кэш строго best-effort:
// любая ошибка Redis означает промах, не сбой запроса.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(addr, password string, db, ttlSeconds int) *SummaryCache {
	if addr == "" {
		return &SummaryCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &SummaryCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}
}

// NewSummaryCacheWithClient - для тестов с miniredis
func NewSummaryCacheWithClient(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(freelancerID string) string {
	return fmt.Sprintf("eligibility:summary:%s", freelancerID)
}

// Get возвращает сводку из кэша или nil при промахе
func (c *SummaryCache) Get(ctx context.Context, freelancerID string) *models.EligibilitySummary {
	if c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, summaryKey(freelancerID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("summary cache read failed", "freelancer_id", freelancerID, "error", err)
		}
		return nil
	}

	var summary models.EligibilitySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		logger.Warn("summary cache entry corrupted, dropping", "freelancer_id", freelancerID, "error", err)
		c.Invalidate(ctx, freelancerID)
		return nil
	}
	return &summary
}

// Set кладет сводку в кэш. TTL - только страховка от потерянной
// инвалидации, свежесть обеспечивает пересчет.
func (c *SummaryCache) Set(ctx context.Context, summary *models.EligibilitySummary) {
	if c.client == nil || summary == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(summary.FreelancerID), data, c.ttl).Err(); err != nil {
		logger.Warn("summary cache write failed", "freelancer_id", summary.FreelancerID, "error", err)
	}
}

// Invalidate выбрасывает сводку фрилансера из кэша
func (c *SummaryCache) Invalidate(ctx context.Context, freelancerID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, summaryKey(freelancerID)).Err(); err != nil {
		logger.Warn("summary cache invalidation failed", "freelancer_id", freelancerID, "error", err)
	}
}

// Close закрывает соединение с Redis
func (c *SummaryCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
