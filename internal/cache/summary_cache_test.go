package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obsp_backend/internal/models"
)

func newTestCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewSummaryCacheWithClient(client, time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	assert.Nil(t, c.Get(ctx, "fr-1"))

	summary := &models.EligibilitySummary{
		FreelancerID:     "fr-1",
		TemplatesChecked: 3,
		TotalEligible:    2,
		AverageScore:     81.5,
		RecalculatedAt:   time.Now().UTC(),
	}
	c.Set(ctx, summary)

	cached := c.Get(ctx, "fr-1")
	require.NotNil(t, cached)
	assert.Equal(t, 3, cached.TemplatesChecked)
	assert.Equal(t, 81.5, cached.AverageScore)
}

func TestSummaryCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, &models.EligibilitySummary{FreelancerID: "fr-1", AverageScore: 50})
	require.NotNil(t, c.Get(ctx, "fr-1"))

	c.Invalidate(ctx, "fr-1")
	assert.Nil(t, c.Get(ctx, "fr-1"))
}

func TestSummaryCacheCorruptedEntryDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("eligibility:summary:fr-1", "{not-json"))

	// Битая запись - промах, и она выбрасывается из кэша
	assert.Nil(t, c.Get(ctx, "fr-1"))
	assert.False(t, mr.Exists("eligibility:summary:fr-1"))
}

func TestSummaryCacheDisabledIsNoop(t *testing.T) {
	c := NewSummaryCache("", "", 0, 0)
	ctx := context.Background()

	// Без Redis кэш прозрачно отключен
	c.Set(ctx, &models.EligibilitySummary{FreelancerID: "fr-1"})
	assert.Nil(t, c.Get(ctx, "fr-1"))
	c.Invalidate(ctx, "fr-1")
	assert.NoError(t, c.Close())
}
