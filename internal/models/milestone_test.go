package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMilestonePayoutAmount(t *testing.T) {
	// Проценты [20, 40, 40] на уровне ценой 10000 -> [2000, 4000, 4000]
	percentages := []float64{20, 40, 40}
	expected := []float64{2000, 4000, 4000}

	for i, pct := range percentages {
		m := &Milestone{PayoutPercentage: pct}
		assert.Equal(t, expected[i], m.PayoutAmount(10000))
	}
}

func TestEligibilityRecordTiersRoundTrip(t *testing.T) {
	record := &EligibilityRecord{FreelancerID: "fr-1", TemplateID: "tpl-1"}
	assert.True(t, record.IsEmpty())

	record.SetTiers(map[TierLevel]TierEvaluation{
		TierEasy: {IsEligible: true, Score: 88.5},
	})
	assert.False(t, record.IsEmpty())

	tiers := record.GetTiers()
	assert.Equal(t, 88.5, tiers[TierEasy].Score)
	assert.True(t, tiers[TierEasy].IsEligible)
}
