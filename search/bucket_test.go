package search

import (
	"testing"

	"github.com/poiesic/kbqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headingIDs(ranked []RankedHeading) []core.ID {
	out := make([]core.ID, len(ranked))
	for i, r := range ranked {
		out[i] = r.HeadingId
	}
	return out
}

func TestTierBucketer_Classify(t *testing.T) {
	bucketer, err := NewTierBucketer(NewConfig(WithThresholds(0.8, 0.4)))
	require.NoError(t, err)

	assert.Equal(t, core.TierBest, bucketer.Classify(2.5))
	assert.Equal(t, core.TierBest, bucketer.Classify(0.8))
	assert.Equal(t, core.TierGood, bucketer.Classify(0.79))
	assert.Equal(t, core.TierGood, bucketer.Classify(0.4))
	assert.Equal(t, core.TierIndirect, bucketer.Classify(0.39))
	assert.Equal(t, core.TierIndirect, bucketer.Classify(0))
}

func TestTierBucketer_Bucket(t *testing.T) {
	bucketer, err := NewTierBucketer(nil)
	require.NoError(t, err)

	tiers := bucketer.Bucket([]ScoredHeading{
		{HeadingId: 1, Score: 0.1},
		{HeadingId: 2, Score: 0.9},
		{HeadingId: 3, Score: 0.5},
		{HeadingId: 4, Score: 1.4},
		{HeadingId: 5, Score: 0.6},
		{HeadingId: 6, Score: 0.3},
	})

	assert.Equal(t, []core.ID{4, 2}, scoredIDs(tiers.Best))
	assert.Equal(t, []core.ID{5, 3}, scoredIDs(tiers.Good))
	assert.Equal(t, []core.ID{6, 1}, scoredIDs(tiers.Indirect))
	assert.Equal(t, 6, tiers.Len())
}

func scoredIDs(scored []ScoredHeading) []core.ID {
	out := make([]core.ID, len(scored))
	for i, s := range scored {
		out[i] = s.HeadingId
	}
	return out
}

func TestTiers_Take(t *testing.T) {
	bucketer, err := NewTierBucketer(nil)
	require.NoError(t, err)

	tiers := bucketer.Bucket([]ScoredHeading{
		{HeadingId: 10, Score: 0.5},
		{HeadingId: 11, Score: 0.2},
		{HeadingId: 12, Score: 0.95},
		{HeadingId: 13, Score: 0.45},
	})

	t.Run("budget drains tiers in order", func(t *testing.T) {
		ranked := tiers.Take(5)
		assert.Equal(t, []core.ID{12, 10, 13, 11}, headingIDs(ranked))
		assert.Equal(t, core.TierBest, ranked[0].Tier)
		assert.Equal(t, core.TierGood, ranked[1].Tier)
		assert.Equal(t, core.TierGood, ranked[2].Tier)
		assert.Equal(t, core.TierIndirect, ranked[3].Tier)
	})

	t.Run("budget truncates lower tiers", func(t *testing.T) {
		assert.Equal(t, []core.ID{12, 10}, headingIDs(tiers.Take(2)))
	})

	t.Run("zero budget", func(t *testing.T) {
		assert.Empty(t, tiers.Take(0))
	})
}

func TestTiers_BestTie(t *testing.T) {
	bucketer, err := NewTierBucketer(nil)
	require.NoError(t, err)

	tiers := bucketer.Bucket([]ScoredHeading{
		{HeadingId: 30, Score: 0.6},
		{HeadingId: 22, Score: 1.2},
		{HeadingId: 21, Score: 1.2},
		{HeadingId: 25, Score: 0.7},
	})

	ranked := tiers.Take(3)
	require.Len(t, ranked, 3)
	assert.Equal(t, []core.ID{21, 22, 25}, headingIDs(ranked), "tied BEST headings both precede GOOD, lowest id first")
	assert.Equal(t, core.TierBest, ranked[0].Tier)
	assert.Equal(t, core.TierBest, ranked[1].Tier)
}

func TestTiers_Ordering(t *testing.T) {
	bucketer, err := NewTierBucketer(nil)
	require.NoError(t, err)

	var scored []ScoredHeading
	for i := range 40 {
		scored = append(scored, ScoredHeading{HeadingId: core.ID(i + 1), Score: float64((i*37)%23) / 10})
	}

	ranked := bucketer.Bucket(scored).Take(len(scored))
	require.Len(t, ranked, len(scored))
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].Tier, ranked[i].Tier, "lower tier precedes a higher one")
		if ranked[i-1].Tier == ranked[i].Tier {
			assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
		}
	}
}

func TestTierBucketer_EnoughBest(t *testing.T) {
	bucketer, err := NewTierBucketer(NewConfig(WithAnswerBudget(5, 3)))
	require.NoError(t, err)

	assert.False(t, bucketer.EnoughBest(2))
	assert.True(t, bucketer.EnoughBest(3))
	assert.True(t, bucketer.EnoughBest(4))
}
