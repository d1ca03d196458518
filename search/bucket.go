package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/kbqa/core"
)

// ScoredHeading is an admitted heading with its relevance score and the
// sentences that matched the question.
type ScoredHeading struct {
	HeadingId   core.ID
	Score       float64
	SentenceIds []core.ID
}

// RankedHeading is a scored heading placed in its tier.
type RankedHeading struct {
	ScoredHeading
	Tier core.Tier
}

// Tiers holds scored headings split by confidence, each tier ordered by
// descending score with ties broken by ascending heading id.
type Tiers struct {
	Best     []ScoredHeading
	Good     []ScoredHeading
	Indirect []ScoredHeading
}

// Len returns the number of headings across all tiers.
func (t Tiers) Len() int {
	return len(t.Best) + len(t.Good) + len(t.Indirect)
}

// Take consumes up to budget headings, draining BEST before GOOD and GOOD
// before INDIRECT.
func (t Tiers) Take(budget int) []RankedHeading {
	ranked := make([]RankedHeading, 0, min(max(budget, 0), t.Len()))
	for _, tier := range []struct {
		tier     core.Tier
		headings []ScoredHeading
	}{
		{core.TierBest, t.Best},
		{core.TierGood, t.Good},
		{core.TierIndirect, t.Indirect},
	} {
		for _, h := range tier.headings {
			if len(ranked) >= budget {
				return ranked
			}
			ranked = append(ranked, RankedHeading{ScoredHeading: h, Tier: tier.tier})
		}
	}
	return ranked
}

// TierBucketer places scored headings into tiers.
type TierBucketer struct {
	cfg *Config
}

// NewTierBucketer creates a bucketer. A nil cfg selects DefaultConfig.
func NewTierBucketer(cfg *Config) (*TierBucketer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TierBucketer{cfg: cfg}, nil
}

// Classify returns the tier a score falls in.
func (b *TierBucketer) Classify(score float64) core.Tier {
	switch {
	case score >= b.cfg.AcceptHigh:
		return core.TierBest
	case score >= b.cfg.AcceptLow:
		return core.TierGood
	default:
		return core.TierIndirect
	}
}

// EnoughBest reports whether bestCount BEST headings are enough to stop
// scoring further candidates.
func (b *TierBucketer) EnoughBest(bestCount int) bool {
	return bestCount >= b.cfg.EnoughMatches
}

// Bucket splits headings into tiers and orders each tier.
func (b *TierBucketer) Bucket(scored []ScoredHeading) Tiers {
	var tiers Tiers
	for _, h := range scored {
		switch b.Classify(h.Score) {
		case core.TierBest:
			tiers.Best = append(tiers.Best, h)
		case core.TierGood:
			tiers.Good = append(tiers.Good, h)
		default:
			tiers.Indirect = append(tiers.Indirect, h)
		}
	}
	for _, tier := range [][]ScoredHeading{tiers.Best, tiers.Good, tiers.Indirect} {
		slices.SortStableFunc(tier, compareScored)
	}
	return tiers
}

func compareScored(a, b ScoredHeading) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.HeadingId, b.HeadingId)
}
