package kbqa

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/poiesic/kbqa/core"
)

// DefaultSimilarityThreshold is the similarity above which two stored
// entities are reported as near duplicates.
const DefaultSimilarityThreshold = 0.925

// SimilarPair is two stored entities whose texts are nearly the same.
type SimilarPair struct {
	A, B       string
	Similarity float64
}

// SimilarEntities compares every pair of stored entities and returns those
// whose edit similarity exceeds threshold, most similar first. It is meant
// for auditing normalization and compares all pairs.
func (db *Database) SimilarEntities(ctx context.Context, threshold float64) ([]SimilarPair, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be in (0, 1], got %v", threshold)
	}

	var texts []string
	err := db.repos.Entities.ForEachEntity(ctx, func(entity *core.Entity) error {
		texts = append(texts, entity.Text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	var pairs []SimilarPair
	for i := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(texts); j++ {
			similarity := strutil.Similarity(texts[i], texts[j], metric)
			if similarity > threshold {
				pairs = append(pairs, SimilarPair{A: texts[i], B: texts[j], Similarity: similarity})
			}
		}
	}

	slices.SortFunc(pairs, func(a, b SimilarPair) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.A, b.A); c != 0 {
			return c
		}
		return cmp.Compare(a.B, b.B)
	})
	return pairs, nil
}
