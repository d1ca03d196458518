package reframe

import (
	"context"

	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

const (
	// DefaultBatchSize is the default number of sentences to fetch in each batch
	DefaultBatchSize = 100
)

// SentenceIterator walks stored sentences in id order, in batches.
type SentenceIterator struct {
	repo      storage.SentenceRepository
	batchSize int
}

// NewSentenceIterator creates an iterator. A non-positive batchSize selects
// DefaultBatchSize.
func NewSentenceIterator(repo storage.SentenceRepository, batchSize int) *SentenceIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &SentenceIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each batch of sentences whose id is greater than
// afterID. Iteration stops at the first error or when ctx is done.
func (it *SentenceIterator) ForEach(ctx context.Context, afterID core.ID, fn func([]*core.Sentence) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return it.repo.ForEachSentence(ctx, afterID, it.batchSize, func(batch []*core.Sentence) error {
		if err := fn(batch); err != nil {
			return err
		}
		// Check context after each batch
		return ctx.Err()
	})
}

// Count returns the number of sentences whose id is greater than afterID.
func (it *SentenceIterator) Count(ctx context.Context, afterID core.ID) (int, error) {
	if afterID == 0 {
		return it.repo.CountSentences(ctx)
	}
	count := 0
	err := it.ForEach(ctx, afterID, func(batch []*core.Sentence) error {
		count += len(batch)
		return nil
	})
	return count, err
}
