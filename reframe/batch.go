package reframe

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// BatchProcessor classifies the frames of a batch of sentences and appends
// them to the frame index.
type BatchProcessor struct {
	frames         storage.FrameRepository
	classifier     ai.FrameClassifier
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(frames storage.FrameRepository, classifier ai.FrameClassifier, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		frames:         frames,
		classifier:     classifier,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process classifies sentences and returns how many of them evoke at least
// one frame. Entity markup is stripped before classification.
func (bp *BatchProcessor) Process(ctx context.Context, sentences []*core.Sentence) (int, error) {
	if len(sentences) == 0 {
		return 0, nil
	}

	texts := make([]string, len(sentences))
	for i, sentence := range sentences {
		texts[i] = core.StripMarkup(sentence.Text)
	}

	var classified [][]string
	err := RetryWithBackoff(ctx, func() error {
		var err error
		classified, err = bp.classifier.ClassifyFrames(ctx, texts)
		if err == nil && len(classified) != len(texts) {
			err = fmt.Errorf("%w: expected %d frame lists, got %d",
				ai.ErrMalformedAnnotation, len(texts), len(classified))
		}
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to classify frames after %d attempts: %w", bp.maxRetries, err)
	}

	evoking := 0
	for i, sentence := range sentences {
		frames := ai.Distinct(classified[i])
		if len(frames) == 0 {
			continue
		}
		if err := bp.frames.AppendFrames(ctx, sentence.Id, frames...); err != nil {
			return evoking, fmt.Errorf("failed to append frames of sentence %d: %w", sentence.Id, err)
		}
		evoking++
	}
	return evoking, nil
}
