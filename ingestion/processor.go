// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// FramesProcessorType names the checkpoint written by ingestion-time frame
// classification.
const FramesProcessorType = "ingest-frames"

// processor is an internal interface for enriching stored sentences.
type processor interface {
	// begin registers sentences that are queued for process.
	begin(sentences ...*core.Sentence)

	// process enriches the given sentences.
	process(ctx context.Context, sentences ...*core.Sentence) error

	// checkpoint saves the processor's current state.
	checkpoint() error
}

// frameProcessor classifies the frames of sentences and indexes them.
type frameProcessor struct {
	frames      storage.FrameRepository
	classifier  ai.FrameClassifier
	checkpoints storage.CheckpointRepository
	logger      *slog.Logger

	mu      sync.Mutex
	lastID  core.ID          // highest id classified
	open    map[core.ID]bool // first ids of batches queued or failed
	savedID core.ID
}

var _ processor = (*frameProcessor)(nil)

// newFrameProcessor creates a frame processor. checkpoints may be nil, in
// which case checkpoint does nothing.
func newFrameProcessor(
	frames storage.FrameRepository,
	classifier ai.FrameClassifier,
	checkpoints storage.CheckpointRepository,
	logger *slog.Logger,
) (*frameProcessor, error) {
	if frames == nil {
		return nil, ErrFrameRepositoryRequired
	}
	if classifier == nil {
		return nil, fmt.Errorf("frame classifier required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &frameProcessor{
		frames:      frames,
		classifier:  classifier,
		checkpoints: checkpoints,
		logger:      logger.With("processor", "frames"),
		open:        make(map[core.ID]bool),
	}, nil
}

// begin marks a batch as outstanding until process classifies it.
func (p *frameProcessor) begin(sentences ...*core.Sentence) {
	if len(sentences) == 0 {
		return
	}
	p.mu.Lock()
	p.open[firstID(sentences)] = true
	p.mu.Unlock()
}

func firstID(sentences []*core.Sentence) core.ID {
	first := sentences[0].Id
	for _, sentence := range sentences[1:] {
		first = min(first, sentence.Id)
	}
	return first
}

// process classifies and indexes a batch. A failed batch stays outstanding,
// which holds the checkpoint below it.
func (p *frameProcessor) process(ctx context.Context, sentences ...*core.Sentence) error {
	if len(sentences) == 0 {
		return nil
	}
	if err := p.classify(ctx, sentences); err != nil {
		p.mu.Lock()
		p.open[firstID(sentences)] = true
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	delete(p.open, firstID(sentences))
	for _, sentence := range sentences {
		p.lastID = max(p.lastID, sentence.Id)
	}
	p.mu.Unlock()
	return nil
}

func (p *frameProcessor) classify(ctx context.Context, sentences []*core.Sentence) error {
	texts := make([]string, len(sentences))
	for i, sentence := range sentences {
		texts[i] = core.StripMarkup(sentence.Text)
	}

	classified, err := p.classifier.ClassifyFrames(ctx, texts)
	if err != nil {
		return fmt.Errorf("classify frames: %w", err)
	}
	if len(classified) != len(sentences) {
		return fmt.Errorf("%w: %d frame lists for %d sentences",
			ai.ErrMalformedAnnotation, len(classified), len(sentences))
	}

	var errs []error
	indexed := 0
	for i, sentence := range sentences {
		frames := ai.Distinct(classified[i])
		if len(frames) == 0 {
			continue
		}
		if err := p.frames.AppendFrames(ctx, sentence.Id, frames...); err != nil {
			errs = append(errs, fmt.Errorf("sentence %d: %w", sentence.Id, err))
			continue
		}
		indexed++
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.logger.Debug("classified frames", "sentences", len(sentences), "indexed", indexed)
	return nil
}

// checkpoint records the highest sentence id below which every batch seen
// by this processor has been classified. A batch still queued or one that
// failed keeps the checkpoint below its first sentence.
func (p *frameProcessor) checkpoint() error {
	if p.checkpoints == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	through := p.lastID
	for first := range p.open {
		through = min(through, first-1)
	}
	if through == 0 || through <= p.savedID {
		return nil
	}
	err := p.checkpoints.SaveCheckpoint(context.Background(), &core.Checkpoint{
		ProcessorType: FramesProcessorType,
		LastId:        through,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	p.savedID = through
	return nil
}
