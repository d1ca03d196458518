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

package reframe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// CheckpointType names the checkpoint a Reframer resumes from.
const CheckpointType = "reframe"

// Config holds configuration for the reframing operation.
type Config struct {
	// BatchSize is the number of sentences to classify in each batch
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// ReportInterval is how often to report progress (number of sentences)
	ReportInterval int `mapstructure:"report_interval" yaml:"report_interval"`

	// MaxRetries is the maximum number of attempts for a failed batch
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Stores bundles the repositories a Reframer works with.
// Without Checkpoints every run starts from the first sentence.
type Stores struct {
	Sentences   storage.SentenceRepository
	Frames      storage.FrameRepository
	Checkpoints storage.CheckpointRepository
}

// Summary describes a finished run.
type Summary struct {
	ResumedAfter core.ID       // Checkpoint the run started from, 0 for a full run
	Processed    int           // Sentences classified by this run
	Evoking      int           // Sentences that evoke at least one frame
	Elapsed      time.Duration // Wall time of the run
}

// Reframer orchestrates the frame classification of all stored sentences.
type Reframer struct {
	stores    Stores
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *SentenceIterator
	logger    *slog.Logger
}

// NewReframer creates a new reframer.
// progress: where to write progress output (typically os.Stderr)
func NewReframer(stores Stores, classifier ai.FrameClassifier, config *Config, progress io.Writer, logger *slog.Logger) (*Reframer, error) {
	if stores.Sentences == nil {
		return nil, ErrSentenceRepositoryRequired
	}
	if stores.Frames == nil {
		return nil, ErrFrameRepositoryRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reframer{
		stores:    stores,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(stores.Frames, classifier, config.MaxRetries, config.RetryDelay),
		iterator:  NewSentenceIterator(stores.Sentences, config.BatchSize),
		logger:    logger.With("component", "reframe"),
	}, nil
}

// Run classifies every sentence stored after the last checkpoint. The
// checkpoint advances after each batch, so an interrupted run picks up at the
// first unfinished batch. Frames are only ever appended.
func (r *Reframer) Run(ctx context.Context) (*Summary, error) {
	afterID, err := r.resumePoint(ctx)
	if err != nil {
		return nil, err
	}

	total, err := r.iterator.Count(ctx, afterID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sentences: %w", err)
	}

	summary := &Summary{ResumedAfter: afterID}
	if total == 0 {
		fmt.Fprintf(r.progress, "No sentences to classify (0 sentences)\n")
		return summary, nil
	}

	if afterID > 0 {
		fmt.Fprintf(r.progress, "Resuming frame classification after sentence %d: %d sentences left (batch size: %d)\n",
			afterID, total, r.iterator.batchSize)
	} else {
		fmt.Fprintf(r.progress, "Starting frame classification of %d sentences (batch size: %d)\n",
			total, r.iterator.batchSize)
	}

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, afterID, func(sentences []*core.Sentence) error {
		evoking, err := r.processor.Process(ctx, sentences)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		last := sentences[len(sentences)-1].Id
		if err := r.saveCheckpoint(ctx, last); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}

		summary.Processed += len(sentences)
		summary.Evoking += evoking
		tracker.Increment(len(sentences))
		return nil
	})
	summary.Elapsed = tracker.Elapsed()
	if err != nil {
		r.logger.Error("frame classification interrupted", "processed", summary.Processed, "err", err)
		return summary, err
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Frame classification complete. Processed %d sentences in %v (%d evoke frames)\n",
		summary.Processed, summary.Elapsed.Round(time.Second), summary.Evoking)

	r.logger.Info("frame classification complete",
		"processed", summary.Processed,
		"evoking", summary.Evoking,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// Reset forgets the checkpoint so the next run starts from the first sentence.
func (r *Reframer) Reset(ctx context.Context) error {
	if r.stores.Checkpoints == nil {
		return nil
	}
	return r.stores.Checkpoints.ResetCheckpoint(ctx, CheckpointType)
}

func (r *Reframer) resumePoint(ctx context.Context) (core.ID, error) {
	if r.stores.Checkpoints == nil {
		return 0, nil
	}
	checkpoint, err := r.stores.Checkpoints.LoadCheckpoint(ctx, CheckpointType)
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint == nil {
		return 0, nil
	}
	return checkpoint.LastId, nil
}

func (r *Reframer) saveCheckpoint(ctx context.Context, lastID core.ID) error {
	if r.stores.Checkpoints == nil {
		return nil
	}
	return r.stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: CheckpointType,
		LastId:        lastID,
		UpdatedAt:     time.Now().UTC(),
	})
}
