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


package search

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// Engine answers questions from a knowledge store. An Engine holds no
// per-question state and may be used concurrently.
type Engine struct {
	store     storage.KnowledgeStore
	annotator ai.Annotator
	labels    ai.Annotator
	cfg       *Config
	logger    *slog.Logger

	resolver   *EntityResolver
	aggregator *HeadingAggregator
	scorer     *RelevanceScorer
	bucketer   *TierBucketer
	merger     *WindowMerger
	assembler  *AnswerAssembler
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithConfig sets the engine configuration.
// Default is DefaultConfig().
func WithConfig(cfg *Config) Option {
	return func(e *Engine) error {
		if cfg == nil {
			return ErrInvalidConfig
		}
		e.cfg = cfg
		return nil
	}
}

// WithLabelAnnotator sets the annotator used on heading labels while
// scoring. Default is the question annotator behind a cache.
func WithLabelAnnotator(annotator ai.Annotator) Option {
	return func(e *Engine) error {
		if annotator == nil {
			return ErrAnnotatorRequired
		}
		e.labels = annotator
		return nil
	}
}

// NewEngine creates an answer engine over store, annotating questions with annotator.
func NewEngine(store storage.KnowledgeStore, annotator ai.Annotator, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if annotator == nil {
		return nil, ErrAnnotatorRequired
	}

	e := &Engine{
		store:     store,
		annotator: annotator,
		cfg:       DefaultConfig(),
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	e.logger = e.logger.With("component", "engine")

	if e.labels == nil {
		if cached, ok := annotator.(*ai.CachingAnnotator); ok {
			e.labels = cached
		} else {
			e.labels = ai.NewCachingAnnotator(annotator, 0)
		}
	}

	var err error
	if e.resolver, err = NewEntityResolver(store, e.cfg, e.logger); err != nil {
		return nil, err
	}
	if e.aggregator, err = NewHeadingAggregator(store, e.logger); err != nil {
		return nil, err
	}
	if e.scorer, err = NewRelevanceScorer(store, e.labels, e.cfg, e.logger); err != nil {
		return nil, err
	}
	if e.bucketer, err = NewTierBucketer(e.cfg); err != nil {
		return nil, err
	}
	if e.merger, err = NewWindowMerger(e.cfg); err != nil {
		return nil, err
	}
	if e.assembler, err = NewAnswerAssembler(store, e.cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Answer returns the ranked answers to question. The result is never empty:
// when nothing matches it holds the single fallback record. The only error
// is ErrUpstreamUnavailable.
func (e *Engine) Answer(ctx context.Context, question string) ([]*core.Answer, error) {
	return e.AnswerWithMonitor(ctx, question, nil)
}

// AnswerWithMonitor answers question, reporting every pipeline stage to monitor.
func (e *Engine) AnswerWithMonitor(ctx context.Context, question string, monitor Monitor) ([]*core.Answer, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(question)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	// 1. Annotate the question
	annotation, err := e.annotator.Annotate(ctx, question)
	if err == nil {
		err = annotation.Validate()
	}
	if err != nil {
		if errors.Is(err, ai.ErrMalformedAnnotation) {
			e.logger.Warn("malformed question annotation", "question", question, "err", err)
			return e.fallback(monitor, FallbackMalformed), nil
		}
		e.logger.Error("error annotating question", "question", question, "err", err)
		return nil, unavailable("annotate question", err)
	}

	entities := ai.Distinct(annotation.Entities)
	frames := ai.Distinct(annotation.Frames)
	monitor.AfterAnnotation(entities, frames)
	if len(entities) == 0 {
		return e.fallback(monitor, FallbackNoEntities), nil
	}

	// 2. Resolve and aggregate, descending to shorter sub-phrases until
	// enough headings qualify
	groups, err := e.candidates(ctx, entities, frames, monitor)
	if err != nil {
		e.logger.Error("error collecting candidate headings", "question", question, "err", err)
		return nil, err
	}
	if len(groups) == 0 {
		return e.fallback(monitor, FallbackNoHeadings), nil
	}

	// 3. Score, most hits first, until BEST holds enough headings
	scored, err := e.score(ctx, question, entities, frames, groups, monitor)
	if err != nil {
		e.logger.Error("error scoring headings", "question", question, "err", err)
		return nil, err
	}

	// 4. Bucket and take the budget
	tiers := e.bucketer.Bucket(scored)
	monitor.AfterBucketing(tiers)
	ranked := tiers.Take(e.cfg.AnswerBudget)

	// 5. Window and assemble
	answers := make([]*core.Answer, 0, len(ranked))
	for _, r := range ranked {
		answer, err := e.assemble(ctx, r)
		if err != nil {
			if isLocalFailure(err) {
				e.logger.Warn("skipping heading", "heading", r.HeadingId, "err", err)
				continue
			}
			e.logger.Error("error assembling answer", "heading", r.HeadingId, "err", err)
			return nil, unavailable("assemble answer", err)
		}
		answers = append(answers, answer)
	}
	if len(answers) == 0 {
		return e.fallback(monitor, FallbackNoAnswers), nil
	}

	monitor.Finish(answers)
	return answers, nil
}

// candidates runs resolution and aggregation from the longest entity's
// word count down to single words. It stops at the first level admitting
// MinHeadingGroups headings; otherwise the largest result wins, preferring
// the most specific level on ties.
func (e *Engine) candidates(ctx context.Context, entities, frames []string, monitor Monitor) (map[core.ID][]core.ID, error) {
	var best map[core.ID][]core.ID
	for level := Levels(entities); level >= 1; level-- {
		matches, err := e.resolver.Resolve(ctx, entities, level)
		if err != nil {
			return nil, err
		}
		monitor.AfterResolution(level, matches)

		groups, admitted, err := e.aggregator.aggregate(ctx, matches, frames)
		if err != nil {
			return nil, unavailable("aggregate headings", err)
		}
		monitor.AfterAggregation(level, admitted, len(groups))

		if len(groups) > len(best) {
			best = groups
		}
		if len(best) >= e.cfg.MinHeadingGroups {
			break
		}
	}
	return best, nil
}

func (e *Engine) score(ctx context.Context, question string, entities, frames []string, groups map[core.ID][]core.ID, monitor Monitor) ([]ScoredHeading, error) {
	order := slices.SortedFunc(maps.Keys(groups), func(a, b core.ID) int {
		if c := cmp.Compare(len(groups[b]), len(groups[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	scored := make([]ScoredHeading, 0, len(order))
	best := 0
	for _, headingID := range order {
		score, err := e.scorer.Score(ctx, headingID, question, entities, frames)
		if err != nil {
			if isLocalFailure(err) {
				e.logger.Warn("skipping heading", "heading", headingID, "err", err)
				continue
			}
			return nil, unavailable("score heading", err)
		}

		tier := e.bucketer.Classify(score)
		monitor.HeadingScored(headingID, score, tier)
		scored = append(scored, ScoredHeading{
			HeadingId:   headingID,
			Score:       score,
			SentenceIds: groups[headingID],
		})

		if tier == core.TierBest {
			best++
			if e.bucketer.EnoughBest(best) {
				break
			}
		}
	}
	return scored, nil
}

func (e *Engine) assemble(ctx context.Context, r RankedHeading) (*core.Answer, error) {
	section, err := e.store.SentenceIDs(ctx, r.HeadingId)
	if err != nil {
		return nil, err
	}
	window := e.merger.Merge(r.SentenceIds, section)
	return e.assembler.Assemble(ctx, r.HeadingId, window, r.Score, r.Tier)
}

func (e *Engine) fallback(monitor Monitor, reason string) []*core.Answer {
	answers := []*core.Answer{e.assembler.Fallback()}
	monitor.Fallback(reason)
	monitor.Finish(answers)
	return answers
}
