package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// ElementScore is the contribution of one heading path element to a
// heading's relevance score. Position 0 is the heading itself.
type ElementScore struct {
	HeadingId    core.ID
	Label        string
	Position     int
	EntityRatio  float64
	FrameRatio   float64
	Coherence    float64
	Weight       float64
	Contribution float64
}

// RelevanceScorer rates a heading against a question by walking its path
// from the heading up to the top-level section. Every element is scored
// on its own label and weighted by 1/(position+1)².
type RelevanceScorer struct {
	store     storage.KnowledgeStore
	annotator ai.Annotator
	cfg       *Config
	logger    *slog.Logger

	tokens    *metrics.Levenshtein
	coherence *metrics.SorensenDice
}

// NewRelevanceScorer creates a scorer. Labels are annotated with annotator
// on every call, so callers should hand in a caching annotator.
func NewRelevanceScorer(store storage.KnowledgeStore, annotator ai.Annotator, cfg *Config, logger *slog.Logger) (*RelevanceScorer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if annotator == nil {
		return nil, ErrAnnotatorRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	tokens := metrics.NewLevenshtein()
	tokens.CaseSensitive = false
	coherence := metrics.NewSorensenDice()
	coherence.CaseSensitive = false
	coherence.NgramSize = 2

	return &RelevanceScorer{
		store:     store,
		annotator: annotator,
		cfg:       cfg,
		logger:    logger,
		tokens:    tokens,
		coherence: coherence,
	}, nil
}

// Score returns the relevance of a heading to the question. Scores are
// unbounded above; higher is better.
func (s *RelevanceScorer) Score(ctx context.Context, headingID core.ID, question string, entities, frames []string) (float64, error) {
	elements, err := s.Explain(ctx, headingID, question, entities, frames)
	if err != nil {
		return 0, err
	}
	var score float64
	for _, element := range elements {
		score += element.Contribution
	}
	return score, nil
}

// Explain returns the per-element breakdown that Score sums up.
func (s *RelevanceScorer) Explain(ctx context.Context, headingID core.ID, question string, entities, frames []string) ([]ElementScore, error) {
	path, err := s.store.AncestorPath(ctx, headingID)
	if err != nil {
		return nil, err
	}

	elements := make([]ElementScore, 0, len(path))
	for i, ref := range path {
		local, err := s.annotator.Annotate(ctx, ref.Label)
		if err != nil {
			if !errors.Is(err, ai.ErrMalformedAnnotation) {
				return nil, err
			}
			s.logger.Debug("unusable heading annotation", "heading", ref.Id, "label", ref.Label, "err", err)
			local = &ai.Annotation{}
		}

		element := ElementScore{
			HeadingId:   ref.Id,
			Label:       ref.Label,
			Position:    i,
			EntityRatio: s.entityHitRatio(entities, local.Entities),
			FrameRatio:  frameHitRatio(frames, local.Frames),
			Coherence:   strutil.Similarity(path.BreadcrumbFrom(i), question, s.coherence),
			Weight:      depthWeight(i),
		}
		element.Contribution = contribution(element.EntityRatio, element.FrameRatio, element.Coherence, element.Weight)
		elements = append(elements, element)
	}
	return elements, nil
}

// contribution is the share one path element adds to the heading score.
func contribution(entityRatio, frameRatio, coherence, weight float64) float64 {
	return entityRatio * (1 + frameRatio) * coherence * weight
}

func depthWeight(position int) float64 {
	d := float64(position + 1)
	return 1 / (d * d)
}

// entityHitRatio averages, over the question entities that hit, the best
// similarity they reach against the local entities.
func (s *RelevanceScorer) entityHitRatio(question, local []string) float64 {
	var sum float64
	hits := 0
	for _, q := range question {
		best := 0.0
		for _, l := range local {
			best = max(best, s.tokenSetRatio(q, l))
		}
		if best >= s.cfg.EntityHitThreshold {
			sum += best
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return sum / float64(hits)
}

// frameHitRatio is the share of question frames the element evokes, or 1
// when the question carries no frames.
func frameHitRatio(question, local []string) float64 {
	if len(question) == 0 {
		return 1
	}
	hits := 0
	for _, frame := range question {
		if slices.Contains(local, frame) {
			hits++
		}
	}
	return float64(hits) / float64(len(question))
}

// tokenSetRatio compares two phrases as word sets: the shared words and
// each side's remainder are sorted, and the best pairwise similarity of
// shared, shared+left and shared+right wins. Word order and repeated words
// do not matter.
func (s *RelevanceScorer) tokenSetRatio(a, b string) float64 {
	left, right := wordSet(a), wordSet(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	var shared, onlyLeft, onlyRight []string
	for _, w := range left {
		if slices.Contains(right, w) {
			shared = append(shared, w)
		} else {
			onlyLeft = append(onlyLeft, w)
		}
	}
	for _, w := range right {
		if !slices.Contains(left, w) {
			onlyRight = append(onlyRight, w)
		}
	}

	base := strings.Join(shared, " ")
	withLeft := strings.TrimSpace(base + " " + strings.Join(onlyLeft, " "))
	withRight := strings.TrimSpace(base + " " + strings.Join(onlyRight, " "))

	best := strutil.Similarity(withLeft, withRight, s.tokens)
	if base != "" {
		best = max(best,
			strutil.Similarity(base, withLeft, s.tokens),
			strutil.Similarity(base, withRight, s.tokens))
	}
	return best
}

// wordSet returns the sorted distinct lowercase words of text.
func wordSet(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	slices.Sort(words)
	return slices.Compact(words)
}
