package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// AnswerAssembler turns a window of sentence ids into an answer record.
type AnswerAssembler struct {
	store storage.KnowledgeStore
	cfg   *Config
}

// NewAnswerAssembler creates an assembler. A nil cfg selects DefaultConfig.
func NewAnswerAssembler(store storage.KnowledgeStore, cfg *Config) (*AnswerAssembler, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AnswerAssembler{store: store, cfg: cfg}, nil
}

// Assemble fetches the window's sentences in reading order, strips entity
// markup and joins them under the heading's breadcrumb. Sentences stored
// under another heading are left out.
func (a *AnswerAssembler) Assemble(ctx context.Context, headingID core.ID, window []core.ID, score float64, tier core.Tier) (*core.Answer, error) {
	path, err := a.store.AncestorPath(ctx, headingID)
	if err != nil {
		return nil, err
	}

	ids := slices.Clone(window)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	sentences, err := a.store.GetSentences(ctx, ids...)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(sentences, func(x, y *core.Sentence) int {
		return cmp.Compare(x.Id, y.Id)
	})

	parts := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if sentence.HeadingId != headingID {
			continue
		}
		if text := strings.TrimSpace(core.StripMarkup(sentence.Text)); text != "" {
			parts = append(parts, text)
		}
	}

	return &core.Answer{
		HeadingId: headingID,
		Heading:   path.Breadcrumb(),
		Reference: a.Reference(headingID),
		Score:     score,
		Tier:      tier,
		Text:      strings.Join(parts, a.cfg.Separator),
	}, nil
}

// Reference returns the stable reference of a heading.
func (a *AnswerAssembler) Reference(headingID core.ID) string {
	return fmt.Sprintf(a.cfg.ReferenceFormat, headingID)
}

// Fallback returns the single record given when no section answers the question.
func (a *AnswerAssembler) Fallback() *core.Answer {
	return &core.Answer{
		Text:     a.cfg.FallbackText,
		Fallback: true,
	}
}
