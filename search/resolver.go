package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// EntityResolver maps question entities to stored entity ids using fuzzy
// lookups, widened with shorter sub-phrases at lower levels.
type EntityResolver struct {
	store  storage.KnowledgeStore
	cfg    *Config
	logger *slog.Logger
}

// NewEntityResolver creates a resolver. A nil cfg selects DefaultConfig and
// a nil logger selects slog.Default.
func NewEntityResolver(store storage.KnowledgeStore, cfg *Config, logger *slog.Logger) (*EntityResolver, error) {
	if store == nil {
		return nil, ErrStoreRequired
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
	return &EntityResolver{store: store, cfg: cfg, logger: logger}, nil
}

// Levels returns the highest level worth resolving at: the word count of
// the longest entity. Zero means there is nothing to resolve.
func Levels(entities []string) int {
	n := 0
	for _, entity := range entities {
		n = max(n, len(strings.Fields(entity)))
	}
	return n
}

// Resolve looks every entity up directly and, at level k, also every
// contiguous sub-phrase of at least k words. The result has one entry per
// distinct entity; an entity nothing matched maps to an empty slice.
//
// Lookup failures local to one phrase are logged and skipped. Transport
// failures abort resolution with ErrUpstreamUnavailable.
func (r *EntityResolver) Resolve(ctx context.Context, entities []string, level int) (map[string][]core.ID, error) {
	level = max(level, 1)
	matches := make(map[string][]core.ID, len(entities))

	for _, entity := range entities {
		entity = strings.TrimSpace(entity)
		if entity == "" {
			continue
		}
		if _, done := matches[entity]; done {
			continue
		}

		ids := []core.ID{}
		for _, phrase := range subPhrases(entity, level) {
			found, err := r.store.FindEntities(ctx, r.cfg.entityQuery(phrase))
			if err != nil {
				if isLocalFailure(err) {
					r.logger.Debug("skipping phrase", "entity", entity, "phrase", phrase, "err", err)
					continue
				}
				return nil, unavailable("find entities", err)
			}
			for _, id := range found {
				if !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
		}
		matches[entity] = ids
	}

	return matches, nil
}

// subPhrases returns the entity itself followed by every distinct run of
// at least minWords consecutive words, longest first.
func subPhrases(entity string, minWords int) []string {
	words := strings.Fields(entity)
	phrases := []string{strings.Join(words, " ")}
	seen := map[string]bool{phrases[0]: true}

	for size := len(words) - 1; size >= minWords; size-- {
		for start := 0; start+size <= len(words); start++ {
			phrase := strings.Join(words[start:start+size], " ")
			if !seen[phrase] {
				seen[phrase] = true
				phrases = append(phrases, phrase)
			}
		}
	}
	return phrases
}
