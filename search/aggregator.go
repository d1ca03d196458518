package search

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// HeadingAggregator groups the sentences mentioning resolved entities by
// heading and keeps the headings that cover every matched entity.
type HeadingAggregator struct {
	store  storage.KnowledgeStore
	logger *slog.Logger
}

// NewHeadingAggregator creates an aggregator. A nil logger selects slog.Default.
func NewHeadingAggregator(store storage.KnowledgeStore, logger *slog.Logger) (*HeadingAggregator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HeadingAggregator{store: store, logger: logger}, nil
}

// Aggregate returns, per admitted heading, the ascending ids of its
// sentences that mention at least one matched entity.
//
// A heading is admitted when every entity with a non-empty match set is
// mentioned by at least one of its sentences; the entities may be spread
// over different sentences. When frames is not empty only headings with a
// candidate sentence evoking one of the frames are kept, unless that would
// leave nothing, in which case the frame filter is ignored.
func (a *HeadingAggregator) Aggregate(ctx context.Context, matches map[string][]core.ID, frames []string) (map[core.ID][]core.ID, error) {
	groups, _, err := a.aggregate(ctx, matches, frames)
	return groups, err
}

// aggregate also returns how many headings were admitted before the frame filter.
func (a *HeadingAggregator) aggregate(ctx context.Context, matches map[string][]core.ID, frames []string) (map[core.ID][]core.ID, int, error) {
	// Only entities that matched something take part in admission
	active := make([]string, 0, len(matches))
	for entity, ids := range matches {
		if len(ids) > 0 {
			active = append(active, entity)
		}
	}
	if len(active) == 0 {
		return map[core.ID][]core.ID{}, 0, nil
	}
	slices.Sort(active)

	// owners maps an entity id to the question entities it satisfies
	owners := make(map[core.ID][]int)
	for i, entity := range active {
		for _, id := range matches[entity] {
			if !slices.Contains(owners[id], i) {
				owners[id] = append(owners[id], i)
			}
		}
	}

	occurrences, err := a.store.Occurrences(ctx, slices.Sorted(maps.Keys(owners))...)
	if err != nil {
		return nil, 0, err
	}

	type group struct {
		satisfied []bool
		sentences map[core.ID]bool
	}
	byHeading := make(map[core.ID]*group)
	for _, occ := range occurrences {
		g := byHeading[occ.HeadingId]
		if g == nil {
			g = &group{satisfied: make([]bool, len(active)), sentences: make(map[core.ID]bool)}
			byHeading[occ.HeadingId] = g
		}
		g.sentences[occ.SentenceId] = true
		for _, i := range owners[occ.EntityId] {
			g.satisfied[i] = true
		}
	}

	admitted := make(map[core.ID][]core.ID, len(byHeading))
	for headingID, g := range byHeading {
		if slices.Contains(g.satisfied, false) {
			continue
		}
		admitted[headingID] = slices.Sorted(maps.Keys(g.sentences))
	}

	if len(frames) == 0 || len(admitted) == 0 {
		return admitted, len(admitted), nil
	}

	filtered, err := a.filterByFrames(ctx, admitted, frames)
	if err != nil {
		return nil, 0, err
	}
	if len(filtered) == 0 {
		a.logger.Debug("frame filter removed every heading, ignoring it", "frames", frames, "headings", len(admitted))
		return admitted, len(admitted), nil
	}
	return filtered, len(admitted), nil
}

func (a *HeadingAggregator) filterByFrames(ctx context.Context, groups map[core.ID][]core.ID, frames []string) (map[core.ID][]core.ID, error) {
	byFrame, err := a.store.FramesMatching(ctx, frames...)
	if err != nil {
		return nil, err
	}
	evoking := make(map[core.ID]bool)
	for _, ids := range byFrame {
		for _, id := range ids {
			evoking[id] = true
		}
	}

	filtered := make(map[core.ID][]core.ID, len(groups))
	for headingID, sentences := range groups {
		if slices.ContainsFunc(sentences, func(id core.ID) bool { return evoking[id] }) {
			filtered[headingID] = sentences
		}
	}
	return filtered, nil
}
