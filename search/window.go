package search

import (
	"slices"

	"github.com/poiesic/kbqa/core"
)

// WindowMerger widens sparse sentence hits into a readable excerpt of
// their section. Distances are counted in sentences of the section, not in
// ids, since a section stored in several batches has gaps in its ids.
type WindowMerger struct {
	leading  int
	trailing int
}

// NewWindowMerger creates a merger. A nil cfg selects DefaultConfig.
func NewWindowMerger(cfg *Config) (*WindowMerger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &WindowMerger{
		leading:  cfg.LeadingProximity,
		trailing: cfg.TrailingWindow,
	}, nil
}

// Merge returns the window around the hits as a subsequence of section,
// the ascending sentence ids of one heading. The sentences before the first
// hit are included when it lies within the leading proximity of the section
// start. Each hit extends up to the next hit when that hit is within the
// trailing window, and otherwise by the trailing window itself. Hits that
// are not in section are ignored.
func (m *WindowMerger) Merge(hits []core.ID, section []core.ID) []core.ID {
	positions := make([]int, 0, len(hits))
	for _, hit := range hits {
		if pos, found := slices.BinarySearch(section, hit); found {
			positions = append(positions, pos)
		}
	}
	if len(positions) == 0 {
		return nil
	}
	slices.Sort(positions)
	positions = slices.Compact(positions)

	var window []core.ID
	if positions[0] <= m.leading {
		window = append(window, section[:positions[0]]...)
	}

	for i, pos := range positions {
		end := pos + m.trailing
		if i+1 < len(positions) && positions[i+1] <= end {
			end = positions[i+1] - 1
		}
		end = min(end, len(section)-1)
		window = append(window, section[pos:end+1]...)
	}
	return window
}
