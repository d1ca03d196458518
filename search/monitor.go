package search

import (
	"log/slog"

	"github.com/poiesic/kbqa/core"
)

// Reasons passed to Monitor.Fallback.
const (
	FallbackNoEntities = "no_entities"
	FallbackMalformed  = "malformed_annotation"
	FallbackNoHeadings = "no_headings"
	FallbackNoAnswers  = "no_answers"
)

// Monitor provides hooks to observe the answer pipeline.
// Implement this interface to trace intermediate results of a question.
type Monitor interface {
	Start(question string)
	AfterAnnotation(entities, frames []string)
	AfterResolution(level int, matches map[string][]core.ID)
	AfterAggregation(level int, admitted, kept int)
	HeadingScored(headingID core.ID, score float64, tier core.Tier)
	AfterBucketing(tiers Tiers)
	Fallback(reason string)
	Finish(answers []*core.Answer)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                 {}
func (n *noopMonitor) AfterAnnotation(_, _ []string)                  {}
func (n *noopMonitor) AfterResolution(_ int, _ map[string][]core.ID)  {}
func (n *noopMonitor) AfterAggregation(_ int, _, _ int)               {}
func (n *noopMonitor) HeadingScored(_ core.ID, _ float64, _ core.Tier) {}
func (n *noopMonitor) AfterBucketing(_ Tiers)                         {}
func (n *noopMonitor) Fallback(_ string)                              {}
func (n *noopMonitor) Finish(_ []*core.Answer)                        {}

// LogMonitor writes one structured record per pipeline stage.
type LogMonitor struct {
	logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor logging to logger, or slog.Default if nil.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "search")}
}

func (m *LogMonitor) Start(question string) {
	m.logger.Debug("question received", "question", question)
}

func (m *LogMonitor) AfterAnnotation(entities, frames []string) {
	m.logger.Debug("question annotated", "entities", entities, "frames", frames)
}

func (m *LogMonitor) AfterResolution(level int, matches map[string][]core.ID) {
	matched := 0
	for _, ids := range matches {
		if len(ids) > 0 {
			matched++
		}
	}
	m.logger.Debug("entities resolved", "level", level, "entities", len(matches), "matched", matched)
}

func (m *LogMonitor) AfterAggregation(level int, admitted, kept int) {
	m.logger.Debug("headings aggregated", "level", level, "admitted", admitted, "afterFrameFilter", kept)
}

func (m *LogMonitor) HeadingScored(headingID core.ID, score float64, tier core.Tier) {
	m.logger.Debug("heading scored", "heading", headingID, "score", score, "tier", tier.String())
}

func (m *LogMonitor) AfterBucketing(tiers Tiers) {
	m.logger.Debug("headings bucketed", "best", len(tiers.Best), "good", len(tiers.Good), "indirect", len(tiers.Indirect))
}

func (m *LogMonitor) Fallback(reason string) {
	m.logger.Info("no answer found", "reason", reason)
}

func (m *LogMonitor) Finish(answers []*core.Answer) {
	m.logger.Debug("question answered", "answers", len(answers))
}

// multiMonitor fans every hook out to several monitors.
type multiMonitor []Monitor

// Monitors combines monitors into one. Nil monitors are skipped.
func Monitors(monitors ...Monitor) Monitor {
	combined := make(multiMonitor, 0, len(monitors))
	for _, m := range monitors {
		if m != nil {
			combined = append(combined, m)
		}
	}
	return combined
}

func (mm multiMonitor) Start(question string) {
	for _, m := range mm {
		m.Start(question)
	}
}

func (mm multiMonitor) AfterAnnotation(entities, frames []string) {
	for _, m := range mm {
		m.AfterAnnotation(entities, frames)
	}
}

func (mm multiMonitor) AfterResolution(level int, matches map[string][]core.ID) {
	for _, m := range mm {
		m.AfterResolution(level, matches)
	}
}

func (mm multiMonitor) AfterAggregation(level int, admitted, kept int) {
	for _, m := range mm {
		m.AfterAggregation(level, admitted, kept)
	}
}

func (mm multiMonitor) HeadingScored(headingID core.ID, score float64, tier core.Tier) {
	for _, m := range mm {
		m.HeadingScored(headingID, score, tier)
	}
}

func (mm multiMonitor) AfterBucketing(tiers Tiers) {
	for _, m := range mm {
		m.AfterBucketing(tiers)
	}
}

func (mm multiMonitor) Fallback(reason string) {
	for _, m := range mm {
		m.Fallback(reason)
	}
}

func (mm multiMonitor) Finish(answers []*core.Answer) {
	for _, m := range mm {
		m.Finish(answers)
	}
}
