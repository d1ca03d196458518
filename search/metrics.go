package search

import (
	"github.com/poiesic/kbqa/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMonitor records pipeline statistics as Prometheus metrics.
type PrometheusMonitor struct {
	Questions       prometheus.Counter
	Fallbacks       *prometheus.CounterVec
	ResolutionLevel prometheus.Histogram
	HeadingsKept    prometheus.Histogram
	HeadingScores   prometheus.Histogram
	Answers         *prometheus.CounterVec
}

var _ Monitor = (*PrometheusMonitor)(nil)

// NewPrometheusMonitor creates the metrics and registers them with reg.
// A nil reg selects prometheus.DefaultRegisterer.
func NewPrometheusMonitor(reg prometheus.Registerer) *PrometheusMonitor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMonitor{
		Questions: factory.NewCounter(prometheus.CounterOpts{
			Name: "kbqa_questions_total",
			Help: "Total number of questions received",
		}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kbqa_fallbacks_total",
			Help: "Total number of questions answered with the fallback message",
		}, []string{"reason"}),
		ResolutionLevel: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbqa_resolution_level",
			Help:    "Sub-phrase level at which entity resolution was run",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
		}),
		HeadingsKept: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbqa_headings_kept",
			Help:    "Headings kept after aggregation and frame filtering",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		HeadingScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbqa_heading_score",
			Help:    "Relevance scores of scored headings",
			Buckets: []float64{0.05, 0.1, 0.2, 0.4, 0.6, 0.8, 1, 1.5, 2},
		}),
		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kbqa_answers_total",
			Help: "Total number of answers returned, by tier",
		}, []string{"tier"}),
	}
}

func (m *PrometheusMonitor) Start(_ string) {
	m.Questions.Inc()
}

func (m *PrometheusMonitor) AfterAnnotation(_, _ []string) {}

func (m *PrometheusMonitor) AfterResolution(level int, _ map[string][]core.ID) {
	m.ResolutionLevel.Observe(float64(level))
}

func (m *PrometheusMonitor) AfterAggregation(_ int, _, kept int) {
	m.HeadingsKept.Observe(float64(kept))
}

func (m *PrometheusMonitor) HeadingScored(_ core.ID, score float64, _ core.Tier) {
	m.HeadingScores.Observe(score)
}

func (m *PrometheusMonitor) AfterBucketing(_ Tiers) {}

func (m *PrometheusMonitor) Fallback(reason string) {
	m.Fallbacks.WithLabelValues(reason).Inc()
}

func (m *PrometheusMonitor) Finish(answers []*core.Answer) {
	for _, answer := range answers {
		if !answer.Fallback {
			m.Answers.WithLabelValues(answer.Tier.String()).Inc()
		}
	}
}
