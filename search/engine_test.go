package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/ai/mock"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMonitor keeps what the engine reported.
type recordingMonitor struct {
	noopMonitor
	levels  []int
	scored  []core.ID
	reasons []string
	answers []*core.Answer
}

func (m *recordingMonitor) AfterResolution(level int, _ map[string][]core.ID) {
	m.levels = append(m.levels, level)
}

func (m *recordingMonitor) HeadingScored(headingID core.ID, _ float64, _ core.Tier) {
	m.scored = append(m.scored, headingID)
}

func (m *recordingMonitor) Fallback(reason string) {
	m.reasons = append(m.reasons, reason)
}

func (m *recordingMonitor) Finish(answers []*core.Answer) {
	m.answers = answers
}

func question(annotator *mock.MockAnnotator, text string, entities []string, frames ...string) string {
	annotator.WithAnnotation(text, &ai.Annotation{Entities: entities, Frames: frames})
	return text
}

func TestNewEngine(t *testing.T) {
	f := newFixture(t)
	annotator := mock.NewMockAnnotator()

	t.Run("valid configuration", func(t *testing.T) {
		engine, err := NewEngine(f.store, annotator)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), engine.Config())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		engine, err := NewEngine(f.store, annotator, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, engine)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewEngine(nil, annotator)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("nil annotator", func(t *testing.T) {
		_, err := NewEngine(f.store, nil)
		assert.Equal(t, ErrAnnotatorRequired, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewEngine(f.store, annotator, WithConfig(NewConfig(WithThresholds(0.2, 0.5))))
		assert.ErrorIs(t, err, ErrInvalidConfig)

		_, err = NewEngine(f.store, annotator, WithConfig(nil))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("nil label annotator", func(t *testing.T) {
		_, err := NewEngine(f.store, annotator, WithLabelAnnotator(nil))
		assert.Equal(t, ErrAnnotatorRequired, err)
	})
}

func TestEngine_WindowScenario(t *testing.T) {
	f := newFixture(t)
	f.section(t, []string{"Overview"}, filler(7)...)

	lines := filler(13)
	lines[2] = mention("The load balancer accepts traffic.", "load balancer")
	lines[6] = mention("Restart the load balancer after changes.", "load balancer")
	heading, added := f.section(t, []string{"Networking", "Load Balancing"}, lines...)

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)

	q := question(annotator, "How does the load balancer work?", []string{"load balancer"})
	answers, err := engine.Answer(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, answers, 1)

	answer := answers[0]
	assert.Equal(t, heading.Id, answer.HeadingId)
	assert.Equal(t, "Networking > Load Balancing", answer.Heading)
	assert.False(t, answer.Fallback)

	// hits at positions 2 and 6 of a 13 sentence section: 2..11 survive
	var want []string
	for _, s := range added[2:12] {
		want = append(want, core.StripMarkup(s.Text))
	}
	assert.Equal(t, strings.Join(want, " "), answer.Text)
	assert.Equal(t, added[0].Id+2, added[2].Id)
}

func TestEngine_SectionStoredInTwoBatches(t *testing.T) {
	f := newFixture(t)
	balancing := []string{"Networking", "Load Balancing"}
	heading, first := f.section(t, balancing, mention("The load balancer accepts traffic.", "load balancer"))
	billing, _ := f.section(t, []string{"Billing"},
		mention("Invoices are sent monthly."),
		mention("Refunds take a week."),
	)
	again, second := f.section(t, balancing, mention("Drain the load balancer before upgrades.", "load balancer"))
	require.Equal(t, heading.Id, again.Id)
	require.Greater(t, second[0].Id, first[0].Id+1, "billing sentences sit between the two batches")

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)

	q := question(annotator, "How does the load balancer work?", []string{"load balancer"})
	answers, err := engine.Answer(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, answers, 1)

	answer := answers[0]
	assert.Equal(t, heading.Id, answer.HeadingId)
	assert.NotEqual(t, billing.Id, answer.HeadingId)
	assert.Equal(t, "The load balancer accepts traffic. Drain the load balancer before upgrades.", answer.Text)
	assert.NotContains(t, answer.Text, "Invoices")
	assert.NotContains(t, answer.Text, "Refunds")
}

func TestEngine_SectionIngestedTwice(t *testing.T) {
	f := newFixture(t)
	lines := []line{
		mention("The gateway routes requests.", "gateway"),
		mention("Routes are reloaded every minute."),
	}
	heading, first := f.section(t, []string{"Gateway", "Routing"}, lines...)
	f.section(t, []string{"Billing"}, mention("Invoices are sent monthly."))
	_, second := f.section(t, []string{"Gateway", "Routing"}, lines...)
	assert.Equal(t, ids(first), ids(second))

	count, err := f.repos.Sentences.CountSentences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)

	q := question(annotator, "Where does the gateway send requests?", []string{"gateway"})
	answers, err := engine.Answer(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, heading.Id, answers[0].HeadingId)
	assert.Equal(t, "The gateway routes requests. Routes are reloaded every minute.", answers[0].Text)
}

func TestEngine_DescendsLevels(t *testing.T) {
	f := newFixture(t)
	combined, _ := f.section(t, []string{"Gateway", "Limits"},
		mention("The gateway enforces a timeout.", "gateway", "timeout"),
	)
	spread, _ := f.section(t, []string{"Gateway", "Operations"},
		mention("Start the gateway.", "gateway"),
		mention("Wait for the timeout.", "timeout"),
	)

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	q := question(annotator, "gateway restart timeout settings", []string{"gateway restart timeout"})
	answers, err := engine.AnswerWithMonitor(context.Background(), q, monitor)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 1}, monitor.levels)
	require.Len(t, answers, 2)
	got := []core.ID{answers[0].HeadingId, answers[1].HeadingId}
	assert.ElementsMatch(t, []core.ID{combined.Id, spread.Id}, got)
	assert.Empty(t, monitor.reasons)
}

func TestEngine_StopsDescendingWhenEnoughHeadings(t *testing.T) {
	f := newFixture(t)
	f.section(t, []string{"Networking", "Pools"}, mention("Each load balancer has a pool.", "load balancer"))
	f.section(t, []string{"Networking", "Health"}, mention("The load balancer probes members.", "load balancer"))

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	q := question(annotator, "load balancer", []string{"load balancer"})
	answers, err := engine.AnswerWithMonitor(context.Background(), q, monitor)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, monitor.levels)
	assert.Len(t, answers, 2)
}

func TestEngine_Fallback(t *testing.T) {
	f := newFixture(t)
	f.section(t, []string{"Gateway"}, mention("The gateway routes requests.", "gateway"))

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("no match at any level", func(t *testing.T) {
		monitor := &recordingMonitor{}
		q := question(annotator, "What about zebra crossings?", []string{"zebra crossing"})

		for range 2 {
			answers, err := engine.AnswerWithMonitor(ctx, q, monitor)
			require.NoError(t, err)
			require.Len(t, answers, 1)
			assert.True(t, answers[0].Fallback)
			assert.Empty(t, answers[0].Heading)
			assert.Equal(t, DefaultFallbackText, answers[0].Text)
		}
		assert.Equal(t, []string{FallbackNoHeadings, FallbackNoHeadings}, monitor.reasons)
	})

	t.Run("no entities", func(t *testing.T) {
		monitor := &recordingMonitor{}
		q := question(annotator, "Why?", nil)
		answers, err := engine.AnswerWithMonitor(ctx, q, monitor)
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.True(t, answers[0].Fallback)
		assert.Equal(t, []string{FallbackNoEntities}, monitor.reasons)
	})

	t.Run("malformed annotation fails soft", func(t *testing.T) {
		malformed := mock.NewMockAnnotator()
		malformed.AnnotateFunc = func(context.Context, string) (*ai.Annotation, error) {
			return nil, ai.ErrMalformedAnnotation
		}
		engine, err := NewEngine(f.store, malformed, WithLabelAnnotator(annotator))
		require.NoError(t, err)

		answers, err := engine.Answer(ctx, "anything")
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.True(t, answers[0].Fallback)
	})

	t.Run("blank entity is malformed", func(t *testing.T) {
		monitor := &recordingMonitor{}
		q := question(annotator, "blank", []string{" "})
		answers, err := engine.AnswerWithMonitor(ctx, q, monitor)
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.Equal(t, []string{FallbackMalformed}, monitor.reasons)
	})
}

func TestEngine_Upstream(t *testing.T) {
	f := newFixture(t)
	f.section(t, []string{"Gateway"}, mention("The gateway routes requests.", "gateway"))
	ctx := context.Background()

	t.Run("annotator unreachable", func(t *testing.T) {
		annotator := mock.NewMockAnnotator()
		annotator.AnnotateFunc = func(context.Context, string) (*ai.Annotation, error) {
			return nil, errors.New("connection refused")
		}
		engine, err := NewEngine(f.store, annotator)
		require.NoError(t, err)

		answers, err := engine.Answer(ctx, "gateway")
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		assert.Nil(t, answers)
	})

	t.Run("store unreachable", func(t *testing.T) {
		store := &stubStore{
			KnowledgeStore: f.store,
			findEntities: func(context.Context, storage.EntityQuery) ([]core.ID, error) {
				return nil, storage.ErrStorageClosed
			},
		}
		engine, err := NewEngine(store, mock.NewMockAnnotator())
		require.NoError(t, err)

		_, err = engine.Answer(ctx, "gateway")
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
	})

	t.Run("occurrence lookup failure", func(t *testing.T) {
		store := &stubStore{
			KnowledgeStore: f.store,
			occurrences: func(context.Context, ...core.ID) ([]core.Occurrence, error) {
				return nil, errors.New("io error")
			},
		}
		engine, err := NewEngine(store, mock.NewMockAnnotator())
		require.NoError(t, err)

		_, err = engine.Answer(ctx, "gateway")
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		annotator := mock.NewMockAnnotator()
		annotator.AnnotateFunc = func(ctx context.Context, _ string) (*ai.Annotation, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		engine, err := NewEngine(f.store, annotator, WithConfig(NewConfig(WithTimeout(10*time.Millisecond))))
		require.NoError(t, err)

		_, err = engine.Answer(ctx, "gateway")
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("one deadline covers the whole question", func(t *testing.T) {
		var deadlines []time.Time
		record := func(ctx context.Context) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			deadlines = append(deadlines, deadline)
		}

		annotator := mock.NewMockAnnotator()
		annotator.AnnotateFunc = func(ctx context.Context, text string) (*ai.Annotation, error) {
			record(ctx)
			time.Sleep(5 * time.Millisecond)
			return &ai.Annotation{Entities: []string{"gateway"}}, nil
		}
		store := &stubStore{
			KnowledgeStore: f.store,
			findEntities: func(ctx context.Context, query storage.EntityQuery) ([]core.ID, error) {
				record(ctx)
				return f.store.FindEntities(ctx, query)
			},
		}
		engine, err := NewEngine(store, annotator, WithConfig(NewConfig(WithTimeout(time.Minute))))
		require.NoError(t, err)

		_, err = engine.Answer(ctx, "gateway")
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(deadlines), 2)
		for _, deadline := range deadlines[1:] {
			assert.Equal(t, deadlines[0], deadline)
		}
	})
}

func TestEngine_Determinism(t *testing.T) {
	f := newFixture(t)
	f.section(t, []string{"Security", "Tokens"},
		mention("An access token expires.", "access token"),
		mention("Refresh the token before expiry.", "token"),
	)
	f.section(t, []string{"Security", "Access Tokens", "Rotation"},
		mention("Rotate every access token daily.", "access token"),
	)
	f.section(t, []string{"Gateway"}, mention("The gateway validates each token.", "gateway", "token"))

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)
	ctx := context.Background()

	q := question(annotator, "How do I rotate an access token?", []string{"access token"})
	first, err := engine.Answer(ctx, q)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	for range 3 {
		again, err := engine.Answer(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	for i := 1; i < len(first); i++ {
		assert.LessOrEqual(t, first[i-1].Tier, first[i].Tier, "tier order")
		if first[i-1].Tier == first[i].Tier {
			assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
		}
	}
}

func TestEngine_EnoughBestStopsScoring(t *testing.T) {
	f := newFixture(t)
	for _, label := range []string{"Alpha", "Beta", "Gamma"} {
		f.section(t, []string{"Gateway", label}, mention("The gateway is here.", "gateway"))
	}

	annotator := mock.NewMockAnnotator()
	cfg := NewConfig(WithThresholds(0, 0), WithAnswerBudget(1, 1))
	engine, err := NewEngine(f.store, annotator, WithConfig(cfg))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	q := question(annotator, "gateway", []string{"gateway"})
	answers, err := engine.AnswerWithMonitor(context.Background(), q, monitor)
	require.NoError(t, err)

	assert.Len(t, monitor.scored, 1)
	require.Len(t, answers, 1)
	assert.Equal(t, core.TierBest, answers[0].Tier)
}

func TestEngine_Monitors(t *testing.T) {
	f := newFixture(t)
	f.section(t, []string{"Gateway"}, mention("The gateway routes requests.", "gateway"))

	annotator := mock.NewMockAnnotator()
	engine, err := NewEngine(f.store, annotator)
	require.NoError(t, err)
	ctx := context.Background()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := NewPrometheusMonitor(prometheus.NewRegistry())
	monitor := Monitors(NewLogMonitor(logger), metrics, nil)

	_, err = engine.AnswerWithMonitor(ctx, question(annotator, "gateway routes", []string{"gateway"}), monitor)
	require.NoError(t, err)
	_, err = engine.AnswerWithMonitor(ctx, question(annotator, "zebra", []string{"zebra"}), monitor)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Questions))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Fallbacks.WithLabelValues(FallbackNoHeadings)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Answers))

	output := buf.String()
	assert.Contains(t, output, "entities resolved")
	assert.Contains(t, output, "heading scored")
	assert.Contains(t, output, "no answer found")
}
