package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
	"github.com/poiesic/kbqa/storage/badger"
	"github.com/stretchr/testify/require"
)

// fixture is a small in-memory knowledge base.
type fixture struct {
	repos *badger.Repositories
	store storage.KnowledgeStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return &fixture{repos: repos, store: repos.KnowledgeStore()}
}

// line is one fixture sentence and the normalized entities it mentions.
type line struct {
	text     string
	entities []string
}

func mention(text string, entities ...string) line {
	return line{text: text, entities: entities}
}

func filler(n int) []line {
	lines := make([]line, n)
	for i := range lines {
		lines[i] = line{text: fmt.Sprintf("Nothing to see here, part %d.", i+1)}
	}
	return lines
}

// section stores a heading path with its sentences, in order.
func (f *fixture) section(t *testing.T, labels []string, lines ...line) (*core.Heading, []*core.Sentence) {
	t.Helper()
	ctx := context.Background()

	heading, err := f.repos.Headings.AddHeadingPath(ctx, labels...)
	require.NoError(t, err)

	sentences := make([]*core.Sentence, len(lines))
	for i, l := range lines {
		sentence := &core.Sentence{HeadingId: heading.Id, Text: core.MarkEntities(l.text, l.entities)}
		if len(l.entities) > 0 {
			_, err := f.repos.Entities.AddEntities(ctx, l.entities...)
			require.NoError(t, err)
			for _, entity := range l.entities {
				sentence.EntityIds = append(sentence.EntityIds, core.EntityIDFor(entity))
			}
		}
		sentences[i] = sentence
	}

	added, err := f.repos.Sentences.AddSentences(ctx, sentences...)
	require.NoError(t, err)
	return heading, added
}

// stubStore overrides selected KnowledgeStore calls.
type stubStore struct {
	storage.KnowledgeStore
	findEntities func(ctx context.Context, query storage.EntityQuery) ([]core.ID, error)
	occurrences  func(ctx context.Context, ids ...core.ID) ([]core.Occurrence, error)
}

func (s *stubStore) FindEntities(ctx context.Context, query storage.EntityQuery) ([]core.ID, error) {
	if s.findEntities != nil {
		return s.findEntities(ctx, query)
	}
	return s.KnowledgeStore.FindEntities(ctx, query)
}

func (s *stubStore) Occurrences(ctx context.Context, ids ...core.ID) ([]core.Occurrence, error) {
	if s.occurrences != nil {
		return s.occurrences(ctx, ids...)
	}
	return s.KnowledgeStore.Occurrences(ctx, ids...)
}

func ids(sentences []*core.Sentence) []core.ID {
	out := make([]core.ID, len(sentences))
	for i, s := range sentences {
		out[i] = s.Id
	}
	return out
}
