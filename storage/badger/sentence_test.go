package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addSection(t *testing.T, repos *Repositories, labels []string, texts ...string) (*core.Heading, []*core.Sentence) {
	t.Helper()
	ctx := context.Background()

	heading, err := repos.Headings.AddHeadingPath(ctx, labels...)
	require.NoError(t, err)

	sentences := make([]*core.Sentence, len(texts))
	for i, text := range texts {
		sentences[i] = &core.Sentence{HeadingId: heading.Id, Text: text}
	}
	added, err := repos.Sentences.AddSentences(ctx, sentences...)
	require.NoError(t, err)
	return heading, added
}

func TestSentenceRepository_AddSentences(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	_, added := addSection(t, repos, []string{"Gateway"}, "One.", "Two.", "Three.")
	require.Len(t, added, 3)

	t.Run("ids are consecutive", func(t *testing.T) {
		assert.Equal(t, added[0].Id+1, added[1].Id)
		assert.Equal(t, added[1].Id+1, added[2].Id)
		assert.False(t, added[0].InsertedAt.IsZero())
	})

	t.Run("get preserves requested order", func(t *testing.T) {
		got, err := repos.Sentences.GetSentences(ctx, added[2].Id, added[0].Id, core.ID(9999))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Three.", got[0].Text)
		assert.Equal(t, "One.", got[1].Text)
	})

	t.Run("invalid sentence rejects the batch", func(t *testing.T) {
		_, err := repos.Sentences.AddSentences(ctx, &core.Sentence{HeadingId: core.RootHeadingID, Text: "Orphan."})
		assert.ErrorIs(t, err, core.ErrRootHeading)

		count, err := repos.Sentences.CountSentences(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestSentenceRepository_SentenceIDs(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	first, a := addSection(t, repos, []string{"Gateway", "Install"}, "A.", "B.", "C.")
	second, b := addSection(t, repos, []string{"Gateway", "Upgrade"}, "D.", "E.")

	section, err := repos.Sentences.SentenceIDs(ctx, first.Id)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{a[0].Id, a[1].Id, a[2].Id}, section)

	section, err = repos.Sentences.SentenceIDs(ctx, second.Id)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{b[0].Id, b[1].Id}, section)

	_, err = repos.Sentences.SentenceIDs(ctx, first.ParentId)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	t.Run("heading stored in two batches", func(t *testing.T) {
		_, more := addSection(t, repos, []string{"Gateway", "Install"}, "F.", "G.")

		section, err := repos.Sentences.SentenceIDs(ctx, first.Id)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{a[0].Id, a[1].Id, a[2].Id, more[0].Id, more[1].Id}, section)
		assert.NotContains(t, section, b[0].Id, "ids of the heading in between belong to it alone")
	})
}

func TestSentenceRepository_AddSentencesDeduplicates(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	heading, added := addSection(t, repos, []string{"Billing"}, "Invoices are monthly.", "Refunds take a week.")
	other, err := repos.Headings.AddHeadingPath(ctx, "Support")
	require.NoError(t, err)

	again, err := repos.Sentences.AddSentences(ctx,
		&core.Sentence{HeadingId: heading.Id, Text: "Refunds take a week."},
		&core.Sentence{HeadingId: heading.Id, Text: "[Invoices(@E)] are monthly."},
		&core.Sentence{HeadingId: heading.Id, Text: "Taxes are included."},
		&core.Sentence{HeadingId: heading.Id, Text: "Taxes are included."},
		&core.Sentence{HeadingId: other.Id, Text: "Refunds take a week."},
	)
	require.NoError(t, err)
	require.Len(t, again, 5)

	t.Run("same text under the same heading returns the stored record", func(t *testing.T) {
		assert.Equal(t, added[1].Id, again[0].Id)
		assert.Equal(t, "Refunds take a week.", again[0].Text)
		assert.Equal(t, added[0].Id, again[1].Id, "entity markup does not make a sentence new")
		assert.Equal(t, "Invoices are monthly.", again[1].Text)
	})

	t.Run("repeats within one batch are stored once", func(t *testing.T) {
		assert.Equal(t, again[2].Id, again[3].Id)
		assert.Greater(t, again[2].Id, added[1].Id)
	})

	t.Run("other headings may repeat the text", func(t *testing.T) {
		assert.NotEqual(t, added[1].Id, again[4].Id)
		assert.Equal(t, other.Id, again[4].HeadingId)
	})

	count, err := repos.Sentences.CountSentences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	section, err := repos.Sentences.SentenceIDs(ctx, heading.Id)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{added[0].Id, added[1].Id, again[2].Id}, section)
}

func TestSentenceRepository_Occurrences(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	gateway := core.EntityIDFor("gateway")
	token := core.EntityIDFor("token")

	heading, err := repos.Headings.AddHeadingPath(ctx, "Gateway")
	require.NoError(t, err)
	added, err := repos.Sentences.AddSentences(ctx,
		&core.Sentence{HeadingId: heading.Id, Text: "The gateway and the gateway.", EntityIds: []core.ID{gateway, gateway}},
		&core.Sentence{HeadingId: heading.Id, Text: "The token.", EntityIds: []core.ID{token}},
	)
	require.NoError(t, err)

	occurrences, err := repos.Sentences.Occurrences(ctx, gateway, token, gateway)
	require.NoError(t, err)
	require.Len(t, occurrences, 3, "duplicate mentions are kept, duplicate query ids are not")

	assert.Equal(t, core.Occurrence{SentenceId: added[0].Id, HeadingId: heading.Id, EntityId: gateway}, occurrences[0])
	assert.Equal(t, core.Occurrence{SentenceId: added[0].Id, HeadingId: heading.Id, EntityId: gateway}, occurrences[1])
	assert.Equal(t, core.Occurrence{SentenceId: added[1].Id, HeadingId: heading.Id, EntityId: token}, occurrences[2])

	none, err := repos.Sentences.Occurrences(ctx, core.EntityIDFor("absent"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSentenceRepository_ForEachSentence(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	_, added := addSection(t, repos, []string{"Gateway"}, "1.", "2.", "3.", "4.", "5.")

	t.Run("batches in order", func(t *testing.T) {
		var sizes []int
		var ids []core.ID
		err := repos.Sentences.ForEachSentence(ctx, 0, 2, func(batch []*core.Sentence) error {
			sizes = append(sizes, len(batch))
			for _, s := range batch {
				ids = append(ids, s.Id)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2, 1}, sizes)
		assert.Len(t, ids, 5)
		assert.IsIncreasing(t, ids)
	})

	t.Run("resumes after id", func(t *testing.T) {
		var ids []core.ID
		err := repos.Sentences.ForEachSentence(ctx, added[2].Id, 10, func(batch []*core.Sentence) error {
			for _, s := range batch {
				ids = append(ids, s.Id)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []core.ID{added[3].Id, added[4].Id}, ids)
	})

	t.Run("callback error stops iteration", func(t *testing.T) {
		sentinel := errors.New("stop")
		calls := 0
		err := repos.Sentences.ForEachSentence(ctx, 0, 1, func(batch []*core.Sentence) error {
			calls++
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid batch size", func(t *testing.T) {
		err := repos.Sentences.ForEachSentence(ctx, 0, 0, func([]*core.Sentence) error { return nil })
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}
