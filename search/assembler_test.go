package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/kbqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerAssembler_Assemble(t *testing.T) {
	f := newFixture(t)
	heading, lines := f.section(t, []string{"Gateway", "Restarting"},
		mention("Stop the gateway first.", "gateway"),
		mention("Run the script -LRB-as root-RRB- to start it."),
		mention("Check the [legacy entity(E:legacy entity|@:12)] log."),
		mention("Unrelated trailing sentence."),
	)

	assembler, err := NewAnswerAssembler(f.store, nil)
	require.NoError(t, err)

	answer, err := assembler.Assemble(context.Background(), heading.Id,
		[]core.ID{lines[2].Id, lines[0].Id, lines[1].Id, lines[0].Id}, 0.9, core.TierBest)
	require.NoError(t, err)

	assert.Equal(t, heading.Id, answer.HeadingId)
	assert.Equal(t, "Gateway > Restarting", answer.Heading)
	assert.Equal(t, fmt.Sprintf("kb://headings/%d", heading.Id), answer.Reference)
	assert.Equal(t, 0.9, answer.Score)
	assert.Equal(t, core.TierBest, answer.Tier)
	assert.False(t, answer.Fallback)
	assert.Equal(t,
		"Stop the gateway first. Run the script (as root) to start it. Check the legacy entity log.",
		answer.Text)
}

func TestAnswerAssembler_SkipsOtherHeadings(t *testing.T) {
	f := newFixture(t)
	heading, own := f.section(t, []string{"Networking", "Load Balancing"}, mention("The load balancer accepts traffic."))
	_, foreign := f.section(t, []string{"Billing"}, mention("Invoices are sent monthly."))

	assembler, err := NewAnswerAssembler(f.store, nil)
	require.NoError(t, err)

	answer, err := assembler.Assemble(context.Background(), heading.Id,
		[]core.ID{own[0].Id, foreign[0].Id}, 0.5, core.TierGood)
	require.NoError(t, err)
	assert.Equal(t, "The load balancer accepts traffic.", answer.Text)
}

func TestAnswerAssembler_Separator(t *testing.T) {
	f := newFixture(t)
	heading, lines := f.section(t, []string{"Key Manager"},
		mention("First."),
		mention("Second."),
	)

	cfg := DefaultConfig()
	cfg.Separator = "\n"
	cfg.ReferenceFormat = "https://docs.example.com/sections/%d"
	assembler, err := NewAnswerAssembler(f.store, cfg)
	require.NoError(t, err)

	answer, err := assembler.Assemble(context.Background(), heading.Id, ids(lines), 0.1, core.TierIndirect)
	require.NoError(t, err)
	assert.Equal(t, "First.\nSecond.", answer.Text)
	assert.Equal(t, fmt.Sprintf("https://docs.example.com/sections/%d", heading.Id), answer.Reference)
}

func TestAnswerAssembler_Fallback(t *testing.T) {
	f := newFixture(t)
	assembler, err := NewAnswerAssembler(f.store, nil)
	require.NoError(t, err)

	fallback := assembler.Fallback()
	assert.True(t, fallback.Fallback)
	assert.Empty(t, fallback.Heading)
	assert.Zero(t, fallback.HeadingId)
	assert.Equal(t, DefaultFallbackText, fallback.Text)
	assert.Equal(t, fallback, assembler.Fallback())
}

func TestNewAnswerAssembler(t *testing.T) {
	_, err := NewAnswerAssembler(nil, nil)
	assert.Equal(t, ErrStoreRequired, err)

	cfg := DefaultConfig()
	cfg.ReferenceFormat = "no placeholder"
	_, err = NewAnswerAssembler(newFixture(t).store, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
