package storage

import (
	"testing"
	"time"

	"github.com/poiesic/kbqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalSentence(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name     string
		sentence *core.Sentence
	}{
		{
			name: "minimal sentence",
			sentence: &core.Sentence{
				Id:         1,
				HeadingId:  2,
				Text:       "Hello.",
				InsertedAt: now,
			},
		},
		{
			name: "sentence with occurrences",
			sentence: &core.Sentence{
				Id:          5,
				HeadingId:   2,
				Text:        "The [token(@E)] expires.",
				Annotations: "The__DT token__NN expires__VBZ .__.",
				EntityIds:   []core.ID{core.EntityIDFor("token")},
				InsertedAt:  now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalSentence(MarshalSentence(tt.sentence))
			require.NoError(t, err)
			assert.Equal(t, tt.sentence, decoded)
		})
	}
}

func TestMarshalUnmarshalEntityAndHeading(t *testing.T) {
	entity := &core.Entity{Id: core.EntityIDFor("api key"), Text: "api key"}
	decodedEntity, err := UnmarshalEntity(MarshalEntity(entity))
	require.NoError(t, err)
	assert.Equal(t, entity, decodedEntity)

	heading := &core.Heading{Id: 3, ParentId: 1, Label: "Revoking keys", Depth: 2}
	decodedHeading, err := UnmarshalHeading(MarshalHeading(heading))
	require.NoError(t, err)
	assert.Equal(t, heading, decodedHeading)
}

func TestMarshalUnmarshalCheckpoint(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	checkpoint := &core.Checkpoint{ProcessorType: "frames", LastId: 99, UpdatedAt: now}

	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(checkpoint))
	require.NoError(t, err)
	assert.Equal(t, checkpoint, decoded)
}

func TestUnmarshalSentence_Truncated(t *testing.T) {
	data := MarshalSentence(&core.Sentence{Id: 1, HeadingId: 2, Text: "A longer sentence body."})
	_, err := UnmarshalSentence(data[:4])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestEntityQuery_Validate(t *testing.T) {
	valid := EntityQuery{Text: "token", MaxLength: 50, EditTolerance: 2, InsertCost: 1, DeleteCost: 1, SubstituteCost: 2, Limit: 3}
	assert.NoError(t, valid.Validate())

	empty := valid
	empty.Text = ""
	assert.ErrorIs(t, empty.Validate(), ErrInvalidQuery)

	noLimit := valid
	noLimit.Limit = 0
	assert.ErrorIs(t, noLimit.Validate(), ErrInvalidQuery)

	freeEdits := valid
	freeEdits.SubstituteCost = 0
	assert.ErrorIs(t, freeEdits.Validate(), ErrInvalidQuery)
}
