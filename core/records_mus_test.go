package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceMUS_RoundTrip(t *testing.T) {
	sentence := Sentence{
		Id:          42,
		HeadingId:   7,
		Text:        "Restart the [gateway(@E)].",
		Annotations: "Restart__VB the__DT gateway__NN .__.",
		EntityIds:   []ID{EntityIDFor("gateway"), EntityIDFor("gateway")},
		InsertedAt:  time.UnixMicro(1_700_000_000_000_000).UTC(),
	}

	buf := make([]byte, SentenceMUS.Size(sentence))
	n := SentenceMUS.Marshal(sentence, buf)
	require.Equal(t, len(buf), n)

	decoded, read, err := SentenceMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, n, read)
	assert.Equal(t, sentence, decoded)
}

func TestSentenceMUS_ZeroValues(t *testing.T) {
	sentence := Sentence{Id: 1, HeadingId: 2, Text: "x"}

	buf := make([]byte, SentenceMUS.Size(sentence))
	SentenceMUS.Marshal(sentence, buf)

	decoded, _, err := SentenceMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Nil(t, decoded.EntityIds)
	assert.True(t, decoded.InsertedAt.IsZero())
}

func TestHeadingMUS_RoundTrip(t *testing.T) {
	heading := Heading{Id: 9, ParentId: 3, Label: "Token Revocation", Depth: 3}

	buf := make([]byte, HeadingMUS.Size(heading))
	HeadingMUS.Marshal(heading, buf)

	decoded, _, err := HeadingMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, heading, decoded)
}

func TestIDSliceMUS_RejectsImpossibleLength(t *testing.T) {
	buf := make([]byte, 8)
	n := idSliceMUS.Marshal([]ID{1, 2, 3}, buf)

	_, _, err := idSliceMUS.Unmarshal(buf[:1])
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.Equal(t, 4, n)
}
