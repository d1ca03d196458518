package badger

import (
	"encoding/binary"

	"github.com/poiesic/kbqa/core"
)

// Key prefixes for different data types.
// Every prefix ends with ':' so no prefix is a prefix of another.
const (
	entityPrefix          = "ent:"
	entityTextPrefix      = "entx:"
	headingPrefix         = "hdg:"
	headingChildPrefix    = "hdgc:"
	headingIDSeq          = "seq:hdg"
	sentencePrefix        = "snt:"
	sentenceHeadingPrefix = "snth:"
	sentenceTextPrefix    = "sntx:"
	sentenceIDSeq         = "seq:snt"
	occurrencePrefix      = "occ:"
	framePrefix           = "frm:"
	checkpointPrefix      = "chkpt:"
)

// appendID writes id in BigEndian order so lexicographic sort matches numeric order.
func appendID(buf []byte, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return appendID([]byte(entityPrefix), id)
}

// makeEntityTextKey generates the exact-text index key for an entity.
func makeEntityTextKey(text string) []byte {
	return append([]byte(entityTextPrefix), text...)
}

// makeHeadingKey generates a key for a heading by ID.
func makeHeadingKey(id core.ID) []byte {
	return appendID([]byte(headingPrefix), id)
}

// makeHeadingChildKey generates the (parent, label) index key.
// Format: prefix:parentID:label
func makeHeadingChildKey(parentID core.ID, label string) []byte {
	buf := appendID([]byte(headingChildPrefix), parentID)
	return append(buf, label...)
}

// makeSentenceKey generates a key for a sentence by ID.
func makeSentenceKey(id core.ID) []byte {
	return appendID([]byte(sentencePrefix), id)
}

// makeSentenceHeadingKey generates a composite key for the heading index.
// Format: prefix:headingID:sentenceID
func makeSentenceHeadingKey(headingID, sentenceID core.ID) []byte {
	buf := appendID([]byte(sentenceHeadingPrefix), headingID)
	return appendID(buf, sentenceID)
}

// makeSentenceTextKey generates the (heading, plain text) uniqueness key.
// Format: prefix:headingID:text
func makeSentenceTextKey(headingID core.ID, text string) []byte {
	buf := appendID([]byte(sentenceTextPrefix), headingID)
	return append(buf, text...)
}

// decodeTrailingID reads the ID stored in the last eight bytes of a composite key.
func decodeTrailingID(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// makePartialSentenceHeadingKey generates a partial key for heading range queries.
func makePartialSentenceHeadingKey(headingID core.ID) []byte {
	return appendID([]byte(sentenceHeadingPrefix), headingID)
}

// makeOccurrenceKey generates a composite key for the occurrence index.
// Format: prefix:entityID:sentenceID:ordinal
// The ordinal keeps repeated mentions of an entity in one sentence distinct.
func makeOccurrenceKey(entityID, sentenceID core.ID, ordinal uint32) []byte {
	buf := appendID([]byte(occurrencePrefix), entityID)
	buf = appendID(buf, sentenceID)
	return binary.BigEndian.AppendUint32(buf, ordinal)
}

// makePartialOccurrenceKey generates a partial key for entity queries.
func makePartialOccurrenceKey(entityID core.ID) []byte {
	return appendID([]byte(occurrencePrefix), entityID)
}

// parseOccurrenceKey extracts the sentence ID from an occurrence key.
func parseOccurrenceKey(key []byte) (sentenceID core.ID, ok bool) {
	offset := len(occurrencePrefix) + 8
	if len(key) < offset+8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[offset:])), true
}

// makeFrameKey generates a composite key for the frame index.
// Format: prefix:name\x00sentenceID
func makeFrameKey(name string, sentenceID core.ID) []byte {
	return appendID(makePartialFrameKey(name), sentenceID)
}

// makePartialFrameKey generates the key prefix shared by all sentences of a frame.
func makePartialFrameKey(name string) []byte {
	buf := append([]byte(framePrefix), name...)
	return append(buf, 0)
}

// parseFrameKey splits a frame key into its name and sentence ID.
func parseFrameKey(key []byte) (name string, sentenceID core.ID, ok bool) {
	rest := key[len(framePrefix):]
	if len(rest) < 9 || rest[len(rest)-9] != 0 {
		return "", 0, false
	}
	return string(rest[:len(rest)-9]), core.ID(binary.BigEndian.Uint64(rest[len(rest)-8:])), true
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return append([]byte(checkpointPrefix), processorType...)
}

// hasPrefix checks if a byte slice has a given prefix
func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}
