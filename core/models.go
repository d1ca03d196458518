package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

const (
	// RootHeadingID identifies the sentinel heading every document hangs from.
	// Heading sequences never hand out this value.
	RootHeadingID ID = 0

	// RootHeadingLabel is the label stored for the sentinel heading.
	RootHeadingLabel = "ROOT"
)

// Entity is a normalized noun phrase extracted from the corpus.
// Text is lowercase and singular; Id is derived from Text.
type Entity struct {
	Id   ID
	Text string
}

// EntityIDFor returns the identifier an entity with the given normalized text receives.
func EntityIDFor(text string) ID {
	return IDFromContent("entity:" + text)
}

// Heading is a node of the document section tree.
type Heading struct {
	Id       ID
	ParentId ID
	Label    string
	Depth    int // ROOT has depth 0, top-level headings depth 1
}

// IsRoot reports whether h is the sentinel ROOT heading.
func (h *Heading) IsRoot() bool {
	return h.Id == RootHeadingID
}

// Sentence is one stored sentence of the corpus.
type Sentence struct {
	Id          ID
	HeadingId   ID
	Text        string    // Original text with inline entity markup
	Annotations string    // Space-separated token__POS pairs
	EntityIds   []ID      // One entry per occurrence, duplicates allowed
	InsertedAt  time.Time // When the sentence was written to the store
}

// Occurrence records that an entity appears in a sentence under a heading.
type Occurrence struct {
	SentenceId ID
	HeadingId  ID
	EntityId   ID
}

// Frame is a semantic frame label with the sentences evoking it.
type Frame struct {
	Name        string
	SentenceIds []ID
}

// HeadingRef is one element of a heading path.
type HeadingRef struct {
	Id    ID
	Label string
}

// HeadingPath is the ordered chain of headings from a heading up to, but
// excluding, ROOT. Element 0 is the heading itself.
type HeadingPath []HeadingRef

// BreadcrumbSeparator joins labels in rendered breadcrumbs.
const BreadcrumbSeparator = " > "

// Breadcrumb renders the labels from the topmost ancestor down to the heading.
func (p HeadingPath) Breadcrumb() string {
	return p.BreadcrumbFrom(0)
}

// BreadcrumbFrom renders the breadcrumb of the i-th element of the path,
// i.e. the labels from the topmost ancestor down to p[i].
func (p HeadingPath) BreadcrumbFrom(i int) string {
	if i < 0 || i >= len(p) {
		return ""
	}
	labels := make([]string, 0, len(p)-i)
	for j := len(p) - 1; j >= i; j-- {
		labels = append(labels, p[j].Label)
	}
	return strings.Join(labels, BreadcrumbSeparator)
}

// Tier is the confidence band an answer falls in.
type Tier int

const (
	// TierBest holds headings scoring at or above the high acceptance threshold.
	TierBest Tier = iota + 1
	// TierGood holds headings between the low and high thresholds.
	TierGood
	// TierIndirect holds everything else.
	TierIndirect
)

func (t Tier) String() string {
	switch t {
	case TierBest:
		return "best"
	case TierGood:
		return "good"
	case TierIndirect:
		return "indirect"
	default:
		return "none"
	}
}

// Answer is one ranked section returned for a question.
type Answer struct {
	HeadingId ID
	Heading   string // Breadcrumb of the heading, empty for the fallback
	Reference string
	Score     float64
	Tier      Tier
	Text      string
	Fallback  bool // True for the single "no answer" record
}

// Checkpoint tracks the progress of an offline processor.
type Checkpoint struct {
	ProcessorType string
	LastId        ID
	UpdatedAt     time.Time
}
