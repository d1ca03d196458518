// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"context"

	"github.com/poiesic/kbqa/core"
)

// EntityQuery describes an approximate entity lookup.
//
// A stored entity matches when it begins or ends with Text and its length
// lies within [len(Text), MaxLength], or when its weighted edit distance to
// Text is at most EditTolerance. Matches are ordered by stored length
// ascending, then edit distance ascending, then id, and capped to Limit.
type EntityQuery struct {
	Text           string
	MaxLength      int
	EditTolerance  int
	InsertCost     int
	DeleteCost     int
	SubstituteCost int
	Limit          int
}

// Validate checks that the query parameters are usable.
func (q EntityQuery) Validate() error {
	if q.Text == "" {
		return ErrInvalidQuery
	}
	if q.MaxLength < 1 || q.Limit < 1 || q.EditTolerance < 0 {
		return ErrInvalidQuery
	}
	if q.InsertCost < 1 || q.DeleteCost < 1 || q.SubstituteCost < 1 {
		return ErrInvalidQuery
	}
	return nil
}

// Repository is the behavior shared by every repository.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// EntityRepository stores normalized entities.
type EntityRepository interface {
	Repository

	// AddEntities stores entities for the given normalized texts, returning
	// existing records for texts already present. Entities are append-only.
	AddEntities(ctx context.Context, texts ...string) ([]*core.Entity, error)

	// GetEntities retrieves entities by id. Missing ids are skipped.
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// FindEntityByText looks an entity up by exact normalized text.
	// Returns ErrNotFound if no entity has that text.
	FindEntityByText(ctx context.Context, text string) (*core.Entity, error)

	// FindEntities performs the approximate lookup described by query and
	// returns the matching entity ids in match order.
	FindEntities(ctx context.Context, query EntityQuery) ([]core.ID, error)

	// ForEachEntity visits every stored entity in id order.
	ForEachEntity(ctx context.Context, fn func(*core.Entity) error) error
}

// HeadingRepository stores the heading tree.
type HeadingRepository interface {
	Repository

	// AddHeadingPath ensures the chain of labels exists beneath ROOT, creating
	// missing headings, and returns the heading for the last label.
	AddHeadingPath(ctx context.Context, labels ...string) (*core.Heading, error)

	// GetHeading retrieves a heading by id. ROOT is always present.
	// Returns ErrNotFound if the heading doesn't exist.
	GetHeading(ctx context.Context, id core.ID) (*core.Heading, error)

	// AncestorPath returns the path from the heading up to, but excluding, ROOT.
	// Returns core.ErrInconsistentHeadingTree if the parent chain does not reach ROOT.
	AncestorPath(ctx context.Context, id core.ID) (core.HeadingPath, error)

	// VerifyTree walks every heading and fails with
	// core.ErrInconsistentHeadingTree if any chain does not terminate at ROOT.
	VerifyTree(ctx context.Context) error

	// CountHeadings returns the number of headings excluding ROOT.
	CountHeadings(ctx context.Context) (int, error)
}

// SentenceRepository stores sentences and their entity occurrences.
type SentenceRepository interface {
	Repository

	// AddSentences stores sentences, assigning ids from a monotonically
	// increasing sequence and indexing each entity occurrence. A sentence whose
	// heading already holds the same plain text is not stored again: the
	// stored record is returned in its place.
	AddSentences(ctx context.Context, sentences ...*core.Sentence) ([]*core.Sentence, error)

	// GetSentences retrieves sentences by id, in the order requested.
	// Missing ids are skipped.
	GetSentences(ctx context.Context, ids ...core.ID) ([]*core.Sentence, error)

	// SentenceIDs returns the ids of the sentences stored under a heading in
	// ascending order. Sections ingested in several batches interleave with
	// other headings, so the ids need not be consecutive. Returns ErrNotFound
	// if the heading has no sentences.
	SentenceIDs(ctx context.Context, headingID core.ID) ([]core.ID, error)

	// Occurrences returns every occurrence of the given entities ordered by
	// entity, then sentence.
	Occurrences(ctx context.Context, entityIDs ...core.ID) ([]core.Occurrence, error)

	// ForEachSentence visits sentences with id greater than afterID in
	// ascending order, batchSize at a time.
	ForEachSentence(ctx context.Context, afterID core.ID, batchSize int, fn func([]*core.Sentence) error) error

	// CountSentences returns the number of stored sentences.
	CountSentences(ctx context.Context) (int, error)
}

// FrameRepository stores the append-only frame to sentence index.
type FrameRepository interface {
	Repository

	// AppendFrames records that a sentence evokes the named frames.
	AppendFrames(ctx context.Context, sentenceID core.ID, frames ...string) error

	// FramesMatching returns, for every named frame that exists, the ids of the
	// sentences evoking it in ascending order.
	FramesMatching(ctx context.Context, names ...string) (map[string][]core.ID, error)

	// FrameNames lists every known frame label.
	FrameNames(ctx context.Context) ([]string, error)
}

// CheckpointRepository persists offline processor checkpoints.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// ResetCheckpoint removes the checkpoint so the processor starts over.
	// Resetting a missing checkpoint is not an error.
	ResetCheckpoint(ctx context.Context, processorType string) error
}

// KnowledgeStore is the read-only query contract the answer engine is built on.
type KnowledgeStore interface {
	// FindEntities performs an approximate entity lookup.
	FindEntities(ctx context.Context, query EntityQuery) ([]core.ID, error)

	// Occurrences returns every occurrence of the given entities.
	Occurrences(ctx context.Context, entityIDs ...core.ID) ([]core.Occurrence, error)

	// AncestorPath returns the heading path from a heading up to ROOT.
	AncestorPath(ctx context.Context, headingID core.ID) (core.HeadingPath, error)

	// SentenceIDs returns the ordered sentence ids under a heading.
	SentenceIDs(ctx context.Context, headingID core.ID) ([]core.ID, error)

	// GetSentences retrieves sentences by id.
	GetSentences(ctx context.Context, ids ...core.ID) ([]*core.Sentence, error)

	// FramesMatching returns the sentences evoking each named frame.
	FramesMatching(ctx context.Context, names ...string) (map[string][]core.ID, error)
}
