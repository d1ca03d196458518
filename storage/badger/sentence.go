package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// SentenceRepository implements storage.SentenceRepository for BadgerDB.
type SentenceRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	mu      sync.Mutex // keeps the ids of one batch contiguous
}

var _ storage.SentenceRepository = (*SentenceRepository)(nil)

// NewSentenceRepository creates a new SentenceRepository.
func NewSentenceRepository(backend *Backend) (*SentenceRepository, error) {
	idSeq, err := backend.GetSequence(sentenceIDSeq)
	if err != nil {
		return nil, err
	}
	return &SentenceRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *SentenceRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *SentenceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSentences stores sentences in the order given. Ids are drawn from the
// sentence sequence while holding the repository lock, so the new sentences
// of one call receive consecutive ids. A sentence whose heading already
// holds the same plain text keeps its stored record, which is returned in
// place of the duplicate.
func (r *SentenceRepository) AddSentences(ctx context.Context, sentences ...*core.Sentence) ([]*core.Sentence, error) {
	for _, sentence := range sentences {
		if err := core.ValidateSentence(sentence); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]*core.Sentence, len(sentences))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for i, sentence := range sentences {
			textKey := makeSentenceTextKey(sentence.HeadingId, core.StripMarkup(sentence.Text))
			existing, err := readSentenceByText(tx, textKey)
			if err != nil {
				return err
			}
			if existing != nil {
				stored[i] = existing
				continue
			}

			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			sentence.Id = core.ID(id)
			sentence.InsertedAt = now

			// Store primary record
			if err := tx.Set(makeSentenceKey(sentence.Id), storage.MarshalSentence(sentence)); err != nil {
				return err
			}

			// Update heading and text indexes
			if err := tx.Set(makeSentenceHeadingKey(sentence.HeadingId, sentence.Id), nil); err != nil {
				return err
			}
			if err := tx.Set(textKey, storage.MarshalID(sentence.Id)); err != nil {
				return err
			}

			// Update occurrence index
			headingValue := storage.MarshalID(sentence.HeadingId)
			for ordinal, entityID := range sentence.EntityIds {
				key := makeOccurrenceKey(entityID, sentence.Id, uint32(ordinal))
				if err := tx.Set(key, headingValue); err != nil {
					return err
				}
			}
			stored[i] = sentence
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetSentences retrieves sentences in the order of ids.
func (r *SentenceRepository) GetSentences(ctx context.Context, ids ...core.ID) ([]*core.Sentence, error) {
	result := make([]*core.Sentence, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			sentence, err := readSentence(tx, makeSentenceKey(id))
			if err != nil {
				return err
			}
			if sentence != nil {
				result = append(result, sentence)
			}
		}
		return nil
	}, false)
	return result, err
}

// SentenceIDs scans the heading index for the ids stored under a heading.
func (r *SentenceRepository) SentenceIDs(ctx context.Context, headingID core.ID) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialSentenceHeadingKey(headingID)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) != len(prefix)+8 {
				continue
			}
			ids = append(ids, decodeTrailingID(key))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no sentences under heading %d", storage.ErrNotFound, headingID)
	}
	return ids, nil
}

// Occurrences returns the occurrences of each distinct entity, ordered by
// entity as given and then by sentence.
func (r *SentenceRepository) Occurrences(ctx context.Context, entityIDs ...core.ID) ([]core.Occurrence, error) {
	var result []core.Occurrence
	seen := make(map[core.ID]bool, len(entityIDs))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entityID := range entityIDs {
			if seen[entityID] {
				continue
			}
			seen[entityID] = true

			opts := badger.DefaultIteratorOptions
			opts.Prefix = makePartialOccurrenceKey(entityID)
			iter := tx.NewIterator(opts)

			for iter.Rewind(); iter.Valid(); iter.Next() {
				item := iter.Item()
				sentenceID, ok := parseOccurrenceKey(item.Key())
				if !ok {
					continue
				}
				var headingID core.ID
				err := item.Value(func(val []byte) error {
					var err error
					headingID, err = storage.UnmarshalID(val)
					return err
				})
				if err != nil {
					iter.Close()
					return err
				}
				result = append(result, core.Occurrence{
					SentenceId: sentenceID,
					HeadingId:  headingID,
					EntityId:   entityID,
				})
			}
			iter.Close()
		}
		return nil
	}, false)
	return result, err
}

// ForEachSentence visits sentences after afterID in ascending id order. Each
// batch is read in its own transaction and handed to fn outside of it.
func (r *SentenceRepository) ForEachSentence(ctx context.Context, afterID core.ID, batchSize int, fn func([]*core.Sentence) error) error {
	if batchSize < 1 {
		return storage.ErrInvalidQuery
	}

	cursor := afterID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := r.readBatch(cursor, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		cursor = batch[len(batch)-1].Id
		if len(batch) < batchSize {
			return nil
		}
	}
}

func (r *SentenceRepository) readBatch(afterID core.ID, batchSize int) ([]*core.Sentence, error) {
	batch := make([]*core.Sentence, 0, batchSize)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sentencePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeSentenceKey(afterID + 1)); iter.Valid() && len(batch) < batchSize; iter.Next() {
			var sentence *core.Sentence
			err := iter.Item().Value(func(val []byte) error {
				var err error
				sentence, err = storage.UnmarshalSentence(val)
				return err
			})
			if err != nil {
				return err
			}
			batch = append(batch, sentence)
		}
		return nil
	}, false)
	return batch, err
}

// CountSentences returns the number of stored sentences.
func (r *SentenceRepository) CountSentences(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(sentencePrefix))
}

// readSentenceByText follows the text index to the stored sentence, if any.
func readSentenceByText(tx *badger.Txn, textKey []byte) (*core.Sentence, error) {
	item, err := tx.Get(textKey)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var id core.ID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return readSentence(tx, makeSentenceKey(id))
}

// readSentence reads a sentence from the transaction.
func readSentence(tx *badger.Txn, key []byte) (*core.Sentence, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var sentence *core.Sentence
	err = item.Value(func(val []byte) error {
		var err error
		sentence, err = storage.UnmarshalSentence(val)
		return err
	})
	return sentence, err
}
