package badger

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// FrameRepository implements storage.FrameRepository for BadgerDB.
// The index is a set of frame:sentence keys with empty values.
type FrameRepository struct {
	backend *Backend
}

var _ storage.FrameRepository = (*FrameRepository)(nil)

// NewFrameRepository creates a new FrameRepository.
func NewFrameRepository(backend *Backend) (*FrameRepository, error) {
	return &FrameRepository{
		backend: backend,
	}, nil
}

// Close releases resources. FrameRepository has no resources to release.
func (r *FrameRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *FrameRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AppendFrames adds the sentence to each named frame. Re-appending is a no-op.
func (r *FrameRepository) AppendFrames(ctx context.Context, sentenceID core.ID, frames ...string) error {
	if len(frames) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, name := range frames {
			name = strings.TrimSpace(name)
			if name == "" || strings.ContainsRune(name, 0) {
				continue
			}
			if err := tx.Set(makeFrameKey(name, sentenceID), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FramesMatching collects the sentence ids of each named frame. Frames with
// no sentences are absent from the result.
func (r *FrameRepository) FramesMatching(ctx context.Context, names ...string) (map[string][]core.ID, error) {
	result := make(map[string][]core.ID, len(names))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, name := range names {
			if _, done := result[name]; done {
				continue
			}

			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = makePartialFrameKey(name)
			iter := tx.NewIterator(opts)

			var ids []core.ID
			for iter.Rewind(); iter.Valid(); iter.Next() {
				ids = append(ids, decodeTrailingID(iter.Item().Key()))
			}
			iter.Close()

			if len(ids) > 0 {
				result[name] = ids
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FrameNames lists the distinct frame labels in lexical order.
func (r *FrameRepository) FrameNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(framePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			name, _, ok := parseFrameKey(iter.Item().Key())
			if !ok {
				continue
			}
			if len(names) == 0 || names[len(names)-1] != name {
				names = append(names, name)
			}
		}
		return nil
	}, false)
	return names, err
}
