package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// CheckpointRepository stores one resume position per offline processor.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
	}
}

func checkpointKey(processorType string) ([]byte, error) {
	if strings.TrimSpace(processorType) == "" {
		return nil, fmt.Errorf("%w: empty processor type", storage.ErrInvalidQuery)
	}
	return makeCheckpointKey(processorType), nil
}

// SaveCheckpoint stamps and persists the checkpoint, replacing any previous one.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	key, err := checkpointKey(checkpoint.ProcessorType)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		checkpoint.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalCheckpoint(checkpoint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadCheckpoint returns nil, nil if the processor has never saved one.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error) {
	key, err := checkpointKey(processorType)
	if err != nil {
		return nil, err
	}

	var checkpoint *core.Checkpoint
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			checkpoint, err = storage.UnmarshalCheckpoint(val)
			return err
		})
	}, false)
	return checkpoint, err
}

// ResetCheckpoint deletes the processor's checkpoint.
func (r *CheckpointRepository) ResetCheckpoint(ctx context.Context, processorType string) error {
	key, err := checkpointKey(processorType)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
