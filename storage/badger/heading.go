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


package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// HeadingRepository implements storage.HeadingRepository for BadgerDB.
type HeadingRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	mu      sync.Mutex // serializes get-or-create of heading chains
}

var _ storage.HeadingRepository = (*HeadingRepository)(nil)

// rootHeading is synthesized on read; it is never stored.
var rootHeading = core.Heading{Id: core.RootHeadingID, ParentId: core.RootHeadingID, Label: core.RootHeadingLabel}

// NewHeadingRepository creates a new HeadingRepository.
func NewHeadingRepository(backend *Backend) (*HeadingRepository, error) {
	idSeq, err := backend.GetSequence(headingIDSeq)
	if err != nil {
		return nil, err
	}
	return &HeadingRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *HeadingRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *HeadingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddHeadingPath walks the labels from the top level down, reusing existing
// headings and creating the missing tail of the chain.
func (r *HeadingRepository) AddHeadingPath(ctx context.Context, labels ...string) (*core.Heading, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidHeading, core.ErrRootHeading)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var leaf *core.Heading
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		parent := &rootHeading
		for _, label := range labels {
			childKey := makeHeadingChildKey(parent.Id, label)
			existingID, found, err := readIDIndex(tx, childKey)
			if err != nil {
				return err
			}

			if found {
				heading, err := readHeading(tx, makeHeadingKey(existingID))
				if err != nil {
					return err
				}
				if heading == nil {
					return fmt.Errorf("%w: index points at missing heading %d", core.ErrInconsistentHeadingTree, existingID)
				}
				parent = heading
				continue
			}

			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			heading := &core.Heading{
				Id:       core.ID(id),
				ParentId: parent.Id,
				Label:    label,
				Depth:    parent.Depth + 1,
			}
			if err := core.ValidateHeading(heading); err != nil {
				return err
			}

			// Store primary record
			if err := tx.Set(makeHeadingKey(heading.Id), storage.MarshalHeading(heading)); err != nil {
				return err
			}

			// Store child index
			if err := tx.Set(childKey, storage.MarshalID(heading.Id)); err != nil {
				return err
			}
			parent = heading
		}
		leaf = parent
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return leaf, nil
}

// GetHeading retrieves a single heading by ID.
func (r *HeadingRepository) GetHeading(ctx context.Context, id core.ID) (*core.Heading, error) {
	if id == core.RootHeadingID {
		root := rootHeading
		return &root, nil
	}

	var result *core.Heading
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readHeading(tx, makeHeadingKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// AncestorPath follows parent links from the heading up to ROOT. The walk is
// bounded by the heading's stored depth so a cycle cannot loop forever.
func (r *HeadingRepository) AncestorPath(ctx context.Context, id core.ID) (core.HeadingPath, error) {
	if id == core.RootHeadingID {
		return core.HeadingPath{}, nil
	}

	var path core.HeadingPath
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		path, err = ancestorPath(tx, id)
		return err
	}, false)
	return path, err
}

func ancestorPath(tx *badger.Txn, id core.ID) (core.HeadingPath, error) {
	heading, err := readHeading(tx, makeHeadingKey(id))
	if err != nil {
		return nil, err
	}
	if heading == nil {
		return nil, storage.ErrNotFound
	}

	limit := heading.Depth
	path := make(core.HeadingPath, 0, limit)
	for steps := 0; ; steps++ {
		if steps >= limit {
			return nil, fmt.Errorf("%w: heading %d does not reach root within %d steps",
				core.ErrInconsistentHeadingTree, id, limit)
		}
		path = append(path, core.HeadingRef{Id: heading.Id, Label: heading.Label})
		if heading.ParentId == core.RootHeadingID {
			return path, nil
		}

		parentID := heading.ParentId
		heading, err = readHeading(tx, makeHeadingKey(parentID))
		if err != nil {
			return nil, err
		}
		if heading == nil {
			return nil, fmt.Errorf("%w: heading %d has dangling parent %d",
				core.ErrInconsistentHeadingTree, path[len(path)-1].Id, parentID)
		}
	}
}

// VerifyTree checks that every stored heading reaches ROOT through a chain
// whose depths decrease by one at each step.
func (r *HeadingRepository) VerifyTree(ctx context.Context) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(headingPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var heading *core.Heading
			err := iter.Item().Value(func(val []byte) error {
				var err error
				heading, err = storage.UnmarshalHeading(val)
				return err
			})
			if err != nil {
				return err
			}

			path, err := ancestorPath(tx, heading.Id)
			if err != nil {
				return err
			}
			if len(path) != heading.Depth {
				return fmt.Errorf("%w: heading %d has depth %d but %d ancestors",
					core.ErrInconsistentHeadingTree, heading.Id, heading.Depth, len(path))
			}
		}
		return nil
	}, false)
}

// CountHeadings returns the number of stored headings.
func (r *HeadingRepository) CountHeadings(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(headingPrefix))
}

// putHeading writes a heading record as-is, bypassing validation.
// Used by tests to build damaged trees.
func (r *HeadingRepository) putHeading(heading *core.Heading) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeHeadingKey(heading.Id), storage.MarshalHeading(heading)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readHeading reads a heading from the transaction.
func readHeading(tx *badger.Txn, key []byte) (*core.Heading, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var heading *core.Heading
	err = item.Value(func(val []byte) error {
		var err error
		heading, err = storage.UnmarshalHeading(val)
		return err
	})
	return heading, err
}

// readIDIndex reads an index entry holding a single ID.
func readIDIndex(tx *badger.Txn, key []byte) (core.ID, bool, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}

	var id core.ID
	err = item.Value(func(val []byte) error {
		id, err = storage.UnmarshalID(val)
		return err
	})
	return id, err == nil, err
}
