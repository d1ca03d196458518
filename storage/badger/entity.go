package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
	"github.com/xrash/smetrics"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) (*EntityRepository, error) {
	return &EntityRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EntityRepository has no resources to release.
func (r *EntityRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEntities stores entities for normalized texts. Texts already present
// resolve to the stored record.
func (r *EntityRepository) AddEntities(ctx context.Context, texts ...string) ([]*core.Entity, error) {
	entities := make([]*core.Entity, 0, len(texts))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, text := range texts {
			entity := &core.Entity{Id: core.EntityIDFor(text), Text: text}
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}

			key := makeEntityKey(entity.Id)
			existing, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				entities = append(entities, existing)
				continue
			}

			// Store primary record
			if err := tx.Set(key, storage.MarshalEntity(entity)); err != nil {
				return err
			}

			// Store text index
			if err := tx.Set(makeEntityTextKey(entity.Text), storage.MarshalID(entity.Id)); err != nil {
				return err
			}
			entities = append(entities, entity)
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var result []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindEntityByText finds an entity by its exact normalized text.
func (r *EntityRepository) FindEntityByText(ctx context.Context, text string) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEntityTextKey(text))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var entityID core.ID
		err = item.Value(func(val []byte) error {
			entityID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readEntity(tx, makeEntityKey(entityID))
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

type entityMatch struct {
	id       core.ID
	length   int
	distance int
}

// FindEntities scans the text index and returns entities that extend the
// query at either end or lie within the edit tolerance of it.
func (r *EntityRepository) FindEntities(ctx context.Context, query storage.EntityQuery) ([]core.ID, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var matches []entityMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityTextPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := iter.Item()
			text := string(item.Key()[len(entityTextPrefix):])
			match, ok := matchEntity(text, query)
			if !ok {
				continue
			}

			err := item.Value(func(val []byte) error {
				var err error
				match.id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			matches = append(matches, match)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b entityMatch) int {
		if c := cmp.Compare(a.length, b.length); c != 0 {
			return c
		}
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	if len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids, nil
}

// matchEntity applies the lookup rules of storage.EntityQuery to one stored text.
func matchEntity(text string, query storage.EntityQuery) (entityMatch, bool) {
	distance := smetrics.WagnerFischer(query.Text, text,
		query.InsertCost, query.DeleteCost, query.SubstituteCost)
	match := entityMatch{length: len(text), distance: distance}

	if distance <= query.EditTolerance {
		return match, true
	}
	if len(text) < len(query.Text) || len(text) > query.MaxLength {
		return match, false
	}
	if strings.HasPrefix(text, query.Text) || strings.HasSuffix(text, query.Text) {
		return match, true
	}
	return match, false
}

// ForEachEntity visits every stored entity in id order.
func (r *EntityRepository) ForEachEntity(ctx context.Context, fn func(*core.Entity) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entity *core.Entity
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entity, err = storage.UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("reading entity %x: %w", iter.Item().Key(), err)
			}
			if err := fn(entity); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// readEntity reads an entity from the transaction.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}
