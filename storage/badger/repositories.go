package badger

import (
	"context"
	"errors"

	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// Repositories bundles every repository sharing one backend.
type Repositories struct {
	Backend     *Backend
	Entities    *EntityRepository
	Headings    *HeadingRepository
	Sentences   *SentenceRepository
	Frames      *FrameRepository
	Checkpoints *CheckpointRepository
}

// OpenRepositories creates all repositories on top of backend. The backend is
// owned by the returned bundle and closed by Close.
func OpenRepositories(backend *Backend) (*Repositories, error) {
	entities, err := NewEntityRepository(backend)
	if err != nil {
		return nil, err
	}

	headings, err := NewHeadingRepository(backend)
	if err != nil {
		entities.Close()
		return nil, err
	}

	sentences, err := NewSentenceRepository(backend)
	if err != nil {
		headings.Close()
		entities.Close()
		return nil, err
	}

	frames, err := NewFrameRepository(backend)
	if err != nil {
		sentences.Close()
		headings.Close()
		entities.Close()
		return nil, err
	}

	return &Repositories{
		Backend:     backend,
		Entities:    entities,
		Headings:    headings,
		Sentences:   sentences,
		Frames:      frames,
		Checkpoints: NewCheckpointRepository(backend),
	}, nil
}

// Close releases every repository and then the backend.
func (r *Repositories) Close() error {
	var errs []error
	for _, repo := range []storage.Repository{r.Frames, r.Sentences, r.Headings, r.Entities} {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.Backend.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// KnowledgeStore returns the read-only query view over the repositories.
func (r *Repositories) KnowledgeStore() storage.KnowledgeStore {
	return &knowledgeStore{repos: r}
}

// knowledgeStore routes each query of the storage.KnowledgeStore contract to
// the repository that owns the data.
type knowledgeStore struct {
	repos *Repositories
}

var _ storage.KnowledgeStore = (*knowledgeStore)(nil)

func (k *knowledgeStore) FindEntities(ctx context.Context, query storage.EntityQuery) ([]core.ID, error) {
	return k.repos.Entities.FindEntities(ctx, query)
}

func (k *knowledgeStore) Occurrences(ctx context.Context, entityIDs ...core.ID) ([]core.Occurrence, error) {
	return k.repos.Sentences.Occurrences(ctx, entityIDs...)
}

func (k *knowledgeStore) AncestorPath(ctx context.Context, headingID core.ID) (core.HeadingPath, error) {
	return k.repos.Headings.AncestorPath(ctx, headingID)
}

func (k *knowledgeStore) SentenceIDs(ctx context.Context, headingID core.ID) ([]core.ID, error) {
	return k.repos.Sentences.SentenceIDs(ctx, headingID)
}

func (k *knowledgeStore) GetSentences(ctx context.Context, ids ...core.ID) ([]*core.Sentence, error) {
	return k.repos.Sentences.GetSentences(ctx, ids...)
}

func (k *knowledgeStore) FramesMatching(ctx context.Context, names ...string) (map[string][]core.ID, error) {
	return k.repos.Frames.FramesMatching(ctx, names...)
}
