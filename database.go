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

package kbqa

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/ai/lexical"
	"github.com/poiesic/kbqa/ai/openai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/ingestion"
	"github.com/poiesic/kbqa/reframe"
	"github.com/poiesic/kbqa/search"
	"github.com/poiesic/kbqa/storage"
	"github.com/poiesic/kbqa/storage/badger"
)

// Database is an opened knowledge base together with the annotation
// services used to fill and query it.
type Database struct {
	repos      *badger.Repositories
	provider   ai.AIProvider
	annotator  ai.Annotator
	classifier ai.FrameClassifier
	searchCfg  *search.Config
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig     *ai.Config
	searchConfig *search.Config
	provider     ai.AIProvider
	inMemory     bool
	logger       *slog.Logger
}

// WithAIConfig selects and configures the annotation provider.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithSearchConfig sets the configuration of the engines handed out by Engine.
func WithSearchConfig(cfg *search.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.searchConfig = cfg
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// InMemory keeps the knowledge base in memory; the path is ignored.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger shared by the database and its components.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewProvider builds the annotation provider named by cfg.Provider.
func NewProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	default:
		return lexical.NewProvider(cfg)
	}
}

// NewDatabase opens the knowledge base stored at filePath, creating it when
// missing. The heading tree is verified before the database is returned, so
// a corrupt store fails here with core.ErrInconsistentHeadingTree.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig:     ai.DefaultConfig(),
		searchConfig: search.DefaultConfig(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.aiConfig == nil {
		options.aiConfig = ai.DefaultConfig()
	}
	if options.searchConfig == nil {
		options.searchConfig = search.DefaultConfig()
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := options.searchConfig.Validate(); err != nil {
		return nil, err
	}

	// Open backend
	backend, err := badger.OpenBackendWithLogger(filePath, options.inMemory, options.logger.With("component", "badger"))
	if err != nil {
		return nil, err
	}

	repos, err := badger.OpenRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	if err := repos.Headings.VerifyTree(context.Background()); err != nil {
		repos.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = NewProvider(options.aiConfig)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}
	annotator, classifier := ai.Decorate(provider, options.aiConfig)

	return &Database{
		repos:      repos,
		provider:   provider,
		annotator:  annotator,
		classifier: classifier,
		searchCfg:  options.searchConfig,
		logger:     options.logger,
	}, nil
}

// Close releases the provider and the store.
func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing repositories", "err", err)
		return err
	}
	return nil
}

// Repositories exposes the underlying repositories.
func (db *Database) Repositories() *badger.Repositories {
	return db.repos
}

// KnowledgeStore returns the read-only query view of the knowledge base.
func (db *Database) KnowledgeStore() storage.KnowledgeStore {
	return db.repos.KnowledgeStore()
}

// Engine creates an answer engine over the knowledge base. opts are applied
// after the database's configuration and logger.
func (db *Database) Engine(opts ...search.Option) (*search.Engine, error) {
	base := []search.Option{
		search.WithConfig(db.searchCfg),
		search.WithLogger(db.logger),
	}
	return search.NewEngine(db.repos.KnowledgeStore(), db.annotator, append(base, opts...)...)
}

// NewIngestionPipeline creates a pipeline writing into the knowledge base.
// Frames are classified during ingestion unless opts disable it.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithFrameClassifier(db.classifier),
		ingestion.WithLogger(db.logger),
	}
	return ingestion.NewPipeline(ingestion.Stores{
		Entities:    db.repos.Entities,
		Headings:    db.repos.Headings,
		Sentences:   db.repos.Sentences,
		Frames:      db.repos.Frames,
		Checkpoints: db.repos.Checkpoints,
	}, db.annotator, append(base, opts...)...)
}

// NewReframer creates an offline frame classification job. progress
// receives human readable progress, it may be nil.
func (db *Database) NewReframer(cfg *reframe.Config, progress io.Writer) (*reframe.Reframer, error) {
	return reframe.NewReframer(reframe.Stores{
		Sentences:   db.repos.Sentences,
		Frames:      db.repos.Frames,
		Checkpoints: db.repos.Checkpoints,
	}, db.classifier, cfg, progress, db.logger)
}

// Verify checks that every heading chains up to ROOT.
func (db *Database) Verify(ctx context.Context) error {
	return db.repos.Headings.VerifyTree(ctx)
}

// Stats counts the records of the knowledge base.
type Stats struct {
	Entities  int
	Headings  int
	Sentences int
	Frames    int

	// FramesThrough is the last sentence id classified during ingestion,
	// ReframedThrough the last one reached by the reframe job.
	FramesThrough   core.ID
	ReframedThrough core.ID
}

// Stats gathers record counts and job checkpoints.
func (db *Database) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := db.repos.Entities.ForEachEntity(ctx, func(*core.Entity) error {
		stats.Entities++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}

	if stats.Headings, err = db.repos.Headings.CountHeadings(ctx); err != nil {
		return nil, fmt.Errorf("count headings: %w", err)
	}
	if stats.Sentences, err = db.repos.Sentences.CountSentences(ctx); err != nil {
		return nil, fmt.Errorf("count sentences: %w", err)
	}
	names, err := db.repos.Frames.FrameNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	stats.Frames = len(names)

	for processor, through := range map[string]*core.ID{
		ingestion.FramesProcessorType: &stats.FramesThrough,
		reframe.CheckpointType:        &stats.ReframedThrough,
	} {
		checkpoint, err := db.repos.Checkpoints.LoadCheckpoint(ctx, processor)
		if err != nil {
			return nil, fmt.Errorf("load %s checkpoint: %w", processor, err)
		}
		if checkpoint != nil {
			*through = checkpoint.LastId
		}
	}
	return stats, nil
}
