package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/storage"
)

// DefaultFrameBatchSize is the number of sentences classified per pool task.
const DefaultFrameBatchSize = 32

// Stores bundles the repositories the pipeline writes to.
// Checkpoints is optional.
type Stores struct {
	Entities    storage.EntityRepository
	Headings    storage.HeadingRepository
	Sentences   storage.SentenceRepository
	Frames      storage.FrameRepository
	Checkpoints storage.CheckpointRepository
}

// Pipeline orchestrates the ingestion of documents into the knowledge base.
// Sentences are written synchronously. Frames are classified on a worker
// pool after the sentences are stored.
type Pipeline struct {
	stores     Stores
	annotator  ai.Annotator
	classifier ai.FrameClassifier
	framePool  *ants.Pool
	frameProc  processor
	batchSize  int
	pending    sync.WaitGroup
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for frame classification.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.framePool != nil {
			p.framePool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.framePool = pool
		return nil
	}
}

// WithFrameClassifier sets the classifier used for ingestion-time frames.
// A nil classifier disables frame classification during ingestion.
func WithFrameClassifier(classifier ai.FrameClassifier) Option {
	return func(p *Pipeline) error {
		p.classifier = classifier
		return nil
	}
}

// WithFrameBatchSize sets how many sentences are classified per pool task.
// Default is DefaultFrameBatchSize.
func WithFrameBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("frame batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(stores Stores, annotator ai.Annotator, opts ...Option) (*Pipeline, error) {
	if stores.Entities == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if stores.Headings == nil {
		return nil, ErrHeadingRepositoryRequired
	}
	if stores.Sentences == nil {
		return nil, ErrSentenceRepositoryRequired
	}
	if annotator == nil {
		return nil, ErrAnnotatorRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	framePool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		stores:    stores,
		annotator: annotator,
		framePool: framePool,
		batchSize: DefaultFrameBatchSize,
		logger:    slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Create the processor after options are applied (so it gets final config)
	if p.classifier != nil {
		frameProc, err := newFrameProcessor(stores.Frames, p.classifier, stores.Checkpoints, p.logger)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.frameProc = frameProc
	}

	return p, nil
}

// Result summarizes what an ingestion wrote.
type Result struct {
	Sections  int // Sections that produced at least one sentence
	Sentences int // Sentences stored
	Existing  int // Sentences already stored under the same heading
	Entities  int // Entities referenced, counted once per section
	Malformed int // Sentences stored without entities after a malformed annotation
}

func (r *Result) add(other *Result) {
	r.Sections += other.Sections
	r.Sentences += other.Sentences
	r.Existing += other.Existing
	r.Entities += other.Entities
	r.Malformed += other.Malformed
}

// Ingest splits a markdown document into sections and ingests each of them.
// title seeds the heading path, see SplitMarkdown. Ingestion stops at the
// first section that fails; sections already written stay written.
func (p *Pipeline) Ingest(ctx context.Context, title string, markdown []byte) (*Result, error) {
	result := &Result{}
	for _, section := range SplitMarkdown(markdown, title) {
		sectionResult, err := p.IngestSection(ctx, section)
		if err != nil {
			return result, fmt.Errorf("section %q: %w", section.Path, err)
		}
		result.add(sectionResult)
	}

	p.logger.Info("ingested document",
		"title", title,
		"sections", result.Sections,
		"sentences", result.Sentences,
		"existing", result.Existing,
		"entities", result.Entities)
	return result, nil
}

// IngestSection stores the sentences of one section under its heading path
// and submits them for asynchronous frame classification.
func (p *Pipeline) IngestSection(ctx context.Context, section Section) (*Result, error) {
	if len(section.Path) == 0 {
		return nil, ErrEmptyHeadingPath
	}

	result := &Result{}
	var (
		records  []*core.Sentence
		entities []string
	)
	for _, paragraph := range section.Paragraphs {
		for _, text := range SplitSentences(paragraph) {
			annotation, err := p.annotate(ctx, text)
			if errors.Is(err, ai.ErrMalformedAnnotation) {
				p.logger.Warn("storing sentence without entities", "sentence", text, "err", err)
				annotation = &ai.Annotation{}
				result.Malformed++
			} else if err != nil {
				return nil, fmt.Errorf("annotate sentence: %w", err)
			}

			record := newSentenceRecord(text, annotation)
			records = append(records, record)
			for _, span := range annotation.Spans {
				entities = append(entities, span.Normalized)
			}
			entities = append(entities, annotation.Entities...)
		}
	}
	if len(records) == 0 {
		return result, nil
	}

	heading, err := p.stores.Headings.AddHeadingPath(ctx, section.Path...)
	if err != nil {
		return nil, fmt.Errorf("add heading path: %w", err)
	}
	for _, record := range records {
		record.HeadingId = heading.Id
	}

	entities = ai.Distinct(entities)
	if len(entities) > 0 {
		if _, err := p.stores.Entities.AddEntities(ctx, entities...); err != nil {
			return nil, fmt.Errorf("add entities: %w", err)
		}
	}

	added, err := p.stores.Sentences.AddSentences(ctx, records...)
	if err != nil {
		return nil, fmt.Errorf("add sentences: %w", err)
	}

	// Duplicates come back as the stored record, not the record we passed.
	stored := make([]*core.Sentence, 0, len(added))
	for i, sentence := range added {
		if sentence == records[i] {
			stored = append(stored, sentence)
		}
	}

	result.Sections = 1
	result.Sentences = len(stored)
	result.Existing = len(added) - len(stored)
	result.Entities = len(entities)

	p.classify(stored)

	p.logger.Debug("ingested section",
		"heading", heading.Id,
		"path", section.Path,
		"sentences", len(stored),
		"existing", result.Existing)
	return result, nil
}

func (p *Pipeline) annotate(ctx context.Context, text string) (*ai.Annotation, error) {
	annotation, err := p.annotator.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := annotation.Validate(); err != nil {
		return nil, err
	}
	return annotation, nil
}

// newSentenceRecord marks the entity mentions of text and records one entity
// id per mention. Annotations without spans fall back to one id per entity.
// Literal brackets are escaped first so they never read as markup.
func newSentenceRecord(text string, annotation *ai.Annotation) *core.Sentence {
	surfaces := annotation.Surfaces()
	for i, surface := range surfaces {
		surfaces[i] = core.EscapeBrackets(surface)
	}
	record := &core.Sentence{
		Text:        core.MarkEntities(core.EscapeBrackets(text), surfaces),
		Annotations: strings.Join(annotation.TaggedTokens(), " "),
	}
	for _, span := range annotation.Spans {
		record.EntityIds = append(record.EntityIds, core.EntityIDFor(span.Normalized))
	}
	if len(annotation.Spans) == 0 {
		for _, entity := range annotation.Entities {
			record.EntityIds = append(record.EntityIds, core.EntityIDFor(entity))
		}
	}
	return record
}

// classify submits stored sentences for frame classification in batches.
func (p *Pipeline) classify(sentences []*core.Sentence) {
	if p.frameProc == nil {
		return
	}

	for start := 0; start < len(sentences); start += p.batchSize {
		batch := sentences[start:min(start+p.batchSize, len(sentences))]

		p.frameProc.begin(batch...)
		p.pending.Add(1)
		err := p.framePool.Submit(func() {
			defer p.pending.Done()
			if err := p.frameProc.process(context.Background(), batch...); err != nil {
				p.logger.Error("error classifying frames", "first", batch[0].Id, "sentences", len(batch), "err", err)
				return
			}
			if err := p.frameProc.checkpoint(); err != nil {
				p.logger.Error("error applying frame checkpoint", "err", err)
			}
		})
		if err != nil {
			p.pending.Done()
			p.logger.Error("error submitting frame classification", "sentences", len(batch), "err", err)
		}
	}
}

// Wait blocks until every submitted frame classification has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release waits for pending work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.framePool != nil {
		p.framePool.Release()
	}
}
