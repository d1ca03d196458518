package ai

import "context"

// Annotator produces the linguistic annotation of a piece of text: the
// normalized entities it mentions, the semantic frames it evokes and, for
// ingestion, the entity spans and part-of-speech tokens.
// Implementations must be thread-safe for concurrent use.
type Annotator interface {
	// Annotate analyzes text. An empty text yields an empty annotation.
	// Returns ErrMalformedAnnotation when the backend answered with
	// something that cannot be interpreted.
	Annotate(ctx context.Context, text string) (*Annotation, error)
}

// FrameClassifier assigns frame labels to sentences in bulk. It is used
// by offline jobs that only need frames and can batch their requests.
// Implementations must be thread-safe for concurrent use.
type FrameClassifier interface {
	// ClassifyFrames returns one frame list per input text, in input order.
	ClassifyFrames(ctx context.Context, texts []string) ([][]string, error)
}

// AIProvider aggregates the annotation services of one backend.
type AIProvider interface {
	// Annotator returns the annotation service.
	Annotator() Annotator

	// FrameClassifier returns the bulk frame classification service.
	FrameClassifier() FrameClassifier

	// Close releases resources held by the provider and its services.
	Close() error
}
