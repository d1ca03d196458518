package ingestion

import "errors"

var (
	// ErrEntityRepositoryRequired is returned when an entity repository is not provided.
	ErrEntityRepositoryRequired = errors.New("entity repository required")

	// ErrHeadingRepositoryRequired is returned when a heading repository is not provided.
	ErrHeadingRepositoryRequired = errors.New("heading repository required")

	// ErrSentenceRepositoryRequired is returned when a sentence repository is not provided.
	ErrSentenceRepositoryRequired = errors.New("sentence repository required")

	// ErrFrameRepositoryRequired is returned when frames are classified without a frame repository.
	ErrFrameRepositoryRequired = errors.New("frame repository required")

	// ErrAnnotatorRequired is returned when an annotator is not provided.
	ErrAnnotatorRequired = errors.New("annotator required")

	// ErrEmptyHeadingPath is returned when a section has no heading to hang its sentences from.
	ErrEmptyHeadingPath = errors.New("section has no heading path")
)
