package reframe

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrSentenceRepositoryRequired is returned when a sentence repository is not provided.
	ErrSentenceRepositoryRequired = errors.New("sentence repository required")

	// ErrFrameRepositoryRequired is returned when a frame repository is not provided.
	ErrFrameRepositoryRequired = errors.New("frame repository required")

	// ErrClassifierRequired is returned when a frame classifier is not provided.
	ErrClassifierRequired = errors.New("frame classifier required")
)
