package ai

import "errors"

var (
	// ErrMalformedAnnotation is returned when an annotator response cannot be interpreted.
	ErrMalformedAnnotation = errors.New("malformed annotation")

	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown ai provider")
)
