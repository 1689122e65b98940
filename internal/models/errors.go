package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange marks a selection whose [start, end) falls outside the
	// document text or is inverted.
	ErrInvalidRange = errors.New("invalid selection range")

	// ErrEmptyCorpus marks a lookup for a sample or role that was never
	// ingested.
	ErrEmptyCorpus = errors.New("sample not ingested")

	// ErrUnknownChunk marks a vector write against a chunk id that does not
	// exist.
	ErrUnknownChunk = errors.New("unknown chunk id")
)

// EmbeddingError wraps a failure of the embedding backend: unreachable
// server, malformed response, or a vector count/dimension mismatch. It is
// never retried by the callers in this module; the annotation UI surfaces it
// as a retryable condition distinct from a bad selection.
type EmbeddingError struct {
	Backend string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding backend %s: %v", e.Backend, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// IsEmbeddingError reports whether err originates from an embedding backend.
func IsEmbeddingError(err error) bool {
	var ee *EmbeddingError
	return errors.As(err, &ee)
}
