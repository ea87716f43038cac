package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no normaliser handles a MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRateLimited indicates a model provider rejected a call due to rate limits.
	ErrRateLimited = errors.New("rate limited")

	// Pipeline Errors.

	// ErrParseDegraded indicates a document was only partially parsed.
	// It is never fatal: the skipped fragment count is reported alongside the result.
	ErrParseDegraded = errors.New("parse degraded")

	// ErrEmbeddingUnavailable indicates the embedding model is not configured or unreachable.
	// Neither indexing nor answering can proceed without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates a vector length differs from the configured dimension.
	// It aborts the affected batch.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrIndexWriteFailed indicates records could not be written after retries.
	ErrIndexWriteFailed = errors.New("index write failed")

	// ErrIndexUnreachable indicates the vector store could not be contacted.
	ErrIndexUnreachable = errors.New("vector index unreachable")

	// ErrGenerationUnavailable indicates no answer could be synthesised.
	// Answers degrade to retrieval-only results.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrVisionUnavailable indicates images could not be described.
	// Image chunks fall back to their alt text.
	ErrVisionUnavailable = errors.New("vision unavailable")
)

// DimensionMismatchError reports a vector whose length differs from the configured dimension.
type DimensionMismatchError struct {
	// ChunkID is the offending chunk, empty for query vectors.
	ChunkID string

	// Want is the configured dimension.
	Want int

	// Got is the observed vector length.
	Got int
}

func (e *DimensionMismatchError) Error() string {
	if e.ChunkID == "" {
		return fmt.Sprintf("dimension mismatch: want %d, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("dimension mismatch for chunk %s: want %d, got %d", e.ChunkID, e.Want, e.Got)
}

// Unwrap allows errors.Is(err, ErrDimensionMismatch).
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// IndexWriteFailedError reports a replace that stopped part way.
// Written counts the records persisted before the failure.
type IndexWriteFailedError struct {
	Source  string
	Written int
	Total   int
	Err     error
}

func (e *IndexWriteFailedError) Error() string {
	return fmt.Sprintf("index write failed for %q after %d/%d records: %v",
		e.Source, e.Written, e.Total, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *IndexWriteFailedError) Unwrap() []error {
	return []error{ErrIndexWriteFailed, e.Err}
}

// CheckDimension returns a DimensionMismatchError if len(vec) != want.
func CheckDimension(chunkID string, vec []float32, want int) error {
	if len(vec) != want {
		return &DimensionMismatchError{ChunkID: chunkID, Want: want, Got: len(vec)}
	}
	return nil
}
