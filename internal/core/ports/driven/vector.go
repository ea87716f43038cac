package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorStore persists vector records and performs similarity search.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Upsert writes records, replacing any with the same ID.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// DeleteBySource removes every record of a source and returns how many were removed.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Query returns up to k records ordered by descending cosine similarity.
	// When the store supports filtering, a non-empty filter restricts results
	// to that content type; otherwise the filter is ignored.
	Query(ctx context.Context, vector []float32, k int, filter domain.ContentType) ([]domain.QueryResult, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Sources summarises the stored records per source.
	Sources(ctx context.Context) ([]domain.SourceSummary, error)

	// Capabilities describes optional behaviour of the store.
	Capabilities() StoreCapabilities

	// Close releases resources.
	Close() error
}

// StoreCapabilities describes optional vector store behaviour.
type StoreCapabilities struct {
	// Name identifies the backend (e.g., "sqlite").
	Name string

	// FiltersContentType is true when Query applies the content type filter itself.
	FiltersContentType bool

	// MaxBatchSize is the largest accepted Upsert batch. Zero means unbounded.
	MaxBatchSize int
}
