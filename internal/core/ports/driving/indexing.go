package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IndexService ingests documents into the vector index.
type IndexService interface {
	// IndexDocument normalises, chunks, embeds and stores a document,
	// fully replacing any records previously stored for the same source.
	IndexDocument(ctx context.Context, raw domain.RawDocument) (*domain.IndexResult, error)

	// RemoveSource deletes every record of a source and returns how many were removed.
	RemoveSource(ctx context.Context, source string) (int, error)

	// ListSources summarises the indexed sources.
	ListSources(ctx context.Context) ([]domain.SourceSummary, error)
}
