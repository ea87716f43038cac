package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChunkProcessor turns normalised documents into chunks.
// Processors are chained in a pipeline (e.g., chunking, deduplication).
type ChunkProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A processor that creates chunks (e.g., chunker) receives nil.
	// A processor that filters chunks receives and returns them.
	Process(ctx context.Context, doc *domain.NormalisedDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// ChunkPipeline chains multiple ChunkProcessors.
type ChunkPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.NormalisedDocument) ([]domain.Chunk, error)
}
