package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexService = (*IndexingService)(nil)

// IndexingService runs the write path: normalise, chunk, embed, replace.
type IndexingService struct {
	registry driven.NormaliserRegistry
	pipeline driven.ChunkPipeline
	embedder *Embedder
	index    *IndexManager
}

// NewIndexingService creates a new indexing service.
func NewIndexingService(
	registry driven.NormaliserRegistry,
	pipeline driven.ChunkPipeline,
	embedder *Embedder,
	index *IndexManager,
) *IndexingService {
	return &IndexingService{
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		index:    index,
	}
}

// IndexDocument fully replaces the records of raw.Source with the chunks of raw.
// Re-indexing unchanged content yields the same chunk ids and record count.
// On a partial write the returned result reports what was written alongside the error.
func (s *IndexingService) IndexDocument(ctx context.Context, raw domain.RawDocument) (*domain.IndexResult, error) {
	start := time.Now()
	raw.Source = strings.TrimSpace(raw.Source)
	if raw.Source == "" {
		return nil, fmt.Errorf("%w: source name is required", domain.ErrInvalidInput)
	}

	logger.Section("Indexing " + raw.Source)
	result := &domain.IndexResult{Source: raw.Source}

	done := logger.Timed("normalise")
	doc, err := s.registry.Normalise(ctx, &raw)
	done()
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.Source, err)
	}
	result.FragmentsSkipped = doc.SkippedFragments
	if doc.Degraded() {
		logger.Warn("%s: %v, %d fragments skipped", raw.Source, domain.ErrParseDegraded, doc.SkippedFragments)
	}
	logger.Debug("%d blocks, title %q", len(doc.Blocks), doc.Title)

	done = logger.Timed("chunk")
	chunks, err := s.pipeline.Process(ctx, doc)
	done()
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", raw.Source, err)
	}
	logger.Debug("%d chunks", len(chunks))

	done = logger.Timed("embed")
	records, stats, err := s.embedder.EmbedChunks(ctx, chunks)
	done()
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", raw.Source, err)
	}
	result.ChunksSkipped = stats.Skipped
	result.VisionFallbacks = stats.VisionFallbacks

	done = logger.Timed("write")
	written, err := s.index.ReplaceSource(ctx, raw.Source, records)
	done()
	result.ChunksWritten = written
	for _, r := range records[:written] {
		if r.ContentType == domain.ContentImage {
			result.ImageChunks++
		} else {
			result.TextChunks++
		}
	}
	result.Elapsed = time.Since(start)

	if err != nil {
		return result, err
	}

	logger.Info("Indexed %s: %d written, %d skipped", raw.Source, result.ChunksWritten, result.ChunksSkipped)
	return result, nil
}

// RemoveSource deletes every record of a source.
func (s *IndexingService) RemoveSource(ctx context.Context, source string) (int, error) {
	n, err := s.index.RemoveSource(ctx, strings.TrimSpace(source))
	if err != nil {
		return 0, err
	}
	logger.Info("Removed %d records of %s", n, source)
	return n, nil
}

// ListSources summarises the indexed sources.
func (s *IndexingService) ListSources(ctx context.Context) ([]domain.SourceSummary, error) {
	return s.index.Sources(ctx)
}
