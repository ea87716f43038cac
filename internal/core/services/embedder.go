package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// EmbedStats counts degradations of one embedding pass.
type EmbedStats struct {
	// Skipped is the number of chunks dropped for an empty body.
	Skipped int

	// VisionFallbacks is the number of image chunks embedded from alt text alone.
	VisionFallbacks int
}

// Embedder converts chunks into vector records. Image chunks are first
// described by the vision model; the description and alt text form the body
// that gets embedded.
type Embedder struct {
	embedding driven.EmbeddingService
	vision    driven.VisionService
	images    driven.ImageLoader
	cfg       domain.IndexingConfig
	dim       int
}

// NewEmbedder creates an embedder.
// The vision service and image loader are optional (can be nil); without them
// image chunks are embedded from their alt text.
func NewEmbedder(
	cfg domain.Config,
	embedding driven.EmbeddingService,
	vision driven.VisionService,
	images driven.ImageLoader,
) *Embedder {
	dim := cfg.Embedding.ResolvedDimensions()
	if dim <= 0 && embedding != nil {
		dim = embedding.Dimensions()
	}
	return &Embedder{
		embedding: embedding,
		vision:    vision,
		images:    images,
		cfg:       cfg.Indexing,
		dim:       dim,
	}
}

// Dimensions returns the vector size every record must have.
func (e *Embedder) Dimensions() int {
	return e.dim
}

// ModelName returns the embedding model name, or empty when none is configured.
func (e *Embedder) ModelName() string {
	if e.embedding == nil {
		return ""
	}
	return e.embedding.ModelName()
}

// EmbedChunks enriches image chunks, drops chunks without a body and embeds
// the rest in bounded batches. Records keep the chunk order.
// A dimension mismatch or an unreachable model aborts the whole batch.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.VectorRecord, EmbedStats, error) {
	var stats EmbedStats
	if e.embedding == nil {
		return nil, stats, fmt.Errorf("%w: no embedding model configured", domain.ErrEmbeddingUnavailable)
	}

	enriched := e.enrichImages(ctx, chunks)
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	kept := make([]domain.Chunk, 0, len(enriched))
	for _, c := range enriched {
		if strings.TrimSpace(c.Body) == "" {
			logger.Debug("dropping chunk %d of %s: empty body", c.Ordinal, c.Source)
			stats.Skipped++
			continue
		}
		if c.IsImage() && !c.Metadata.HasVisionAnalysis {
			stats.VisionFallbacks++
		}
		kept = append(kept, c)
	}

	records := make([]domain.VectorRecord, len(kept))
	batchSize := max(e.cfg.EmbedBatchSize, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Workers, 1))

	for start := 0; start < len(kept); start += batchSize {
		end := min(start+batchSize, len(kept))
		g.Go(func() error {
			return e.embedBatch(gctx, kept[start:end], records[start:end])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	return records, stats, nil
}

func (e *Embedder) embedBatch(ctx context.Context, chunks []domain.Chunk, out []domain.VectorRecord) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Body
	}

	vectors, err := e.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return embeddingError(err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: model returned %d vectors for %d texts",
			domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	for i, c := range chunks {
		if err := domain.CheckDimension(c.ID, vectors[i], e.dim); err != nil {
			return err
		}
		out[i] = domain.VectorRecord{
			ID:          c.ID,
			Vector:      vectors[i],
			Source:      c.Source,
			ContentType: c.ContentType,
			Body:        c.Body,
			Metadata:    c.Metadata,
		}
	}
	return nil
}

// EmbedQuery embeds a question with the indexing model.
func (e *Embedder) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	if e.embedding == nil {
		return nil, fmt.Errorf("%w: no embedding model configured", domain.ErrEmbeddingUnavailable)
	}
	vec, err := e.embedding.Embed(ctx, question)
	if err != nil {
		return nil, embeddingError(err)
	}
	if err := domain.CheckDimension("query", vec, e.dim); err != nil {
		return nil, err
	}
	return vec, nil
}

// enrichImages returns a copy of chunks with image bodies composed from
// alt text and, when available, a vision description.
func (e *Embedder) enrichImages(ctx context.Context, chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	var g errgroup.Group
	g.SetLimit(max(e.cfg.Workers, 1))

	for i := range out {
		if !out[i].IsImage() {
			continue
		}
		g.Go(func() error {
			body, analysed := e.describe(ctx, out[i])
			out[i].Body = body
			out[i].Metadata.HasVisionAnalysis = analysed
			out[i].Metadata.CharCount = utf8.RuneCountInString(body)
			out[i].Metadata.WordCount = len(strings.Fields(body))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// describe never fails: every degraded path falls back to the alt text.
func (e *Embedder) describe(ctx context.Context, c domain.Chunk) (string, bool) {
	alt := strings.TrimSpace(c.Metadata.AltText)

	if e.vision == nil || e.images == nil {
		return alt, false
	}
	if c.Metadata.ImagePath == "" {
		logger.Debug("image chunk %d of %s has no resolved path", c.Ordinal, c.Source)
		return alt, false
	}

	data, mimeType, err := e.images.Load(ctx, c.Metadata.ImagePath)
	if err != nil {
		logger.Warn("load image %s: %v", c.Metadata.ImagePath, err)
		return alt, false
	}

	res := e.vision.Describe(ctx, domain.ImageInput{Data: data, MIMEType: mimeType, AltText: alt})
	if !res.Available {
		logger.Warn("vision unavailable for %s: %s", c.Metadata.ImagePath, res.Reason)
		return alt, false
	}
	desc := strings.TrimSpace(res.Description)
	if desc == "" {
		return alt, false
	}
	return composeImageBody(alt, desc), true
}

// composeImageBody joins the alt text and the vision description.
func composeImageBody(alt, description string) string {
	if alt == "" {
		return "Detailed Analysis: " + description
	}
	return "Image Description: " + alt + "\n\nDetailed Analysis: " + description
}

func embeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}
