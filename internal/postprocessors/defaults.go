package postprocessors

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/docqa/internal/postprocessors/dedupe"
)

const chunkerName = "chunker"

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register(chunkerName, buildChunker)
	r.Register("dedupe", buildDedupe)
}

// NewDefaultPipeline builds the pipeline named by cfg from the built-in processors.
func NewDefaultPipeline(cfg domain.ChunkingConfig) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(cfg)
}

// buildChunker creates a chunker bounded by max_chunk_chars and min_chunk_chars.
func buildChunker(cfg domain.ChunkingConfig) (driven.ChunkProcessor, error) {
	return chunker.New(
		chunker.WithMaxChars(cfg.MaxChunkChars),
		chunker.WithMinChars(cfg.MinChunkChars),
	), nil
}

func buildDedupe(_ domain.ChunkingConfig) (driven.ChunkProcessor, error) {
	return dedupe.New(), nil
}
