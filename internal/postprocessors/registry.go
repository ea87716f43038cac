package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// BuilderFunc creates a ChunkProcessor from the chunking configuration.
type BuilderFunc func(cfg domain.ChunkingConfig) (driven.ChunkProcessor, error)

// Registry maps processor names to their builders.
// It allows dynamic construction of processors from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new processor registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a processor builder to the registry.
// Name should be unique and match the processor's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a processor by name with the given config.
// Returns error if the processor name is not registered.
func (r *Registry) Build(name string, cfg domain.ChunkingConfig) (driven.ChunkProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor: %s", domain.ErrInvalidInput, name)
	}
	return builder(cfg)
}

// BuildPipeline creates a pipeline from cfg.Processors. The chunker must run
// first because it is the only processor that creates chunks.
func (r *Registry) BuildPipeline(cfg domain.ChunkingConfig) (*Pipeline, error) {
	names := cfg.ProcessorNames()
	if len(names) == 0 {
		names = []string{chunkerName}
	}
	if names[0] != chunkerName {
		return nil, fmt.Errorf("%w: first processor must be %q, got %q", domain.ErrInvalidInput, chunkerName, names[0])
	}

	pipeline := NewPipeline()
	for _, name := range names {
		proc, err := r.Build(name, cfg)
		if err != nil {
			return nil, err
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}

// Has returns true if a processor with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
