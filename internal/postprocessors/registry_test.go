package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// registryMockProcessor is a simple mock for testing registry functionality.
type registryMockProcessor struct {
	name string
}

func (m *registryMockProcessor) Name() string { return m.name }
func (m *registryMockProcessor) Process(_ context.Context, _ *domain.NormalisedDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return chunks, nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if len(r.builders) != 0 {
		t.Errorf("expected empty builders, got %d", len(r.builders))
	}
}

func TestRegistry_Build_Success(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg domain.ChunkingConfig) (driven.ChunkProcessor, error) {
		if cfg.MaxChunkChars != 42 {
			t.Errorf("expected config to be passed through, got %d", cfg.MaxChunkChars)
		}
		return &registryMockProcessor{name: "test"}, nil
	})

	proc, err := r.Build("test", domain.ChunkingConfig{MaxChunkChars: 42})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if proc.Name() != "test" {
		t.Errorf("expected name 'test', got %q", proc.Name())
	}
}

func TestRegistry_Build_UnknownProcessor(t *testing.T) {
	_, err := NewRegistry().Build("unknown", domain.ChunkingConfig{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	if !r.Has("chunker") || !r.Has("dedupe") {
		t.Error("expected default processors to be registered")
	}
	if r.Has("nonexistent") {
		t.Error("expected 'nonexistent' to not be registered")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	names := r.Names()
	if len(names) != 2 || names[0] != "chunker" || names[1] != "dedupe" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestRegistry_BuildPipeline(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	tests := []struct {
		name       string
		processors []string
		want       []string
		wantErr    bool
	}{
		{"default order", []string{"chunker", "dedupe"}, []string{"chunker", "dedupe"}, false},
		{"empty uses chunker", nil, []string{"chunker"}, false},
		{"chunker must be first", []string{"dedupe", "chunker"}, nil, true},
		{"unknown processor", []string{"chunker", "summarise"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.BuildPipeline(domain.ChunkingConfig{MaxChunkChars: 500, MinChunkChars: 100, Processors: tt.processors})
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := p.Names()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}
