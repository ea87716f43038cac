package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		provider AIProvider
		want     bool
	}{
		{AIProviderOllama, true},
		{AIProviderOpenAI, true},
		{AIProviderAnthropic, true},
		{AIProviderGemini, true},
		{AIProvider("cohere"), false},
		{AIProvider(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Capabilities(t *testing.T) {
	assert.False(t, AIProviderAnthropic.SupportsEmbedding())
	assert.True(t, AIProviderGemini.SupportsEmbedding())
	assert.True(t, AIProviderGemini.SupportsVision())
	assert.False(t, AIProviderOllama.SupportsVision())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestModelSettings_IsConfigured(t *testing.T) {
	assert.False(t, ModelSettings{}.IsConfigured())
	assert.False(t, ModelSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, ModelSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.True(t, ModelSettings{Provider: AIProviderOllama}.IsConfigured())
}

func TestEmbeddingSettings_ResolvedDimensions(t *testing.T) {
	e := EmbeddingSettings{ModelSettings: ModelSettings{Model: "text-embedding-3-small"}}
	assert.Equal(t, 1536, e.ResolvedDimensions())

	e.Dimensions = 256
	assert.Equal(t, 256, e.ResolvedDimensions())

	unknown := EmbeddingSettings{ModelSettings: ModelSettings{Model: "custom"}}
	assert.Equal(t, 0, unknown.ResolvedDimensions())
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 768, cfg.Embedding.ResolvedDimensions())
	assert.Equal(t, VectorBackendSQLite, cfg.VectorStore.Backend)
	assert.Equal(t, []string{"chunker", "dedupe"}, cfg.Chunking.ProcessorNames())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"min chunk zero", func(c *Config) { c.Chunking.MinChunkChars = 0 }, "min_chunk_chars"},
		{"max below twice min", func(c *Config) { c.Chunking.MaxChunkChars = 150 }, "at least twice"},
		{"thresholds not monotonic", func(c *Config) { c.Retrieval.MediumThreshold = 0.9 }, "thresholds"},
		{"floor above medium", func(c *Config) { c.Retrieval.SimilarityFloor = 0.7 }, "thresholds"},
		{"unknown backend", func(c *Config) { c.VectorStore.Backend = "redis" }, "unknown vector backend"},
		{"postgres without dsn", func(c *Config) { c.VectorStore.Backend = VectorBackendPostgres }, "vector_store.dsn"},
		{"anthropic embeddings", func(c *Config) { c.Embedding.Provider = AIProviderAnthropic }, "does not support embeddings"},
		{"ollama vision", func(c *Config) { c.Vision.Provider = AIProviderOllama }, "does not support vision"},
		{"unknown dimension", func(c *Config) { c.Embedding.Model = "custom" }, "dimension unknown"},
		{"zero workers", func(c *Config) { c.Indexing.Workers = 0 }, "workers"},
		{"too many suggestions", func(c *Config) { c.Retrieval.MaxSuggestions = 5 }, "max_suggestions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRetrievalConfig_Grade(t *testing.T) {
	r := DefaultConfig().Retrieval

	tests := []struct {
		score float64
		want  Confidence
	}{
		{0.95, ConfidenceHigh},
		{0.8, ConfidenceHigh},
		{0.79, ConfidenceMedium},
		{0.6, ConfidenceMedium},
		{0.45, ConfidenceLow},
		{0.3, ConfidenceLow},
		{0.29, ConfidenceNone},
		{-0.5, ConfidenceNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Grade(tt.score), "score %v", tt.score)
	}
}

func TestRetrievalConfig_GradeIsMonotonic(t *testing.T) {
	r := DefaultConfig().Retrieval

	prev := r.Grade(-1)
	for s := -1.0; s <= 1.0; s += 0.01 {
		g := r.Grade(s)
		assert.GreaterOrEqual(t, g.Rank(), prev.Rank(), "score %v", s)
		prev = g
	}
}

func TestChunkingConfig_ProcessorNamesIsCopy(t *testing.T) {
	cfg := DefaultConfig()
	names := cfg.Chunking.ProcessorNames()
	names[0] = "mutated"

	assert.Equal(t, "chunker", cfg.Chunking.Processors[0])
}
