package domain

import (
	"errors"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a model provider for embeddings, vision or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbedding returns true if the provider offers embedding models.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderGemini
}

// SupportsVision returns true if the provider can describe images.
func (p AIProvider) SupportsVision() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// ModelSettings holds provider configuration for a vision or generation model.
type ModelSettings struct {
	// Provider is the model provider. Empty disables the capability.
	Provider AIProvider

	// Model is the model name. Empty uses the provider default.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the provider is set up.
func (m ModelSettings) IsConfigured() bool {
	if !m.Provider.IsValid() {
		return false
	}
	if m.Provider.RequiresAPIKey() && m.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	ModelSettings

	// Dimensions is the embedding vector size. Zero uses the known size of the model.
	Dimensions int
}

// ResolvedDimensions returns the configured dimension, falling back to the
// known size of the model.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

// GenerationSettings holds generative model configuration.
type GenerationSettings struct {
	ModelSettings

	// MaxTokens caps the answer length. Zero uses the provider default.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64
}

// VectorBackend identifies a vector store implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendPostgres VectorBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendPostgres:
		return true
	default:
		return false
	}
}

// VectorStoreSettings configures the vector store backend.
type VectorStoreSettings struct {
	// Backend selects the store implementation.
	Backend VectorBackend

	// DataDir is the directory of the SQLite database. Empty uses ~/.docqa/data.
	DataDir string

	// DSN is the Postgres connection string.
	DSN string
}

// ChunkingConfig bounds chunk sizes, measured in characters.
type ChunkingConfig struct {
	MaxChunkChars int
	MinChunkChars int

	// Processors is the ordered list of chunk processors to run.
	Processors []string
}

// ProcessorNames returns a copy of the processor list.
func (c ChunkingConfig) ProcessorNames() []string {
	return append([]string(nil), c.Processors...)
}

// IndexingConfig controls batching, parallelism and retries on the write path.
type IndexingConfig struct {
	// EmbedBatchSize is the number of chunks embedded per model call.
	EmbedBatchSize int

	// UpsertBatchSize is the number of records written per store call.
	UpsertBatchSize int

	// Workers bounds the number of concurrent model calls.
	Workers int

	// MaxWriteAttempts is the number of tries per upsert batch.
	MaxWriteAttempts int

	// RetryBaseDelay is the first back-off delay, doubled on each retry.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the back-off delay.
	RetryMaxDelay time.Duration
}

// RetrievalConfig holds the thresholds and budgets of the answer path.
// The thresholds are tuning values that depend on the embedding model.
type RetrievalConfig struct {
	// TopK is the default number of results to retrieve.
	TopK int

	// SimilarityFloor is the minimum score for a result to count as relevant.
	SimilarityFloor float64

	// MediumThreshold and HighThreshold grade the top score.
	MediumThreshold float64
	HighThreshold   float64

	// MaxContextChars bounds the context window handed to the generative model.
	MaxContextChars int

	// AnswerTimeout bounds a whole question.
	AnswerTimeout time.Duration

	// GenerationTimeout bounds a single generation call.
	GenerationTimeout time.Duration

	// MaxSuggestions caps follow-up suggestions.
	MaxSuggestions int
}

// Grade maps a top similarity score to a confidence grade.
// Every score maps to exactly one grade, and higher scores never map to lower grades.
func (r RetrievalConfig) Grade(score float64) Confidence {
	switch {
	case score >= r.HighThreshold:
		return ConfidenceHigh
	case score >= r.MediumThreshold:
		return ConfidenceMedium
	case score >= r.SimilarityFloor:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// RateLimitConfig throttles calls to model providers.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained call rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the maximum number of calls allowed at once.
	Burst int
}

// CacheConfig controls the embedding cache.
type CacheConfig struct {
	// Size is the maximum number of cached embeddings. Zero disables the cache.
	Size int

	// TTL is how long an embedding stays cached.
	TTL time.Duration
}

// Config is the immutable configuration of the whole pipeline.
// It is built once at startup and passed by value to each component.
type Config struct {
	Embedding   EmbeddingSettings
	Vision      ModelSettings
	Generation  GenerationSettings
	VectorStore VectorStoreSettings
	Chunking    ChunkingConfig
	Indexing    IndexingConfig
	Retrieval   RetrievalConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
}

// DefaultConfig returns a configuration with sensible defaults.
// Model providers are left unconfigured.
func DefaultConfig() Config {
	return Config{
		Embedding: EmbeddingSettings{
			ModelSettings: ModelSettings{
				Provider: AIProviderOllama,
				Model:    DefaultEmbeddingModels()[AIProviderOllama],
			},
		},
		Generation: GenerationSettings{
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		VectorStore: VectorStoreSettings{
			Backend: VectorBackendSQLite,
		},
		Chunking: ChunkingConfig{
			MaxChunkChars: 500,
			MinChunkChars: 100,
			Processors:    []string{"chunker", "dedupe"},
		},
		Indexing: IndexingConfig{
			EmbedBatchSize:   32,
			UpsertBatchSize:  100,
			Workers:          4,
			MaxWriteAttempts: 3,
			RetryBaseDelay:   200 * time.Millisecond,
			RetryMaxDelay:    5 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:              5,
			SimilarityFloor:   0.3,
			MediumThreshold:   0.6,
			HighThreshold:     0.8,
			MaxContextChars:   6000,
			AnswerTimeout:     60 * time.Second,
			GenerationTimeout: 45 * time.Second,
			MaxSuggestions:    3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Cache: CacheConfig{
			Size: 4096,
			TTL:  time.Hour,
		},
	}
}

// Validate checks the configuration invariants.
// All violations are reported, each wrapping ErrInvalidInput.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...))
	}

	if c.Embedding.ResolvedDimensions() <= 0 {
		invalid("embedding dimension unknown for model %q, set embedding.dimensions", c.Embedding.Model)
	}
	if c.Embedding.Provider != "" && !c.Embedding.Provider.SupportsEmbedding() {
		invalid("provider %s does not support embeddings", c.Embedding.Provider)
	}
	if c.Vision.Provider != "" && !c.Vision.Provider.SupportsVision() {
		invalid("provider %s does not support vision", c.Vision.Provider)
	}
	if c.Generation.MaxTokens < 0 || c.Generation.Temperature < 0 {
		invalid("generation max_tokens and temperature must not be negative")
	}
	if !c.VectorStore.Backend.IsValid() {
		invalid("unknown vector backend %q", c.VectorStore.Backend)
	}
	if c.VectorStore.Backend == VectorBackendPostgres && c.VectorStore.DSN == "" {
		invalid("postgres backend requires vector_store.dsn")
	}

	if c.Chunking.MinChunkChars <= 0 {
		invalid("min_chunk_chars must be positive")
	}
	if c.Chunking.MaxChunkChars < 2*c.Chunking.MinChunkChars {
		invalid("max_chunk_chars (%d) must be at least twice min_chunk_chars (%d)",
			c.Chunking.MaxChunkChars, c.Chunking.MinChunkChars)
	}

	if c.Indexing.EmbedBatchSize <= 0 || c.Indexing.UpsertBatchSize <= 0 {
		invalid("batch sizes must be positive")
	}
	if c.Indexing.Workers <= 0 {
		invalid("workers must be positive")
	}
	if c.Indexing.MaxWriteAttempts <= 0 {
		invalid("max_write_attempts must be positive")
	}

	r := c.Retrieval
	if r.TopK <= 0 {
		invalid("top_k must be positive")
	}
	if r.SimilarityFloor > r.MediumThreshold || r.MediumThreshold > r.HighThreshold {
		invalid("thresholds must satisfy similarity_floor <= medium_threshold <= high_threshold")
	}
	if r.MaxContextChars <= 0 {
		invalid("max_context_chars must be positive")
	}
	if r.AnswerTimeout <= 0 {
		invalid("answer_timeout must be positive")
	}
	if r.MaxSuggestions < 0 || r.MaxSuggestions > 3 {
		invalid("max_suggestions must be between 0 and 3")
	}

	return errors.Join(errs...)
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllGenerationProviders returns providers that support generation.
func AllGenerationProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultGenerationModels returns default models for each generation provider.
func DefaultGenerationModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// DefaultVisionModels returns default models for each vision provider.
func DefaultVisionModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: "gpt-4o-mini",
		AIProviderGemini: "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
		"embedding-001":      768,
	}
}
