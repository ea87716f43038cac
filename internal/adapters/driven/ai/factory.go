// Package ai provides factory functions for creating model and storage adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/docqa/internal/adapters/driven/gemini"
	"github.com/custodia-labs/docqa/internal/adapters/driven/imageloader"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult holds the driven adapters built from a configuration.
// Model services are nil when their capability is not configured.
type InitResult struct {
	EmbeddingService  driven.EmbeddingService
	VisionService     driven.VisionService
	GenerationService driven.GenerationService
	VectorStore       driven.VectorStore
	ImageLoader       driven.ImageLoader
	PromptStore       driven.PromptStore // User-customisable prompt templates.
	Warnings          []string           // Non-fatal issues that disabled a capability.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() error {
	var errs []error
	if r.EmbeddingService != nil {
		errs = append(errs, r.EmbeddingService.Close())
	}
	if r.VisionService != nil {
		errs = append(errs, r.VisionService.Close())
	}
	if r.GenerationService != nil {
		errs = append(errs, r.GenerationService.Close())
	}
	if r.VectorStore != nil {
		errs = append(errs, r.VectorStore.Close())
	}
	return errors.Join(errs...)
}

// Init builds every adapter for cfg. Model providers that cannot be created
// are reported in Warnings and left nil; a vector store failure is fatal.
func Init(ctx context.Context, cfg domain.Config, prompts driven.PromptStore) (*InitResult, error) {
	result := &InitResult{
		ImageLoader: imageloader.New(imageloader.Config{AllowRemote: true}),
		PromptStore: prompts,
	}
	limiters := newLimiters(cfg.RateLimit)

	embedding, err := CreateEmbeddingService(ctx, cfg.Embedding)
	if err != nil {
		result.warn("embedding disabled: %v", err)
	}
	if embedding != nil {
		embedding = ratelimit.WrapEmbedding(embedding, limiters.get(cfg.Embedding.Provider))
		result.EmbeddingService = cache.Wrap(embedding, cfg.Cache.Size, cfg.Cache.TTL)
	}

	vision, err := CreateVisionService(ctx, cfg.Vision)
	if err != nil {
		result.warn("vision disabled: %v", err)
	}
	if vision != nil {
		if aware, ok := vision.(driven.PromptStoreAware); ok && prompts != nil {
			aware.SetPromptStore(prompts)
		}
		result.VisionService = ratelimit.WrapVision(vision, limiters.get(cfg.Vision.Provider))
	}

	generation, err := CreateGenerationService(ctx, cfg.Generation.ModelSettings)
	if err != nil {
		result.warn("generation disabled: %v", err)
	}
	if generation != nil {
		result.GenerationService = ratelimit.WrapGeneration(generation, limiters.get(cfg.Generation.Provider))
	}

	dim := cfg.Embedding.ResolvedDimensions()
	if dim == 0 && result.EmbeddingService != nil {
		dim = result.EmbeddingService.Dimensions()
	}
	store, err := CreateVectorStore(ctx, cfg.VectorStore, dim)
	if err != nil {
		_ = result.Close()
		return nil, err
	}
	result.VectorStore = store

	return result, nil
}

func (r *InitResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// limiters shares one rate limiter per provider across capabilities.
type limiters struct {
	cfg domain.RateLimitConfig
	by  map[domain.AIProvider]*ratelimit.Limiter
}

func newLimiters(cfg domain.RateLimitConfig) *limiters {
	return &limiters{cfg: cfg, by: make(map[domain.AIProvider]*ratelimit.Limiter)}
}

func (l *limiters) get(provider domain.AIProvider) *ratelimit.Limiter {
	if lim, ok := l.by[provider]; ok {
		return lim
	}
	lim := ratelimit.NewLimiter(l.cfg)
	l.by[provider] = lim
	return lim
}

// CreateVectorStore opens the configured backend.
// dim is required by backends with a fixed-width vector column.
func CreateVectorStore(ctx context.Context, settings domain.VectorStoreSettings, dim int) (driven.VectorStore, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory:
		return memory.NewVectorStore(), nil

	case domain.VectorBackendSQLite, "":
		store, err := sqlite.NewStore(settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnreachable, err)
		}
		return store, nil

	case domain.VectorBackendPostgres:
		store, err := postgres.NewStore(ctx, postgres.Config{DSN: settings.DSN, Dimensions: dim})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnreachable, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unsupported vector store backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderGemini:
		svc, err := gemini.NewEmbeddingService(ctx, geminiConfig(settings.ModelSettings))
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		// Anthropic does not offer an embeddings API.
		return nil, errors.New("anthropic does not support embeddings, use ollama, openai or gemini")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateVisionService creates the appropriate vision service based on settings.
// Returns nil if the provider is not configured.
func CreateVisionService(ctx context.Context, settings domain.ModelSettings) (driven.VisionService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewVisionService(openaiConfig(settings))
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderGemini:
		svc, err := gemini.NewVisionService(ctx, geminiConfig(settings))
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%s does not support vision, use openai or gemini", settings.Provider)
	}
}

// CreateGenerationService creates the appropriate generation service based on settings.
// Returns nil if the provider is not configured.
func CreateGenerationService(ctx context.Context, settings domain.ModelSettings) (driven.GenerationService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewGenerationService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewGenerationService(openaiConfig(settings))
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewGenerationService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderGemini:
		svc, err := gemini.NewGenerationService(ctx, geminiConfig(settings))
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", settings.Provider)
	}
}

func openaiConfig(settings domain.ModelSettings) openaillm.LLMConfig {
	return openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	}
}

func geminiConfig(settings domain.ModelSettings) gemini.Config {
	return gemini.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	}
}

// pingable is the part of every model service used for validation.
type pingable interface {
	Ping(ctx context.Context) error
	Close() error
}

// ping checks connectivity and releases the service.
func ping(svc pingable) error {
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
