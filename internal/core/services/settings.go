package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables consulted when a value is not stored.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envGoogleKey    = "GOOGLE_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
	envPostgresDSN  = "DOCQA_POSTGRES_DSN"
)

// valueKind selects how a stored value is parsed.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindList
)

// setting binds a config key to a field of domain.Config.
type setting struct {
	kind  valueKind
	apply func(cfg *domain.Config, value string) error
}

// knownSettings is the registry of recognised keys.
//
//nolint:gochecknoglobals // Static key table.
var knownSettings = map[string]setting{
	"embedding.provider":   providerSetting(func(c *domain.Config) *domain.AIProvider { return &c.Embedding.Provider }),
	"embedding.model":      stringSetting(func(c *domain.Config) *string { return &c.Embedding.Model }),
	"embedding.base_url":   stringSetting(func(c *domain.Config) *string { return &c.Embedding.BaseURL }),
	"embedding.api_key":    stringSetting(func(c *domain.Config) *string { return &c.Embedding.APIKey }),
	"embedding.dimensions": intSetting(func(c *domain.Config) *int { return &c.Embedding.Dimensions }),

	"vision.provider": providerSetting(func(c *domain.Config) *domain.AIProvider { return &c.Vision.Provider }),
	"vision.model":    stringSetting(func(c *domain.Config) *string { return &c.Vision.Model }),
	"vision.base_url": stringSetting(func(c *domain.Config) *string { return &c.Vision.BaseURL }),
	"vision.api_key":  stringSetting(func(c *domain.Config) *string { return &c.Vision.APIKey }),

	"generation.provider":    providerSetting(func(c *domain.Config) *domain.AIProvider { return &c.Generation.Provider }),
	"generation.model":       stringSetting(func(c *domain.Config) *string { return &c.Generation.Model }),
	"generation.base_url":    stringSetting(func(c *domain.Config) *string { return &c.Generation.BaseURL }),
	"generation.api_key":     stringSetting(func(c *domain.Config) *string { return &c.Generation.APIKey }),
	"generation.max_tokens":  intSetting(func(c *domain.Config) *int { return &c.Generation.MaxTokens }),
	"generation.temperature": floatSetting(func(c *domain.Config) *float64 { return &c.Generation.Temperature }),

	"vector_store.backend": {kind: kindString, apply: func(c *domain.Config, v string) error {
		b := domain.VectorBackend(v)
		if !b.IsValid() {
			return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, v)
		}
		c.VectorStore.Backend = b
		return nil
	}},
	"vector_store.data_dir": stringSetting(func(c *domain.Config) *string { return &c.VectorStore.DataDir }),
	"vector_store.dsn":      stringSetting(func(c *domain.Config) *string { return &c.VectorStore.DSN }),

	"chunking.max_chunk_chars": intSetting(func(c *domain.Config) *int { return &c.Chunking.MaxChunkChars }),
	"chunking.min_chunk_chars": intSetting(func(c *domain.Config) *int { return &c.Chunking.MinChunkChars }),
	"chunking.processors": {kind: kindList, apply: func(c *domain.Config, v string) error {
		c.Chunking.Processors = splitList(v)
		return nil
	}},

	"indexing.embed_batch_size":   intSetting(func(c *domain.Config) *int { return &c.Indexing.EmbedBatchSize }),
	"indexing.upsert_batch_size":  intSetting(func(c *domain.Config) *int { return &c.Indexing.UpsertBatchSize }),
	"indexing.workers":            intSetting(func(c *domain.Config) *int { return &c.Indexing.Workers }),
	"indexing.max_write_attempts": intSetting(func(c *domain.Config) *int { return &c.Indexing.MaxWriteAttempts }),
	"indexing.retry_base_delay":   durationSetting(func(c *domain.Config) *time.Duration { return &c.Indexing.RetryBaseDelay }),
	"indexing.retry_max_delay":    durationSetting(func(c *domain.Config) *time.Duration { return &c.Indexing.RetryMaxDelay }),

	"retrieval.top_k":              intSetting(func(c *domain.Config) *int { return &c.Retrieval.TopK }),
	"retrieval.similarity_floor":   floatSetting(func(c *domain.Config) *float64 { return &c.Retrieval.SimilarityFloor }),
	"retrieval.medium_threshold":   floatSetting(func(c *domain.Config) *float64 { return &c.Retrieval.MediumThreshold }),
	"retrieval.high_threshold":     floatSetting(func(c *domain.Config) *float64 { return &c.Retrieval.HighThreshold }),
	"retrieval.max_context_chars":  intSetting(func(c *domain.Config) *int { return &c.Retrieval.MaxContextChars }),
	"retrieval.answer_timeout":     durationSetting(func(c *domain.Config) *time.Duration { return &c.Retrieval.AnswerTimeout }),
	"retrieval.generation_timeout": durationSetting(func(c *domain.Config) *time.Duration { return &c.Retrieval.GenerationTimeout }),
	"retrieval.max_suggestions":    intSetting(func(c *domain.Config) *int { return &c.Retrieval.MaxSuggestions }),

	"ratelimit.requests_per_second": floatSetting(func(c *domain.Config) *float64 { return &c.RateLimit.RequestsPerSecond }),
	"ratelimit.burst":               intSetting(func(c *domain.Config) *int { return &c.RateLimit.Burst }),

	"cache.size": intSetting(func(c *domain.Config) *int { return &c.Cache.Size }),
	"cache.ttl":  durationSetting(func(c *domain.Config) *time.Duration { return &c.Cache.TTL }),
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// The validator is optional (can be nil); without it ValidateProviders is a no-op.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get builds the effective configuration: defaults, then stored values, then
// API keys and the Postgres DSN from the environment when none is stored.
// Stored values that fail to parse are reported; the result is not validated.
func (s *SettingsService) Get() (domain.Config, error) {
	cfg := domain.DefaultConfig()

	var errs []error
	for _, key := range s.Keys() {
		raw, ok := s.configStore.Get(key)
		if !ok {
			continue
		}
		if err := knownSettings[key].apply(&cfg, storedString(raw)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	for _, key := range s.configStore.Keys() {
		if _, ok := knownSettings[key]; !ok {
			logger.Warn("ignoring unknown setting %q in %s", key, s.configStore.Path())
		}
	}

	// A provider change without a model picks the provider default.
	if s.configStore.GetString("embedding.model") == "" {
		if m, ok := domain.DefaultEmbeddingModels()[cfg.Embedding.Provider]; ok {
			cfg.Embedding.Model = m
		}
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = domain.DefaultVisionModels()[cfg.Vision.Provider]
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = domain.DefaultGenerationModels()[cfg.Generation.Provider]
	}

	s.applyEnv(&cfg)
	return cfg, errors.Join(errs...)
}

// Set parses and stores a single key. The resulting configuration must validate.
func (s *SettingsService) Set(key, value string) error {
	st, ok := knownSettings[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	cfg, err := s.Get()
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if err := st.apply(&cfg, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	stored, err := typedValue(st.kind, value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetAPIKey stores the API key of a capability.
func (s *SettingsService) SetAPIKey(capability, apiKey string) error {
	switch capability {
	case domain.CapabilityEmbedding, domain.CapabilityVision, domain.CapabilityGeneration:
	default:
		return fmt.Errorf("%w: unknown capability %q", domain.ErrInvalidInput, capability)
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("%w: API key is empty", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(capability+".api_key", apiKey); err != nil {
		return fmt.Errorf("save %s api_key: %w", capability, err)
	}
	return nil
}

// Keys returns the recognised configuration keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(knownSettings))
	for k := range knownSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// ValidateProviders pings every configured provider.
func (s *SettingsService) ValidateProviders() error {
	if s.aiValidator == nil {
		return nil
	}
	cfg, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if err := s.aiValidator.ValidateEmbedding(cfg.Embedding); err != nil {
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	}
	if err := s.aiValidator.ValidateModel(domain.CapabilityVision, cfg.Vision); err != nil {
		errs = append(errs, fmt.Errorf("vision: %w", err))
	}
	if err := s.aiValidator.ValidateModel(domain.CapabilityGeneration, cfg.Generation.ModelSettings); err != nil {
		errs = append(errs, fmt.Errorf("generation: %w", err))
	}
	return errors.Join(errs...)
}

// applyEnv fills API keys and the Postgres DSN that are not stored.
func (s *SettingsService) applyEnv(cfg *domain.Config) {
	for _, m := range []*domain.ModelSettings{
		&cfg.Embedding.ModelSettings,
		&cfg.Vision,
		&cfg.Generation.ModelSettings,
	} {
		if m.APIKey == "" {
			m.APIKey = s.envKey(m.Provider)
		}
	}
	if cfg.VectorStore.DSN == "" {
		cfg.VectorStore.DSN = s.getenv(envPostgresDSN)
	}
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(envOpenAIKey)
	case domain.AIProviderGemini:
		return s.getenv(envGoogleKey)
	case domain.AIProviderAnthropic:
		return s.getenv(envAnthropicKey)
	default:
		return ""
	}
}

func stringSetting(field func(*domain.Config) *string) setting {
	return setting{kind: kindString, apply: func(c *domain.Config, v string) error {
		*field(c) = v
		return nil
	}}
}

func providerSetting(field func(*domain.Config) *domain.AIProvider) setting {
	return setting{kind: kindString, apply: func(c *domain.Config, v string) error {
		p := domain.AIProvider(v)
		if v != "" && !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, v)
		}
		*field(c) = p
		return nil
	}}
}

func intSetting(field func(*domain.Config) *int) setting {
	return setting{kind: kindInt, apply: func(c *domain.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidInput, v)
		}
		*field(c) = n
		return nil
	}}
}

func floatSetting(field func(*domain.Config) *float64) setting {
	return setting{kind: kindFloat, apply: func(c *domain.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, v)
		}
		*field(c) = f
		return nil
	}}
}

func durationSetting(field func(*domain.Config) *time.Duration) setting {
	return setting{kind: kindDuration, apply: func(c *domain.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %q is not a duration", domain.ErrInvalidInput, v)
		}
		*field(c) = d
		return nil
	}}
}

// typedValue converts a validated value to the type persisted in the store.
func typedValue(kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindList:
		return splitList(value), nil
	default:
		return value, nil
	}
}

// storedString renders a stored value in the form the setters parse.
func storedString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
