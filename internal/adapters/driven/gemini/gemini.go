// Package gemini provides embedding, generation and vision adapters over the
// Google Generative AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Default configuration values.
const (
	DefaultEmbeddingModel  = "text-embedding-004"
	DefaultGenerationModel = "gemini-1.5-flash"
	DefaultTimeout         = 120 * time.Second
)

// Config holds configuration for the Gemini services.
type Config struct {
	// APIKey is the Google AI Studio API key (required).
	APIKey string

	// Model is the model to use. Defaults depend on the service.
	Model string

	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string

	// Timeout bounds each call (default: 120s).
	Timeout time.Duration
}

func newClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

func withDefaults(cfg Config, model string) Config {
	if cfg.Model == "" {
		cfg.Model = model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg
}

// wrapError maps SDK errors onto domain errors.
func wrapError(err error) error {
	if isRateLimited(err) {
		return fmt.Errorf("gemini: %w: %w", domain.ErrRateLimited, err)
	}
	return fmt.Errorf("gemini: %w", err)
}

// isRateLimited returns true if the error indicates rate limiting.
func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
