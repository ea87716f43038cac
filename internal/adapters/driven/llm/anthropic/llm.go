// Package anthropic provides a generation adapter using the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	// AnthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic generation service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// GenerationService answers prompts with a Claude model.
type GenerationService struct {
	client *httpapi.Client
	model  string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewGenerationService creates a new Anthropic generation service.
func NewGenerationService(cfg Config) (*GenerationService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", anthropicVersion)
	return &GenerationService{
		client: httpapi.New("anthropic", cfg.BaseURL, cfg.Timeout, header),
		model:  cfg.Model,
	}, nil
}

// Generate produces a completion. Provider failures degrade to Unavailable.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	// Anthropic requires max_tokens to be set
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body := messagesRequest{
		Model:       s.model,
		Messages:    []messagesMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: req.Temperature,
	}

	var resp messagesResponse
	if err := s.client.PostJSON(ctx, "/v1/messages", body, &resp); err != nil {
		return domain.GenerationResult{Availability: domain.Unavailable(httpapi.Reason(err))}
	}

	// Concatenate all text content blocks
	var result strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(result.String())
	if text == "" {
		return domain.GenerationResult{Availability: domain.Unavailable("anthropic: no response content returned")}
	}
	return domain.GenerationResult{Availability: domain.Available(), Text: text}
}

// ModelName returns the name of the LLM model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the API key against the /v1/models endpoint without running inference.
func (s *GenerationService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/v1/models", nil)
}

// Close releases resources.
func (s *GenerationService) Close() error {
	return nil
}
