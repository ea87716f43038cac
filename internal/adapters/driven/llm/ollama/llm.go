// Package ollama provides a generation adapter using Ollama.
package ollama

import (
	"context"
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
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama generation service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// GenerationService answers prompts with a local Ollama model.
type GenerationService struct {
	client *httpapi.Client
	model  string
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewGenerationService creates a new Ollama generation service.
func NewGenerationService(cfg LLMConfig) *GenerationService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &GenerationService{
		client: httpapi.New("ollama", cfg.BaseURL, cfg.Timeout, nil),
		model:  cfg.Model,
	}
}

// Generate produces a completion via /api/chat with streaming disabled.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{Model: s.model, Messages: messages}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.Options = &options{NumPredict: req.MaxTokens, Temperature: req.Temperature}
	}

	var resp chatResponse
	if err := s.client.PostJSON(ctx, "/api/chat", body, &resp); err != nil {
		return domain.GenerationResult{Availability: domain.Unavailable(httpapi.Reason(err))}
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return domain.GenerationResult{Availability: domain.Unavailable("ollama: empty completion")}
	}
	return domain.GenerationResult{Availability: domain.Available(), Text: text}
}

// ModelName returns the name of the LLM model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *GenerationService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/api/tags", nil)
}

// Close releases resources.
func (s *GenerationService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
