// Package openai provides generation and vision adapters using the OpenAI chat API.
package openai

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
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI chat services.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// chatClient is the /chat/completions plumbing shared by generation and vision.
type chatClient struct {
	client *httpapi.Client
	model  string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg carries either a string or a list of content parts.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multi-part message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func newChatClient(cfg LLMConfig) (*chatClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	header := http.Header{"Authorization": {"Bearer " + cfg.APIKey}}
	return &chatClient{
		client: httpapi.New("openai", cfg.BaseURL, cfg.Timeout, header),
		model:  cfg.Model,
	}, nil
}

// complete sends messages and returns the first choice's content.
func (c *chatClient) complete(ctx context.Context, req chatCompletionRequest) (string, error) {
	req.Model = c.model

	var resp chatCompletionResponse
	if err := c.client.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *chatClient) ping(ctx context.Context) error {
	return c.client.Get(ctx, "/models", nil)
}

// GenerationService answers prompts with an OpenAI chat model.
type GenerationService struct {
	chat *chatClient
}

// NewGenerationService creates a new OpenAI generation service.
func NewGenerationService(cfg LLMConfig) (*GenerationService, error) {
	chat, err := newChatClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GenerationService{chat: chat}, nil
}

// Generate produces a completion. Provider failures degrade to Unavailable.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	messages := make([]chatCompletionMsg, 0, 2)
	if req.System != "" {
		messages = append(messages, chatCompletionMsg{Role: "system", Content: req.System})
	}
	messages = append(messages, chatCompletionMsg{Role: "user", Content: req.Prompt})

	text, err := s.chat.complete(ctx, chatCompletionRequest{
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return domain.GenerationResult{Availability: domain.Unavailable(httpapi.Reason(err))}
	}
	if text == "" {
		return domain.GenerationResult{Availability: domain.Unavailable("openai: empty completion")}
	}
	return domain.GenerationResult{Availability: domain.Available(), Text: text}
}

// ModelName returns the name of the chat model being used.
func (s *GenerationService) ModelName() string {
	return s.chat.model
}

// Ping validates the API key against the /models endpoint.
func (s *GenerationService) Ping(ctx context.Context) error {
	return s.chat.ping(ctx)
}

// Close releases resources.
func (s *GenerationService) Close() error {
	return nil
}
