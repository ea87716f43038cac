package openai

import (
	"context"
	"encoding/base64"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/docqa/internal/adapters/driven/llm"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var (
	_ driven.VisionService    = (*VisionService)(nil)
	_ driven.PromptStoreAware = (*VisionService)(nil)
)

// visionMaxTokens bounds diagram descriptions.
const visionMaxTokens = 400

// VisionService describes images with an OpenAI vision-capable chat model.
type VisionService struct {
	chat        *chatClient
	promptStore driven.PromptStore
}

// NewVisionService creates a new OpenAI vision service.
func NewVisionService(cfg LLMConfig) (*VisionService, error) {
	chat, err := newChatClient(cfg)
	if err != nil {
		return nil, err
	}
	return &VisionService{chat: chat}, nil
}

// SetPromptStore sets the store the vision prompt is loaded from.
func (s *VisionService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Describe sends the image inline as a data URI.
func (s *VisionService) Describe(ctx context.Context, img domain.ImageInput) domain.VisionResult {
	if len(img.Data) == 0 {
		return domain.VisionResult{Availability: domain.Unavailable("no image data")}
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)

	text, err := s.chat.complete(ctx, chatCompletionRequest{
		Messages: []chatCompletionMsg{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: llm.VisionPrompt(s.promptStore, img.AltText)},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
		MaxTokens: visionMaxTokens,
	})
	if err != nil {
		return domain.VisionResult{Availability: domain.Unavailable(httpapi.Reason(err))}
	}
	if text == "" {
		return domain.VisionResult{Availability: domain.Unavailable("openai: empty description")}
	}
	return domain.VisionResult{Availability: domain.Available(), Description: text}
}

// ModelName returns the name of the vision model being used.
func (s *VisionService) ModelName() string {
	return s.chat.model
}

// Ping validates the API key against the /models endpoint.
func (s *VisionService) Ping(ctx context.Context) error {
	return s.chat.ping(ctx)
}

// Close releases resources.
func (s *VisionService) Close() error {
	return nil
}
