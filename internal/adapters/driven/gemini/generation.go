package gemini

import (
	"context"

	"github.com/google/generative-ai-go/genai"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/docqa/internal/adapters/driven/llm"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var (
	_ driven.GenerationService = (*GenerationService)(nil)
	_ driven.VisionService     = (*VisionService)(nil)
	_ driven.PromptStoreAware  = (*VisionService)(nil)
)

// visionMaxTokens bounds diagram descriptions.
const visionMaxTokens = 400

// GenerationService answers prompts with a Gemini model.
type GenerationService struct {
	client *genai.Client
	model  string
	cfg    Config
}

// NewGenerationService creates a new Gemini generation service.
func NewGenerationService(ctx context.Context, cfg Config) (*GenerationService, error) {
	cfg = withDefaults(cfg, DefaultGenerationModel)
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GenerationService{client: client, model: cfg.Model, cfg: cfg}, nil
}

// Generate produces a completion. Provider failures degrade to Unavailable.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// A model value is cheap; building one per call keeps settings request-scoped.
	model := s.client.GenerativeModel(s.model)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens)) //nolint:gosec // bounded by config validation
	}
	model.SetTemperature(float32(req.Temperature))

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return domain.GenerationResult{Availability: domain.Unavailable(httpapi.Reason(wrapError(err)))}
	}
	text := responseText(resp)
	if text == "" {
		return domain.GenerationResult{Availability: domain.Unavailable("gemini: empty completion")}
	}
	return domain.GenerationResult{Availability: domain.Available(), Text: text}
}

// ModelName returns the name of the model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping fetches the model's metadata without running inference.
func (s *GenerationService) Ping(ctx context.Context) error {
	return ping(ctx, s.client, s.model)
}

// Close releases the SDK client.
func (s *GenerationService) Close() error {
	return s.client.Close()
}

// VisionService describes images with a multimodal Gemini model.
type VisionService struct {
	client      *genai.Client
	model       string
	cfg         Config
	promptStore driven.PromptStore
}

// NewVisionService creates a new Gemini vision service.
func NewVisionService(ctx context.Context, cfg Config) (*VisionService, error) {
	cfg = withDefaults(cfg, DefaultGenerationModel)
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &VisionService{client: client, model: cfg.Model, cfg: cfg}, nil
}

// SetPromptStore sets the store the vision prompt is loaded from.
func (s *VisionService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Describe sends the image inline alongside the prompt.
func (s *VisionService) Describe(ctx context.Context, img domain.ImageInput) domain.VisionResult {
	if len(img.Data) == 0 {
		return domain.VisionResult{Availability: domain.Unavailable("no image data")}
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	model := s.client.GenerativeModel(s.model)
	model.SetMaxOutputTokens(visionMaxTokens)

	resp, err := model.GenerateContent(ctx,
		genai.Text(llm.VisionPrompt(s.promptStore, img.AltText)),
		genai.Blob{MIMEType: mimeType, Data: img.Data},
	)
	if err != nil {
		return domain.VisionResult{Availability: domain.Unavailable(httpapi.Reason(wrapError(err)))}
	}
	text := responseText(resp)
	if text == "" {
		return domain.VisionResult{Availability: domain.Unavailable("gemini: empty description")}
	}
	return domain.VisionResult{Availability: domain.Available(), Description: text}
}

// ModelName returns the name of the model being used.
func (s *VisionService) ModelName() string {
	return s.model
}

// Ping fetches the model's metadata without running inference.
func (s *VisionService) Ping(ctx context.Context) error {
	return ping(ctx, s.client, s.model)
}

// Close releases the SDK client.
func (s *VisionService) Close() error {
	return s.client.Close()
}

func ping(ctx context.Context, client *genai.Client, model string) error {
	if _, err := client.GenerativeModel(model).Info(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}
