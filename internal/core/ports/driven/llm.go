package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// GenerationService synthesises text from a prompt.
// This is an optional service - when nil, answers degrade to retrieval-only results.
//
// Expected failures (unreachable provider, rate limits, timeouts) are reported
// through the result's Availability rather than as errors.
//
// Implementations may include:
//   - OpenAI (GPT-4o)
//   - Anthropic (Claude)
//   - Gemini
//   - Ollama (local models)
type GenerationService interface {
	// Generate produces a completion for the request.
	Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VisionService describes images with a vision-capable model.
// This is an optional service - when nil, image chunks are embedded from alt text alone.
//
// Expected failures are reported through the result's Availability.
type VisionService interface {
	// Describe returns a textual description of the image.
	Describe(ctx context.Context, img domain.ImageInput) domain.VisionResult

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ImageLoader fetches the bytes of a resolved image reference.
type ImageLoader interface {
	// Load returns the image data and its MIME type.
	// The location is a file path, an http(s) URL or a data URI.
	Load(ctx context.Context, location string) (data []byte, mimeType string, err error)
}
