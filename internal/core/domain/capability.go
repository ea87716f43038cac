package domain

// Model capabilities, as named in configuration keys.
const (
	CapabilityEmbedding  = "embedding"
	CapabilityVision     = "vision"
	CapabilityGeneration = "generation"
)

// Availability is the outcome variant of an optional model capability call.
// Vision and generation report expected degradations through it instead of errors.
type Availability struct {
	// Available is true when the capability produced a result.
	Available bool

	// Reason explains why the capability was unavailable.
	Reason string
}

// Available returns a successful outcome.
func Available() Availability {
	return Availability{Available: true}
}

// Unavailable returns a degraded outcome with the given reason.
func Unavailable(reason string) Availability {
	return Availability{Reason: reason}
}

// VisionResult is the outcome of describing an image.
type VisionResult struct {
	Availability

	// Description is the model's description of the image.
	Description string
}

// GenerationResult is the outcome of a text generation call.
type GenerationResult struct {
	Availability

	// Text is the generated text.
	Text string
}

// ImageInput is an image handed to a vision model.
type ImageInput struct {
	// Data is the encoded image.
	Data []byte

	// MIMEType is the image format (e.g., "image/png").
	MIMEType string

	// AltText is the alternative text, used as context for the description.
	AltText string
}

// GenerationRequest is a prompt handed to a generative model.
type GenerationRequest struct {
	// System is the instruction prompt.
	System string

	// Prompt is the user content.
	Prompt string

	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0-1.0).
	Temperature float64
}
