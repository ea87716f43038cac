package driven

// PromptStore provides access to prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswerSystem instructs the model to answer strictly from context.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswer wraps the question and context.
	// The template expects %s (context) and %s (question) placeholders.
	PromptAnswer = "answer"

	// PromptFollowUps asks for follow-up questions.
	// The template expects %d (count), %s (question) and %s (context) placeholders.
	PromptFollowUps = "follow_ups"

	// PromptVision asks for a description of a diagram.
	// The template expects a %s placeholder for the alt text.
	PromptVision = "vision"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
