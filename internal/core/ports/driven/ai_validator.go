package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying AI services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateEmbedding(settings domain.EmbeddingSettings) error

	// ValidateModel validates a vision or generation configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateModel(capability string, settings domain.ModelSettings) error
}
