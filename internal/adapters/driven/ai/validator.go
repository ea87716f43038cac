package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates model provider configurations by pinging them.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
// Unconfigured settings are valid: the capability is simply off.
func (v *ConfigValidator) ValidateEmbedding(settings domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(context.Background(), settings)
	if err != nil || svc == nil {
		return err
	}
	if err := ping(svc); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateModel validates a vision or generation configuration by pinging the provider.
func (v *ConfigValidator) ValidateModel(capability string, settings domain.ModelSettings) error {
	switch capability {
	case domain.CapabilityVision:
		svc, err := CreateVisionService(context.Background(), settings)
		if err != nil || svc == nil {
			return err
		}
		if err := ping(svc); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrVisionUnavailable, err)
		}
		return nil

	case domain.CapabilityGeneration:
		svc, err := CreateGenerationService(context.Background(), settings)
		if err != nil || svc == nil {
			return err
		}
		if err := ping(svc); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown capability %q", domain.ErrInvalidInput, capability)
	}
}
