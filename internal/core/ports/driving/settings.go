package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages persisted configuration.
type SettingsService interface {
	// Get builds the effective configuration from defaults and stored values.
	Get() (domain.Config, error)

	// Set stores a single configuration key after validating the result.
	Set(key, value string) error

	// SetAPIKey stores the API key of a capability ("embedding", "vision", "generation").
	SetAPIKey(capability, apiKey string) error

	// Keys returns the recognised configuration keys.
	Keys() []string

	// Path returns the configuration file path.
	Path() string

	// ValidateProviders pings every configured provider.
	ValidateProviders() error
}
