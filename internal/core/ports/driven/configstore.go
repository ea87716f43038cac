package driven

// ConfigStore persists individual settings under dot-separated keys
// ("retrieval.top_k"). Values keep the type they were decoded with, so
// callers parse them rather than relying on a concrete Go type.
type ConfigStore interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns a string value, or "" for missing and non-string values.
	GetString(key string) string

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Keys returns every stored key, sorted.
	Keys() []string

	// Path returns where the configuration is stored.
	Path() string
}
