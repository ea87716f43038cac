package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps configuration in memory. Nothing is read from or written to disk.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates a config store seeded with a copy of initial, if given.
func NewConfigStore(initial ...map[string]any) *ConfigStore {
	values := make(map[string]any)
	for _, m := range initial {
		maps.Copy(values, m)
	}
	return &ConfigStore{values: values}
}

// Get returns the value stored under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString returns a string value, or "" for missing and non-string values.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Set stores value under key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Keys returns the stored keys, sorted.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Path returns a marker path.
func (s *ConfigStore) Path() string {
	return ":memory:"
}
