package domain

import "time"

// IndexHealth describes the state of the vector index.
type IndexHealth struct {
	// Backend names the vector store (e.g., "sqlite").
	Backend string `json:"backend"`

	// Reachable is false when the store could not be contacted.
	Reachable bool `json:"reachable"`

	// RecordCount is the number of stored vector records.
	RecordCount int `json:"record_count"`

	// Dimension is the configured vector dimension.
	Dimension int `json:"dimension"`

	// Error describes why the index is degraded.
	Error string `json:"error,omitempty"`
}

// ModelHealth describes the state of one model capability.
type ModelHealth struct {
	// Configured is false when no provider is set up for the capability.
	Configured bool `json:"configured"`

	// Reachable is true when the provider answered a ping.
	Reachable bool `json:"reachable"`

	// Provider and Model identify the backing model.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Error describes why the capability is degraded.
	Error string `json:"error,omitempty"`
}

// HealthStatus is the health summary of the index and models.
type HealthStatus struct {
	Index      IndexHealth `json:"index"`
	Embedding  ModelHealth `json:"embedding"`
	Vision     ModelHealth `json:"vision"`
	Generation ModelHealth `json:"generation"`
	CheckedAt  time.Time   `json:"checked_at"`
}

// Ready returns true when questions can be answered: the index is reachable
// and the embedding model responds. Vision and generation are optional.
func (h *HealthStatus) Ready() bool {
	return h.Index.Reachable && h.Embedding.Reachable
}

// SourceSummary describes one indexed source.
type SourceSummary struct {
	Source      string `json:"source"`
	RecordCount int    `json:"record_count"`
	TextCount   int    `json:"text_count"`
	ImageCount  int    `json:"image_count"`
}
