package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer answers questions from the index.
	Answer driving.AnswerService

	// Index ingests and removes documents.
	Index driving.IndexService

	// Status reports index and model health. Optional.
	Status driving.StatusService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}
