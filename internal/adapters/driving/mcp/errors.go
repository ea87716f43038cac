// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants ask questions about indexed documentation and keep the
// index up to date.
package mcp

import "errors"

var (
	// ErrMissingAnswerService is returned when the answer service is not provided.
	ErrMissingAnswerService = errors.New("mcp: answer service is required")

	// ErrMissingIndexService is returned when the index service is not provided.
	ErrMissingIndexService = errors.New("mcp: index service is required")
)
