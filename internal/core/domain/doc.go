// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: Opaque bytes handed to the indexing pipeline
//   - ContentBlock: An atomic unit extracted by a normaliser
//   - Chunk: A retrievable unit built from one section or one image
//   - VectorRecord: The persisted, embedded form of a chunk
//   - Answer: The attributed, confidence-graded response to a question
//   - Config: The immutable configuration shared by all components
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
