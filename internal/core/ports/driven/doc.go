// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Turns raw documents into content blocks
//   - ChunkProcessor: Turns content blocks into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Vector record persistence and similarity search
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VisionService: Describes images. Without it, image chunks fall back to alt text.
//   - GenerationService: Synthesises answers. Without it, answers are retrieval-only.
//   - ImageLoader: Fetches image bytes for the vision service.
//   - PromptStore: Customisable prompt templates. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
