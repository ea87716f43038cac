package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Normaliser transforms raw documents into ordered content blocks.
// Each normaliser handles specific MIME types (e.g., HTML, Markdown).
//
// Normalisation is a pure transformation. Malformed input degrades: unparseable
// fragments are skipped and counted in NormalisedDocument.SkippedFragments.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Generic MIME normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into content blocks.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error)
}
