// Package dedupe drops text chunks that repeat earlier content of the same document.
package dedupe

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Processor implements the interface.
var _ driven.ChunkProcessor = (*Processor)(nil)

// Processor removes duplicate text chunks. Image chunks always pass through.
// Chunk ids are kept as assigned so remaining ids stay stable.
type Processor struct{}

// New creates a new dedupe processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "dedupe"
}

// Process keeps the first occurrence of each normalised text body.
func (p *Processor) Process(_ context.Context, doc *domain.NormalisedDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	seen := make(map[string]bool, len(chunks))
	out := make([]domain.Chunk, 0, len(chunks))

	for _, c := range chunks {
		if c.IsImage() {
			out = append(out, c)
			continue
		}
		key := normalise(c.Body)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	if dropped := len(chunks) - len(out); dropped > 0 && doc != nil {
		logger.Debug("dedupe: dropped %d duplicate chunks from %s", dropped, doc.Source)
	}
	return out, nil
}

func normalise(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
