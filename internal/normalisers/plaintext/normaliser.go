package plaintext

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/x-rst",
		"text/x-log",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise splits the text into paragraphs on blank lines.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &domain.NormalisedDocument{
		Source: raw.Source,
		Title:  extractTitle(raw.Source),
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	for _, para := range blankLines.Split(content, -1) {
		if text := strings.TrimSpace(para); text != "" {
			doc.Blocks = append(doc.Blocks, domain.ContentBlock{Kind: domain.BlockParagraph, Text: text})
		}
	}
	return doc, nil
}

// extractTitle extracts a human-readable title from a URI.
func extractTitle(uri string) string {
	filename := filepath.Base(uri)

	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
