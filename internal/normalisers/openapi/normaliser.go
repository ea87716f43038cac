package openapi

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles standalone OpenAPI/Swagger documents.
type Normaliser struct{}

// New creates a new OpenAPI normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.oai.openapi",
		"application/vnd.oai.openapi+json",
		"application/yaml",
		"application/x-yaml",
		"text/yaml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise converts an OpenAPI document into a heading, an optional
// description paragraph and one api-operation block per operation.
// YAML that is not an API description is kept as a single paragraph.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &domain.NormalisedDocument{
		Source: raw.Source,
		Title:  fileTitle(raw.Source),
	}

	spec, err := Parse(raw.Content)
	if err != nil {
		text := strings.TrimSpace(string(raw.Content))
		if text == "" {
			return doc, nil
		}
		if LooksLikeSpec(text) {
			logger.Warn("openapi: %s: %v", raw.Source, err)
			doc.SkippedFragments++
			return doc, nil
		}
		doc.Blocks = append(doc.Blocks, domain.ContentBlock{Kind: domain.BlockParagraph, Text: text})
		return doc, nil
	}

	if spec.Title != "" {
		doc.Title = spec.Title
		heading := spec.Title
		if spec.Version != "" {
			heading += " (" + spec.Version + ")"
		}
		doc.Blocks = append(doc.Blocks, domain.ContentBlock{Kind: domain.BlockHeading, Text: heading, Level: 1})
	}
	if spec.Description != "" {
		doc.Blocks = append(doc.Blocks, domain.ContentBlock{Kind: domain.BlockParagraph, Text: spec.Description})
	}
	for _, op := range spec.Operations {
		doc.Blocks = append(doc.Blocks, op.Block())
	}
	return doc, nil
}

func fileTitle(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
