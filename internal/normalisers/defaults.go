package normalisers

import (
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/eml"
	"github.com/custodia-labs/docqa/internal/normalisers/html"
	"github.com/custodia-labs/docqa/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa/internal/normalisers/openapi"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
)

// RegisterDefaults registers the built-in normalisers.
func RegisterDefaults(r *Registry) {
	r.Register(docx.New())
	r.Register(eml.New())
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(openapi.New())
	r.Register(plaintext.New())
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
