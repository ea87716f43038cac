package normalisers

import (
	"context"
	"fmt"
	"mime"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to normalisers by MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// Register adds a normaliser for each of its MIME types.
// Normalisers for the same MIME type are kept in descending priority order.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range n.SupportedMIMETypes() {
		mt = baseMIMEType(mt)
		list := append(r.byMIME[mt], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mt] = list
	}
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mt := range r.byMIME {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Normalise runs the preferred normaliser for the document's MIME type.
// When the MIME type is empty it is detected from the source name and content.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mt := baseMIMEType(raw.MIMEType)
	if mt == "" {
		mt = DetectMIMEType(raw.Source, raw.Content)
	}

	r.mu.RLock()
	list := r.byMIME[mt]
	r.mu.RUnlock()

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, mt)
	}

	logger.Debug("normalising %s as %s", raw.Source, mt)
	doc, err := list[0].Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	if doc.Source == "" {
		doc.Source = raw.Source
	}
	return doc, nil
}

// baseMIMEType strips parameters such as charset and lowercases the type.
func baseMIMEType(mt string) string {
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
