// Package llm holds what the generative model adapters share.
// Provider implementations live in the subpackages.
package llm

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DefaultVisionPrompt asks for a retrieval-friendly diagram description.
// It expects a %s placeholder for the alt text.
const DefaultVisionPrompt = `Describe this image from technical documentation so it can be found by search.
Name the components, labels and relationships it shows, and any text it contains.
Keep it under 200 words. The author's alt text is: %s`

// VisionPrompt renders the vision prompt for altText, preferring the store's template.
func VisionPrompt(store driven.PromptStore, altText string) string {
	tmpl := DefaultVisionPrompt
	if store != nil {
		if p, err := store.Load(driven.PromptVision); err == nil && strings.Contains(p, "%s") {
			tmpl = p
		}
	}
	alt := strings.TrimSpace(altText)
	if alt == "" {
		alt = "(none)"
	}
	return fmt.Sprintf(tmpl, alt)
}
