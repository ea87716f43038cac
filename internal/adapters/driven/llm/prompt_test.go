package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPrompts struct {
	prompt string
	err    error
}

func (s stubPrompts) Load(string) (string, error) { return s.prompt, s.err }
func (s stubPrompts) Reload()                     {}

func TestVisionPrompt(t *testing.T) {
	assert.Contains(t, VisionPrompt(nil, " Login flow "), "alt text is: Login flow")
	assert.Contains(t, VisionPrompt(nil, ""), "(none)")

	assert.Equal(t, "custom: arch", VisionPrompt(stubPrompts{prompt: "custom: %s"}, "arch"))

	// Templates without a placeholder or failing loads fall back.
	assert.Contains(t, VisionPrompt(stubPrompts{prompt: "no placeholder"}, "x"), "technical documentation")
	assert.Contains(t, VisionPrompt(stubPrompts{err: errors.New("gone")}, "x"), "technical documentation")
}
