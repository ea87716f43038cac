package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestStylesFor_PlainWhenNotTerminal(t *testing.T) {
	st := stylesFor(new(bytes.Buffer))

	assert.Equal(t, "Sources", st.Heading("Sources"))
	assert.Equal(t, "[HIGH]", st.Confidence(domain.ConfidenceHigh))
	assert.Equal(t, "[NONE]", st.Confidence(domain.ConfidenceNone))
}

func TestStyles_Status(t *testing.T) {
	st := NewStyles(DefaultTheme(), true)

	assert.Equal(t, "not configured", st.Status(false, false))
	assert.Equal(t, "ok", st.Status(true, true))
	assert.Equal(t, "unreachable", st.Status(true, false))
}

func TestStyles_StyledBadgeKeepsLabel(t *testing.T) {
	st := NewStyles(DefaultTheme(), false)

	for _, c := range []domain.Confidence{domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow} {
		assert.Contains(t, st.Confidence(c), strings.ToUpper(c.String()))
	}
}
