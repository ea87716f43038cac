package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func resetAskFlags() {
	askTopK = 0
	askType = ""
	askJSON = false
}

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_RequiresArg(t *testing.T) {
	_, _, err := execute(t, "ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_HasFlags(t *testing.T) {
	flag := askCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag)
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, askCmd.Flags().Lookup("type"))
	assert.NotNil(t, askCmd.Flags().Lookup("json"))
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	out, _, err := execute(t, "ask", "--top-k", "3", "--type", "text", "How do I", "authenticate?")

	require.NoError(t, err)
	assert.Equal(t, "How do I authenticate?", ts.answer.question)
	assert.Equal(t, domain.AskOptions{TopK: 3, ContentType: domain.ContentText}, ts.answer.opts)

	assert.Contains(t, out, "Answer [HIGH]")
	assert.Contains(t, out, "Send the API key in the X-API-Key header.")
	assert.Contains(t, out, "[1] auth.md (text, 0.91)")
	assert.Contains(t, out, "How do I rotate keys?")
	assert.Contains(t, out, "2/5 relevant")
}

func TestAskCmd_RetrievalOnlyShowsReason(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	ts.answer.answer = &domain.Answer{
		AnswerText: "Relevant passages:\n- auth.md",
		Confidence: domain.ConfidenceMedium,
		Outcome:    domain.OutcomeRetrievalOnly,
		Reason:     "generation unavailable: timed out",
	}

	out, _, err := execute(t, "ask", "question")

	require.NoError(t, err)
	assert.Contains(t, out, "Answer [MEDIUM]")
	assert.Contains(t, out, "Note: generation unavailable: timed out")
}

func TestAskCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	out, _, err := execute(t, "ask", "--json", "question")

	require.NoError(t, err)
	assert.Contains(t, out, `"confidence": "high"`)
	assert.Contains(t, out, `"follow_up_suggestions"`)
}

func TestAskCmd_InvalidType(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	_, _, err := execute(t, "ask", "--type", "video", "question")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()
	ts.answer.err = domain.ErrIndexUnreachable

	_, _, err := execute(t, "ask", "question")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexUnreachable)
}
