package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func normalise(t *testing.T, content string) *domain.NormalisedDocument {
	t.Helper()
	doc, err := New().Normalise(context.Background(), &domain.RawDocument{
		Source:   "handbook.md",
		BaseURI:  "/srv/docs/handbook.md",
		MIMEType: "text/markdown",
		Content:  []byte(content),
	})
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func TestMetadata(t *testing.T) {
	n := New()

	assert.Equal(t, []string{"text/markdown", "text/x-markdown"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_Structure(t *testing.T) {
	doc := normalise(t, `# Handbook

Welcome to the *team*.
Read this first.

## Setup

- Install the CLI
- Run `+"`docqa index`"+`
  1. Pick a file
  2. Wait

![Architecture diagram](img/arch.png)
`)

	assert.Equal(t, "Handbook", doc.Title)
	require.Len(t, doc.Blocks, 5)

	assert.Equal(t, domain.ContentBlock{Kind: domain.BlockHeading, Text: "Handbook", Level: 1}, doc.Blocks[0])
	assert.Equal(t, "Welcome to the team. Read this first.", doc.Blocks[1].Text)
	assert.Equal(t, 2, doc.Blocks[2].Level)
	assert.Equal(t, domain.BlockList, doc.Blocks[3].Kind)
	assert.Equal(t, "- Install the CLI\n- Run docqa index\n  1. Pick a file\n  2. Wait", doc.Blocks[3].Text)

	img := doc.Blocks[4]
	assert.Equal(t, domain.BlockImageRef, img.Kind)
	assert.Equal(t, "/srv/docs/img/arch.png", img.ImagePath)
	assert.Equal(t, "Architecture diagram", img.AltText)
}

func TestNormalise_InlineImageSplitsParagraph(t *testing.T) {
	doc := normalise(t, "Before ![Inline](i.png) after\n")

	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, "Before", doc.Blocks[0].Text)
	assert.Equal(t, domain.BlockImageRef, doc.Blocks[1].Kind)
	assert.Equal(t, "after", doc.Blocks[2].Text)
}

func TestNormalise_OpenAPIFence(t *testing.T) {
	doc := normalise(t, "## API\n\n```yaml\nopenapi: 3.0.0\npaths:\n  /orders:\n    get:\n      summary: List orders\n```\n")

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, domain.BlockAPIOperation, doc.Blocks[1].Kind)
	assert.Equal(t, "GET", doc.Blocks[1].APIMethod)
	assert.Equal(t, "/orders", doc.Blocks[1].APIPath)
}

func TestNormalise_BrokenOpenAPIFence(t *testing.T) {
	doc := normalise(t, "Intro\n\n```openapi\npaths: [unclosed\n```\n\nOutro\n")

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, 1, doc.SkippedFragments)
	assert.True(t, doc.Degraded())
}

func TestNormalise_PlainFence(t *testing.T) {
	doc := normalise(t, "```go\nfmt.Println(\"hi\")\n```\n")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, domain.BlockParagraph, doc.Blocks[0].Kind)
	assert.Equal(t, "fmt.Println(\"hi\")", doc.Blocks[0].Text)
}

func TestNormalise_FrontMatterTitle(t *testing.T) {
	doc := normalise(t, "---\ntitle: Employee Handbook\n---\n# Welcome\n")

	assert.Equal(t, "Employee Handbook", doc.Title)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Welcome", doc.Blocks[0].Text)
}

func TestNormalise_BadFrontMatter(t *testing.T) {
	doc := normalise(t, "---\ntitle: [oops\n---\nBody text\n")

	assert.Equal(t, 1, doc.SkippedFragments)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Body text", doc.Blocks[0].Text)
}

func TestNormalise_TitleFallbacks(t *testing.T) {
	assert.Equal(t, "Only Subheading", normalise(t, "### Only Subheading\n").Title)
	assert.Equal(t, "handbook", normalise(t, "no headings here\n").Title)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}
