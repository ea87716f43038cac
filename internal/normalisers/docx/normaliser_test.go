package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// createTestDOCX creates a minimal DOCX package in memory from part name to content.
func createTestDOCX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	ct, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	for name, content := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func wordDocument(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
 xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"
 xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
 xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
 xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">
<w:body>` + body + `</w:body></w:document>`
}

func pictureXML(id, descr string) string {
	return `<w:r><w:drawing><wp:inline><wp:docPr id="1" name="Picture 1" descr="` + descr + `"/>
<a:graphic><a:graphicData><pic:pic><pic:blipFill><a:blip r:embed="` + id + `"/></pic:blipFill></pic:pic></a:graphicData></a:graphic>
</wp:inline></w:drawing></w:r>`
}

func normalise(t *testing.T, raw *domain.RawDocument) *domain.NormalisedDocument {
	t.Helper()
	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{docxMIME}, New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Structure(t *testing.T) {
	body := `
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Ordering</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Orders are </w:t></w:r><w:hyperlink r:id="rId9"><w:r><w:t>validated</w:t></w:r></w:hyperlink><w:r><w:t xml:space="preserve"> first.</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Reserve stock</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Tables</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Cell text</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:p><w:r><w:t></w:t></w:r></w:p>`

	raw := &domain.RawDocument{
		Source:   "guides/order-flow.docx",
		MIMEType: docxMIME,
		Content:  createTestDOCX(t, map[string]string{documentPart: wordDocument(body)}),
	}
	doc := normalise(t, raw)

	assert.Equal(t, "order flow", doc.Title)
	assert.Equal(t, raw.Source, doc.Source)
	assert.Zero(t, doc.SkippedFragments)

	require.Len(t, doc.Blocks, 5)
	assert.Equal(t, domain.ContentBlock{Kind: domain.BlockHeading, Text: "Ordering", Level: 1}, doc.Blocks[0])
	assert.Equal(t, domain.ContentBlock{Kind: domain.BlockParagraph, Text: "Orders are validated first."}, doc.Blocks[1])
	assert.Equal(t, domain.ContentBlock{Kind: domain.BlockList, Text: "- Reserve stock"}, doc.Blocks[2])
	assert.Equal(t, domain.ContentBlock{Kind: domain.BlockHeading, Text: "Tables", Level: 2}, doc.Blocks[3])
	assert.Equal(t, domain.ContentBlock{Kind: domain.BlockParagraph, Text: "Cell text"}, doc.Blocks[4])
}

func TestNormalise_Images(t *testing.T) {
	body := `<w:p><w:r><w:t>Flow:</w:t></w:r>` + pictureXML("rId5", "Checkout process diagram") + `</w:p>
<w:p>` + pictureXML("rId6", "Remote chart") + `</w:p>
<w:p>` + pictureXML("rId7", "Dangling") + `</w:p>`
	rels := `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
<Relationship Id="rId6" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="https://example.com/chart.png" TargetMode="External"/>
</Relationships>`

	raw := &domain.RawDocument{
		Source:  "flow.docx",
		BaseURI: "/docs/flow.docx",
		Content: createTestDOCX(t, map[string]string{
			documentPart:           wordDocument(body),
			relsPart:               rels,
			"word/media/image1.png": "\x89PNG\r\n\x1a\n",
		}),
	}
	doc := normalise(t, raw)

	require.Len(t, doc.Blocks, 4)
	assert.Equal(t, domain.BlockParagraph, doc.Blocks[0].Kind)

	embedded := doc.Blocks[1]
	assert.Equal(t, domain.BlockImageRef, embedded.Kind)
	assert.Equal(t, "Checkout process diagram", embedded.AltText)
	assert.True(t, strings.HasPrefix(embedded.ImagePath, "data:image/png;base64,"), embedded.ImagePath)

	assert.Equal(t, "https://example.com/chart.png", doc.Blocks[2].ImagePath)

	dangling := doc.Blocks[3]
	assert.Equal(t, "Dangling", dangling.AltText)
	assert.False(t, dangling.HasImagePath())
}

func TestNormalise_TitleFromCoreProperties(t *testing.T) {
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title> Payments Handbook </dc:title></cp:coreProperties>`

	raw := &domain.RawDocument{
		Source: "handbook.docx",
		Content: createTestDOCX(t, map[string]string{
			documentPart: wordDocument(`<w:p><w:r><w:t>Hi</w:t></w:r></w:p>`),
			corePart:     core,
		}),
	}
	assert.Equal(t, "Payments Handbook", normalise(t, raw).Title)
}

func TestNormalise_MalformedBodyKeepsPrefix(t *testing.T) {
	body := `<w:p><w:r><w:t>Kept</w:t></w:r></w:p><w:p><w:r><w:t>Broken</w:r></w:p>`
	raw := &domain.RawDocument{
		Source:  "broken.docx",
		Content: createTestDOCX(t, map[string]string{documentPart: wordDocument(body)}),
	}
	doc := normalise(t, raw)

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Kept", doc.Blocks[0].Text)
	assert.Equal(t, 1, doc.SkippedFragments)
	assert.True(t, doc.Degraded())
}

func TestNormalise_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		raw  *domain.RawDocument
	}{
		{name: "nil document", raw: nil},
		{name: "not a zip", raw: &domain.RawDocument{Source: "x.docx", Content: []byte("plain text")}},
		{
			name: "missing document part",
			raw:  &domain.RawDocument{Source: "x.docx", Content: createTestDOCX(t, map[string]string{corePart: "<x/>"})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New().Normalise(context.Background(), tt.raw)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, doc)
		})
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1": 1,
		"Heading3": 3,
		"Heading9": 6,
		"Title":    1,
		"Normal":   0,
		"HeadingX": 0,
		"":         0,
	}
	for style, want := range tests {
		t.Run(style, func(t *testing.T) {
			assert.Equal(t, want, headingLevel(style))
		})
	}
}
