package markdown

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers/openapi"
	"github.com/custodia-labs/docqa/internal/normalisers/resolve"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct {
	md goldmark.Markdown
}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{md: goldmark.New()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a markdown document into content blocks.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &domain.NormalisedDocument{Source: raw.Source}

	body, meta, err := splitFrontMatter(raw.Content)
	if err != nil {
		logger.Warn("markdown: %s: front matter: %v", raw.Source, err)
		doc.SkippedFragments++
	}

	w := &walker{src: body, base: raw.BaseURI}
	root := n.md.Parser().Parse(text.NewReader(body))
	w.children(root)

	doc.Blocks = w.blocks
	doc.SkippedFragments += w.skipped
	doc.Title = extractTitle(meta.Title, w.blocks, raw.Source)
	return doc, nil
}

type frontMatter struct {
	Title string `yaml:"title"`
}

// splitFrontMatter strips a leading YAML front matter block.
func splitFrontMatter(content []byte) ([]byte, frontMatter, error) {
	var meta frontMatter
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return content, meta, nil
	}
	rest := content[bytes.IndexByte(content, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return content, meta, nil
	}
	header := rest[:end]
	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	if err := yaml.Unmarshal(header, &meta); err != nil {
		return body, frontMatter{}, err
	}
	return body, meta, nil
}

type walker struct {
	src     []byte
	base    string
	blocks  []domain.ContentBlock
	inline  strings.Builder
	skipped int
}

func (w *walker) children(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c)
	}
}

func (w *walker) block(n ast.Node) {
	switch v := n.(type) {
	case *ast.Heading:
		if t := plainText(v, w.src); t != "" {
			w.emit(domain.ContentBlock{Kind: domain.BlockHeading, Text: t, Level: v.Level})
		}
		w.images(v)
	case *ast.Paragraph, *ast.TextBlock:
		w.paragraph(v)
	case *ast.List:
		w.list(v)
	case *ast.FencedCodeBlock:
		w.code(string(v.Language(w.src)), codeText(v, w.src))
	case *ast.CodeBlock:
		w.code("", codeText(v, w.src))
	case *ast.ThematicBreak, *ast.HTMLBlock:
	default:
		w.children(n)
	}
}

// paragraph splits inline text around images so blocks keep document order.
func (w *walker) paragraph(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if img, ok := c.(*ast.Image); ok {
			w.flush()
			w.image(img)
			continue
		}
		w.inline.WriteString(plainText(c, w.src))
		if hasImage(c) {
			w.flush()
			w.images(c)
		}
	}
	w.flush()
}

func (w *walker) flush() {
	t := collapse(w.inline.String())
	w.inline.Reset()
	if t != "" {
		w.emit(domain.ContentBlock{Kind: domain.BlockParagraph, Text: t})
	}
}

func (w *walker) emit(b domain.ContentBlock) {
	w.blocks = append(w.blocks, b)
}

func (w *walker) list(n *ast.List) {
	var lines []string
	w.listLines(n, 0, &lines)
	if len(lines) > 0 {
		w.emit(domain.ContentBlock{Kind: domain.BlockList, Text: strings.Join(lines, "\n")})
	}
	w.images(n)
}

func (w *walker) listLines(n *ast.List, depth int, lines *[]string) {
	index := n.Start
	if index == 0 {
		index = 1
	}
	indent := strings.Repeat("  ", depth)

	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []*ast.List
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if c.Kind() == ast.KindFencedCodeBlock || c.Kind() == ast.KindCodeBlock {
				parts = append(parts, codeText(c, w.src))
				continue
			}
			parts = append(parts, plainText(c, w.src))
		}

		if t := collapse(strings.Join(parts, " ")); t != "" {
			marker := "-"
			if n.IsOrdered() {
				marker = strconv.Itoa(index) + "."
			}
			*lines = append(*lines, indent+marker+" "+t)
			index++
		}
		for _, sub := range nested {
			w.listLines(sub, depth+1, lines)
		}
	}
}

func (w *walker) code(lang, code string) {
	code = strings.TrimRight(code, "\n")
	if strings.TrimSpace(code) == "" {
		return
	}

	lang = strings.ToLower(lang)
	hinted := lang == "openapi" || lang == "swagger"
	if hinted || ((lang == "" || lang == "yaml" || lang == "yml" || lang == "json") && openapi.LooksLikeSpec(code)) {
		blocks, err := openapi.Blocks([]byte(code))
		if err != nil {
			logger.Warn("markdown: skipping API schema fragment: %v", err)
			w.skipped++
			return
		}
		for _, b := range blocks {
			w.emit(b)
		}
		return
	}

	w.emit(domain.ContentBlock{Kind: domain.BlockParagraph, Text: code})
}

// images emits every image below n.
func (w *walker) images(n ast.Node) {
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := c.(*ast.Image); ok {
			w.image(img)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

func (w *walker) image(img *ast.Image) {
	src := string(img.Destination)
	alt := collapse(altText(img, w.src))
	if alt == "" {
		alt = strings.TrimSpace(string(img.Title))
	}
	if strings.TrimSpace(src) == "" && alt == "" {
		w.skipped++
		return
	}
	w.emit(domain.ContentBlock{
		Kind:      domain.BlockImageRef,
		ImagePath: resolve.ImagePath(w.base, src),
		AltText:   alt,
	})
}

func hasImage(n ast.Node) bool {
	found := false
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && c.Kind() == ast.KindImage {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// plainText returns the visible text of n, excluding image alt text and raw HTML.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Image, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.URL(src))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func altText(img *ast.Image, src []byte) string {
	var b strings.Builder
	for c := img.FirstChild(); c != nil; c = c.NextSibling() {
		b.WriteString(plainText(c, src))
	}
	return b.String()
}

func codeText(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// extractTitle prefers front matter, then the first level-1 heading,
// then any heading, then the file name.
func extractTitle(meta string, blocks []domain.ContentBlock, uri string) string {
	if t := strings.TrimSpace(meta); t != "" {
		return t
	}
	first := ""
	for _, b := range blocks {
		if b.Kind != domain.BlockHeading {
			continue
		}
		if b.Level == 1 {
			return b.Text
		}
		if first == "" {
			first = b.Text
		}
	}
	if first != "" {
		return first
	}
	filename := filepath.Base(uri)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
