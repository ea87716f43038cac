package html

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers/openapi"
	"github.com/custodia-labs/docqa/internal/normalisers/resolve"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// skipped elements never contribute content.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Form:     true,
	atom.Button:   true,
	atom.Object:   true,
	atom.Canvas:   true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3,
	atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/html",
		"application/xhtml+xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML document into content blocks.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &domain.NormalisedDocument{Source: raw.Source}

	root, err := html.Parse(bytes.NewReader(raw.Content))
	if err != nil {
		logger.Warn("html: %s: %v", raw.Source, err)
		doc.Title = titleFromURI(raw.Source)
		doc.SkippedFragments++
		return doc, nil
	}

	w := &walker{base: resolve.Base(raw.BaseURI, baseHref(root))}
	body := find(root, atom.Body)
	if body == nil {
		body = root
	}
	w.walk(body)
	w.flush()

	doc.Title = extractTitle(root, w.blocks, raw.Source)
	doc.Blocks = w.blocks
	doc.SkippedFragments = w.skipped
	return doc, nil
}

// walker accumulates blocks while traversing the DOM.
type walker struct {
	base    string
	blocks  []domain.ContentBlock
	inline  strings.Builder
	caption string
	skipped int
}

func (w *walker) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *walker) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.inline.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	if skipped[n.DataAtom] {
		return
	}

	if method, path, ok := apiAttributes(n); ok {
		w.flush()
		w.emit(openapi.OperationBlock(method, path, textContent(n)))
		return
	}

	if level, ok := headingLevels[n.DataAtom]; ok {
		w.flush()
		if text := textContent(n); text != "" {
			w.emit(domain.ContentBlock{Kind: domain.BlockHeading, Text: text, Level: level})
		}
		for _, img := range findAll(n, atom.Img) {
			w.image(img)
		}
		return
	}

	switch n.DataAtom {
	case atom.Ul, atom.Ol:
		w.flush()
		w.list(n)
	case atom.Img:
		w.flush()
		w.image(n)
	case atom.Figure:
		w.flush()
		w.figure(n)
	case atom.Pre:
		w.flush()
		w.preformatted(n)
	case atom.Table:
		w.flush()
		w.table(n)
	case atom.Br:
		w.inline.WriteString(" ")
	case atom.A, atom.Span, atom.Strong, atom.Em, atom.B, atom.I, atom.U,
		atom.Code, atom.Kbd, atom.Small, atom.Sup, atom.Sub, atom.Abbr,
		atom.Mark, atom.Label, atom.Q, atom.Cite, atom.Time, atom.Var, atom.S:
		w.walk(n)
	default:
		// Block containers (p, div, section, article, blockquote, ...)
		w.flush()
		w.walk(n)
		w.flush()
	}
}

// flush turns buffered loose text into a paragraph.
func (w *walker) flush() {
	text := collapse(w.inline.String())
	w.inline.Reset()
	if text != "" {
		w.emit(domain.ContentBlock{Kind: domain.BlockParagraph, Text: text})
	}
}

func (w *walker) emit(b domain.ContentBlock) {
	w.blocks = append(w.blocks, b)
}

func (w *walker) image(n *html.Node) {
	src := attr(n, "src")
	if src == "" {
		src = attr(n, "data-src")
	}
	alt := strings.TrimSpace(attr(n, "alt"))
	if alt == "" {
		alt = w.caption
	}
	if alt == "" {
		alt = strings.TrimSpace(attr(n, "title"))
	}

	if strings.TrimSpace(src) == "" && alt == "" {
		w.skipped++
		return
	}

	path := resolve.ImagePath(w.base, src)
	if path == "" && src != "" {
		logger.Debug("html: unresolved image reference %q", src)
	}
	w.emit(domain.ContentBlock{
		Kind:      domain.BlockImageRef,
		ImagePath: path,
		AltText:   alt,
	})
}

func (w *walker) figure(n *html.Node) {
	if fc := find(n, atom.Figcaption); fc != nil {
		w.caption = textContent(fc)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Figcaption {
			continue
		}
		w.node(c)
	}
	w.flush()
	w.caption = ""
}

func (w *walker) list(n *html.Node) {
	var lines []string
	listLines(n, 0, &lines)
	if len(lines) > 0 {
		w.emit(domain.ContentBlock{Kind: domain.BlockList, Text: strings.Join(lines, "\n")})
	}
	for _, img := range findAll(n, atom.Img) {
		w.image(img)
	}
}

func listLines(n *html.Node, depth int, lines *[]string) {
	ordered := n.DataAtom == atom.Ol
	index := 1
	if start, err := strconv.Atoi(attr(n, "start")); err == nil && ordered {
		index = start
	}
	indent := strings.Repeat("  ", depth)

	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}

		var text strings.Builder
		var nested []*html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
				nested = append(nested, c)
				continue
			}
			text.WriteString(" ")
			text.WriteString(nodeText(c))
		}

		if item := collapse(text.String()); item != "" {
			marker := "-"
			if ordered {
				marker = strconv.Itoa(index) + "."
			}
			*lines = append(*lines, indent+marker+" "+item)
			index++
		}
		for _, sub := range nested {
			listLines(sub, depth+1, lines)
		}
	}
}

func (w *walker) preformatted(n *html.Node) {
	text := strings.TrimSpace(rawText(n))
	if text == "" {
		return
	}

	hinted := isAPIHint(attr(n, "class"))
	if code := find(n, atom.Code); code != nil {
		hinted = hinted || isAPIHint(attr(code, "class"))
	}

	if hinted || openapi.LooksLikeSpec(text) {
		blocks, err := openapi.Blocks([]byte(text))
		if err != nil {
			logger.Warn("html: skipping API schema fragment: %v", err)
			w.skipped++
			return
		}
		for _, b := range blocks {
			w.emit(b)
		}
		return
	}

	w.emit(domain.ContentBlock{Kind: domain.BlockParagraph, Text: text})
}

func (w *walker) table(n *html.Node) {
	var rows []string
	for _, tr := range findAll(n, atom.Tr) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, textContent(c))
			}
		}
		if row := strings.TrimSpace(strings.Join(cells, " | ")); strings.Trim(row, "| ") != "" {
			rows = append(rows, row)
		}
	}
	if len(rows) > 0 {
		w.emit(domain.ContentBlock{Kind: domain.BlockParagraph, Text: strings.Join(rows, "\n")})
	}
	for _, img := range findAll(n, atom.Img) {
		w.image(img)
	}
}

// apiAttributes detects elements annotated as API operations.
func apiAttributes(n *html.Node) (method, path string, ok bool) {
	method = strings.TrimSpace(attr(n, "data-method"))
	path = strings.TrimSpace(attr(n, "data-path"))
	return method, path, method != "" && path != ""
}

func isAPIHint(class string) bool {
	class = strings.ToLower(class)
	return strings.Contains(class, "openapi") || strings.Contains(class, "swagger")
}

// extractTitle prefers <title>, then the first heading, then the file name.
func extractTitle(root *html.Node, blocks []domain.ContentBlock, uri string) string {
	if t := find(root, atom.Title); t != nil {
		if title := collapse(rawText(t)); title != "" {
			return title
		}
	}
	for _, b := range blocks {
		if b.Kind == domain.BlockHeading {
			return b.Text
		}
	}
	return titleFromURI(uri)
}

func titleFromURI(uri string) string {
	filename := filepath.Base(uri)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename
}

func baseHref(root *html.Node) string {
	if b := find(root, atom.Base); b != nil {
		return attr(b, "href")
	}
	return ""
}

// textContent returns the collapsed visible text below n.
func textContent(n *html.Node) string {
	return collapse(nodeText(n))
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// rawText returns the text below n with whitespace preserved.
func rawText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// find returns the first element below n (inclusive) with the given atom.
func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every element below n with the given atom, in document order.
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
		out = append(out, findAll(c, a)...)
	}
	return out
}
