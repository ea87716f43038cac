// Package docx normalises Word (OOXML) documents into content blocks.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/resolve"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	relsPart     = "word/_rels/document.xml.rels"
	corePart     = "docProps/core.xml"

	// maxEmbeddedImage bounds images inlined as data URIs.
	maxEmbeddedImage = 8 << 20
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise walks word/document.xml in order. Heading styles become heading
// blocks, numbered paragraphs become list blocks and drawings become image-ref
// blocks. Embedded pictures are inlined as data URIs; linked pictures are
// resolved against the document location.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	p := &parser{
		zip:  reader,
		base: raw.BaseURI,
		rels: readRelationships(reader),
	}
	blocks, skipped := p.parse(body)

	return &domain.NormalisedDocument{
		Source:           raw.Source,
		Title:            extractTitle(reader, raw.Source),
		Blocks:           blocks,
		SkippedFragments: skipped,
	}, nil
}

type paragraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
		Numbering *struct{} `xml:"numPr"`
	}
	Runs []run
}

// UnmarshalXML collects runs in order, descending into hyperlinks and
// tracked insertions.
func (p *paragraph) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				if err := d.DecodeElement(&p.Props, &t); err != nil {
					return err
				}
			case "r":
				var r run
				if err := d.DecodeElement(&r, &t); err != nil {
					return err
				}
				p.Runs = append(p.Runs, r)
			case "hyperlink", "ins", "smartTag":
				depth++
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

type run struct {
	Text     []textElement `xml:"t"`
	Breaks   []struct{}    `xml:"br"`
	Drawings []drawing     `xml:"drawing"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

type drawing struct {
	Inline *picture `xml:"inline"`
	Anchor *picture `xml:"anchor"`
}

type picture struct {
	DocPr struct {
		Descr string `xml:"descr,attr"`
		Title string `xml:"title,attr"`
	} `xml:"docPr"`
	Blip struct {
		Embed string `xml:"embed,attr"`
		Link  string `xml:"link,attr"`
	} `xml:"graphic>graphicData>pic>blipFill>blip"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type parser struct {
	zip  *zip.Reader
	base string
	rels map[string]relationship
}

// parse decodes every w:p element, including those nested in tables.
// A decoding error stops the walk; what was read so far is kept.
func (p *parser) parse(body []byte) ([]domain.ContentBlock, int) {
	var (
		blocks  []domain.ContentBlock
		skipped int
	)

	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "p" {
			continue
		}
		var para paragraph
		if err := dec.DecodeElement(&para, &start); err != nil {
			skipped++
			break
		}
		blocks = append(blocks, p.paragraphBlocks(para)...)
	}
	return blocks, skipped
}

func (p *parser) paragraphBlocks(para paragraph) []domain.ContentBlock {
	var (
		blocks []domain.ContentBlock
		text   strings.Builder
		images []domain.ContentBlock
	)

	for _, r := range para.Runs {
		for _, t := range r.Text {
			text.WriteString(t.Content)
		}
		for range r.Breaks {
			text.WriteString("\n")
		}
		for _, d := range r.Drawings {
			pic := d.Inline
			if pic == nil {
				pic = d.Anchor
			}
			if pic != nil {
				images = append(images, p.imageBlock(pic))
			}
		}
	}

	if s := strings.TrimSpace(text.String()); s != "" {
		switch level := headingLevel(para.Props.Style.Val); {
		case level > 0:
			blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockHeading, Text: s, Level: level})
		case para.Props.Numbering != nil || strings.HasPrefix(para.Props.Style.Val, "List"):
			blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockList, Text: "- " + s})
		default:
			blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockParagraph, Text: s})
		}
	}
	return append(blocks, images...)
}

func (p *parser) imageBlock(pic *picture) domain.ContentBlock {
	alt := strings.TrimSpace(pic.DocPr.Descr)
	if alt == "" {
		alt = strings.TrimSpace(pic.DocPr.Title)
	}

	block := domain.ContentBlock{Kind: domain.BlockImageRef, AltText: alt}
	id := pic.Blip.Embed
	if id == "" {
		id = pic.Blip.Link
	}
	rel, ok := p.rels[id]
	if !ok {
		return block
	}

	if strings.EqualFold(rel.TargetMode, "External") {
		block.ImagePath = resolve.ImagePath(p.base, rel.Target)
		return block
	}
	block.ImagePath = p.embeddedImage(rel.Target)
	return block
}

// embeddedImage inlines a picture stored in the package as a data URI.
func (p *parser) embeddedImage(target string) string {
	name := strings.TrimPrefix(target, "/")
	if !strings.HasPrefix(name, "word/") {
		name = path.Join("word", name)
	}
	for _, f := range p.zip.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > maxEmbeddedImage {
			return ""
		}
		data, err := readFile(f)
		if err != nil {
			return ""
		}
		mt := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
		if mt == "" {
			mt = http.DetectContentType(data)
		}
		return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
	}
	return ""
}

// headingLevel maps Word heading style ids to a level. Title counts as level 1.
func headingLevel(style string) int {
	if style == "Title" {
		return 1
	}
	rest, ok := strings.CutPrefix(style, "Heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 {
		return 0
	}
	return min(level, 6)
}

func readRelationships(reader *zip.Reader) map[string]relationship {
	rels := make(map[string]relationship)
	data, err := readPart(reader, relsPart)
	if err != nil {
		return rels
	}
	var doc struct {
		Relationships []relationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return rels
	}
	for _, r := range doc.Relationships {
		rels[r.ID] = r
	}
	return rels
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, f := range reader.File {
		if f.Name == name {
			return readFile(f)
		}
	}
	return nil, errors.New("missing part " + name)
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extractTitle reads docProps/core.xml, falling back to the file name.
func extractTitle(reader *zip.Reader, source string) string {
	if data, err := readPart(reader, corePart); err == nil {
		var core struct {
			Title string `xml:"title"`
		}
		if err := xml.Unmarshal(data, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}

	filename := filepath.Base(source)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
