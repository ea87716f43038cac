// Package eml normalises RFC 822 email messages into content blocks.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxAttachedImage bounds image attachments inlined as data URIs.
const maxAttachedImage = 8 << 20

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// Normaliser handles EML (email) documents.
type Normaliser struct {
	html *html.Normaliser
}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{html: html.New()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"message/rfc822",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise turns the subject into a heading and the sender, recipients and
// date into a paragraph, followed by the body. A text/plain body is preferred;
// an HTML-only body goes through the HTML normaliser. Image attachments become
// image-ref blocks. Unreadable MIME parts are skipped and counted.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	doc := &domain.NormalisedDocument{
		Source: raw.Source,
		Title:  subject,
	}
	if doc.Title == "" {
		doc.Title = extractTitle(raw.Source)
	}

	if subject != "" {
		doc.Blocks = append(doc.Blocks, domain.ContentBlock{Kind: domain.BlockHeading, Text: subject, Level: 1})
	}
	if h := headerSummary(msg.Header); h != "" {
		doc.Blocks = append(doc.Blocks, domain.ContentBlock{Kind: domain.BlockParagraph, Text: h})
	}

	var b body
	b.collect(headerOf(msg.Header), msg.Body)
	doc.SkippedFragments = b.skipped

	switch {
	case len(b.text) > 0:
		for _, t := range b.text {
			doc.Blocks = append(doc.Blocks, paragraphs(t)...)
		}
	case len(b.html) > 0:
		for _, h := range b.html {
			part := &domain.RawDocument{Source: raw.Source, BaseURI: raw.BaseURI, MIMEType: "text/html", Content: h}
			nd, err := n.html.Normalise(ctx, part)
			if err != nil {
				doc.SkippedFragments++
				continue
			}
			doc.Blocks = append(doc.Blocks, nd.Blocks...)
			doc.SkippedFragments += nd.SkippedFragments
		}
	}
	doc.Blocks = append(doc.Blocks, b.images...)

	return doc, nil
}

// partHeader is the subset of MIME headers a part is interpreted by.
type partHeader struct {
	contentType string
	encoding    string
	disposition string
}

func headerOf(h mail.Header) partHeader {
	return partHeader{
		contentType: h.Get("Content-Type"),
		encoding:    h.Get("Content-Transfer-Encoding"),
		disposition: h.Get("Content-Disposition"),
	}
}

type body struct {
	text    []string
	html    [][]byte
	images  []domain.ContentBlock
	skipped int
}

func (b *body) collect(h partHeader, r io.Reader) {
	contentType := h.contentType
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		b.collectMultipart(r, params["boundary"])
		return
	}

	content, err := io.ReadAll(decodeTransfer(h.encoding, r))
	if err != nil {
		b.skipped++
		return
	}

	attachment := strings.HasPrefix(strings.ToLower(h.disposition), "attachment")
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		b.addImage(mediaType, h.disposition, content)
	case attachment:
		// Non-image attachments are not part of the message text.
	case mediaType == "text/html":
		b.html = append(b.html, content)
	case mediaType == "text/plain":
		b.text = append(b.text, string(content))
	}
}

func (b *body) collectMultipart(r io.Reader, boundary string) {
	if boundary == "" {
		b.skipped++
		return
	}
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			b.skipped++
			return
		}
		// NextPart already decodes quoted-printable and drops the header.
		b.collect(headerOf(mail.Header(part.Header)), part)
		part.Close()
	}
}

func (b *body) addImage(mediaType, disposition string, content []byte) {
	alt := ""
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		alt = params["filename"]
	}
	block := domain.ContentBlock{Kind: domain.BlockImageRef, AltText: alt}
	if len(content) > 0 && len(content) <= maxAttachedImage {
		block.ImagePath = "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(content)
	}
	b.images = append(b.images, block)
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func headerSummary(h mail.Header) string {
	var lines []string
	for _, key := range []string{"From", "To", "Cc", "Date"} {
		if v := decodeHeader(h.Get(key)); v != "" {
			lines = append(lines, key+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

func paragraphs(text string) []domain.ContentBlock {
	var blocks []domain.ContentBlock
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, para := range blankLines.Split(text, -1) {
		if s := strings.TrimSpace(para); s != "" {
			blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockParagraph, Text: s})
		}
	}
	return blocks
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return strings.TrimSpace(decoded)
}

// extractTitle derives a title from the source name.
func extractTitle(source string) string {
	filename := filepath.Base(source)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
