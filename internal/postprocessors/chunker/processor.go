// Package chunker groups content blocks into bounded, section-aligned chunks.
package chunker

import (
	"context"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.ChunkProcessor = (*Processor)(nil)

// DefaultMaxChars is the default upper bound of a text chunk, in characters.
const DefaultMaxChars = 500

// DefaultMinChars is the default lower bound of a text chunk, in characters.
const DefaultMinChars = 100

// idNamespace scopes chunk ids generated by this package.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/docqa/chunk"))

// ChunkID returns the deterministic id of the chunk at ordinal within source.
func ChunkID(source string, ordinal int) string {
	return uuid.NewSHA1(idNamespace, []byte(source+"#"+strconv.Itoa(ordinal))).String()
}

// Processor splits a normalised document into chunks.
// It implements the ChunkProcessor interface.
type Processor struct {
	maxChars int
	minChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the maximum text chunk length in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// WithMinChars sets the minimum text chunk length in characters.
func WithMinChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minChars = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars: DefaultMaxChars,
		minChars: DefaultMinChars,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Splitting needs room for two minimum-sized halves.
	if p.maxChars < 2*p.minChars {
		p.maxChars = 2 * p.minChars
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process builds chunks from the document blocks.
// Input chunks are ignored; this processor creates chunks from the document.
func (p *Processor) Process(ctx context.Context, doc *domain.NormalisedDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &builder{max: p.maxChars, min: p.minChars}
	for _, block := range doc.Blocks {
		b.add(block)
	}
	b.finish()

	chunks := make([]domain.Chunk, 0, len(b.pieces))
	for i, pc := range b.pieces {
		chunks = append(chunks, pc.chunk(doc.Source, i))
	}
	return chunks, nil
}

// piece is a chunk before it is assigned an ordinal.
type piece struct {
	image     bool
	body      string
	header    string
	api       bool
	imagePath string
	altText   string
}

func (pc piece) chunk(source string, ordinal int) domain.Chunk {
	c := domain.Chunk{
		ID:      ChunkID(source, ordinal),
		Source:  source,
		Ordinal: ordinal,
		Body:    pc.body,
		Metadata: domain.ChunkMetadata{
			CharCount:     utf8.RuneCountInString(pc.body),
			WordCount:     len(strings.Fields(pc.body)),
			SectionHeader: pc.header,
		},
	}

	switch {
	case pc.image:
		c.ContentType = domain.ContentImage
		c.Metadata.ChunkType = domain.ChunkImage
		c.Metadata.ImagePath = pc.imagePath
		c.Metadata.AltText = pc.altText
	case pc.api:
		c.ContentType = domain.ContentText
		c.Metadata.ChunkType = domain.ChunkAPI
	default:
		c.ContentType = domain.ContentText
		c.Metadata.ChunkType = domain.ChunkSection
	}
	return c
}

// builder holds the state of a single chunking pass.
type builder struct {
	max, min int

	pieces []piece

	// level and header describe the open section. Zero level means none.
	level  int
	header string

	// cur is the text being accumulated; prose and api count its blocks.
	cur   string
	prose int
	api   int
}

func (b *builder) add(block domain.ContentBlock) {
	switch block.Kind {
	case domain.BlockHeading:
		if b.level == 0 || block.Level <= b.level {
			b.boundary()
			b.level = block.Level
			b.header = block.Text
		}
		b.appendText(block.Text)
	case domain.BlockImageRef:
		b.boundary()
		b.pieces = append(b.pieces, piece{
			image:     true,
			body:      strings.TrimSpace(block.AltText),
			header:    b.header,
			imagePath: block.ImagePath,
			altText:   strings.TrimSpace(block.AltText),
		})
	case domain.BlockAPIOperation:
		b.api++
		b.appendText(block.Text)
	default:
		if block.Kind.IsText() {
			b.prose++
			b.appendText(block.Text)
		}
	}
}

// appendText adds text to the buffer, emitting chunks while it exceeds max.
func (b *builder) appendText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.cur == "" {
		b.cur = text
	} else {
		b.cur += "\n" + text
	}

	for {
		runes := []rune(b.cur)
		if len(runes) <= b.max {
			return
		}
		cut := splitPointIn(runes, b.min, b.max, func(cut int) bool {
			return trimmedLen(runes[:cut]) >= b.min
		})
		b.emit(strings.TrimSpace(string(runes[:cut])))
		b.cur = strings.TrimSpace(string(runes[cut:]))
	}
}

// boundary closes the buffer at a section or image boundary. A buffer shorter
// than min is carried into the next chunk.
func (b *builder) boundary() {
	if b.cur == "" || utf8.RuneCountInString(b.cur) < b.min {
		return
	}
	b.emit(b.cur)
	b.reset()
}

// finish flushes the buffer at the end of input. A short tail is merged into
// the previous text chunk, rebalancing the two when the merge exceeds max.
func (b *builder) finish() {
	if b.cur == "" {
		return
	}
	last := b.lastText()
	if utf8.RuneCountInString(b.cur) >= b.min || last < 0 {
		b.emit(b.cur)
		b.reset()
		return
	}

	prev := &b.pieces[last]
	merged := []rune(prev.body + "\n" + b.cur)
	prev.api = prev.api && b.prose == 0
	if len(merged) <= b.max {
		prev.body = string(merged)
		b.reset()
		return
	}

	lo := max(b.min, len(merged)-b.max)
	hi := min(b.max, len(merged)-b.min)
	cut := splitPointIn(merged, lo, hi, func(cut int) bool {
		return trimmedLen(merged[:cut]) >= b.min && trimmedLen(merged[cut:]) >= b.min
	})
	prev.body = strings.TrimSpace(string(merged[:cut]))
	b.emit(strings.TrimSpace(string(merged[cut:])))
	b.reset()
}

func (b *builder) emit(body string) {
	if body == "" {
		return
	}
	b.pieces = append(b.pieces, piece{
		body:   body,
		header: b.header,
		api:    b.api > 0 && b.prose == 0,
	})
}

func (b *builder) reset() {
	b.cur = ""
	b.prose = 0
	b.api = 0
}

func (b *builder) lastText() int {
	for i := len(b.pieces) - 1; i >= 0; i-- {
		if !b.pieces[i].image {
			return i
		}
	}
	return -1
}

// splitPointIn returns a cut position in [lo, hi] accepted by fits. It
// prefers the latest sentence or line boundary, then the latest whitespace,
// then the latest position. Lengths are checked after trimming, since the
// halves lose the whitespace at the cut. When no position fits, hi is used.
func splitPointIn(runes []rune, lo, hi int, fits func(cut int) bool) int {
	if hi >= len(runes) {
		hi = len(runes) - 1
	}
	if lo < 1 {
		lo = 1
	}
	for i := hi; i >= lo; i-- {
		if isBlockBoundary(runes, i) && fits(i) {
			return i
		}
	}
	for i := hi; i >= lo; i-- {
		if unicode.IsSpace(runes[i]) && fits(i) {
			return i
		}
	}
	for i := hi; i >= lo; i-- {
		if fits(i) {
			return i
		}
	}
	return hi
}

// trimmedLen is the rune length of runes without surrounding whitespace.
func trimmedLen(runes []rune) int {
	start, end := 0, len(runes)
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return end - start
}

// isBlockBoundary reports whether a cut before runes[i] ends a sentence or line.
func isBlockBoundary(runes []rune, i int) bool {
	if runes[i] == '\n' {
		return true
	}
	if !unicode.IsSpace(runes[i]) {
		return false
	}
	switch runes[i-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}
