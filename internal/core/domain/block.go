package domain

// BlockKind identifies the type of a ContentBlock.
type BlockKind string

// Available block kinds.
const (
	BlockHeading      BlockKind = "heading"
	BlockParagraph    BlockKind = "paragraph"
	BlockList         BlockKind = "list"
	BlockImageRef     BlockKind = "image-ref"
	BlockAPIOperation BlockKind = "api-operation"
)

// IsValid returns true if the block kind is recognised.
func (k BlockKind) IsValid() bool {
	switch k {
	case BlockHeading, BlockParagraph, BlockList, BlockImageRef, BlockAPIOperation:
		return true
	default:
		return false
	}
}

// IsText returns true for blocks whose text is accumulated into text chunks.
func (k BlockKind) IsText() bool {
	return k == BlockParagraph || k == BlockList || k == BlockAPIOperation
}

// ContentBlock is an atomic unit extracted from a document by a normaliser.
// Blocks are produced once per normalisation pass and never modified.
type ContentBlock struct {
	// Kind is the block type.
	Kind BlockKind

	// Text is the extracted text. Empty for pure image blocks.
	Text string

	// Level is the heading depth (1-6). Zero for non-heading blocks.
	Level int

	// ImagePath is the resolved location of an image-ref block.
	// Empty means the reference could not be resolved.
	ImagePath string

	// AltText is the alternative text of an image-ref block.
	AltText string

	// APIMethod is the HTTP method of an api-operation block (e.g., "POST").
	APIMethod string

	// APIPath is the route of an api-operation block (e.g., "/orders/{id}").
	APIPath string
}

// HasImagePath returns true if an image reference was resolved.
func (b ContentBlock) HasImagePath() bool {
	return b.ImagePath != ""
}

// NormalisedDocument is the output of a normaliser.
type NormalisedDocument struct {
	// Source is the logical document name.
	Source string

	// Title is the document title, when one was found.
	Title string

	// Blocks are the content blocks in document order.
	Blocks []ContentBlock

	// SkippedFragments counts fragments that could not be parsed and were dropped.
	// A non-zero value means the document was indexed partially.
	SkippedFragments int
}

// Degraded returns true if any fragment was skipped during normalisation.
func (d *NormalisedDocument) Degraded() bool {
	return d.SkippedFragments > 0
}
