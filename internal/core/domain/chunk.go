package domain

// ContentType identifies the modality a chunk was derived from.
type ContentType string

// Available content types.
const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	return c == ContentText || c == ContentImage
}

// String returns the string representation.
func (c ContentType) String() string {
	return string(c)
}

// ParseContentType parses a content type filter value.
// An empty string yields an empty filter (no restriction).
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case "":
		return "", nil
	case ContentText, ContentImage:
		return ContentType(s), nil
	default:
		return "", ErrInvalidInput
	}
}

// ChunkType classifies the structure a chunk was built from.
type ChunkType string

// Available chunk types.
const (
	// ChunkSection is prose or lists accumulated under a section heading.
	ChunkSection ChunkType = "section"

	// ChunkAPI is a chunk made only of flattened API operations.
	ChunkAPI ChunkType = "api"

	// ChunkImage is a single image reference.
	ChunkImage ChunkType = "image"
)

// ChunkMetadata is the closed set of typed attributes attached to a chunk.
// Image-only fields are zero for text chunks.
type ChunkMetadata struct {
	// CharCount is the body length in characters.
	CharCount int `json:"char_count"`

	// WordCount is the number of whitespace-separated words in the body.
	WordCount int `json:"word_count"`

	// ChunkType classifies the chunk structure.
	ChunkType ChunkType `json:"chunk_type"`

	// SectionHeader is the heading the chunk was opened under, if any.
	SectionHeader string `json:"section_header,omitempty"`

	// ImagePath is the resolved image location. Image chunks only.
	ImagePath string `json:"image_path,omitempty"`

	// AltText is the image alternative text. Image chunks only.
	AltText string `json:"alt_text,omitempty"`

	// HasVisionAnalysis reports whether a vision model description is part
	// of the body. Image chunks only.
	HasVisionAnalysis bool `json:"has_vision_analysis,omitempty"`
}

// Chunk is a retrievable unit of content.
type Chunk struct {
	// ID is derived from Source and Ordinal, stable across runs.
	ID string

	// Source is the logical document name.
	Source string

	// Ordinal is the position of the chunk within its source.
	Ordinal int

	// ContentType is the modality of the chunk.
	ContentType ContentType

	// Body is the text that gets embedded.
	Body string

	// Metadata holds typed chunk attributes.
	Metadata ChunkMetadata
}

// IsImage returns true for image chunks.
func (c *Chunk) IsImage() bool {
	return c.ContentType == ContentImage
}

// VectorRecord is the persisted, embedded form of a chunk.
// Records are created at indexing time and never mutated in place.
type VectorRecord struct {
	// ID equals the chunk ID.
	ID string

	// Vector is the embedding. Its length equals the configured dimension.
	Vector []float32

	// Source is the logical document name.
	Source string

	// ContentType is the chunk modality.
	ContentType ContentType

	// Body is the embedded text, returned with query results.
	Body string

	// Metadata is the chunk metadata.
	Metadata ChunkMetadata
}

// QueryResult is a single ranked match returned by the vector index.
type QueryResult struct {
	ChunkID       string      `json:"chunk_id"`
	Score         float64     `json:"score"`
	ContentType   ContentType `json:"content_type"`
	Source        string      `json:"source"`
	Body          string      `json:"body"`
	SectionHeader string      `json:"section_header,omitempty"`
}
