package domain

// RawDocument represents the unparsed bytes of one logical source document.
// It is the input of the indexing pipeline, before normalisation.
type RawDocument struct {
	// Source is the logical document name. All chunks and vector records
	// derived from this document carry it, and re-indexing replaces them as a unit.
	Source string

	// BaseURI is the declared location of the document (file path or URL).
	// Relative image references are resolved against it.
	BaseURI string

	// MIMEType is the content type (e.g., "text/html").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// ChangeType represents the type of document change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawDocumentChange represents a change event observed on a watched document.
type RawDocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Document is the affected document. Content is empty for deletions.
	Document RawDocument
}
