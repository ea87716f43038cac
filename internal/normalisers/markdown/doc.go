// Package markdown provides a Normaliser implementation for Markdown documents
// backed by the goldmark parser.
package markdown
