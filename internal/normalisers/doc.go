// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser turns a specific MIME type
// into an ordered list of content blocks.
//
// Normalisers are registered with a Registry at startup; the registry picks
// the highest priority normaliser for each document's MIME type.
package normalisers
