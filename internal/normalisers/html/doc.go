// Package html provides a Normaliser implementation for HTML documents.
// It walks the parsed DOM and emits headings, paragraphs, lists, image
// references and API operations in document order, skipping navigation,
// scripts, styles and other page chrome.
package html
