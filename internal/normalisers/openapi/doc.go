// Package openapi flattens OpenAPI and Swagger documents into api-operation
// content blocks. It is used directly for standalone specification files and
// by the HTML and Markdown normalisers for embedded schema fragments.
package openapi
