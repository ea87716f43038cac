// Package connectors holds the document sources that feed the indexing pipeline.
// Each connector turns an external location into domain.RawDocument values;
// the filesystem connector also watches its tree for changes.
package connectors
