// Package sqlite provides a SQLite-backed vector store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files;
// applied versions are recorded in schema_migrations.
//
// # Search
//
// Vectors are stored as little-endian float32 blobs. The content type filter runs
// in SQL; cosine ranking is an exact scan in Go, which suits documentation-sized
// corpora of tens of thousands of chunks.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
