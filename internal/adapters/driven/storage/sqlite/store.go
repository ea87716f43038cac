package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// maxBatchSize bounds the records written per transaction.
const maxBatchSize = 500

// Store is a SQLite-based vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docqa/data/vectors.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_vectors.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Upsert writes records in one transaction, replacing any with the same ID.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, source, content_type, body, metadata, dimension, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			content_type = excluded.content_type,
			body = excluded.body,
			metadata = excluded.metadata,
			dimension = excluded.dimension,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Source, string(r.ContentType), r.Body, string(metadata), len(r.Vector), vecmath.Encode(r.Vector),
		); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// DeleteBySource removes every record of a source.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM vectors WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("deleting source %s: %w", source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return int(n), nil
}

// Query scores every candidate of matching dimension and returns the k best.
func (s *Store) Query(
	ctx context.Context, vector []float32, k int, filter domain.ContentType,
) ([]domain.QueryResult, error) {
	query := "SELECT id, source, content_type, body, metadata, embedding FROM vectors WHERE dimension = ?"
	args := []any{len(vector)}
	if filter != "" {
		query += " AND content_type = ?"
		args = append(args, string(filter))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []domain.QueryResult
	for rows.Next() {
		var (
			id, source, contentType, body, metadataJSON string
			embedding                                  []byte
		)
		if err := rows.Scan(&id, &source, &contentType, &body, &metadataJSON, &embedding); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}

		var metadata domain.ChunkMetadata
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", id, err)
		}

		results = append(results, domain.QueryResult{
			ChunkID:       id,
			Score:         vecmath.Cosine(vector, vecmath.Decode(embedding)),
			ContentType:   domain.ContentType(contentType),
			Source:        source,
			Body:          body,
			SectionHeader: metadata.SectionHeader,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return vecmath.TopK(results, k), nil
}

// Get returns a stored record by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.VectorRecord, error) {
	var (
		r            domain.VectorRecord
		contentType  string
		metadataJSON string
		embedding    []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, source, content_type, body, metadata, embedding FROM vectors WHERE id = ?", id,
	).Scan(&r.ID, &r.Source, &contentType, &r.Body, &metadataJSON, &embedding)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting vector %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata for %s: %w", id, err)
	}
	r.ContentType = domain.ContentType(contentType)
	r.Vector = vecmath.Decode(embedding)
	return &r, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Sources summarises stored records per source, sorted by name.
func (s *Store) Sources(ctx context.Context) ([]domain.SourceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source,
		       COUNT(*),
		       SUM(CASE WHEN content_type = 'text' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN content_type = 'image' THEN 1 ELSE 0 END)
		FROM vectors
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceSummary
	for rows.Next() {
		var sum domain.SourceSummary
		if err := rows.Scan(&sum.Source, &sum.RecordCount, &sum.TextCount, &sum.ImageCount); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Capabilities describes the store.
func (s *Store) Capabilities() driven.StoreCapabilities {
	return driven.StoreCapabilities{
		Name:               string(domain.VectorBackendSQLite),
		FiltersContentType: true,
		MaxBatchSize:       maxBatchSize,
	}
}
