// Package postgres provides a pgvector-backed vector store.
//
// Records live in one table with a fixed-dimension vector column and an HNSW
// cosine index. Ranking and the content type filter both run in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultTable is the table records are stored in.
const DefaultTable = "docqa_vectors"

// maxBatchSize bounds the statements queued per pgx batch.
const maxBatchSize = 1000

// Config holds configuration for the Postgres store.
type Config struct {
	// DSN is the connection string (required).
	DSN string

	// Dimensions is the embedding size of the vector column (required).
	Dimensions int

	// Table overrides the table name (default: docqa_vectors).
	Table string
}

// Store is a Postgres vector store using the pgvector extension.
type Store struct {
	pool       *pgxpool.Pool
	table      string
	dimensions int
}

// NewStore connects, enables pgvector and creates the schema if missing.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("postgres: invalid dimension %d", cfg.Dimensions)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool, table: pgx.Identifier{cfg.Table}.Sanitize(), dimensions: cfg.Dimensions}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// schemaStatements returns the DDL for table with a vector column of dim.
func schemaStatements(table string, dim int) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           TEXT PRIMARY KEY,
			source       TEXT NOT NULL,
			content_type TEXT NOT NULL,
			body         TEXT NOT NULL,
			metadata     JSONB NOT NULL DEFAULT '{}',
			embedding    vector(%d) NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table, dim),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (source)", indexName(table, "source"), table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)",
			indexName(table, "embedding"), table),
	}
}

func indexName(table, column string) string {
	return pgx.Identifier{"idx_" + unquote(table) + "_" + column}.Sanitize()
}

func unquote(ident string) string {
	if len(ident) >= 2 && ident[0] == '"' && ident[len(ident)-1] == '"' {
		return ident[1 : len(ident)-1]
	}
	return ident
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.table, s.dimensions) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: create schema: %w", err)
		}
	}
	return nil
}

// Upsert writes records in one transaction using a pgx batch.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, source, content_type, body, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`, s.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		if err := domain.CheckDimension(r.ID, r.Vector, s.dimensions); err != nil {
			return err
		}
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		batch.Queue(query, r.ID, r.Source, string(r.ContentType), r.Body, metadata, pgvector.NewVector(r.Vector))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// DeleteBySource removes every record of a source.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE source = $1", s.table), source)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete source %s: %w", source, err)
	}
	return int(tag.RowsAffected()), nil
}

// Query ranks by cosine distance in the database.
func (s *Store) Query(
	ctx context.Context, vector []float32, k int, filter domain.ContentType,
) ([]domain.QueryResult, error) {
	if err := domain.CheckDimension("query", vector, s.dimensions); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []domain.QueryResult{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, source, content_type, body, metadata->>'section_header', 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE ($2 = '' OR content_type = $2)
		ORDER BY embedding <=> $1
		LIMIT $3`, s.table)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), string(filter), k)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	results := make([]domain.QueryResult, 0, k)
	for rows.Next() {
		var (
			r           domain.QueryResult
			contentType string
			header      *string
		)
		if err := rows.Scan(&r.ChunkID, &r.Source, &contentType, &r.Body, &header, &r.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		r.ContentType = domain.ContentType(contentType)
		if header != nil {
			r.SectionHeader = *header
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	return results, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

// Sources summarises stored records per source, sorted by name.
func (s *Store) Sources(ctx context.Context) ([]domain.SourceSummary, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT source,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE content_type = 'text'),
		       COUNT(*) FILTER (WHERE content_type = 'image')
		FROM %s
		GROUP BY source
		ORDER BY source`, s.table))
	if err != nil {
		return nil, fmt.Errorf("postgres: list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceSummary
	for rows.Next() {
		var sum domain.SourceSummary
		if err := rows.Scan(&sum.Source, &sum.RecordCount, &sum.TextCount, &sum.ImageCount); err != nil {
			return nil, fmt.Errorf("postgres: scan source: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Capabilities describes the store.
func (s *Store) Capabilities() driven.StoreCapabilities {
	return driven.StoreCapabilities{
		Name:               string(domain.VectorBackendPostgres),
		FiltersContentType: true,
		MaxBatchSize:       maxBatchSize,
	}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
