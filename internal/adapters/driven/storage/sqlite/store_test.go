package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(id, source string, ct domain.ContentType, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:          id,
		Vector:      vec,
		Source:      source,
		ContentType: ct,
		Body:        "body of " + id,
		Metadata:    domain.ChunkMetadata{SectionHeader: "Header " + id, ChunkType: domain.ChunkSection},
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, "vectors.db"), s.Path())
	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{record("a", "doc.md", domain.ContentText, 1, 0)}))
	require.NoError(t, s.Close())

	s, err = NewStore(dir)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrate_SkipsApplied(t *testing.T) {
	s := newTestStore(t)
	fsys := fstest.MapFS{
		"001_vectors.up.sql": {Data: []byte("THIS IS NOT SQL")},
		"002_extra.up.sql":   {Data: []byte("CREATE TABLE extra (id INTEGER)")},
		"notes.txt":          {Data: []byte("ignored")},
	}
	require.NoError(t, s.migrate(fsys))

	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	r := record("a", "doc.md", domain.ContentImage, 0.5, -1.25, 3)
	r.Metadata.AltText = "Login flow"
	r.Metadata.HasVisionAnalysis = true
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{r}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, r, *got)

	r.Body = "updated"
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{r}))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Body)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, nil))
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{
		record("t1", "a.md", domain.ContentText, 1, 0),
		record("t2", "a.md", domain.ContentText, 0.6, 0.8),
		record("i1", "b.md", domain.ContentImage, 0.8, 0.6),
		record("x", "c.md", domain.ContentText, 1, 0, 0),
	}))

	results, err := s.Query(ctx, []float32{1, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "t1", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "i1", results[1].ChunkID)
	assert.Equal(t, "Header i1", results[1].SectionHeader)
	assert.Equal(t, domain.ContentImage, results[1].ContentType)

	images, err := s.Query(ctx, []float32{1, 0}, 5, domain.ContentImage)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "i1", images[0].ChunkID)

	// Records of another dimension never match.
	all, err := s.Query(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteBySourceAndSources(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{
		record("a1", "a.md", domain.ContentText, 1),
		record("a2", "a.md", domain.ContentImage, 1),
		record("b1", "b.md", domain.ContentText, 1),
	}))

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceSummary{
		{Source: "a.md", RecordCount: 2, TextCount: 1, ImageCount: 1},
		{Source: "b.md", RecordCount: 1, TextCount: 1},
	}, sources)

	n, err := s.DeleteBySource(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DeleteBySource(ctx, "a.md")
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCapabilities(t *testing.T) {
	caps := newTestStore(t).Capabilities()
	assert.Equal(t, "sqlite", caps.Name)
	assert.True(t, caps.FiltersContentType)
	assert.Equal(t, maxBatchSize, caps.MaxBatchSize)
}
