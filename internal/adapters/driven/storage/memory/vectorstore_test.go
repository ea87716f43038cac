package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func record(id, source string, ct domain.ContentType, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:          id,
		Source:      source,
		ContentType: ct,
		Vector:      vec,
		Body:        "body " + id,
		Metadata:    domain.ChunkMetadata{SectionHeader: "Header " + id},
	}
}

func TestVectorStore_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()

	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		record("a", "doc1", domain.ContentText, 1, 0),
		record("b", "doc1", domain.ContentText, 0.7, 0.7),
		record("c", "doc2", domain.ContentImage, 0, 1),
	}))

	results, err := store.Query(ctx, []float32{1, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "b", results[1].ChunkID)
	assert.Equal(t, "Header a", results[0].SectionHeader)
	assert.Equal(t, "body a", results[0].Body)
}

func TestVectorStore_QueryFilter(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		record("a", "doc1", domain.ContentText, 1, 0),
		record("c", "doc1", domain.ContentImage, 0, 1),
	}))

	results, err := store.Query(ctx, []float32{1, 0}, 5, domain.ContentImage)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ContentImage, results[0].ContentType)
}

func TestVectorStore_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", domain.ContentText, 1, 0)}))

	updated := record("a", "doc1", domain.ContentText, 0, 1)
	updated.Body = "new body"
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{updated}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, "new body", got.Body)
}

func TestVectorStore_DeleteBySourceAndSources(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		record("a", "doc1", domain.ContentText, 1, 0),
		record("b", "doc1", domain.ContentImage, 1, 0),
		record("c", "doc2", domain.ContentText, 1, 0),
	}))

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceSummary{
		{Source: "doc1", RecordCount: 2, TextCount: 1, ImageCount: 1},
		{Source: "doc2", RecordCount: 1, TextCount: 1},
	}, sources)

	n, err := store.DeleteBySource(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.DeleteBySource(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestVectorStore_UpsertCopiesVector(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	vec := []float32{1, 0}
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", domain.ContentText, vec...)}))

	vec[0] = 0
	got, _ := store.Get("a")
	assert.Equal(t, []float32{1, 0}, got.Vector)
}

func TestVectorStore_Capabilities(t *testing.T) {
	caps := NewVectorStore().Capabilities()
	assert.Equal(t, "memory", caps.Name)
	assert.True(t, caps.FiltersContentType)
	assert.Zero(t, caps.MaxBatchSize)
}
