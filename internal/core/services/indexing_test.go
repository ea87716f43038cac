package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

const guideMarkdown = `# Billing

Invoices are issued on the first business day of every month. Each invoice lists the
usage of every project in the organisation, grouped by product and region.

![Invoice lifecycle](images/invoice.png)

## Refunds

Refunds are granted for duplicate charges and for outages that breach the service level
agreement. Requests must be filed within thirty days of the invoice date.
`

const shortMarkdown = `# Billing

Invoices are issued monthly and list the usage of every project in the organisation.
`

type indexFixture struct {
	svc       *IndexingService
	store     *mockStore
	embedding *mockEmbedding
	vision    *mockVision
}

func newIndexFixture(t *testing.T, withVision bool) *indexFixture {
	t.Helper()
	cfg := testConfig()

	pipeline, err := postprocessors.NewDefaultPipeline(cfg.Chunking)
	require.NoError(t, err)

	f := &indexFixture{store: newMockStore(), embedding: newMockEmbedding()}
	var embedder *Embedder
	if withVision {
		f.vision = &mockVision{result: domain.VisionResult{
			Availability: domain.Available(),
			Description:  "Draft, issued and paid states connected by arrows.",
		}}
		embedder = NewEmbedder(cfg, f.embedding, f.vision, &mockLoader{})
	} else {
		embedder = NewEmbedder(cfg, f.embedding, nil, nil)
	}

	index := NewIndexManager(f.store, cfg)
	f.svc = NewIndexingService(normalisers.NewDefaultRegistry(), pipeline, embedder, index)
	return f
}

func markdownDoc(source, content string) domain.RawDocument {
	return domain.RawDocument{
		Source:   source,
		BaseURI:  "/docs/" + source,
		MIMEType: "text/markdown",
		Content:  []byte(content),
	}
}

func storedIDs(t *testing.T, store *mockStore) []string {
	t.Helper()
	results, err := store.VectorStore.Query(context.Background(), []float32{1, 1, 1}, 1000, "")
	require.NoError(t, err)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	sort.Strings(ids)
	return ids
}

func TestIndexingService_IndexDocument(t *testing.T) {
	f := newIndexFixture(t, true)

	result, err := f.svc.IndexDocument(context.Background(), markdownDoc("guide.md", guideMarkdown))
	require.NoError(t, err)

	assert.Equal(t, "guide.md", result.Source)
	assert.Equal(t, 1, result.ImageChunks)
	assert.GreaterOrEqual(t, result.TextChunks, 1)
	assert.Equal(t, result.TextChunks+result.ImageChunks, result.ChunksWritten)
	assert.Zero(t, result.VisionFallbacks)
	assert.False(t, result.Degraded())
	assert.Equal(t, int32(1), f.vision.calls.Load())

	count, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.ChunksWritten, count)

	var imageBodies []string
	for _, text := range f.embedding.embedded() {
		if strings.Contains(text, "Detailed Analysis:") {
			imageBodies = append(imageBodies, text)
		}
	}
	require.Len(t, imageBodies, 1)
	assert.Contains(t, imageBodies[0], "Image Description: Invoice lifecycle")
}

func TestIndexingService_ReindexIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, false)

	first, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", guideMarkdown))
	require.NoError(t, err)
	idsBefore := storedIDs(t, f.store)

	second, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", guideMarkdown))
	require.NoError(t, err)

	assert.Equal(t, first.ChunksWritten, second.ChunksWritten)
	assert.Equal(t, idsBefore, storedIDs(t, f.store))
}

func TestIndexingService_ReplacesPreviousVersion(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, false)

	_, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", guideMarkdown))
	require.NoError(t, err)
	_, err = f.svc.IndexDocument(ctx, markdownDoc("other.md", shortMarkdown))
	require.NoError(t, err)

	result, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", shortMarkdown))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksWritten)

	sources, err := f.svc.ListSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceSummary{
		{Source: "guide.md", RecordCount: 1, TextCount: 1},
		{Source: "other.md", RecordCount: 1, TextCount: 1},
	}, sources)
}

func TestIndexingService_VisionDisabled(t *testing.T) {
	f := newIndexFixture(t, false)

	result, err := f.svc.IndexDocument(context.Background(), markdownDoc("guide.md", guideMarkdown))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImageChunks)
	assert.Equal(t, 1, result.VisionFallbacks)
	assert.True(t, result.Degraded())
	assert.Contains(t, f.embedding.embedded(), "Invoice lifecycle")
}

func TestIndexingService_EmptyContentWipesSource(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, false)

	_, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", guideMarkdown))
	require.NoError(t, err)

	result, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", ""))
	require.NoError(t, err)
	assert.Zero(t, result.ChunksWritten)

	count, _ := f.store.Count(ctx)
	assert.Zero(t, count)
}

func TestIndexingService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing source", func(t *testing.T) {
		f := newIndexFixture(t, false)
		_, err := f.svc.IndexDocument(ctx, markdownDoc("  ", guideMarkdown))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unsupported type", func(t *testing.T) {
		f := newIndexFixture(t, false)
		doc := markdownDoc("logo.png", "x")
		doc.MIMEType = "image/png"
		_, err := f.svc.IndexDocument(ctx, doc)
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("embedding unavailable leaves index untouched", func(t *testing.T) {
		f := newIndexFixture(t, false)
		_, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", guideMarkdown))
		require.NoError(t, err)
		before := storedIDs(t, f.store)

		f.embedding.err = errors.New("timeout")
		_, err = f.svc.IndexDocument(ctx, markdownDoc("guide.md", shortMarkdown))
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Equal(t, before, storedIDs(t, f.store))
	})

	t.Run("partial write reports progress", func(t *testing.T) {
		f := newIndexFixture(t, false)
		f.store.maxBatch = 1
		f.store.upsertErrs = []error{nil, errStoreDown, errStoreDown, errStoreDown}

		result, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", guideMarkdown))
		require.ErrorIs(t, err, domain.ErrIndexWriteFailed)
		require.NotNil(t, result)
		assert.Equal(t, 1, result.ChunksWritten)
	})
}

func TestIndexingService_RemoveSource(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, false)
	written, err := f.svc.IndexDocument(ctx, markdownDoc("guide.md", guideMarkdown))
	require.NoError(t, err)

	n, err := f.svc.RemoveSource(ctx, " guide.md ")
	require.NoError(t, err)
	assert.Equal(t, written.ChunksWritten, n)

	sources, err := f.svc.ListSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)
}
