package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const testDim = 3

// testConfig returns a valid configuration with a small dimension and fast retries.
func testConfig() domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Embedding.Dimensions = testDim
	cfg.Indexing.RetryBaseDelay = time.Millisecond
	cfg.Indexing.RetryMaxDelay = 4 * time.Millisecond
	return cfg
}

// vectorFor derives a deterministic vector from text.
func vectorFor(text string) []float32 {
	return []float32{
		float32(len(text)%7 + 1),
		float32(strings.Count(text, "a") + 1),
		1,
	}
}

// --- Embedding ---

type mockEmbedding struct {
	dim        int
	err        error
	wrongDim   bool
	batchCalls atomic.Int32
	pingErr    error

	mu     sync.Mutex
	texts  []string
	vector []float32 // fixed query vector when set
}

func newMockEmbedding() *mockEmbedding {
	return &mockEmbedding{dim: testDim}
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.wrongDim {
		return []float32{1}, nil
	}
	if m.vector != nil {
		return m.vector, nil
	}
	return vectorFor(text), nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.mu.Lock()
	m.texts = append(m.texts, texts...)
	m.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedding) embedded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func (m *mockEmbedding) Dimensions() int              { return m.dim }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return m.pingErr }
func (m *mockEmbedding) Close() error                 { return nil }

// --- Vision ---

type mockVision struct {
	result  domain.VisionResult
	pingErr error
	calls   atomic.Int32
}

func (m *mockVision) Describe(_ context.Context, _ domain.ImageInput) domain.VisionResult {
	m.calls.Add(1)
	return m.result
}

func (m *mockVision) ModelName() string            { return "mock-vision" }
func (m *mockVision) Ping(_ context.Context) error { return m.pingErr }
func (m *mockVision) Close() error                 { return nil }

// --- Image loader ---

type mockLoader struct {
	err error
}

func (m *mockLoader) Load(_ context.Context, _ string) ([]byte, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return []byte("png"), "image/png", nil
}

// --- Generation ---

type mockGeneration struct {
	respond func(req domain.GenerationRequest) domain.GenerationResult
	pingErr error

	mu       sync.Mutex
	requests []domain.GenerationRequest
}

func (m *mockGeneration) Generate(_ context.Context, req domain.GenerationRequest) domain.GenerationResult {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.respond == nil {
		return domain.GenerationResult{Availability: domain.Available(), Text: "generated answer"}
	}
	return m.respond(req)
}

func (m *mockGeneration) calls() []domain.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.GenerationRequest(nil), m.requests...)
}

func (m *mockGeneration) ModelName() string            { return "mock-gen" }
func (m *mockGeneration) Ping(_ context.Context) error { return m.pingErr }
func (m *mockGeneration) Close() error                 { return nil }

// --- Vector store ---

// mockStore wraps the memory store with failure injection and call accounting.
type mockStore struct {
	*memory.VectorStore

	filters  bool
	maxBatch int

	mu          sync.Mutex
	upsertErrs  []error // consumed one per Upsert call
	deleteErr   error
	queryErr    error
	countErr    error
	queryResult []domain.QueryResult
	batches     []int
	lastK       int

	inflight    atomic.Int32
	maxInflight atomic.Int32
	writeDelay  time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{VectorStore: memory.NewVectorStore(), filters: true}
}

var _ driven.VectorStore = (*mockStore)(nil)

func (m *mockStore) enter() func() {
	n := m.inflight.Add(1)
	for {
		cur := m.maxInflight.Load()
		if n <= cur || m.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.writeDelay > 0 {
		time.Sleep(m.writeDelay)
	}
	return func() { m.inflight.Add(-1) }
}

func (m *mockStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	defer m.enter()()
	m.mu.Lock()
	var err error
	if len(m.upsertErrs) > 0 {
		err, m.upsertErrs = m.upsertErrs[0], m.upsertErrs[1:]
	}
	if err == nil {
		m.batches = append(m.batches, len(records))
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.VectorStore.Upsert(ctx, records)
}

func (m *mockStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	defer m.enter()()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.VectorStore.DeleteBySource(ctx, source)
}

func (m *mockStore) Query(
	ctx context.Context, vector []float32, k int, filter domain.ContentType,
) ([]domain.QueryResult, error) {
	m.mu.Lock()
	m.lastK = k
	m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryResult != nil {
		out := append([]domain.QueryResult(nil), m.queryResult...)
		if len(out) > k {
			out = out[:k]
		}
		return out, nil
	}
	if !m.filters {
		filter = ""
	}
	return m.VectorStore.Query(ctx, vector, k, filter)
}

func (m *mockStore) Count(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.VectorStore.Count(ctx)
}

func (m *mockStore) Capabilities() driven.StoreCapabilities {
	return driven.StoreCapabilities{Name: "mock", FiltersContentType: m.filters, MaxBatchSize: m.maxBatch}
}

func (m *mockStore) upsertBatches() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}

var errStoreDown = errors.New("store down")

// --- Prompt store ---

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}
