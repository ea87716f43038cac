package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// It performs an exact cosine scan and is suited to tests and small corpora.
type VectorStore struct {
	mu      sync.RWMutex
	records map[string]domain.VectorRecord
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		records: make(map[string]domain.VectorRecord),
	}
}

// Upsert writes records, replacing any with the same ID.
func (s *VectorStore) Upsert(_ context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		s.records[r.ID] = r
	}
	return nil
}

// DeleteBySource removes every record of a source.
func (s *VectorStore) DeleteBySource(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.records {
		if r.Source == source {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Query returns the k most similar records, optionally restricted to a content type.
func (s *VectorStore) Query(
	_ context.Context, vector []float32, k int, filter domain.ContentType,
) ([]domain.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.QueryResult, 0, len(s.records))
	for _, r := range s.records {
		if filter != "" && r.ContentType != filter {
			continue
		}
		results = append(results, domain.QueryResult{
			ChunkID:       r.ID,
			Score:         vecmath.Cosine(vector, r.Vector),
			ContentType:   r.ContentType,
			Source:        r.Source,
			Body:          r.Body,
			SectionHeader: r.Metadata.SectionHeader,
		})
	}
	return vecmath.TopK(results, k), nil
}

// Count returns the number of stored records.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Sources summarises stored records per source, sorted by name.
func (s *VectorStore) Sources(_ context.Context) ([]domain.SourceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource := make(map[string]*domain.SourceSummary)
	for _, r := range s.records {
		sum, ok := bySource[r.Source]
		if !ok {
			sum = &domain.SourceSummary{Source: r.Source}
			bySource[r.Source] = sum
		}
		sum.RecordCount++
		if r.ContentType == domain.ContentImage {
			sum.ImageCount++
		} else {
			sum.TextCount++
		}
	}

	out := make([]domain.SourceSummary, 0, len(bySource))
	for _, sum := range bySource {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

// Get returns a stored record by ID.
func (s *VectorStore) Get(id string) (domain.VectorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// Capabilities describes the store.
func (s *VectorStore) Capabilities() driven.StoreCapabilities {
	return driven.StoreCapabilities{Name: string(domain.VectorBackendMemory), FiltersContentType: true}
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
