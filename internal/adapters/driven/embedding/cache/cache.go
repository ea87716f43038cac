// Package cache provides an LRU decorator for embedding services.
// Question embeddings repeat often (retries, follow-ups); cached vectors skip the model call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Queries and documents are cached apart, since providers may embed them
// with different task types.
const (
	roleQuery    = "q"
	roleDocument = "d"
)

// EmbeddingService caches vectors by model, role and text.
type EmbeddingService struct {
	next  driven.EmbeddingService
	cache *expirable.LRU[string, []float32]
}

// Wrap returns next wrapped in a cache of size entries that expire after ttl.
// A non-positive size or ttl disables caching and returns next unchanged.
func Wrap(next driven.EmbeddingService, size int, ttl time.Duration) driven.EmbeddingService {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &EmbeddingService{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

// Embed returns the cached vector for text, embedding it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.key(roleQuery, text)
	if vec, ok := s.cache.Get(key); ok {
		logger.Debug("embedding cache hit")
		return clone(vec), nil
	}
	vec, err := s.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, clone(vec))
	return vec, nil
}

// EmbedBatch embeds only the texts that are not cached, in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		keys[i] = s.key(roleDocument, text)
		if vec, ok := s.cache.Get(keys[i]); ok {
			out[i] = clone(vec)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := s.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding cache: %d vectors returned for %d texts", len(vecs), len(missing))
	}
	for j, i := range missingIdx {
		out[i] = vecs[j]
		s.cache.Add(keys[i], clone(vecs[j]))
	}
	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missing), len(missing))
	return out, nil
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}

// Dimensions returns the wrapped service's dimension.
func (s *EmbeddingService) Dimensions() int { return s.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string { return s.next.ModelName() }

// Ping pings the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close purges the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Purge()
	return s.next.Close()
}

func (s *EmbeddingService) key(role, text string) string {
	sum := sha256.Sum256([]byte(s.next.ModelName() + "\x00" + role + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func clone(vec []float32) []float32 {
	return append([]float32(nil), vec...)
}
