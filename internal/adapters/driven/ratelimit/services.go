package ratelimit

import (
	"context"
	"errors"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService  = (*EmbeddingService)(nil)
	_ driven.GenerationService = (*GenerationService)(nil)
	_ driven.VisionService     = (*VisionService)(nil)
)

// EmbeddingService waits for the limiter before each provider call.
type EmbeddingService struct {
	driven.EmbeddingService
	limiter *Limiter
}

// WrapEmbedding throttles next. A nil limiter or service returns next unchanged.
func WrapEmbedding(next driven.EmbeddingService, limiter *Limiter) driven.EmbeddingService {
	if next == nil || limiter == nil {
		return next
	}
	return &EmbeddingService{EmbeddingService: next, limiter: limiter}
}

// Embed waits for a token then embeds text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := s.EmbeddingService.Embed(ctx, text)
	s.observe(err)
	return vec, err
}

// EmbedBatch waits for a single token per batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vecs, err := s.EmbeddingService.EmbedBatch(ctx, texts)
	s.observe(err)
	return vecs, err
}

func (s *EmbeddingService) observe(err error) {
	if errors.Is(err, domain.ErrRateLimited) {
		s.limiter.RecordRateLimit(0)
	}
}

// GenerationService waits for the limiter before each provider call.
type GenerationService struct {
	driven.GenerationService
	limiter *Limiter
}

// WrapGeneration throttles next. A nil limiter or service returns next unchanged.
func WrapGeneration(next driven.GenerationService, limiter *Limiter) driven.GenerationService {
	if next == nil || limiter == nil {
		return next
	}
	return &GenerationService{GenerationService: next, limiter: limiter}
}

// Generate waits for a token; a cancelled wait is reported as unavailable.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.GenerationResult{Availability: domain.Unavailable(httpapi.Reason(err))}
	}
	res := s.GenerationService.Generate(ctx, req)
	if rateLimited(res.Availability) {
		s.limiter.RecordRateLimit(0)
	}
	return res
}

// VisionService waits for the limiter before each provider call.
type VisionService struct {
	driven.VisionService
	limiter *Limiter
}

// WrapVision throttles next. A nil limiter or service returns next unchanged.
func WrapVision(next driven.VisionService, limiter *Limiter) driven.VisionService {
	if next == nil || limiter == nil {
		return next
	}
	return &VisionService{VisionService: next, limiter: limiter}
}

// Describe waits for a token; a cancelled wait is reported as unavailable.
func (s *VisionService) Describe(ctx context.Context, img domain.ImageInput) domain.VisionResult {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.VisionResult{Availability: domain.Unavailable(httpapi.Reason(err))}
	}
	res := s.VisionService.Describe(ctx, img)
	if rateLimited(res.Availability) {
		s.limiter.RecordRateLimit(0)
	}
	return res
}
