package services

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

// pingTimeout bounds each provider health check.
const pingTimeout = 5 * time.Second

// pinger is the health-check subset shared by the model services.
type pinger interface {
	Ping(ctx context.Context) error
	ModelName() string
}

// StatusService reports the health of the index and model providers.
type StatusService struct {
	cfg        domain.Config
	index      *IndexManager
	embedding  driven.EmbeddingService
	vision     driven.VisionService
	generation driven.GenerationService
	now        func() time.Time
}

// NewStatusService creates a new status service.
// Model services are optional (can be nil) and are then reported as not configured.
func NewStatusService(
	cfg domain.Config,
	index *IndexManager,
	embedding driven.EmbeddingService,
	vision driven.VisionService,
	generation driven.GenerationService,
) *StatusService {
	return &StatusService{
		cfg:        cfg,
		index:      index,
		embedding:  embedding,
		vision:     vision,
		generation: generation,
		now:        time.Now,
	}
}

// Status checks every component. It never fails.
func (s *StatusService) Status(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{CheckedAt: s.now()}
	if s.index != nil {
		status.Index = s.index.Health(ctx)
	} else {
		status.Index.Error = "no vector store configured"
	}

	// Nil interface values must not reach modelHealth as typed nils.
	var embedding, vision, generation pinger
	if s.embedding != nil {
		embedding = s.embedding
	}
	if s.vision != nil {
		vision = s.vision
	}
	if s.generation != nil {
		generation = s.generation
	}

	status.Embedding = modelHealth(ctx, s.cfg.Embedding.Provider, embedding)
	status.Vision = modelHealth(ctx, s.cfg.Vision.Provider, vision)
	status.Generation = modelHealth(ctx, s.cfg.Generation.Provider, generation)
	return status
}

func modelHealth(ctx context.Context, provider domain.AIProvider, svc pinger) domain.ModelHealth {
	h := domain.ModelHealth{Provider: string(provider)}
	if svc == nil {
		h.Error = "not configured"
		return h
	}
	h.Configured = true
	h.Model = svc.ModelName()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		h.Error = err.Error()
		return h
	}
	h.Reachable = true
	return h
}
