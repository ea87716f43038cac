package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AnswerService answers questions from indexed documents.
type AnswerService interface {
	// Ask retrieves relevant chunks and produces a graded, attributed answer.
	// Degraded generation yields a retrieval-only answer, not an error.
	Ask(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error)
}

// StatusService reports the health of the index and models.
type StatusService interface {
	// Status never fails; unreachable components are reported as degraded.
	Status(ctx context.Context) domain.HealthStatus
}
