package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer   *domain.Answer
	err      error
	question string
	opts     domain.AskOptions
}

func (m *mockAnswerService) Ask(_ context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	m.question = question
	m.opts = opts
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result  *domain.IndexResult
	sources []domain.SourceSummary
	removed int
	err     error
	raw     domain.RawDocument
}

func (m *mockIndexService) IndexDocument(_ context.Context, raw domain.RawDocument) (*domain.IndexResult, error) {
	m.raw = raw
	return m.result, m.err
}

func (m *mockIndexService) RemoveSource(_ context.Context, _ string) (int, error) {
	return m.removed, m.err
}

func (m *mockIndexService) ListSources(_ context.Context) ([]domain.SourceSummary, error) {
	return m.sources, m.err
}

// mockStatusService is a mock implementation of driving.StatusService.
type mockStatusService struct {
	status domain.HealthStatus
}

func (m *mockStatusService) Status(_ context.Context) domain.HealthStatus {
	return m.status
}

func healthyStatus() domain.HealthStatus {
	return domain.HealthStatus{
		Index:      domain.IndexHealth{Backend: "memory", Reachable: true, RecordCount: 42, Dimension: 768},
		Embedding:  domain.ModelHealth{Configured: true, Reachable: true, Provider: "ollama", Model: "nomic-embed-text"},
		Generation: domain.ModelHealth{Configured: true, Reachable: false, Provider: "openai", Error: "timed out"},
		CheckedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestServer(answer *mockAnswerService, index *mockIndexService, status *mockStatusService) *Server {
	ports := &Ports{Answer: answer, Index: index}
	if status != nil {
		ports.Status = status
	}
	server, err := NewServer(ports)
	if err != nil {
		panic(err)
	}
	return server
}
