package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// maxBatch is the most texts BatchEmbedContents accepts per call.
const maxBatch = 100

// EmbeddingService generates embeddings with a Gemini embedding model.
// Documents and questions use the retrieval task types of the same model.
type EmbeddingService struct {
	client     *genai.Client
	documents  *genai.EmbeddingModel
	queries    *genai.EmbeddingModel
	model      string
	dimensions int
	cfg        Config
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	cfg = withDefaults(cfg, DefaultEmbeddingModel)
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	documents := client.EmbeddingModel(cfg.Model)
	documents.TaskType = genai.TaskTypeRetrievalDocument
	queries := client.EmbeddingModel(cfg.Model)
	queries.TaskType = genai.TaskTypeRetrievalQuery

	dimensions := domain.EmbeddingDimensions()[cfg.Model]
	if dimensions == 0 {
		dimensions = 768
	}

	return &EmbeddingService{
		client:     client,
		documents:  documents,
		queries:    queries,
		model:      cfg.Model,
		dimensions: dimensions,
		cfg:        cfg,
	}, nil
}

// Embed embeds a question.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.queries.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, wrapError(err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("gemini: empty embedding")
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds document texts, splitting into API-sized batches.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		batch := s.documents.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}
		resp, err := s.documents.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, wrapError(err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini: %d embeddings returned for %d inputs", len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping fetches the model's metadata without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.documents.Info(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

// Close releases the SDK client.
func (s *EmbeddingService) Close() error {
	return s.client.Close()
}
