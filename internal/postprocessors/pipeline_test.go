package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _ *domain.NormalisedDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

func testDoc() *domain.NormalisedDocument {
	return &domain.NormalisedDocument{
		Source: "test-doc",
		Blocks: []domain.ContentBlock{{Kind: domain.BlockParagraph, Text: "test content"}},
	}
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if p.Len() != 0 {
		t.Errorf("expected 0 processors, got %d", p.Len())
	}
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	p.Add(&mockProcessor{name: "test"})

	if p.Len() != 1 {
		t.Errorf("expected 1 processor, got %d", p.Len())
	}
	if names := p.Names(); len(names) != 1 || names[0] != "test" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	chunks, err := NewPipeline().Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected nil chunks from empty pipeline, got %v", chunks)
	}
}

func TestPipeline_Process_MultipleProcessors(t *testing.T) {
	firstChunks := []domain.Chunk{
		{ID: "chunk-1", Body: "first"},
	}
	secondChunks := []domain.Chunk{
		{ID: "chunk-1", Body: "modified"},
		{ID: "chunk-2", Body: "added"},
	}

	p := NewPipeline(
		&mockProcessor{name: "first", chunks: firstChunks},
		&mockProcessor{name: "second", chunks: secondChunks},
	)

	chunks, err := p.Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != len(secondChunks) {
		t.Errorf("expected %d chunks, got %d", len(secondChunks), len(chunks))
	}
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	expectedErr := errors.New("processor failed")

	p := NewPipeline(&mockProcessor{name: "failing", err: expectedErr})

	_, err := p.Process(context.Background(), testDoc())
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped error, got: %v", err)
	}
}

func TestPipeline_Process_PassthroughProcessor(t *testing.T) {
	initialChunks := []domain.Chunk{
		{ID: "chunk-1", Body: "test"},
	}

	p := NewPipeline(
		&mockProcessor{name: "chunker", chunks: initialChunks},
		&mockProcessor{name: "passthrough"}, // Returns received chunks unchanged
	)

	chunks, err := p.Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != len(initialChunks) {
		t.Errorf("expected %d chunks, got %d", len(initialChunks), len(chunks))
	}
}

func TestDefaultPipeline_ChunksAndDedupes(t *testing.T) {
	cfg := domain.DefaultConfig().Chunking
	p, err := NewDefaultPipeline(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := &domain.NormalisedDocument{
		Source: "faq.html",
		Blocks: []domain.ContentBlock{
			{Kind: domain.BlockHeading, Level: 2, Text: "Refunds"},
			{Kind: domain.BlockParagraph, Text: "Refunds are issued within five business days of the request being approved by finance. Contact billing for exceptions."},
			{Kind: domain.BlockImageRef, AltText: "Refund flow"},
			{Kind: domain.BlockHeading, Level: 2, Text: "Refunds"},
			{Kind: domain.BlockParagraph, Text: "Refunds are issued within five business days of the request being approved by finance. Contact billing for exceptions."},
		},
	}

	chunks, err := p.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The repeated section collapses into one text chunk next to the image.
	var text, images int
	for _, c := range chunks {
		if c.IsImage() {
			images++
		} else {
			text++
		}
	}
	if text != 1 || images != 1 {
		t.Errorf("expected 1 text and 1 image chunk, got %d and %d", text, images)
	}
}
