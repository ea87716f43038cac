package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question    string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default from configuration)"`
	ContentType string `json:"content_type,omitempty" jsonschema:"restrict retrieval to text or image passages"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Success    bool           `json:"success"`
	Reason     string         `json:"reason,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Answer     string         `json:"answer,omitempty"`
	Confidence string         `json:"confidence,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
	Sources    []SourceOutput `json:"sources,omitempty"`
	FollowUps  []string       `json:"follow_up_suggestions,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms,omitempty"`
}

// SourceOutput attributes part of an answer to an indexed passage.
type SourceOutput struct {
	ChunkID     string  `json:"chunk_id"`
	Source      string  `json:"source"`
	ContentType string  `json:"content_type"`
	Score       float64 `json:"score"`
	Preview     string  `json:"preview,omitempty"`
}

// IndexDocumentInput is the input schema for the index_document tool.
type IndexDocumentInput struct {
	Source   string `json:"source" jsonschema:"logical document name; re-indexing a source replaces it"`
	Content  string `json:"content" jsonschema:"the raw document (HTML, Markdown, OpenAPI YAML/JSON or plain text)"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"content type, detected from the source name when empty"`
	BaseURI  string `json:"base_uri,omitempty" jsonschema:"location that relative image references resolve against"`
}

// IndexDocumentOutput is the output schema for the index_document tool.
type IndexDocumentOutput struct {
	Success          bool   `json:"success"`
	Reason           string `json:"reason,omitempty"`
	ChunksWritten    int    `json:"chunks_written"`
	ChunksSkipped    int    `json:"chunks_skipped"`
	FragmentsSkipped int    `json:"fragments_skipped"`
	TextChunks       int    `json:"text_chunks"`
	ImageChunks      int    `json:"image_chunks"`
	VisionFallbacks  int    `json:"vision_fallbacks"`
}

// StatusInput is the empty input of the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	Success     bool        `json:"success"`
	Reason      string      `json:"reason,omitempty"`
	Ready       bool        `json:"ready"`
	Backend     string      `json:"backend"`
	Reachable   bool        `json:"index_reachable"`
	RecordCount int         `json:"record_count"`
	Dimension   int         `json:"dimension"`
	IndexError  string      `json:"index_error,omitempty"`
	Embedding   ModelOutput `json:"embedding"`
	Vision      ModelOutput `json:"vision"`
	Generation  ModelOutput `json:"generation"`
}

// ModelOutput describes one model capability.
type ModelOutput struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RemoveSourceInput is the input schema for the remove_source tool.
type RemoveSourceInput struct {
	Source string `json:"source" jsonschema:"the source to remove from the index"`
}

// RemoveSourceOutput is the output schema for the remove_source tool.
type RemoveSourceOutput struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Removed int    `json:"removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documentation, with confidence, sources and follow-up suggestions",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_document",
		Description: "Index a document, replacing any previous version of the same source",
	}, s.handleIndexDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report the health of the vector index and the models",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_source",
		Description: "Remove every indexed passage of a source",
	}, s.handleRemoveSource)
}

// handleAsk handles the ask tool invocation.
// Failures are reported in the output rather than as protocol errors.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{Reason: "question is required"}, nil
	}
	contentType, err := domain.ParseContentType(input.ContentType)
	if err != nil {
		return nil, AskOutput{Reason: "content_type must be text or image"}, nil
	}

	answer, err := s.ports.Answer.Ask(ctx, question, domain.AskOptions{
		TopK:        max(input.TopK, 0),
		ContentType: contentType,
	})
	if err != nil {
		logger.Warn("mcp ask failed: %v", err)
		return nil, AskOutput{Reason: err.Error()}, nil
	}

	output := AskOutput{
		Success:    true,
		Reason:     answer.Reason,
		RequestID:  answer.RequestID,
		Answer:     answer.AnswerText,
		Confidence: answer.Confidence.String(),
		Outcome:    string(answer.Outcome),
		Sources:    make([]SourceOutput, len(answer.Sources)),
		FollowUps:  answer.FollowUps,
		ElapsedMS:  answer.Elapsed.Milliseconds(),
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{
			ChunkID:     src.ChunkID,
			Source:      src.Source,
			ContentType: src.ContentType.String(),
			Score:       src.Score,
			Preview:     src.Preview,
		}
	}
	return nil, output, nil
}

// handleIndexDocument handles the index_document tool invocation.
func (s *Server) handleIndexDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexDocumentInput,
) (*mcp.CallToolResult, IndexDocumentOutput, error) {
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, IndexDocumentOutput{Reason: "source is required"}, nil
	}

	result, err := s.ports.Index.IndexDocument(ctx, domain.RawDocument{
		Source:   source,
		BaseURI:  input.BaseURI,
		MIMEType: input.MIMEType,
		Content:  []byte(input.Content),
	})
	output := indexOutput(result)
	if err != nil {
		// A partial write still reports the records that were persisted.
		logger.Warn("mcp index %s failed: %v", source, err)
		output.Reason = err.Error()
		return nil, output, nil
	}

	output.Success = true
	return nil, output, nil
}

func indexOutput(result *domain.IndexResult) IndexDocumentOutput {
	if result == nil {
		return IndexDocumentOutput{}
	}
	return IndexDocumentOutput{
		ChunksWritten:    result.ChunksWritten,
		ChunksSkipped:    result.ChunksSkipped,
		FragmentsSkipped: result.FragmentsSkipped,
		TextChunks:       result.TextChunks,
		ImageChunks:      result.ImageChunks,
		VisionFallbacks:  result.VisionFallbacks,
	}
}

// handleStatus handles the status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Status == nil {
		return nil, StatusOutput{Reason: "status service not configured"}, nil
	}

	h := s.ports.Status.Status(ctx)
	return nil, StatusOutput{
		Success:     true,
		Ready:       h.Ready(),
		Backend:     h.Index.Backend,
		Reachable:   h.Index.Reachable,
		RecordCount: h.Index.RecordCount,
		Dimension:   h.Index.Dimension,
		IndexError:  h.Index.Error,
		Embedding:   modelOutput(h.Embedding),
		Vision:      modelOutput(h.Vision),
		Generation:  modelOutput(h.Generation),
	}, nil
}

func modelOutput(h domain.ModelHealth) ModelOutput {
	return ModelOutput{
		Configured: h.Configured,
		Reachable:  h.Reachable,
		Provider:   h.Provider,
		Model:      h.Model,
		Error:      h.Error,
	}
}

// handleRemoveSource handles the remove_source tool invocation.
func (s *Server) handleRemoveSource(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveSourceInput,
) (*mcp.CallToolResult, RemoveSourceOutput, error) {
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, RemoveSourceOutput{Reason: "source is required"}, nil
	}

	removed, err := s.ports.Index.RemoveSource(ctx, source)
	if err != nil {
		return nil, RemoveSourceOutput{Reason: err.Error()}, nil
	}
	return nil, RemoveSourceOutput{Success: true, Removed: removed}, nil
}
