package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

// NotFoundAnswer is returned when no indexed content is relevant to a question.
const NotFoundAnswer = "I could not find this in the documentation. No indexed content is relevant enough to answer the question."

// previewChars bounds the body excerpt attached to each source.
const previewChars = 160

// AnswerService runs the read path: embed the question, retrieve, grade,
// assemble context, generate and suggest follow-ups.
type AnswerService struct {
	cfg        domain.RetrievalConfig
	gen        domain.GenerationSettings
	embedder   *Embedder
	index      *IndexManager
	generation driven.GenerationService
	prompts    driven.PromptStore
}

// NewAnswerService creates a new answer service.
// The generation service is optional (can be nil); without it answers are retrieval-only.
func NewAnswerService(
	cfg domain.Config,
	embedder *Embedder,
	index *IndexManager,
	generation driven.GenerationService,
) *AnswerService {
	return &AnswerService{
		cfg:        cfg.Retrieval,
		gen:        cfg.Generation,
		embedder:   embedder,
		index:      index,
		generation: generation,
	}
}

// SetPromptStore sets the store for customisable prompts.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Ask answers a question from the indexed documents.
// Embedding and index failures are errors; generation failures degrade to a
// retrieval-only answer that still carries the sources.
func (s *AnswerService) Ask(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	start := time.Now()
	logger.Section("Ask")

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if opts.ContentType != "" && !opts.ContentType.IsValid() {
		return nil, fmt.Errorf("%w: content type %q", domain.ErrInvalidInput, opts.ContentType)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	if s.cfg.AnswerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AnswerTimeout)
		defer cancel()
	}

	answer := &domain.Answer{
		RequestID: uuid.NewString(),
		Question:  question,
		Sources:   []domain.SourceRef{},
		FollowUps: []string{},
	}
	defer func() { answer.Elapsed = time.Since(start) }()

	// Embedding
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	// Retrieval
	results, err := s.index.Query(ctx, vector, topK, opts.ContentType)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	answer.Metrics = computeMetrics(results, s.cfg.SimilarityFloor)
	logger.Debug("retrieved %d results, %d relevant, top %.3f",
		answer.Metrics.Retrieved, answer.Metrics.Relevant, answer.Metrics.TopScore)

	relevant := aboveFloor(results, s.cfg.SimilarityFloor)
	if len(relevant) == 0 {
		answer.Confidence = domain.ConfidenceNone
		answer.Outcome = domain.OutcomeUnanswerable
		answer.AnswerText = NotFoundAnswer
		return answer, nil
	}

	// Grading
	answer.Confidence = s.cfg.Grade(relevant[0].Score)
	answer.Sources = sourceRefs(relevant)

	// ContextAssembly
	contextText, used := assembleContext(relevant, s.cfg.MaxContextChars)
	logger.Debug("context: %d of %d results, %d chars", used, len(relevant), utf8.RuneCountInString(contextText))

	// Generation
	res := s.generate(ctx, question, contextText)
	if res.Available {
		answer.Outcome = domain.OutcomeAnswered
		answer.AnswerText = strings.TrimSpace(res.Text)
	} else {
		logger.Warn("%v: %s", domain.ErrGenerationUnavailable, res.Reason)
		answer.Outcome = domain.OutcomeRetrievalOnly
		answer.Reason = fmt.Sprintf("%v: %s", domain.ErrGenerationUnavailable, res.Reason)
		answer.AnswerText = retrievalOnlyText(relevant)
	}

	// Postprocess
	answer.FollowUps = s.followUps(ctx, question, relevant, used, res.Available)
	return answer, nil
}

// generate calls the generative model within GenerationTimeout.
func (s *AnswerService) generate(ctx context.Context, question, contextText string) domain.GenerationResult {
	if s.generation == nil {
		return domain.GenerationResult{Availability: domain.Unavailable("no generation model configured")}
	}

	genCtx := ctx
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}

	done := logger.Timed("generate")
	res := s.generation.Generate(genCtx, domain.GenerationRequest{
		System:      loadPrompt(s.prompts, driven.PromptAnswerSystem, defaultAnswerSystemPrompt),
		Prompt:      fmt.Sprintf(loadPrompt(s.prompts, driven.PromptAnswer, defaultAnswerPrompt), contextText, question),
		MaxTokens:   s.gen.MaxTokens,
		Temperature: s.gen.Temperature,
	})
	done()

	if !res.Available {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			res.Reason = "generation timed out"
		}
		return res
	}
	if strings.TrimSpace(res.Text) == "" {
		return domain.GenerationResult{Availability: domain.Unavailable("model returned an empty answer")}
	}
	return res
}

// followUps derives suggestions from context not used for the answer.
// Failures are swallowed: suggestions are best-effort.
func (s *AnswerService) followUps(
	ctx context.Context, question string, relevant []domain.QueryResult, used int, modelUp bool,
) []string {
	limit := s.cfg.MaxSuggestions
	if limit <= 0 || ctx.Err() != nil {
		return []string{}
	}

	unused := relevant[min(used, len(relevant)):]

	if modelUp {
		source := unused
		if len(source) == 0 {
			source = relevant[:min(2, len(relevant))]
		}
		if suggestions := s.modelFollowUps(ctx, question, source, limit); len(suggestions) > 0 {
			return suggestions
		}
	}

	pool := unused
	if len(pool) == 0 {
		pool = relevant
	}
	return heuristicFollowUps(question, pool, limit)
}

func (s *AnswerService) modelFollowUps(
	ctx context.Context, question string, results []domain.QueryResult, limit int,
) []string {
	bodies := make([]string, len(results))
	for i, r := range results {
		bodies[i] = r.Body
	}
	contextText, _ := assembleContext(results, s.cfg.MaxContextChars)
	if contextText == "" {
		contextText = strings.Join(bodies, "\n\n")
	}

	genCtx := ctx
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}

	template := loadPrompt(s.prompts, driven.PromptFollowUps, defaultFollowUpsPrompt)
	res := s.generation.Generate(genCtx, domain.GenerationRequest{
		Prompt:      fmt.Sprintf(template, limit, question, contextText),
		MaxTokens:   256,
		Temperature: s.gen.Temperature,
	})
	if !res.Available {
		logger.Warn("follow-up suggestions skipped: %s", res.Reason)
		return nil
	}
	return parseSuggestions(res.Text, question, limit)
}

// parseSuggestions extracts list items from a model response.
func parseSuggestions(text, question string, limit int) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(question)): true}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		item := strings.TrimLeft(line, "-*• ")
		if item == line {
			item = trimNumbering(line)
			if item == line {
				continue
			}
		}
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

// trimNumbering strips a leading "1." or "1)" marker.
func trimNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || (line[i] != '.' && line[i] != ')') {
		return line
	}
	return line[i+1:]
}

// heuristicFollowUps suggests questions from the section headers of results.
func heuristicFollowUps(question string, results []domain.QueryResult, limit int) []string {
	out := []string{}
	seen := make(map[string]bool)
	lowerQ := strings.ToLower(question)

	for _, r := range results {
		var suggestion string
		switch {
		case r.SectionHeader != "" && !strings.Contains(lowerQ, strings.ToLower(r.SectionHeader)):
			suggestion = "Tell me more about " + r.SectionHeader
		case r.ContentType == domain.ContentImage:
			suggestion = "What does the diagram in " + r.Source + " show?"
		default:
			continue
		}
		if seen[suggestion] {
			continue
		}
		seen[suggestion] = true
		out = append(out, suggestion)
		if len(out) == limit {
			break
		}
	}
	return out
}

// assembleContext concatenates tagged bodies in descending score order within
// budget characters. It returns the context and how many results it holds.
// Lower-scoring results are dropped first; an oversize top result is truncated.
func assembleContext(results []domain.QueryResult, budget int) (string, int) {
	var b strings.Builder
	size, used := 0, 0

	for i, r := range results {
		entry := fmt.Sprintf("[%d] (source: %s, type: %s)\n%s", i+1, r.Source, r.ContentType, strings.TrimSpace(r.Body))
		sep := ""
		if used > 0 {
			sep = "\n\n"
		}
		n := utf8.RuneCountInString(sep) + utf8.RuneCountInString(entry)
		if budget > 0 && size+n > budget {
			if used == 0 {
				b.WriteString(truncateRunes(entry, budget))
				used = 1
			}
			break
		}
		b.WriteString(sep)
		b.WriteString(entry)
		size += n
		used++
	}
	return b.String(), used
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func aboveFloor(results []domain.QueryResult, floor float64) []domain.QueryResult {
	out := make([]domain.QueryResult, 0, len(results))
	for _, r := range results {
		if r.Score >= floor {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func sourceRefs(results []domain.QueryResult) []domain.SourceRef {
	refs := make([]domain.SourceRef, len(results))
	for i, r := range results {
		refs[i] = domain.SourceRef{
			ChunkID:     r.ChunkID,
			Source:      r.Source,
			ContentType: r.ContentType,
			Score:       r.Score,
			Preview:     preview(r.Body),
		}
	}
	return refs
}

func preview(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(body) <= previewChars {
		return body
	}
	return string([]rune(body)[:previewChars]) + "..."
}

// retrievalOnlyText lists where relevant passages were found.
func retrievalOnlyText(results []domain.QueryResult) string {
	var sources []string
	seen := make(map[string]bool)
	for _, r := range results {
		if !seen[r.Source] {
			seen[r.Source] = true
			sources = append(sources, r.Source)
		}
	}
	return fmt.Sprintf("An answer could not be generated, but %d relevant passages were found in: %s.",
		len(results), strings.Join(sources, ", "))
}

// computeMetrics summarises the retrieved set against the similarity floor.
func computeMetrics(results []domain.QueryResult, floor float64) domain.RetrievalMetrics {
	m := domain.RetrievalMetrics{Retrieved: len(results)}
	if len(results) == 0 {
		return m
	}

	top, low, sum := results[0].Score, results[0].Score, 0.0
	for _, r := range results {
		sum += r.Score
		top = max(top, r.Score)
		low = min(low, r.Score)
		if r.Score < floor {
			continue
		}
		m.Relevant++
		if r.ContentType == domain.ContentImage {
			m.ImageSources++
		} else {
			m.TextSources++
		}
	}

	m.TopScore = top
	m.ScoreSpread = top - low
	m.MeanSimilarity = sum / float64(len(results))
	m.PrecisionAtK = float64(m.Relevant) / float64(len(results))
	if m.Relevant > 0 {
		m.HitRate = 1
	}
	return m
}
