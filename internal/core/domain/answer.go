package domain

import "time"

// Confidence is the discrete reliability grade of an answer.
type Confidence string

// Confidence grades, ordered none < low < medium < high.
const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank returns the position of the grade in the ordering none < low < medium < high.
// Unknown grades rank below none.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceNone:
		return 0
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	default:
		return -1
	}
}

// String returns the string representation.
func (c Confidence) String() string {
	return string(c)
}

// Outcome is the terminal state of a question.
type Outcome string

// Available outcomes.
const (
	// OutcomeAnswered means an answer was generated from retrieved context.
	OutcomeAnswered Outcome = "answered"

	// OutcomeUnanswerable means no relevant content was found.
	OutcomeUnanswerable Outcome = "unanswerable"

	// OutcomeRetrievalOnly means relevant passages were found but generation failed.
	OutcomeRetrievalOnly Outcome = "retrieval_only"
)

// AskOptions configures a single question.
type AskOptions struct {
	// TopK is the number of results to retrieve. Zero uses the configured default.
	TopK int

	// ContentType restricts retrieval to text or image records. Empty means no filter.
	ContentType ContentType
}

// SourceRef attributes part of an answer to a retrieved chunk.
type SourceRef struct {
	ChunkID     string      `json:"chunk_id"`
	Source      string      `json:"source"`
	ContentType ContentType `json:"content_type"`
	Score       float64     `json:"score"`
	Preview     string      `json:"preview,omitempty"`
}

// RetrievalMetrics summarises the quality of the retrieved set for one question.
type RetrievalMetrics struct {
	// Retrieved is the number of results returned by the index.
	Retrieved int `json:"retrieved"`

	// Relevant is the number of results at or above the similarity floor.
	Relevant int `json:"relevant"`

	// HitRate is 1 when at least one result is relevant, else 0.
	HitRate float64 `json:"hit_rate"`

	// PrecisionAtK is Relevant / Retrieved.
	PrecisionAtK float64 `json:"precision_at_k"`

	// MeanSimilarity is the mean score of the retrieved results.
	MeanSimilarity float64 `json:"mean_similarity"`

	// TopScore is the best retrieved score.
	TopScore float64 `json:"top_score"`

	// ScoreSpread is the difference between the best and worst retrieved scores.
	ScoreSpread float64 `json:"score_spread"`

	// TextSources and ImageSources count relevant results per content type.
	TextSources  int `json:"text_sources"`
	ImageSources int `json:"image_sources"`
}

// Answer is the response to a question.
type Answer struct {
	RequestID  string           `json:"request_id"`
	Question   string           `json:"question"`
	AnswerText string           `json:"answer"`
	Confidence Confidence       `json:"confidence"`
	Outcome    Outcome          `json:"outcome"`
	Reason     string           `json:"reason,omitempty"`
	Sources    []SourceRef      `json:"sources"`
	FollowUps  []string         `json:"follow_up_suggestions"`
	Metrics    RetrievalMetrics `json:"metrics"`
	Elapsed    time.Duration    `json:"elapsed"`
}

// Generated returns true if the answer text was synthesised by the generative model.
func (a *Answer) Generated() bool {
	return a.Outcome == OutcomeAnswered
}

// IndexResult reports the outcome of indexing one document.
type IndexResult struct {
	Source string `json:"source"`

	// ChunksWritten is the number of vector records persisted.
	ChunksWritten int `json:"chunks_written"`

	// ChunksSkipped is the number of chunks dropped for lack of derivable content.
	ChunksSkipped int `json:"chunks_skipped"`

	// FragmentsSkipped is the number of unparseable document fragments.
	FragmentsSkipped int `json:"fragments_skipped"`

	TextChunks  int `json:"text_chunks"`
	ImageChunks int `json:"image_chunks"`

	// VisionFallbacks counts image chunks embedded without a vision description.
	VisionFallbacks int `json:"vision_fallbacks"`

	Elapsed time.Duration `json:"elapsed"`
}

// Degraded returns true if anything was skipped or fell back during indexing.
func (r *IndexResult) Degraded() bool {
	return r.ChunksSkipped > 0 || r.FragmentsSkipped > 0 || r.VisionFallbacks > 0
}
