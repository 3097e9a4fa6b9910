package score

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/domain"
)

// EmbeddingReader exposes the precomputed slide vectors (ISP).
type EmbeddingReader interface {
	IDs() []string
	Embedding(id string) ([]float32, bool)
	HasEmbeddings() bool
}

// SemanticScorer scores slides by cosine similarity between precomputed
// slide embeddings and a query embedding computed on demand.
type SemanticScorer struct {
	embedder domain.Embedder
	slides   EmbeddingReader
	logger   *zap.Logger
}

// NewSemanticScorer creates a semantic scorer.
func NewSemanticScorer(embedder domain.Embedder, slides EmbeddingReader, logger *zap.Logger) *SemanticScorer {
	return &SemanticScorer{embedder: embedder, slides: slides, logger: logger}
}

// Semantic is a per-slide cosine similarity score.
type Semantic struct {
	SlideID string
	Score   float64
}

// Outcome is the explicit two-variant result of batch semantic scoring:
// either Scores are valid, or the batch is Unavailable and the caller must
// fall back to keyword scoring. Unavailability is a degraded mode, never an
// error surfaced to the end user.
type Outcome struct {
	scores      []Semantic
	unavailable error
}

// Available reports whether scoring produced usable scores.
func (o Outcome) Available() bool { return o.unavailable == nil }

// Scores returns the per-slide scores. Valid only when Available.
func (o Outcome) Scores() []Semantic { return o.scores }

// Reason returns why scoring was unavailable, nil when Available.
func (o Outcome) Reason() error { return o.unavailable }

// AvailableOutcome wraps valid per-slide scores.
func AvailableOutcome(scores []Semantic) Outcome { return Outcome{scores: scores} }

// UnavailableOutcome marks the batch unavailable for reason err.
func UnavailableOutcome(err error) Outcome { return Outcome{unavailable: err} }

// ScoreAll scores every slide that has a precomputed embedding against the
// query. The query embedding is computed once; any embedding failure makes
// the whole batch Unavailable.
func (s *SemanticScorer) ScoreAll(ctx context.Context, query string) Outcome {
	if s.embedder == nil || !s.slides.HasEmbeddings() {
		return UnavailableOutcome(domain.ErrEmbeddingUnavailable)
	}

	embRes, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("Query embedding failed", zap.Error(err))
		return UnavailableOutcome(fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err))
	}
	if len(embRes.Embedding) == 0 {
		return UnavailableOutcome(fmt.Errorf("%w: empty query embedding", domain.ErrEmbeddingUnavailable))
	}

	var scores []Semantic
	for _, id := range s.slides.IDs() {
		vec, ok := s.slides.Embedding(id)
		if !ok {
			continue // slide without a vector is skipped, not an error
		}
		scores = append(scores, Semantic{
			SlideID: id,
			Score:   domain.CosineSimilarity(embRes.Embedding, vec),
		})
	}
	return AvailableOutcome(scores)
}
