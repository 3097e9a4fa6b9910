package retrieve

import (
	"context"

	licenseuc "github.com/slidewise/slidewise/internal/usecase/license"
	"github.com/slidewise/slidewise/internal/usecase/score"
)

// SlideReader reads the fixed slide corpus.
type SlideReader interface {
	IDs() []string
	Text(id string) (string, bool)
	Len() int
	HasEmbeddings() bool
}

// KeywordScorer scores a slide's text against a query.
type KeywordScorer interface {
	Score(query, slideText string) score.Keyword
}

// SemanticScorer scores the whole corpus semantically, or reports the batch
// unavailable.
type SemanticScorer interface {
	ScoreAll(ctx context.Context, query string) score.Outcome
}

// Classifier detects license comparison queries.
type Classifier interface {
	Classify(query string) licenseuc.Classification
}
