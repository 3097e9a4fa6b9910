package answer

import (
	"context"
	"encoding/json"

	domlicense "github.com/slidewise/slidewise/internal/domain/license"
	"github.com/slidewise/slidewise/internal/domain/retrieval/request"
	"github.com/slidewise/slidewise/internal/domain/retrieval/result"
	licenseuc "github.com/slidewise/slidewise/internal/usecase/license"
)

// Retriever finds relevant slides for a query.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) []result.ScoredSlide
}

// Classifier detects license comparison queries.
type Classifier interface {
	Classify(query string) licenseuc.Classification
}

// LicenseAnalyzer infers tier availability from slide texts.
type LicenseAnalyzer interface {
	Analyze(feature string, slideTexts []string) domlicense.Report
}

// ResultCache caches final answers by query.
type ResultCache interface {
	Get(ctx context.Context, query string) (json.RawMessage, bool)
	Set(ctx context.Context, query string, result json.RawMessage)
}
