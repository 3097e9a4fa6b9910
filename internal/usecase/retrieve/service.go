package retrieve

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/domain/retrieval/request"
	"github.com/slidewise/slidewise/internal/domain/retrieval/result"
	"github.com/slidewise/slidewise/internal/logger"
	"github.com/slidewise/slidewise/internal/metrics"
	"github.com/slidewise/slidewise/internal/usecase/score"
)

// License rubric weights and normalizer for the specialized license search.
const (
	rubricCapabilityMatrix  = 2
	rubricLicenseComparison = 2
	rubricFeatureMatch      = 3
	rubricTableMention      = 1
	rubricNormalizer        = 8
)

// Service is the hybrid retriever: it chooses the scoring strategy, merges
// and deduplicates results, and special-cases license comparison queries.
type Service struct {
	slides          SlideReader
	keyword         KeywordScorer
	semantic        SemanticScorer
	classifier      Classifier
	semanticDefault bool
	tierTerms       []string
	licenseTerms    []string
}

// New creates a hybrid retriever. semanticDefault is the globally configured
// scoring mode; callers may override per request. tierTerms is the
// configured tier vocabulary used by the license rubric.
func New(
	slides SlideReader,
	keyword KeywordScorer,
	semantic SemanticScorer,
	classifier Classifier,
	semanticDefault bool,
	tierTerms []string,
) *Service {
	lowered := make([]string, len(tierTerms))
	for i, t := range tierTerms {
		lowered[i] = strings.ToLower(t)
	}
	return &Service{
		slides:          slides,
		keyword:         keyword,
		semantic:        semantic,
		classifier:      classifier,
		semanticDefault: semanticDefault,
		tierTerms:       lowered,
		licenseTerms:    []string{"license", "edition", "tier"},
	}
}

// Retrieve returns the slides most relevant to the query, best first. An
// empty corpus or zero matches yields an empty list, not an error.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) []result.ScoredSlide {
	log := logger.FromContext(ctx)

	useSemantic := s.semanticDefault
	if override := req.UseSemantic(); override != nil {
		useSemantic = *override
	}
	useSemantic = useSemantic && s.slides.HasEmbeddings()

	cls := s.classifier.Classify(req.Query())

	var results []result.ScoredSlide
	if useSemantic {
		if out := s.semantic.ScoreAll(ctx, req.Query()); out.Available() {
			metrics.RetrievalsTotal.WithLabelValues("semantic").Inc()
			results = s.collectSemantic(out.Scores(), req.MaxResults())
		} else {
			// Degraded mode: semantic search is an optimization, so the
			// fallback is silent to the end user.
			log.Warn("Semantic scoring unavailable, falling back to keyword",
				zap.Error(out.Reason()))
			metrics.RetrievalsTotal.WithLabelValues("keyword_fallback").Inc()
			results = s.keywordSearch(req.Query(), req.MaxResults())
		}
	} else {
		metrics.RetrievalsTotal.WithLabelValues("keyword").Inc()
		results = s.keywordSearch(req.Query(), req.MaxResults())
	}

	if cls.IsLicenseQuery {
		specialized := s.licenseSearch(req.Query(), cls.Feature, req.MaxResults())
		results = mergeResults(specialized, results, req.MaxResults())
	}

	return results
}

// keywordSearch scores every slide lexically; only raw > 0 slides are
// candidates, ordered by descending raw score with slide-ID order breaking
// ties for determinism.
func (s *Service) keywordSearch(query string, maxResults int) []result.ScoredSlide {
	type candidate struct {
		id         string
		text       string
		raw        int
		normalized float64
	}

	var candidates []candidate
	for _, id := range s.slides.IDs() {
		text, ok := s.slides.Text(id)
		if !ok {
			continue
		}
		kw := s.keyword.Score(query, text)
		if kw.Raw <= 0 {
			continue
		}
		candidates = append(candidates, candidate{
			id: id, text: text, raw: kw.Raw, normalized: kw.Normalized,
		})
	}

	// IDs() is sorted, so equal raw scores keep slide-ID order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].raw > candidates[j].raw
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	results := make([]result.ScoredSlide, len(candidates))
	for i, c := range candidates {
		results[i] = result.New(c.id, c.text, c.normalized)
	}
	return results
}

// collectSemantic turns batch cosine scores into ranked results.
func (s *Service) collectSemantic(scores []score.Semantic, maxResults int) []result.ScoredSlide {
	sorted := make([]score.Semantic, len(scores))
	copy(sorted, scores)
	// ScoreAll emits scores in slide-ID order, so ties stay deterministic.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if len(sorted) > maxResults {
		sorted = sorted[:maxResults]
	}
	results := make([]result.ScoredSlide, 0, len(sorted))
	for _, sc := range sorted {
		text, ok := s.slides.Text(sc.SlideID)
		if !ok {
			continue
		}
		results = append(results, result.New(sc.SlideID, text, sc.Score))
	}
	return results
}

// licenseSearch finds slides carrying capability matrices or license
// comparison content for the feature and scores them by a fixed rubric.
func (s *Service) licenseSearch(query, feature string, maxResults int) []result.ScoredSlide {
	type candidate struct {
		id    string
		text  string
		score int
	}

	var candidates []candidate
	for _, id := range s.slides.IDs() {
		text, ok := s.slides.Text(id)
		if !ok {
			continue
		}
		textLower := strings.ToLower(text)

		isMatrix := (strings.Contains(textLower, "capability") && strings.Contains(textLower, "matrix")) ||
			strings.Contains(textLower, "feature matrix")
		hasComparison := containsAnyTerm(textLower, s.tierTerms) && containsAnyTerm(textLower, s.licenseTerms)
		hasFeature := feature == "" || strings.Contains(textLower, feature)

		if !(isMatrix || hasComparison) || !hasFeature {
			continue
		}

		rubric := 0
		if isMatrix {
			rubric += rubricCapabilityMatrix
		}
		if hasComparison {
			rubric += rubricLicenseComparison
		}
		if feature != "" && strings.Contains(textLower, feature) {
			rubric += rubricFeatureMatch
		}
		if strings.Contains(textLower, "table") {
			rubric += rubricTableMention
		}
		candidates = append(candidates, candidate{id: id, text: text, score: rubric})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	results := make([]result.ScoredSlide, len(candidates))
	for i, c := range candidates {
		results[i] = result.New(c.id, c.text, float64(c.score)/rubricNormalizer)
	}
	return results
}

// mergeResults prepends the specialized license results, drops duplicates by
// slide ID, and truncates to maxResults. Each segment keeps its own order.
func mergeResults(first, second []result.ScoredSlide, maxResults int) []result.ScoredSlide {
	seen := make(map[string]bool, len(first))
	merged := make([]result.ScoredSlide, 0, len(first)+len(second))
	for _, r := range first {
		if !seen[r.SlideID()] {
			seen[r.SlideID()] = true
			merged = append(merged, r)
		}
	}
	for _, r := range second {
		if !seen[r.SlideID()] {
			seen[r.SlideID()] = true
			merged = append(merged, r)
		}
	}
	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}

func containsAnyTerm(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
