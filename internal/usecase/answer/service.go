// Package answer turns retrieved slides into a final response: it assembles
// a source-grounded prompt, calls the completion provider, and caches the
// result. License comparison queries additionally get a structured
// tier-by-tier summary built from the inference report.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/domain"
	"github.com/slidewise/slidewise/internal/domain/retrieval/request"
	"github.com/slidewise/slidewise/internal/domain/retrieval/result"
	"github.com/slidewise/slidewise/internal/logger"
)

const systemPrompt = `You are an expert on the product suite described in the provided slides.
Answer questions accurately based ONLY on the provided source information.
If the sources do not contain an answer, say so clearly.
Format answers with markdown and bullet points when appropriate.
For license comparisons, mark inclusion consistently (✓ included, ✗ not included).`

// Source describes one slide that contributed to an answer.
type Source struct {
	SlideID string  `json:"slide_id"`
	Preview string  `json:"preview"`
	Score   float64 `json:"score"`
}

// Response is a complete answer with its supporting sources.
type Response struct {
	Summary        string   `json:"summary"`
	Sources        []Source `json:"sources"`
	LicenseSummary string   `json:"license_summary,omitempty"`
	Cached         bool     `json:"cached"`
}

// Service orchestrates retrieval, license analysis, completion, and caching.
type Service struct {
	retriever  Retriever
	classifier Classifier
	license    LicenseAnalyzer
	completer  domain.Completer
	cache      ResultCache
}

// New creates an answer service.
func New(
	retriever Retriever,
	classifier Classifier,
	license LicenseAnalyzer,
	completer domain.Completer,
	cache ResultCache,
) *Service {
	return &Service{
		retriever:  retriever,
		classifier: classifier,
		license:    license,
		completer:  completer,
		cache:      cache,
	}
}

// Answer processes a question end to end. bypassCache forces a fresh
// response. Cache failures never fail the call; the response is simply
// uncached.
func (s *Service) Answer(ctx context.Context, req *request.Request, bypassCache bool) (Response, error) {
	log := logger.FromContext(ctx)

	if !bypassCache {
		if data, ok := s.cache.Get(ctx, req.Query()); ok {
			var resp Response
			if err := json.Unmarshal(data, &resp); err == nil {
				resp.Cached = true
				return resp, nil
			}
			log.Warn("Discarding undecodable cached answer", zap.String("query", req.Query()))
		}
	}

	slides := s.retriever.Retrieve(ctx, req)
	if len(slides) == 0 {
		return Response{
			Summary: "I couldn't find any relevant information in the slide deck to answer your query.",
		}, nil
	}

	resp := Response{Sources: makeSources(slides)}

	if cls := s.classifier.Classify(req.Query()); cls.IsLicenseQuery {
		report := s.license.Analyze(cls.Feature, slideTexts(slides))
		resp.LicenseSummary = RenderLicenseSummary(report)
	}

	summary, err := s.completer.Complete(ctx, systemPrompt, buildPrompt(req.Query(), slides))
	if err != nil {
		return Response{}, fmt.Errorf("generate answer: %w", err)
	}
	resp.Summary = strings.TrimSpace(summary)

	if data, err := json.Marshal(resp); err == nil {
		s.cache.Set(ctx, req.Query(), data)
	}
	return resp, nil
}

// buildPrompt formats the retrieved slides as numbered sources under the
// user question.
func buildPrompt(query string, slides []result.ScoredSlide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Please provide an accurate answer based ONLY on the following sources:\n")
	for i := range slides {
		fmt.Fprintf(&b, "\n--- SOURCE %d (%s) ---\n%s\n", i+1, slides[i].SlideID(), slides[i].Content())
	}
	b.WriteString("\nAnswer concisely, using ONLY the information in these sources.")
	return b.String()
}

func makeSources(slides []result.ScoredSlide) []Source {
	sources := make([]Source, len(slides))
	for i := range slides {
		sources[i] = Source{
			SlideID: slides[i].SlideID(),
			Preview: slides[i].Preview(),
			Score:   slides[i].Score(),
		}
	}
	return sources
}

func slideTexts(slides []result.ScoredSlide) []string {
	texts := make([]string, len(slides))
	for i := range slides {
		texts[i] = slides[i].Content()
	}
	return texts
}
