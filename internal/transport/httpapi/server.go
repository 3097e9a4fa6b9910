// Package httpapi exposes the retrieval, answering and cache administration
// endpoints over chi.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/domain"
	domlicense "github.com/slidewise/slidewise/internal/domain/license"
	"github.com/slidewise/slidewise/internal/domain/retrieval/request"
	"github.com/slidewise/slidewise/internal/domain/retrieval/result"
	answeruc "github.com/slidewise/slidewise/internal/usecase/answer"
	licenseuc "github.com/slidewise/slidewise/internal/usecase/license"
)

// Answerer produces final answers.
type Answerer interface {
	Answer(ctx context.Context, req *request.Request, bypassCache bool) (answeruc.Response, error)
}

// Retriever finds relevant slides.
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

// CacheAdmin administers the query result cache.
type CacheAdmin interface {
	Delete(ctx context.Context, query string) bool
	Clear(ctx context.Context) int
	Cleanup(ctx context.Context) int
	Stats(ctx context.Context) int
}

// SlideCorpus reads the loaded corpus for license analysis and health.
type SlideCorpus interface {
	Texts() []string
	Len() int
	HasEmbeddings() bool
}

// Server holds the HTTP handlers.
type Server struct {
	answerer       Answerer
	retriever      Retriever
	classifier     Classifier
	license        LicenseAnalyzer
	cache          CacheAdmin
	corpus         SlideCorpus
	maxQueryLength int
	logger         *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(
	answerer Answerer,
	retriever Retriever,
	classifier Classifier,
	license LicenseAnalyzer,
	cache CacheAdmin,
	corpus SlideCorpus,
	maxQueryLength int,
	logger *zap.Logger,
) *Server {
	return &Server{
		answerer:       answerer,
		retriever:      retriever,
		classifier:     classifier,
		license:        license,
		cache:          cache,
		corpus:         corpus,
		maxQueryLength: maxQueryLength,
		logger:         logger,
	}
}

// Routes mounts all handlers on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/query", s.handleQuery)
	r.Post("/search", s.handleSearch)
	r.Post("/license/analyze", s.handleLicenseAnalyze)
	r.Delete("/cache", s.handleCacheDelete)
	r.Post("/cache/cleanup", s.handleCacheCleanup)
	r.Get("/cache/stats", s.handleCacheStats)
	r.Get("/health", s.handleHealth)
}

type queryRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	UseSemantic *bool  `json:"use_semantic"`
	BypassCache bool   `json:"bypass_cache"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(body.Query, body.MaxResults, body.UseSemantic, s.maxQueryLength)
	if err != nil {
		s.writeDomainError(w, err, "Invalid query")
		return
	}

	resp, err := s.answerer.Answer(r.Context(), &req, body.BypassCache)
	if err != nil {
		s.writeDomainError(w, err, "Failed to answer query")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

type searchHit struct {
	SlideID string  `json:"slide_id"`
	Preview string  `json:"preview"`
	Score   float64 `json:"score"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(body.Query, body.MaxResults, body.UseSemantic, s.maxQueryLength)
	if err != nil {
		s.writeDomainError(w, err, "Invalid query")
		return
	}

	slides := s.retriever.Retrieve(r.Context(), &req)
	hits := make([]searchHit, len(slides))
	for i := range slides {
		hits[i] = searchHit{
			SlideID: slides[i].SlideID(),
			Preview: slides[i].Preview(),
			Score:   slides[i].Score(),
		}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: hits})
}

type licenseAnalyzeResponse struct {
	IsLicenseQuery  bool              `json:"is_license_query"`
	Feature         string            `json:"feature"`
	Tiers           map[string]string `json:"tiers"`
	HasConcreteInfo bool              `json:"has_concrete_info"`
}

func (s *Server) handleLicenseAnalyze(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(body.Query, body.MaxResults, nil, s.maxQueryLength)
	if err != nil {
		s.writeDomainError(w, err, "Invalid query")
		return
	}

	cls := s.classifier.Classify(req.Query())
	report := s.license.Analyze(cls.Feature, s.corpus.Texts())

	tiers := make(map[string]string, len(report.Tiers))
	for tier, avail := range report.Tiers {
		tiers[string(tier)] = avail.String()
	}
	writeJSON(w, http.StatusOK, licenseAnalyzeResponse{
		IsLicenseQuery:  cls.IsLicenseQuery,
		Feature:         report.Feature,
		Tiers:           tiers,
		HasConcreteInfo: report.HasConcreteInfo,
	})
}

func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	if query := r.URL.Query().Get("query"); query != "" {
		deleted := s.cache.Delete(r.Context(), query)
		if !deleted {
			writeError(w, http.StatusNotFound, "not_found", "No cache entry for query")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": 1})
		return
	}
	removed := s.cache.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.cache.Cleanup(r.Context())})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"entries": s.cache.Stats(r.Context())})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"slides":     s.corpus.Len(),
		"embeddings": s.corpus.HasEmbeddings(),
	})
}

// writeDomainError maps domain sentinels to HTTP statuses. Validation is the
// only client fault; provider failures are gateway errors; everything else
// is internal.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrCompletionProvider):
		writeError(w, http.StatusBadGateway, "completion_provider_error", msg)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", msg)
	default:
		s.logger.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
