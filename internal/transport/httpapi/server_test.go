package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/domain"
	domlicense "github.com/slidewise/slidewise/internal/domain/license"
	"github.com/slidewise/slidewise/internal/domain/retrieval/request"
	"github.com/slidewise/slidewise/internal/domain/retrieval/result"
	answeruc "github.com/slidewise/slidewise/internal/usecase/answer"
	licenseuc "github.com/slidewise/slidewise/internal/usecase/license"
)

// --- Mocks ---

type mockAnswerer struct {
	resp answeruc.Response
	err  error
}

func (m *mockAnswerer) Answer(_ context.Context, _ *request.Request, _ bool) (answeruc.Response, error) {
	return m.resp, m.err
}

type mockRetriever struct {
	slides []result.ScoredSlide
}

func (m *mockRetriever) Retrieve(_ context.Context, _ *request.Request) []result.ScoredSlide {
	return m.slides
}

type mockClassifier struct {
	cls licenseuc.Classification
}

func (m *mockClassifier) Classify(_ string) licenseuc.Classification { return m.cls }

type mockAnalyzer struct {
	report domlicense.Report
}

func (m *mockAnalyzer) Analyze(_ string, _ []string) domlicense.Report { return m.report }

type mockCacheAdmin struct {
	deleted bool
	cleared int
	swept   int
	entries int
}

func (m *mockCacheAdmin) Delete(_ context.Context, _ string) bool { return m.deleted }
func (m *mockCacheAdmin) Clear(_ context.Context) int             { return m.cleared }
func (m *mockCacheAdmin) Cleanup(_ context.Context) int           { return m.swept }
func (m *mockCacheAdmin) Stats(_ context.Context) int             { return m.entries }

type mockCorpus struct {
	texts      []string
	embeddings bool
}

func (m *mockCorpus) Texts() []string     { return m.texts }
func (m *mockCorpus) Len() int            { return len(m.texts) }
func (m *mockCorpus) HasEmbeddings() bool { return m.embeddings }

type serverMocks struct {
	answerer   *mockAnswerer
	retriever  *mockRetriever
	classifier *mockClassifier
	analyzer   *mockAnalyzer
	cache      *mockCacheAdmin
	corpus     *mockCorpus
}

func newTestServer() (*serverMocks, http.Handler) {
	m := &serverMocks{
		answerer:   &mockAnswerer{},
		retriever:  &mockRetriever{},
		classifier: &mockClassifier{},
		analyzer:   &mockAnalyzer{},
		cache:      &mockCacheAdmin{},
		corpus:     &mockCorpus{texts: []string{"slide text"}},
	}
	s := NewServer(m.answerer, m.retriever, m.classifier, m.analyzer, m.cache, m.corpus, 0, zap.NewNop())
	r := chi.NewRouter()
	s.Routes(r)
	return m, r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHandleQuery(t *testing.T) {
	m, h := newTestServer()
	m.answerer.resp = answeruc.Response{Summary: "the answer"}

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query":"what is itsm"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp answeruc.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Summary != "the answer" {
		t.Errorf("summary = %q", resp.Summary)
	}
}

func TestHandleQuery_EmptyQueryIsBadRequest(t *testing.T) {
	_, h := newTestServer()

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var e errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != "validation_failed" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestHandleQuery_MalformedBody(t *testing.T) {
	_, h := newTestServer()

	rec := doJSON(t, h, http.MethodPost, "/query", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQuery_CompletionFailureIsBadGateway(t *testing.T) {
	m, h := newTestServer()
	m.answerer.err = domain.ErrCompletionProvider

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query":"q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	m, h := newTestServer()
	m.retriever.slides = []result.ScoredSlide{
		result.New("slide_1", "content one", 0.9),
		result.New("slide_2", "content two", 0.4),
	}

	rec := doJSON(t, h, http.MethodPost, "/search", `{"query":"content"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].SlideID != "slide_1" || resp.Results[0].Score != 0.9 {
		t.Errorf("unexpected first hit: %+v", resp.Results[0])
	}
}

func TestHandleLicenseAnalyze(t *testing.T) {
	m, h := newTestServer()
	m.classifier.cls = licenseuc.Classification{IsLicenseQuery: true, Feature: "virtual agent"}
	m.analyzer.report = domlicense.Report{
		Feature: "virtual agent",
		Order:   domlicense.DefaultOrder(),
		Tiers: map[domlicense.Tier]domlicense.Availability{
			"standard":   domlicense.Excluded,
			"pro":        domlicense.Included,
			"pro+":       domlicense.Included,
			"enterprise": domlicense.Included,
		},
		HasConcreteInfo: true,
	}

	rec := doJSON(t, h, http.MethodPost, "/license/analyze", `{"query":"compare standard vs pro for virtual agent"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp licenseAnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.IsLicenseQuery || resp.Feature != "virtual agent" {
		t.Errorf("unexpected classification: %+v", resp)
	}
	if resp.Tiers["standard"] != "excluded" || resp.Tiers["pro"] != "included" {
		t.Errorf("unexpected tiers: %v", resp.Tiers)
	}
	if !resp.HasConcreteInfo {
		t.Error("expected concrete info")
	}
}

func TestHandleCacheDelete_SingleQuery(t *testing.T) {
	m, h := newTestServer()
	m.cache.deleted = true

	rec := doJSON(t, h, http.MethodDelete, "/cache?query=what+is+itsm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	m.cache.deleted = false
	rec = doJSON(t, h, http.MethodDelete, "/cache?query=absent", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleCacheDelete_ClearAll(t *testing.T) {
	m, h := newTestServer()
	m.cache.cleared = 7

	rec := doJSON(t, h, http.MethodDelete, "/cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["removed"] != 7 {
		t.Errorf("removed = %d, want 7", body["removed"])
	}
}

func TestHandleCacheCleanup(t *testing.T) {
	m, h := newTestServer()
	m.cache.swept = 3

	rec := doJSON(t, h, http.MethodPost, "/cache/cleanup", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["removed"] != 3 {
		t.Errorf("removed = %d, want 3", body["removed"])
	}
}

func TestHandleCacheStats(t *testing.T) {
	m, h := newTestServer()
	m.cache.entries = 12

	rec := doJSON(t, h, http.MethodGet, "/cache/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["entries"] != 12 {
		t.Errorf("entries = %d, want 12", body["entries"])
	}
}

func TestHandleHealth(t *testing.T) {
	_, h := newTestServer()

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["slides"] != float64(1) {
		t.Errorf("slides = %v", body["slides"])
	}
}
