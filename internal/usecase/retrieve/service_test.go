package retrieve

import (
	"context"
	"testing"

	"github.com/slidewise/slidewise/internal/domain"
	"github.com/slidewise/slidewise/internal/domain/retrieval/request"
	licenseuc "github.com/slidewise/slidewise/internal/usecase/license"
	"github.com/slidewise/slidewise/internal/usecase/score"
)

// --- Mocks ---

type mockSlides struct {
	ids        []string
	texts      map[string]string
	embeddings bool
}

func (m *mockSlides) IDs() []string { return m.ids }

func (m *mockSlides) Text(id string) (string, bool) {
	t, ok := m.texts[id]
	return t, ok
}

func (m *mockSlides) Len() int { return len(m.ids) }

func (m *mockSlides) HasEmbeddings() bool { return m.embeddings }

type mockKeyword struct {
	scores map[string]score.Keyword // by slide text
	called bool
}

func (m *mockKeyword) Score(_, slideText string) score.Keyword {
	m.called = true
	return m.scores[slideText]
}

type mockSemantic struct {
	outcome score.Outcome
	called  bool
}

func (m *mockSemantic) ScoreAll(_ context.Context, _ string) score.Outcome {
	m.called = true
	return m.outcome
}

type mockClassifier struct {
	cls licenseuc.Classification
}

func (m *mockClassifier) Classify(_ string) licenseuc.Classification { return m.cls }

func corpus() *mockSlides {
	return &mockSlides{
		ids: []string{"slide_1", "slide_2", "slide_3"},
		texts: map[string]string{
			"slide_1": "incident management overview",
			"slide_2": "virtual agent capability matrix across license tiers: standard and pro",
			"slide_3": "platform roadmap",
		},
	}
}

func makeRequest(t *testing.T, query string, maxResults int, useSemantic *bool) *request.Request {
	t.Helper()
	r, err := request.New(query, maxResults, useSemantic, 0)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func availableOutcome(scores ...score.Semantic) score.Outcome {
	return score.AvailableOutcome(scores)
}

// --- Tests ---

func TestRetrieve_KeywordMode(t *testing.T) {
	slides := corpus()
	kw := &mockKeyword{scores: map[string]score.Keyword{
		"incident management overview": {Raw: 4, Normalized: 0.8},
		"platform roadmap":             {Raw: 1, Normalized: 0.2},
	}}
	sem := &mockSemantic{}
	svc := New(slides, kw, sem, &mockClassifier{}, false, []string{"standard", "pro"})

	results := svc.Retrieve(context.Background(), makeRequest(t, "incident management", 10, nil))
	if sem.called {
		t.Error("semantic scorer must not run in keyword mode")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SlideID() != "slide_1" {
		t.Errorf("expected slide_1 first, got %s", results[0].SlideID())
	}
	if results[0].Score() != 0.8 {
		t.Errorf("expected normalized score 0.8, got %f", results[0].Score())
	}
}

func TestRetrieve_KeywordRawZeroExcluded(t *testing.T) {
	slides := corpus()
	kw := &mockKeyword{scores: map[string]score.Keyword{}}
	svc := New(slides, kw, &mockSemantic{}, &mockClassifier{}, false, nil)

	results := svc.Retrieve(context.Background(), makeRequest(t, "nothing matches", 10, nil))
	if len(results) != 0 {
		t.Errorf("raw 0 slides must not be candidates, got %d results", len(results))
	}
}

func TestRetrieve_SemanticMode(t *testing.T) {
	slides := corpus()
	slides.embeddings = true
	sem := &mockSemantic{outcome: availableOutcome(
		score.Semantic{SlideID: "slide_1", Score: 0.2},
		score.Semantic{SlideID: "slide_3", Score: 0.9},
	)}
	kw := &mockKeyword{}
	svc := New(slides, kw, sem, &mockClassifier{}, true, nil)

	results := svc.Retrieve(context.Background(), makeRequest(t, "roadmap", 10, nil))
	if !sem.called {
		t.Fatal("expected semantic scorer to run")
	}
	if kw.called {
		t.Error("keyword scorer must not run when semantic scoring succeeds")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SlideID() != "slide_3" {
		t.Errorf("expected slide_3 first, got %s", results[0].SlideID())
	}
}

func TestRetrieve_SemanticUnavailableFallsBackToKeyword(t *testing.T) {
	slides := corpus()
	slides.embeddings = true
	sem := &mockSemantic{outcome: score.UnavailableOutcome(domain.ErrEmbeddingUnavailable)}
	kw := &mockKeyword{scores: map[string]score.Keyword{
		"platform roadmap": {Raw: 2, Normalized: 0.5},
	}}
	svc := New(slides, kw, sem, &mockClassifier{}, true, nil)

	results := svc.Retrieve(context.Background(), makeRequest(t, "roadmap", 10, nil))
	if !kw.called {
		t.Fatal("expected keyword fallback")
	}
	if len(results) != 1 || results[0].SlideID() != "slide_3" {
		t.Errorf("unexpected fallback results: %v", results)
	}
}

func TestRetrieve_SemanticDisabledWithoutEmbeddings(t *testing.T) {
	slides := corpus() // no embeddings
	sem := &mockSemantic{}
	kw := &mockKeyword{scores: map[string]score.Keyword{}}
	svc := New(slides, kw, sem, &mockClassifier{}, true, nil)

	svc.Retrieve(context.Background(), makeRequest(t, "roadmap", 10, nil))
	if sem.called {
		t.Error("semantic mode requires precomputed embeddings")
	}
}

func TestRetrieve_CallerOverridesSemanticDefault(t *testing.T) {
	slides := corpus()
	slides.embeddings = true
	sem := &mockSemantic{}
	kw := &mockKeyword{scores: map[string]score.Keyword{}}
	svc := New(slides, kw, sem, &mockClassifier{}, true, nil)

	off := false
	svc.Retrieve(context.Background(), makeRequest(t, "roadmap", 10, &off))
	if sem.called {
		t.Error("explicit use_semantic=false must win over the global default")
	}
}

func TestRetrieve_LicenseQueryPrependsSpecializedResults(t *testing.T) {
	slides := corpus()
	kw := &mockKeyword{scores: map[string]score.Keyword{
		"incident management overview": {Raw: 3, Normalized: 0.7},
	}}
	cls := &mockClassifier{cls: licenseuc.Classification{IsLicenseQuery: true, Feature: "virtual agent"}}
	svc := New(slides, kw, &mockSemantic{}, cls, false, []string{"standard", "pro"})

	results := svc.Retrieve(context.Background(), makeRequest(t, "compare standard vs pro for virtual agent", 10, nil))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// slide_2 carries the capability matrix and must come first.
	if results[0].SlideID() != "slide_2" {
		t.Errorf("expected specialized slide_2 first, got %s", results[0].SlideID())
	}
	// Full rubric: matrix (2) + comparison (2) + feature (3), no "table"
	// mention, over the normalizer.
	if want := float64(7) / 8; results[0].Score() != want {
		t.Errorf("expected rubric score %f, got %f", want, results[0].Score())
	}
	if results[1].SlideID() != "slide_1" {
		t.Errorf("expected keyword slide_1 second, got %s", results[1].SlideID())
	}
}

func TestRetrieve_LicenseMergeDeduplicates(t *testing.T) {
	slides := corpus()
	kw := &mockKeyword{scores: map[string]score.Keyword{
		"virtual agent capability matrix across license tiers: standard and pro": {Raw: 5, Normalized: 0.9},
	}}
	cls := &mockClassifier{cls: licenseuc.Classification{IsLicenseQuery: true, Feature: "virtual agent"}}
	svc := New(slides, kw, &mockSemantic{}, cls, false, []string{"standard", "pro"})

	results := svc.Retrieve(context.Background(), makeRequest(t, "compare standard vs pro for virtual agent", 10, nil))
	if len(results) != 1 {
		t.Fatalf("slide_2 matched both paths and must appear once, got %d results", len(results))
	}
	if results[0].SlideID() != "slide_2" {
		t.Errorf("expected slide_2, got %s", results[0].SlideID())
	}
}

func TestRetrieve_TruncatesToMaxResults(t *testing.T) {
	slides := corpus()
	kw := &mockKeyword{scores: map[string]score.Keyword{
		"incident management overview": {Raw: 4, Normalized: 0.8},
		"platform roadmap":             {Raw: 2, Normalized: 0.4},
		"virtual agent capability matrix across license tiers: standard and pro": {Raw: 1, Normalized: 0.1},
	}}
	svc := New(slides, kw, &mockSemantic{}, &mockClassifier{}, false, nil)

	results := svc.Retrieve(context.Background(), makeRequest(t, "anything", 2, nil))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SlideID() != "slide_1" || results[1].SlideID() != "slide_3" {
		t.Errorf("unexpected order: %s, %s", results[0].SlideID(), results[1].SlideID())
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	slides := &mockSlides{}
	svc := New(slides, &mockKeyword{}, &mockSemantic{}, &mockClassifier{}, false, nil)

	results := svc.Retrieve(context.Background(), makeRequest(t, "anything", 10, nil))
	if len(results) != 0 {
		t.Errorf("expected no results from an empty corpus, got %d", len(results))
	}
}
