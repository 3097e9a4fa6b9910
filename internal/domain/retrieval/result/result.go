package result

// PreviewLength is the number of content characters carried in a preview.
const PreviewLength = 200

// ScoredSlide is a single retrieval hit. Transient: produced per query,
// never persisted.
type ScoredSlide struct {
	slideID string
	content string
	preview string
	score   float64
}

// New creates a scored slide, deriving the preview from content.
func New(slideID, content string, score float64) ScoredSlide {
	return ScoredSlide{
		slideID: slideID,
		content: content,
		preview: makePreview(content),
		score:   score,
	}
}

// SlideID returns the slide identifier.
func (s *ScoredSlide) SlideID() string { return s.slideID }

// Content returns the full slide text.
func (s *ScoredSlide) Content() string { return s.content }

// Preview returns the first PreviewLength characters of the content, with
// an ellipsis appended when truncated.
func (s *ScoredSlide) Preview() string { return s.preview }

// Score returns the relevance score.
func (s *ScoredSlide) Score() float64 { return s.score }

func makePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}
