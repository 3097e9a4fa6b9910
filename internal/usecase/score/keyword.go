package score

import "strings"

// KeywordScorer scores slide text against a query using term frequency,
// weighted important-term matches, and an exact-phrase bonus.
type KeywordScorer struct {
	vocabulary []string // product, feature and tier names, lowercased
}

// Weights of the keyword scoring rubric.
const (
	importantTermWeight = 3
	phraseBonus         = 2
)

// NewKeywordScorer creates a keyword scorer over the important-term
// vocabulary (product names, feature names, license tier names).
func NewKeywordScorer(vocabulary []string) *KeywordScorer {
	lowered := make([]string, len(vocabulary))
	for i, v := range vocabulary {
		lowered[i] = strings.ToLower(v)
	}
	return &KeywordScorer{vocabulary: lowered}
}

// Keyword is a per-slide keyword score. Raw decides candidacy and ordering;
// Normalized is what callers report. Only Raw > 0 makes a candidate.
type Keyword struct {
	Raw        int
	Normalized float64
}

// Score computes the keyword score of slideText for query.
//
// raw = |query terms present in text| + 3*|important-term hits| + 2 if the
// full query appears as a contiguous substring. The normalized score is
// raw / (|query terms| + |important terms| + 2); monotonic in raw but not
// guaranteed to lie in [0,1].
func (k *KeywordScorer) Score(query, slideText string) Keyword {
	queryLower := strings.ToLower(query)
	textLower := strings.ToLower(slideText)

	queryTerms := strings.Fields(queryLower)
	importantTerms := k.ImportantTerms(queryLower)

	base := 0
	for _, term := range queryTerms {
		if strings.Contains(textLower, term) {
			base++
		}
	}

	important := 0
	for _, term := range importantTerms {
		if strings.Contains(textLower, term) {
			important += importantTermWeight
		}
	}

	phrase := 0
	if strings.Contains(textLower, queryLower) {
		phrase = phraseBonus
	}

	raw := base + important + phrase
	return Keyword{
		Raw:        raw,
		Normalized: float64(raw) / float64(len(queryTerms)+len(importantTerms)+2),
	}
}

// ImportantTerms returns every vocabulary term occurrence found in the
// lowercased query, one entry per occurrence, bounded by word boundaries so
// "pro" does not match inside "professional".
func (k *KeywordScorer) ImportantTerms(queryLower string) []string {
	var terms []string
	for _, v := range k.vocabulary {
		for range wordBoundaryIndexes(queryLower, v) {
			terms = append(terms, v)
		}
	}
	return terms
}

// wordBoundaryIndexes returns the start offsets of every occurrence of term
// in text that is delimited by non-word characters (or string edges).
func wordBoundaryIndexes(text, term string) []int {
	if term == "" {
		return nil
	}
	var indexes []int
	for from := 0; ; {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return indexes
		}
		start := from + i
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			indexes = append(indexes, start)
		}
		from = start + 1
	}
}

func boundaryBefore(text string, i int) bool {
	return i == 0 || !isWordByte(text[i-1])
}

func boundaryAfter(text string, i int) bool {
	return i >= len(text) || !isWordByte(text[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
