package license

import "strings"

// Query vocabularies for license comparison detection.
var (
	licenseTerms    = []string{"license", "edition", "tier", "standard", "pro", "enterprise", "pro+"}
	comparisonTerms = []string{"compare", "comparison", "difference", "vs", "versus", "between"}
)

// Classifier detects license comparison queries and extracts the feature of
// interest.
type Classifier struct {
	features        []string // known feature names, lowercased
	fallbackFeature string
}

// NewClassifier creates a classifier over the configured feature vocabulary.
// fallbackFeature is returned when no known feature appears in a query; this
// default is deliberate policy, not a guess the caller should second-guess.
func NewClassifier(features []string, fallbackFeature string) *Classifier {
	lowered := make([]string, len(features))
	for i, f := range features {
		lowered[i] = strings.ToLower(f)
	}
	return &Classifier{features: lowered, fallbackFeature: strings.ToLower(fallbackFeature)}
}

// Classification is the classifier verdict for one query.
type Classification struct {
	IsLicenseQuery bool
	Feature        string
}

// Classify reports whether the query concerns license tier comparison and
// which feature it asks about. A license query contains at least one
// license-vocabulary term and at least one comparison-vocabulary term.
func (c *Classifier) Classify(query string) Classification {
	queryLower := strings.ToLower(query)
	return Classification{
		IsLicenseQuery: containsAny(queryLower, licenseTerms) && containsAny(queryLower, comparisonTerms),
		Feature:        c.ExtractFeature(queryLower),
	}
}

// ExtractFeature returns the first configured feature found as a substring
// of the lowercased query, or the fallback feature when none match.
func (c *Classifier) ExtractFeature(queryLower string) string {
	for _, f := range c.features {
		if strings.Contains(queryLower, f) {
			return f
		}
	}
	return c.fallbackFeature
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
