package license

import (
	"github.com/slidewise/slidewise/internal/domain/license"
)

// Analyzer ties the parser and inferencer together: given a feature and raw
// slide texts it produces a complete per-tier availability report.
type Analyzer struct {
	parser     *Parser
	inferencer *Inferencer
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(parser *Parser, inferencer *Inferencer) *Analyzer {
	return &Analyzer{parser: parser, inferencer: inferencer}
}

// Analyze parses every slide text for tables and prose tier blocks, then
// infers the feature's availability across the tier order.
func (a *Analyzer) Analyze(feature string, slideTexts []string) license.Report {
	var records []license.ParsedRecord
	for _, text := range slideTexts {
		records = append(records, a.parser.Parse(text)...)
	}
	return a.inferencer.InferTiers(feature, records, slideTexts)
}
