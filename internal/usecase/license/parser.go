package license

import (
	"regexp"
	"strings"

	"github.com/slidewise/slidewise/internal/domain/license"
)

// Section markers emitted by the external extractor. The parser depends on
// them verbatim.
const tablesMarker = "--- Tables ---"

var (
	tableHeaderRe = regexp.MustCompile(`Table \d+:`)
	bulletLineRe  = regexp.MustCompile(`(?m)^\s*[•\-\*]\s*(.+)$`)
)

// Cell interpretation vocabularies.
var (
	positiveTokens = []string{"yes", "y", "✓", "✔", "included", "available", "x", "true"}
	negativeTokens = []string{"no", "n", "-", "not included", "not available", "false"}
	addOnTokens    = []string{"add-on", "addon", "additional"}
)

// Parser extracts structured tier-availability tables and prose tier
// statements from slide text. Parsing heuristics live here so the inference
// algorithm can be tested independently of text-format quirks.
type Parser struct {
	tiers    license.Order
	features []string // known feature names for prose extraction, lowercased
}

// NewParser creates a parser for the given tier order and feature vocabulary.
func NewParser(tiers license.Order, features []string) *Parser {
	lowered := make([]string, len(features))
	for i, f := range features {
		lowered[i] = strings.ToLower(f)
	}
	return &Parser{tiers: tiers, features: lowered}
}

// Parse extracts every recognizable table and prose tier block from the
// slide text. Unrecognized content yields no records, never an error.
func (p *Parser) Parse(slideText string) []license.ParsedRecord {
	var records []license.ParsedRecord
	for _, t := range p.parsePipeTables(slideText) {
		records = append(records, license.ParsedRecord{Table: t})
	}
	if tf := p.parseProseTiers(slideText); tf != nil {
		records = append(records, license.ParsedRecord{TierFeatures: tf})
	}
	return records
}

// parsePipeTables extracts pipe-delimited tables from the Tables section:
// text between the "--- Tables ---" marker and the next section marker,
// split on "Table N:" headers, rows on newlines, cells on "|".
func (p *Parser) parsePipeTables(slideText string) []*license.Table {
	_, section, found := strings.Cut(slideText, tablesMarker)
	if !found {
		return nil
	}
	// The Tables section ends at the next section marker.
	if i := strings.Index(section, "---"); i >= 0 {
		section = section[:i]
	}

	var tables []*license.Table
	for _, block := range tableHeaderRe.Split(section, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		rows := strings.Split(block, "\n")
		if len(rows) < 2 {
			continue // need a header and at least one data row
		}
		if t := p.parseTable(rows); t != nil {
			tables = append(tables, t)
		}
	}
	return tables
}

// parseTable builds a Table from pipe-delimited rows. Returns nil when the
// header row names no tier (the table is not about licensing).
func (p *Parser) parseTable(rows []string) *license.Table {
	headers := splitCells(rows[0])

	tierColumns := make(map[license.Tier]int)
	for i, cell := range headers {
		if tier := p.tiers.MatchHeader(cell); tier != "" {
			tierColumns[tier] = i
		}
	}
	if len(tierColumns) == 0 {
		return nil
	}

	features := make(map[string]map[license.Tier]bool)
	for _, row := range rows[1:] {
		cells := splitCells(row)
		if len(cells) < len(headers) {
			continue // malformed row, shorter than the header
		}
		featureName := strings.ToLower(cells[0])
		if featureName == "" || allEmpty(cells[1:]) {
			continue
		}

		availability := make(map[license.Tier]bool, len(tierColumns))
		for tier, col := range tierColumns {
			if col < len(cells) {
				availability[tier] = InterpretCell(cells[col])
			}
		}
		features[featureName] = availability
	}

	return &license.Table{TierColumns: tierColumns, Features: features}
}

// InterpretCell maps a table cell to availability: positive tokens => true,
// negative tokens => false, add-on variants => false (add-on means not
// included by default), any other non-empty cell => true, empty => false.
//
// Negatives are checked first so "not included" is not swallowed by its
// "included" substring. Single-character tokens ("y", "n", "x", "-") match
// only the whole cell, otherwise the "n" in "included" would negate it.
func InterpretCell(cell string) bool {
	cell = strings.ToLower(strings.TrimSpace(cell))
	if cell == "" {
		return false
	}
	if matchesAny(cell, negativeTokens) || matchesAny(cell, addOnTokens) {
		return false
	}
	if matchesAny(cell, positiveTokens) {
		return true
	}
	return true // non-empty cell without clear indicators counts as available
}

func matchesAny(cell string, tokens []string) bool {
	for _, tok := range tokens {
		if len(tok) == 1 {
			if cell == tok {
				return true
			}
		} else if strings.Contains(cell, tok) {
			return true
		}
	}
	return false
}

// parseProseTiers scans for per-tier phrase patterns like "pro includes" or
// "available in enterprise" and collects the features listed up to the next
// blank line.
func (p *Parser) parseProseTiers(slideText string) *license.TierFeatures {
	textLower := strings.ToLower(slideText)
	featuresByTier := make(map[license.Tier][]string)

	for _, tier := range p.tiers {
		for _, pattern := range tierPhrasePatterns(tier) {
			idx := strings.Index(textLower, pattern)
			if idx < 0 {
				continue
			}
			end := strings.Index(textLower[idx:], "\n\n")
			if end < 0 {
				end = len(textLower) - idx
			}
			section := textLower[idx : idx+end]

			if found := p.featuresInSection(section); len(found) > 0 {
				featuresByTier[tier] = append(featuresByTier[tier], found...)
			}
		}
	}

	if len(featuresByTier) == 0 {
		return nil
	}
	return &license.TierFeatures{FeaturesByTier: featuresByTier}
}

func tierPhrasePatterns(tier license.Tier) []string {
	t := string(tier)
	return []string{
		t + " includes", t + " license includes",
		"available in " + t, t + " edition features",
		t + " edition", t + " license",
	}
}

// featuresInSection extracts feature names from a prose section: known
// vocabulary matches plus bullet-point lines.
func (p *Parser) featuresInSection(section string) []string {
	var found []string
	for _, f := range p.features {
		if strings.Contains(section, f) {
			found = append(found, f)
		}
	}
	for _, m := range bulletLineRe.FindAllStringSubmatch(section, -1) {
		line := strings.TrimSpace(m[1])
		if len(line) > 3 {
			found = append(found, line)
		}
	}
	return found
}

func splitCells(row string) []string {
	cells := strings.Split(row, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
