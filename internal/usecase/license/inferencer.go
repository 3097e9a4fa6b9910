package license

import (
	"strings"

	"github.com/slidewise/slidewise/internal/domain/license"
)

// Inferencer fills gaps in partially known tier availability using the
// monotonicity assumption: entitlement never decreases going up the tier
// order. It merges table evidence, prose statements, and (as a last resort)
// the configured default-knowledge table.
type Inferencer struct {
	tiers    license.Order
	synonyms map[string][]string
	// defaults maps feature -> tier -> availability, used verbatim when no
	// concrete evidence exists. Configuration data, not logic: its accuracy
	// cannot be verified from the corpus, so results built from it are
	// flagged as non-concrete.
	defaults map[string]map[license.Tier]bool
}

// NewInferencer creates a tier inferencer for the given tier order.
func NewInferencer(
	tiers license.Order,
	synonyms map[string][]string,
	defaults map[string]map[license.Tier]bool,
) *Inferencer {
	return &Inferencer{tiers: tiers, synonyms: synonyms, defaults: defaults}
}

// InferTiers determines per-tier availability of feature from parsed records
// and the raw slide texts (scanned for literal prose statements). The result
// always covers every tier of the order; tiers without evidence after
// propagation stay Unknown and must be reported as "no information".
func (inf *Inferencer) InferTiers(feature string, records []license.ParsedRecord, slideTexts []string) license.Report {
	feature = strings.ToLower(feature)

	evidence := inf.collectEvidence(feature, records, slideTexts)

	hasAny := false
	for _, a := range evidence {
		if a.Known() {
			hasAny = true
			break
		}
	}

	// No evidence at all: fall back to the default-knowledge table when one
	// exists for this feature.
	if !hasAny {
		if def, ok := inf.defaults[feature]; ok {
			return license.Report{
				Feature:         feature,
				Order:           inf.tiers,
				Tiers:           inf.fromDefaults(def),
				HasConcreteInfo: false,
				Tables:          records,
			}
		}
		return license.Report{
			Feature: feature,
			Order:   inf.tiers,
			Tiers:   evidence, // all Unknown
			Tables:  records,
		}
	}

	inf.propagate(evidence)

	return license.Report{
		Feature:         feature,
		Order:           inf.tiers,
		Tiers:           evidence,
		HasConcreteInfo: true,
		Tables:          records,
	}
}

// collectEvidence merges all direct evidence into a per-tier map, starting
// all Unknown. Tables are consulted first, then prose tier-feature lists,
// then literal statements in the slide texts.
func (inf *Inferencer) collectEvidence(
	feature string, records []license.ParsedRecord, slideTexts []string,
) map[license.Tier]license.Availability {
	evidence := make(map[license.Tier]license.Availability, len(inf.tiers))
	for _, t := range inf.tiers {
		evidence[t] = license.Unknown
	}

	for _, rec := range records {
		switch {
		case rec.Table != nil:
			for name, byTier := range rec.Table.Features {
				if !inf.sameFeature(feature, name) {
					continue
				}
				for tier, avail := range byTier {
					if _, ok := evidence[tier]; !ok {
						continue
					}
					if avail {
						evidence[tier] = license.Included
					} else {
						evidence[tier] = license.Excluded
					}
				}
			}
		case rec.TierFeatures != nil:
			// A feature listed under a tier is evidence it is included there.
			for tier, names := range rec.TierFeatures.FeaturesByTier {
				if _, ok := evidence[tier]; !ok {
					continue
				}
				for _, name := range names {
					if inf.sameFeature(feature, name) {
						evidence[tier] = license.Included
					}
				}
			}
		}
	}

	for _, text := range slideTexts {
		inf.scanProseStatements(feature, strings.ToLower(text), evidence)
	}

	return evidence
}

// scanProseStatements matches literal per-tier statements, case-insensitive.
// Negative statements are matched first; "<feature> is not included in
// <tier>" contains its positive counterpart's words.
func (inf *Inferencer) scanProseStatements(
	feature, textLower string, evidence map[license.Tier]license.Availability,
) {
	for _, tier := range inf.tiers {
		t := string(tier)
		negatives := []string{
			feature + " is not included in " + t,
			feature + " is not available in " + t,
			t + " does not include " + feature,
			t + " license does not include " + feature,
		}
		positives := []string{
			feature + " is included in " + t,
			feature + " is available in " + t,
			t + " includes " + feature,
			t + " license includes " + feature,
		}
		if containsAny(textLower, negatives) {
			evidence[tier] = license.Excluded
		} else if containsAny(textLower, positives) {
			evidence[tier] = license.Included
		}
	}
}

// propagate applies the monotone fill in place, anchored at the lowest tier
// with Included evidence:
//
//  1. Every Unknown tier above it becomes Included (entitlement never
//     decreases going up the order).
//  2. Every Unknown tier below it becomes Excluded: once a capability is
//     confirmed at some level, lower tiers are not assumed to have it
//     unless evidenced.
//
// Without any Included evidence nothing fills; remaining Unknowns stay
// Unknown. Explicit evidence is never overwritten, even when it
// contradicts monotonicity.
func (inf *Inferencer) propagate(evidence map[license.Tier]license.Availability) {
	lowestIncluded := -1
	for i, t := range inf.tiers {
		if evidence[t] == license.Included {
			lowestIncluded = i
			break
		}
	}
	if lowestIncluded < 0 {
		return
	}

	for _, t := range inf.tiers[lowestIncluded:] {
		if evidence[t] == license.Unknown {
			evidence[t] = license.Included
		}
	}
	for _, t := range inf.tiers[:lowestIncluded] {
		if evidence[t] == license.Unknown {
			evidence[t] = license.Excluded
		}
	}
}

// fromDefaults converts a defaults row into the report shape.
func (inf *Inferencer) fromDefaults(def map[license.Tier]bool) map[license.Tier]license.Availability {
	tiers := make(map[license.Tier]license.Availability, len(inf.tiers))
	for _, t := range inf.tiers {
		avail, ok := def[t]
		switch {
		case !ok:
			tiers[t] = license.Unknown
		case avail:
			tiers[t] = license.Included
		default:
			tiers[t] = license.Excluded
		}
	}
	return tiers
}

// sameFeature applies fuzzy feature-name equality: substring either way, or
// membership in the same synonym group.
func (inf *Inferencer) sameFeature(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	for base, variants := range inf.synonyms {
		if inGroup(a, base, variants) && inGroup(b, base, variants) {
			return true
		}
	}
	return false
}

func inGroup(name, base string, variants []string) bool {
	if name == base {
		return true
	}
	for _, v := range variants {
		if name == v {
			return true
		}
	}
	return false
}
