package license

// Availability is the tri-state answer to "does this tier include the
// feature". Unknown means no evidence either way and must be surfaced as
// "no information", never guessed.
type Availability int

// Availability states.
const (
	Unknown Availability = iota
	Included
	Excluded
)

// String returns the lowercase state name.
func (a Availability) String() string {
	switch a {
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Known reports whether the value carries evidence.
func (a Availability) Known() bool { return a != Unknown }

// Report is the outcome of tier inference for a single feature.
type Report struct {
	// Feature is the feature name the inference ran for.
	Feature string
	// Order is the tier sequence the inference ran over.
	Order Order
	// Tiers maps every tier of the order to its availability.
	Tiers map[Tier]Availability
	// HasConcreteInfo is false when the result came from the configured
	// default-knowledge table rather than source evidence.
	HasConcreteInfo bool
	// Tables are the structured tables that contributed evidence.
	Tables []ParsedRecord
}

// ParsedRecord is the tagged union produced by the table parser: exactly one
// of Table or TierFeatures is set.
type ParsedRecord struct {
	Table        *Table
	TierFeatures *TierFeatures
}

// Table is a parsed pipe table whose header row named at least one tier.
type Table struct {
	// TierColumns maps each recognized tier to its column index.
	TierColumns map[Tier]int
	// Features maps a feature-name row to its per-tier availability.
	Features map[string]map[Tier]bool
}

// TierFeatures is a parsed prose block listing features per tier.
type TierFeatures struct {
	FeaturesByTier map[Tier][]string
}
