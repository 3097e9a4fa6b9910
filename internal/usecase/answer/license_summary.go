package answer

import (
	"fmt"
	"strings"

	"github.com/slidewise/slidewise/internal/domain/license"
)

// RenderLicenseSummary renders an inference report as a markdown tier-by-tier
// summary, tiers in entitlement order.
func RenderLicenseSummary(report license.Report) string {
	feature := titleCase(report.Feature)

	var b strings.Builder
	fmt.Fprintf(&b, "## %s License Differences\n\n", feature)

	if !report.HasConcreteInfo {
		b.WriteString("*Based on typical licensing patterns, not source evidence:*\n\n")
	}

	for _, tier := range report.Order {
		fmt.Fprintf(&b, "### %s\n", titleCase(string(tier)))
		switch report.Tiers[tier] {
		case license.Included:
			fmt.Fprintf(&b, "✓ %s is **included** in the %s license.\n\n", feature, titleCase(string(tier)))
		case license.Excluded:
			fmt.Fprintf(&b, "✗ %s is **not included** in the %s license.\n\n", feature, titleCase(string(tier)))
		default:
			fmt.Fprintf(&b, "No information available about %s in the %s license.\n\n", feature, titleCase(string(tier)))
		}
	}

	b.WriteString(conclusion(feature, report))
	return strings.TrimSpace(b.String())
}

// conclusion names the minimum tier that carries the feature, when one is
// evidenced.
func conclusion(feature string, report license.Report) string {
	allExcluded := true
	for _, t := range report.Order {
		if report.Tiers[t] != license.Excluded {
			allExcluded = false
			break
		}
	}
	if allExcluded && len(report.Order) > 0 {
		return fmt.Sprintf("**Summary:** %s appears to be an add-on purchase not included in any license tier.\n", feature)
	}

	for _, t := range report.Order {
		if report.Tiers[t] == license.Included {
			return fmt.Sprintf("**Summary:** %s requires at minimum a **%s** license.\n", feature, titleCase(string(t)))
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
