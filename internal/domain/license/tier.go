package license

import "strings"

// Tier is a named license level. Ordering is carried by Order, not by the
// value itself: "higher" and "lower" entitlement are positions in an Order.
type Tier string

// Order is a totally ordered tier sequence, lowest entitlement first.
type Order []Tier

// DefaultOrder is the tier sequence used when none is configured.
func DefaultOrder() Order {
	return Order{"standard", "pro", "pro+", "enterprise"}
}

// Index returns the position of t in the order, or -1 if absent.
func (o Order) Index(t Tier) int {
	for i, v := range o {
		if v == t {
			return i
		}
	}
	return -1
}

// Contains reports whether t is part of the order.
func (o Order) Contains(t Tier) bool { return o.Index(t) >= 0 }

// MatchHeader returns the tier whose name appears as a substring of the
// (lowercased) header cell, or "" if none does. The longest matching name
// wins, so a "Pro+" header resolves to pro+ rather than pro.
func (o Order) MatchHeader(cell string) Tier {
	cell = strings.ToLower(cell)
	var best Tier
	for _, t := range o {
		if strings.Contains(cell, string(t)) && len(t) > len(best) {
			best = t
		}
	}
	return best
}
