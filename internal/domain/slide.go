package domain

// Slide is one unit of source content: a stable identifier and the
// structured text produced by the external extractor. The text may contain
// the literal section markers "--- Tables ---", "--- Lists ---",
// "--- Content ---", "--- Metadata ---" and "Table N:" headers with
// pipe-delimited rows; the license table parser depends on them verbatim.
type Slide struct {
	ID   string
	Text string
}
