package request

import (
	"fmt"
	"strings"

	"github.com/slidewise/slidewise/internal/domain"
)

// Search parameter limits.
const (
	// DefaultMaxQueryLength caps query size when the config does not.
	DefaultMaxQueryLength = 2048
	DefaultMaxResults     = 10
	MaxMaxResults         = 100
)

// Request is a validated retrieval query.
type Request struct {
	query       string
	maxResults  int
	useSemantic *bool // nil = no caller override
}

// New validates and normalizes retrieval parameters.
// maxQueryLength <= 0 falls back to DefaultMaxQueryLength.
// Defaults: maxResults=10, clamped to MaxMaxResults.
func New(query string, maxResults int, useSemantic *bool, maxQueryLength int) (Request, error) {
	if maxQueryLength <= 0 {
		maxQueryLength = DefaultMaxQueryLength
	}
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	if len(query) > maxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrValidation, maxQueryLength)
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxMaxResults {
		maxResults = MaxMaxResults
	}

	return Request{
		query:       query,
		maxResults:  maxResults,
		useSemantic: useSemantic,
	}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// MaxResults returns the maximum results to return.
func (r *Request) MaxResults() int { return r.maxResults }

// UseSemantic returns the caller's semantic override, or nil when the
// globally configured default applies.
func (r *Request) UseSemantic() *bool { return r.useSemantic }
