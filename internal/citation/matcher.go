// Package citation implements the citation verification engine: the pure
// domain-matching logic and the throttled batch runner that drives calls to
// the answer-generation API and records dated results.
package citation

import "strings"

// Match is the outcome of testing a domain against a citation list.
// Position is the 1-based index of the first matching URL, 0 when absent.
type Match struct {
	Appears     bool   `json:"appears"`
	Position    int    `json:"position,omitempty"`
	CitationURL string `json:"citation_url,omitempty"`
}

// MatchDomain performs a case-insensitive substring test of domain against
// each citation URL in original order. The scan stops on the first hit.
func MatchDomain(domain string, citations []string) Match {
	needle := strings.ToLower(domain)
	for i, url := range citations {
		if strings.Contains(strings.ToLower(url), needle) {
			return Match{Appears: true, Position: i + 1, CitationURL: url}
		}
	}
	return Match{}
}
