package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchDomain(t *testing.T) {
	tests := []struct {
		name      string
		domain    string
		citations []string
		want      Match
	}{
		{
			name:      "first_match_wins",
			domain:    "example.com",
			citations: []string{"https://a.example.com/x", "https://foo.example.com/y"},
			want:      Match{Appears: true, Position: 1, CitationURL: "https://a.example.com/x"},
		},
		{
			name:      "match_in_middle",
			domain:    "wtatennis.com",
			citations: []string{"https://espn.com/tennis", "https://www.wtatennis.com/rankings", "https://atptour.com"},
			want:      Match{Appears: true, Position: 2, CitationURL: "https://www.wtatennis.com/rankings"},
		},
		{
			name:      "case_insensitive",
			domain:    "Example.COM",
			citations: []string{"https://WWW.EXAMPLE.com/page"},
			want:      Match{Appears: true, Position: 1, CitationURL: "https://WWW.EXAMPLE.com/page"},
		},
		{
			name:      "no_match",
			domain:    "nomatch.io",
			citations: []string{"https://a.com", "https://b.com"},
			want:      Match{},
		},
		{
			name:      "empty_citations",
			domain:    "example.com",
			citations: []string{},
			want:      Match{},
		},
		{
			name:      "nil_citations",
			domain:    "example.com",
			citations: nil,
			want:      Match{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchDomain(tt.domain, tt.citations))
		})
	}
}

func TestMatchDomainCaseInsensitiveEquivalence(t *testing.T) {
	domain := "example.com"
	citations := []string{"https://news.site/a", "https://shop.example.com/b", "https://other.org/c"}

	upper := make([]string, len(citations))
	for i, c := range citations {
		upper[i] = strings.ToUpper(c)
	}

	got := MatchDomain(domain, citations)
	gotUpper := MatchDomain(domain, upper)

	assert.Equal(t, got.Appears, gotUpper.Appears)
	assert.Equal(t, got.Position, gotUpper.Position)
}

func TestMatchDomainDoesNotMutateInput(t *testing.T) {
	citations := []string{"https://A.com", "https://B.com"}
	MatchDomain("a.com", citations)
	assert.Equal(t, []string{"https://A.com", "https://B.com"}, citations)
}
