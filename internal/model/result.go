package model

import "time"

// DateFormat is the calendar-date layout used for CheckResult.CheckDate.
const DateFormat = "2006-01-02"

// Today returns the current calendar date in DateFormat.
func Today() string {
	return time.Now().UTC().Format(DateFormat)
}

// CheckResult records one citation verification outcome. The composite key
// (query_id, engine, check_date) is unique; a later write for the same key
// replaces the row. Position is the 1-based index into RawSources of the
// first matching citation, 0 when Appears is false.
type CheckResult struct {
	QueryID     string    `json:"query_id"`
	ProjectID   string    `json:"project_id"`
	CheckDate   string    `json:"check_date"`
	Appears     bool      `json:"appears"`
	Position    int       `json:"position,omitempty"`
	CitationURL string    `json:"citation_url,omitempty"`
	Engine      string    `json:"engine"`
	RawSources  []string  `json:"raw_sources"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// LatestByDate filters results (ordered check_date desc) down to the most
// recent check date. Returns nil for an empty input.
func LatestByDate(results []CheckResult) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	latest := results[0].CheckDate
	var out []CheckResult
	for _, r := range results {
		if r.CheckDate == latest {
			out = append(out, r)
		}
	}
	return out
}

// CitationRate returns (cited, total, rate%) for a result set.
func CitationRate(results []CheckResult) (cited, total int, rate float64) {
	total = len(results)
	for _, r := range results {
		if r.Appears {
			cited++
		}
	}
	if total > 0 {
		rate = float64(cited) / float64(total) * 100
	}
	return cited, total, rate
}
