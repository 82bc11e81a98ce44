package model

import "time"

// Query is a natural-language question tracked for a project. Text is unique
// per project (enforced by the store); queries are created by ingestion,
// never updated, and deleted by ID.
type Query struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Text      string    `json:"query_text"`
	Category  string    `json:"category"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ActiveQueries returns the subset of queries flagged eligible for
// verification runs, preserving order.
func ActiveQueries(queries []Query) []Query {
	var active []Query
	for _, q := range queries {
		if q.IsActive {
			active = append(active, q)
		}
	}
	return active
}

// Categories returns the distinct category labels across queries.
func Categories(queries []Query) []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, q := range queries {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		cats = append(cats, q.Category)
	}
	return cats
}
