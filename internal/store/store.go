// Package store persists projects, tracked queries, and citation check
// results behind a driver-agnostic interface with SQLite and Postgres
// implementations.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geo-tracker/internal/model"
)

// ErrDuplicateQuery reports that an insert violated the per-project query
// uniqueness constraint. Both implementations classify the driver's
// constraint-violation error into this sentinel so callers never have to
// sniff error text.
var ErrDuplicateQuery = eris.New("store: duplicate query")

// Store defines the persistence interface for the citation tracker.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p model.Project) (*model.Project, error)
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)

	// Queries. InsertQuery trims text and category and returns
	// ErrDuplicateQuery when the (project_id, query_text) pair already
	// exists. DeleteQuery is idempotent: deleting an absent row is not an
	// error.
	InsertQuery(ctx context.Context, projectID, text, category string) (*model.Query, error)
	ListQueries(ctx context.Context, projectID string) ([]model.Query, error)
	DeleteQuery(ctx context.Context, queryID string) error

	// Results. UpsertResult inserts or replaces the row keyed by
	// (query_id, engine, check_date); LatestResults returns a project's
	// results ordered by check_date desc, then created_at desc.
	UpsertResult(ctx context.Context, r model.CheckResult) (*model.CheckResult, error)
	LatestResults(ctx context.Context, projectID string) ([]model.CheckResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// helpers shared by both implementations

func trim(s string) string {
	return strings.TrimSpace(s)
}

// nullableInt maps 0 to NULL; positions are 1-based so 0 means absent.
func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
