package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sells-group/geo-tracker/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT '',
	language   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS queries (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	query_text TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (project_id, query_text)
);

CREATE TABLE IF NOT EXISTS check_results (
	id           TEXT PRIMARY KEY,
	query_id     TEXT NOT NULL REFERENCES queries(id) ON DELETE CASCADE,
	project_id   TEXT NOT NULL,
	check_date   TEXT NOT NULL,
	appears      INTEGER NOT NULL,
	position     INTEGER,
	citation_url TEXT,
	engine       TEXT NOT NULL,
	raw_sources  TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (query_id, engine, check_date)
);

CREATE INDEX IF NOT EXISTS idx_queries_project_id ON queries(project_id);
CREATE INDEX IF NOT EXISTS idx_check_results_project_date ON check_results(project_id, check_date DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, domain, country, language, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Domain, p.Country, p.Language, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert project")
	}
	return &p, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, domain, country, language, created_at FROM projects WHERE id = ?`,
		projectID,
	)

	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.Domain, &p.Country, &p.Language, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: project not found: %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get project")
	}
	return &p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, domain, country, language, created_at FROM projects ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Domain, &p.Country, &p.Language, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		projects = append(projects, p)
	}
	return projects, eris.Wrap(rows.Err(), "sqlite: list projects iterate")
}

func (s *SQLiteStore) InsertQuery(ctx context.Context, projectID, text, category string) (*model.Query, error) {
	q := model.Query{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Text:      trim(text),
		Category:  trim(category),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, project_id, query_text, category, is_active, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		q.ID, q.ProjectID, q.Text, q.Category, q.CreatedAt,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrDuplicateQuery
		}
		return nil, eris.Wrap(err, "sqlite: insert query")
	}
	return &q, nil
}

func (s *SQLiteStore) ListQueries(ctx context.Context, projectID string) ([]model.Query, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, query_text, category, is_active, created_at FROM queries
		 WHERE project_id = ? ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queries")
	}
	defer rows.Close()

	var queries []model.Query
	for rows.Next() {
		var q model.Query
		if err := rows.Scan(&q.ID, &q.ProjectID, &q.Text, &q.Category, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan query")
		}
		queries = append(queries, q)
	}
	return queries, eris.Wrap(rows.Err(), "sqlite: list queries iterate")
}

func (s *SQLiteStore) DeleteQuery(ctx context.Context, queryID string) error {
	// Idempotent: zero rows affected is not an error.
	_, err := s.db.ExecContext(ctx, `DELETE FROM queries WHERE id = ?`, queryID)
	return eris.Wrapf(err, "sqlite: delete query %s", queryID)
}

func (s *SQLiteStore) UpsertResult(ctx context.Context, r model.CheckResult) (*model.CheckResult, error) {
	sourcesJSON, err := json.Marshal(r.RawSources)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal raw sources")
	}
	r.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO check_results (id, query_id, project_id, check_date, appears, position, citation_url, engine, raw_sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (query_id, engine, check_date) DO UPDATE SET
			appears      = excluded.appears,
			position     = excluded.position,
			citation_url = excluded.citation_url,
			raw_sources  = excluded.raw_sources,
			created_at   = excluded.created_at`,
		uuid.New().String(), r.QueryID, r.ProjectID, r.CheckDate, r.Appears,
		nullableInt(r.Position), nullableString(r.CitationURL), r.Engine, string(sourcesJSON), r.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert result")
	}
	return &r, nil
}

func (s *SQLiteStore) LatestResults(ctx context.Context, projectID string) ([]model.CheckResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query_id, project_id, check_date, appears, position, citation_url, engine, raw_sources, created_at
		 FROM check_results WHERE project_id = ?
		 ORDER BY check_date DESC, created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest results")
	}
	defer rows.Close()

	var results []model.CheckResult
	for rows.Next() {
		var r model.CheckResult
		var position sql.NullInt64
		var citationURL sql.NullString
		var sourcesJSON string
		if err := rows.Scan(&r.QueryID, &r.ProjectID, &r.CheckDate, &r.Appears, &position, &citationURL, &r.Engine, &sourcesJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		if position.Valid {
			r.Position = int(position.Int64)
		}
		r.CitationURL = citationURL.String
		if err := json.Unmarshal([]byte(sourcesJSON), &r.RawSources); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal raw sources")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: latest results iterate")
}

// isSQLiteUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint violation, using the driver's structured error code rather
// than message text.
func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
