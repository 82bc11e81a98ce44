package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geo-tracker/internal/db"
	"github.com/sells-group/geo-tracker/internal/model"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlInsertProject = `INSERT INTO projects (id, name, domain, country, language, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	sqlGetProject    = `SELECT id, name, domain, country, language, created_at FROM projects WHERE id = $1`
	sqlListProjects  = `SELECT id, name, domain, country, language, created_at FROM projects ORDER BY created_at ASC`
	sqlInsertQuery   = `INSERT INTO queries (id, project_id, query_text, category, is_active, created_at) VALUES ($1, $2, $3, $4, TRUE, $5)`
	sqlListQueries   = `SELECT id, project_id, query_text, category, is_active, created_at FROM queries WHERE project_id = $1 ORDER BY created_at ASC`
	sqlDeleteQuery   = `DELETE FROM queries WHERE id = $1`
	sqlLatestResults = `SELECT query_id, project_id, check_date, appears, position, citation_url, engine, raw_sources, created_at
		FROM check_results WHERE project_id = $1
		ORDER BY check_date DESC, created_at DESC`
)

// sqlUpsertResult merges on the (query_id, engine, check_date) composite key.
var sqlUpsertResult = db.UpsertSQL("check_results",
	[]string{"id", "query_id", "project_id", "check_date", "appears", "position", "citation_url", "engine", "raw_sources", "created_at"},
	[]string{"query_id", "engine", "check_date"},
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_query":   sqlInsertQuery,
	"list_queries":   sqlListQueries,
	"delete_query":   sqlDeleteQuery,
	"upsert_result":  sqlUpsertResult,
	"latest_results": sqlLatestResults,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, stmt := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, stmt); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT '',
	language   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS queries (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	query_text TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (project_id, query_text)
);

CREATE TABLE IF NOT EXISTS check_results (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query_id     TEXT NOT NULL REFERENCES queries(id) ON DELETE CASCADE,
	project_id   TEXT NOT NULL,
	check_date   TEXT NOT NULL,
	appears      BOOLEAN NOT NULL,
	position     INTEGER,
	citation_url TEXT,
	engine       TEXT NOT NULL,
	raw_sources  JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (query_id, engine, check_date)
);

CREATE INDEX IF NOT EXISTS idx_queries_project_id ON queries(project_id);
CREATE INDEX IF NOT EXISTS idx_check_results_project_date ON check_results(project_id, check_date DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, sqlInsertProject, p.ID, p.Name, p.Domain, p.Country, p.Language, p.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert project")
	}
	return &p, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	var p model.Project
	err := s.pool.QueryRow(ctx, sqlGetProject, projectID).
		Scan(&p.ID, &p.Name, &p.Domain, &p.Country, &p.Language, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: project not found: %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get project")
	}
	return &p, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx, sqlListProjects)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Domain, &p.Country, &p.Language, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		projects = append(projects, p)
	}
	return projects, eris.Wrap(rows.Err(), "postgres: list projects iterate")
}

func (s *PostgresStore) InsertQuery(ctx context.Context, projectID, text, category string) (*model.Query, error) {
	q := model.Query{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Text:      trim(text),
		Category:  trim(category),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, sqlInsertQuery, q.ID, q.ProjectID, q.Text, q.Category, q.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrDuplicateQuery
		}
		return nil, eris.Wrap(err, "postgres: insert query")
	}
	return &q, nil
}

func (s *PostgresStore) ListQueries(ctx context.Context, projectID string) ([]model.Query, error) {
	rows, err := s.pool.Query(ctx, sqlListQueries, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list queries")
	}
	defer rows.Close()

	var queries []model.Query
	for rows.Next() {
		var q model.Query
		if err := rows.Scan(&q.ID, &q.ProjectID, &q.Text, &q.Category, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan query")
		}
		queries = append(queries, q)
	}
	return queries, eris.Wrap(rows.Err(), "postgres: list queries iterate")
}

func (s *PostgresStore) DeleteQuery(ctx context.Context, queryID string) error {
	// Idempotent: zero rows affected is not an error.
	_, err := s.pool.Exec(ctx, sqlDeleteQuery, queryID)
	return eris.Wrapf(err, "postgres: delete query %s", queryID)
}

func (s *PostgresStore) UpsertResult(ctx context.Context, r model.CheckResult) (*model.CheckResult, error) {
	sourcesJSON, err := json.Marshal(r.RawSources)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal raw sources")
	}
	r.CreatedAt = time.Now().UTC()

	_, err = s.pool.Exec(ctx, sqlUpsertResult,
		uuid.New().String(), r.QueryID, r.ProjectID, r.CheckDate, r.Appears,
		nullableInt(r.Position), nullableString(r.CitationURL), r.Engine, string(sourcesJSON), r.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert result")
	}
	return &r, nil
}

func (s *PostgresStore) LatestResults(ctx context.Context, projectID string) ([]model.CheckResult, error) {
	rows, err := s.pool.Query(ctx, sqlLatestResults, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest results")
	}
	defer rows.Close()

	var results []model.CheckResult
	for rows.Next() {
		var r model.CheckResult
		var position sql.NullInt64
		var citationURL sql.NullString
		var sourcesJSON []byte
		if err := rows.Scan(&r.QueryID, &r.ProjectID, &r.CheckDate, &r.Appears, &position, &citationURL, &r.Engine, &sourcesJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		if position.Valid {
			r.Position = int(position.Int64)
		}
		r.CitationURL = citationURL.String
		if err := json.Unmarshal(sourcesJSON, &r.RawSources); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal raw sources")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: latest results iterate")
}

// isPgUniqueViolation reports whether err is a unique_violation, using the
// server's structured error code rather than message text.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
