package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// UpsertSQL builds an INSERT ... ON CONFLICT (keys) DO UPDATE statement for
// a single row with positional placeholders. Every non-conflict column is
// updated from EXCLUDED on conflict. Column and key names are quoted;
// schema-qualified table names are supported.
func UpsertSQL(table string, columns, conflictKeys []string) string {
	conflictSet := make(map[string]bool, len(conflictKeys))
	for _, k := range conflictKeys {
		conflictSet[k] = true
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var setClauses []string
	for _, col := range columns {
		if conflictSet[col] {
			continue
		}
		q := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(table),
		quoteAndJoin(columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(conflictKeys),
		strings.Join(setClauses, ", "),
	)
}

// sanitizeTable handles schema-qualified table names like "geo.check_results".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
