package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertSQL(t *testing.T) {
	got := UpsertSQL("check_results",
		[]string{"id", "query_id", "engine", "check_date", "appears"},
		[]string{"query_id", "engine", "check_date"},
	)

	want := `INSERT INTO "check_results" ("id", "query_id", "engine", "check_date", "appears") ` +
		`VALUES ($1, $2, $3, $4, $5) ` +
		`ON CONFLICT ("query_id", "engine", "check_date") DO UPDATE SET ` +
		`"id" = EXCLUDED."id", "appears" = EXCLUDED."appears"`
	assert.Equal(t, want, got)
}

func TestUpsertSQLSchemaQualified(t *testing.T) {
	got := UpsertSQL("geo.check_results", []string{"id", "appears"}, []string{"id"})
	assert.Contains(t, got, `INSERT INTO "geo"."check_results"`)
	assert.Contains(t, got, `ON CONFLICT ("id") DO UPDATE SET "appears" = EXCLUDED."appears"`)
}
