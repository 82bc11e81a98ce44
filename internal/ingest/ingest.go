// Package ingest accepts bulk, duplicate-prone query input (single entries,
// newline-delimited text, CSV, XLSX, YAML) and loads it through the store
// without creating duplicate tracked queries.
package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/sells-group/geo-tracker/internal/model"
	"github.com/sells-group/geo-tracker/internal/store"
)

// Item is one query candidate before trimming and deduplication.
type Item struct {
	Text     string
	Category string
}

// Status classifies the outcome of inserting a single item.
type Status int

const (
	// StatusAdded means the query was inserted.
	StatusAdded Status = iota
	// StatusSkipped means the query already existed and was not re-inserted.
	StatusSkipped
	// StatusDropped means the text was blank after trimming; the item counts
	// toward neither added nor skipped.
	StatusDropped
)

// QueryInserter is the slice of the store ingest needs.
type QueryInserter interface {
	InsertQuery(ctx context.Context, projectID, text, category string) (*model.Query, error)
}

// Insert trims and inserts one item. Blank text is dropped silently; a
// uniqueness violation is classified as skipped. Any other store error
// propagates unchanged.
func Insert(ctx context.Context, qs QueryInserter, projectID string, item Item) (Status, error) {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return StatusDropped, nil
	}

	_, err := qs.InsertQuery(ctx, projectID, text, strings.TrimSpace(item.Category))
	if errors.Is(err, store.ErrDuplicateQuery) {
		return StatusSkipped, nil
	}
	if err != nil {
		return StatusDropped, err
	}
	return StatusAdded, nil
}

// BulkInsert applies Insert over items sequentially, accumulating added and
// skipped counts. It stops at the first non-duplicate error, propagating it
// with the counts accumulated so far; remaining items are not attempted.
func BulkInsert(ctx context.Context, qs QueryInserter, projectID string, items []Item) (added, skipped int, err error) {
	for _, item := range items {
		status, err := Insert(ctx, qs, projectID, item)
		if err != nil {
			return added, skipped, err
		}
		switch status {
		case StatusAdded:
			added++
		case StatusSkipped:
			skipped++
		}
	}
	return added, skipped, nil
}
