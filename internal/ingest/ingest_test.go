package ingest

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geo-tracker/internal/model"
	"github.com/sells-group/geo-tracker/internal/store"
)

// fakeInserter records inserted texts and simulates duplicates and hard
// failures per text.
type fakeInserter struct {
	inserted []string
	dupes    map[string]bool
	failOn   map[string]bool
}

func (f *fakeInserter) InsertQuery(_ context.Context, projectID, text, category string) (*model.Query, error) {
	if f.failOn[text] {
		return nil, eris.New("postgres: insert query: connection refused")
	}
	if f.dupes[text] {
		return nil, store.ErrDuplicateQuery
	}
	f.inserted = append(f.inserted, text)
	return &model.Query{ProjectID: projectID, Text: text, Category: category, IsActive: true}, nil
}

func TestInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Added", func(t *testing.T) {
		f := &fakeInserter{}
		status, err := Insert(ctx, f, "proj-1", Item{Text: "best shoes", Category: "x"})
		require.NoError(t, err)
		assert.Equal(t, StatusAdded, status)
	})

	t.Run("DuplicateSkipped", func(t *testing.T) {
		f := &fakeInserter{dupes: map[string]bool{"best shoes": true}}
		status, err := Insert(ctx, f, "proj-1", Item{Text: "best shoes", Category: "x"})
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, status)
	})

	t.Run("BlankDropped", func(t *testing.T) {
		f := &fakeInserter{}
		status, err := Insert(ctx, f, "proj-1", Item{Text: "   ", Category: "x"})
		require.NoError(t, err)
		assert.Equal(t, StatusDropped, status)
		assert.Empty(t, f.inserted)
	})

	t.Run("OtherErrorPropagates", func(t *testing.T) {
		f := &fakeInserter{failOn: map[string]bool{"best shoes": true}}
		_, err := Insert(ctx, f, "proj-1", Item{Text: "best shoes", Category: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestBulkInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("CountsAddedAndSkipped", func(t *testing.T) {
		f := &fakeInserter{dupes: map[string]bool{"dupe": true}}
		items := []Item{
			{Text: "one", Category: "x"},
			{Text: "dupe", Category: "x"},
			{Text: "  ", Category: "x"},
			{Text: "two", Category: "x"},
		}

		added, skipped, err := BulkInsert(ctx, f, "proj-1", items)
		require.NoError(t, err)
		assert.Equal(t, 2, added)
		assert.Equal(t, 1, skipped)
		assert.Equal(t, []string{"one", "two"}, f.inserted)
	})

	t.Run("SameTextTwiceInOneBatch", func(t *testing.T) {
		// A real store would reject the second insert; the fake flips to
		// duplicate after the first write to mirror that.
		f := &fakeInserter{dupes: map[string]bool{}}
		added, skipped := 0, 0
		for _, item := range []Item{{Text: "best shoes", Category: "x"}, {Text: "best shoes", Category: "x"}} {
			status, err := Insert(ctx, f, "proj-1", item)
			require.NoError(t, err)
			switch status {
			case StatusAdded:
				added++
				f.dupes[item.Text] = true
			case StatusSkipped:
				skipped++
			}
		}
		assert.Equal(t, 1, added)
		assert.Equal(t, 1, skipped)
	})

	t.Run("FailFastOnUnexpectedError", func(t *testing.T) {
		f := &fakeInserter{failOn: map[string]bool{"bad": true}}
		items := []Item{
			{Text: "one", Category: "x"},
			{Text: "bad", Category: "x"},
			{Text: "never attempted", Category: "x"},
		}

		added, skipped, err := BulkInsert(ctx, f, "proj-1", items)
		require.Error(t, err)
		assert.Equal(t, 1, added)
		assert.Equal(t, 0, skipped)
		assert.Equal(t, []string{"one"}, f.inserted)
	})
}
