package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// ParseBulkText splits newline-delimited query text into items, one category
// for all. Blank lines are dropped.
func ParseBulkText(text, category string) []Item {
	var items []Item
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, Item{Text: line, Category: category})
	}
	return items
}

// ParseCSV reads items from CSV input with required header columns
// query_text and category. A UTF-8 BOM is stripped so exports from
// spreadsheet tools parse cleanly.
func ParseCSV(r io.Reader) ([]Item, error) {
	decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())

	records, err := csv.NewReader(decoded).ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv")
	}
	if len(records) == 0 {
		return nil, eris.New("ingest: csv is empty")
	}

	textIdx, catIdx, err := requiredColumns(records[0])
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, row := range records[1:] {
		items = append(items, rowItem(row, textIdx, catIdx))
	}
	return items, nil
}

// ParseYAML reads items from a YAML document shaped as a list of entries
// with query_text and an optional category:
//
//	- query_text: best crm for small business
//	  category: comparison
func ParseYAML(r io.Reader) ([]Item, error) {
	var entries []struct {
		Text     string `yaml:"query_text"`
		Category string `yaml:"category"`
	}
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, eris.Wrap(err, "ingest: decode yaml")
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{Text: e.Text, Category: e.Category})
	}
	return items, nil
}

// ParseXLSX reads items from the first sheet of an XLSX workbook with the
// same required header columns as ParseCSV.
func ParseXLSX(path string) ([]Item, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("ingest: xlsx sheet is empty")
	}

	textIdx, catIdx, err := requiredColumns(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, row := range sheet.Rows[1:] {
		items = append(items, rowItem(rowToStrings(row), textIdx, catIdx))
	}
	return items, nil
}

// requiredColumns locates the query_text and category columns in a header
// row, matching case-insensitively after trimming.
func requiredColumns(header []string) (textIdx, catIdx int, err error) {
	textIdx, catIdx = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "query_text":
			textIdx = i
		case "category":
			catIdx = i
		}
	}
	if textIdx < 0 || catIdx < 0 {
		return 0, 0, eris.New("ingest: input must have query_text and category columns")
	}
	return textIdx, catIdx, nil
}

func rowItem(row []string, textIdx, catIdx int) Item {
	var item Item
	if textIdx < len(row) {
		item.Text = row[textIdx]
	}
	if catIdx < len(row) {
		item.Category = row[catIdx]
	}
	return item
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
