package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-tracker/internal/ingest"
)

var (
	queriesProjectID string
	queryText        string
	queryCategory    string
	queriesBulkFile  string
	queriesCSVPath   string
	queriesXLSXPath  string
	queriesYAMLPath  string
	deleteQueryID    string
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Manage tracked queries",
}

var queriesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a single query",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		added, skipped, err := ingest.BulkInsert(ctx, st, queriesProjectID,
			[]ingest.Item{{Text: queryText, Category: queryCategory}})
		if err != nil {
			return eris.Wrap(err, "add query")
		}

		zap.L().Info("query ingestion complete",
			zap.Int("added", added),
			zap.Int("skipped", skipped),
		)
		return nil
	},
}

var queriesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import queries from a bulk text, CSV, XLSX, or YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		items, err := loadImportItems()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		added, skipped, err := ingest.BulkInsert(ctx, st, queriesProjectID, items)
		if err != nil {
			return eris.Wrap(err, "import queries")
		}

		zap.L().Info("query ingestion complete",
			zap.Int("added", added),
			zap.Int("skipped", skipped),
			zap.Int("input", len(items)),
		)
		return nil
	},
}

// loadImportItems parses whichever input flag was given; exactly one of
// --bulk-file, --csv, --xlsx, --yaml is required.
func loadImportItems() ([]ingest.Item, error) {
	set := 0
	for _, f := range []string{queriesBulkFile, queriesCSVPath, queriesXLSXPath, queriesYAMLPath} {
		if f != "" {
			set++
		}
	}
	if set != 1 {
		return nil, eris.New("exactly one of --bulk-file, --csv, --xlsx, --yaml is required")
	}

	switch {
	case queriesBulkFile != "":
		data, err := os.ReadFile(queriesBulkFile)
		if err != nil {
			return nil, eris.Wrap(err, "read bulk file")
		}
		return ingest.ParseBulkText(string(data), queryCategory), nil
	case queriesCSVPath != "":
		f, err := os.Open(queriesCSVPath)
		if err != nil {
			return nil, eris.Wrap(err, "open csv")
		}
		defer f.Close()
		return ingest.ParseCSV(f)
	case queriesYAMLPath != "":
		f, err := os.Open(queriesYAMLPath)
		if err != nil {
			return nil, eris.Wrap(err, "open yaml")
		}
		defer f.Close()
		return ingest.ParseYAML(f)
	default:
		return ingest.ParseXLSX(queriesXLSXPath)
	}
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's queries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		queries, err := st.ListQueries(ctx, queriesProjectID)
		if err != nil {
			return eris.Wrap(err, "list queries")
		}
		return printJSON(queries)
	},
}

var queriesDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a query by ID",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteQuery(ctx, deleteQueryID); err != nil {
			return eris.Wrap(err, "delete query")
		}
		zap.L().Info("query deleted", zap.String("id", deleteQueryID))
		return nil
	},
}

func init() {
	queriesCmd.PersistentFlags().StringVar(&queriesProjectID, "project", "", "project ID (required)")
	_ = queriesCmd.MarkPersistentFlagRequired("project")

	queriesAddCmd.Flags().StringVar(&queryText, "text", "", "query text (required)")
	queriesAddCmd.Flags().StringVar(&queryCategory, "category", "", "query category")
	_ = queriesAddCmd.MarkFlagRequired("text")

	queriesImportCmd.Flags().StringVar(&queriesBulkFile, "bulk-file", "", "newline-delimited query file")
	queriesImportCmd.Flags().StringVar(&queriesCSVPath, "csv", "", "CSV file with query_text and category columns")
	queriesImportCmd.Flags().StringVar(&queriesXLSXPath, "xlsx", "", "XLSX file with query_text and category columns")
	queriesImportCmd.Flags().StringVar(&queriesYAMLPath, "yaml", "", "YAML file with query_text/category entries")
	queriesImportCmd.Flags().StringVar(&queryCategory, "category", "", "category applied to --bulk-file rows")

	queriesDeleteCmd.Flags().StringVar(&deleteQueryID, "id", "", "query ID (required)")
	_ = queriesDeleteCmd.MarkFlagRequired("id")

	queriesCmd.AddCommand(queriesAddCmd)
	queriesCmd.AddCommand(queriesImportCmd)
	queriesCmd.AddCommand(queriesListCmd)
	queriesCmd.AddCommand(queriesDeleteCmd)
	rootCmd.AddCommand(queriesCmd)
}
