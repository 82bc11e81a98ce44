package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geo-tracker/internal/model"
)

var resultsProjectID string

// resultsReport is the JSON shape printed by the results command.
type resultsReport struct {
	CheckDate    string              `json:"check_date,omitempty"`
	Cited        int                 `json:"cited"`
	Total        int                 `json:"total"`
	CitationRate float64             `json:"citation_rate"`
	Results      []model.CheckResult `json:"results,omitempty"`
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the most recent citation check results for a project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.LatestResults(ctx, resultsProjectID)
		if err != nil {
			return eris.Wrap(err, "load results")
		}

		return printJSON(buildReport(results))
	},
}

func buildReport(results []model.CheckResult) resultsReport {
	latest := model.LatestByDate(results)
	cited, total, rate := model.CitationRate(latest)

	report := resultsReport{
		Cited:        cited,
		Total:        total,
		CitationRate: rate,
		Results:      latest,
	}
	if len(latest) > 0 {
		report.CheckDate = latest[0].CheckDate
	}
	return report
}

func init() {
	resultsCmd.Flags().StringVar(&resultsProjectID, "project", "", "project ID (required)")
	_ = resultsCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(resultsCmd)
}
