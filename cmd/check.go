package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-tracker/internal/citation"
	"github.com/sells-group/geo-tracker/internal/model"
	"github.com/sells-group/geo-tracker/pkg/perplexity"
)

var checkProjectID string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a citation check over a project's active queries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Perplexity.Key == "" {
			return eris.New("perplexity API key is required (GEOTRACK_PERPLEXITY_KEY)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		project, err := st.GetProject(ctx, checkProjectID)
		if err != nil {
			return eris.Wrap(err, "load project")
		}

		queries, err := st.ListQueries(ctx, project.ID)
		if err != nil {
			return eris.Wrap(err, "load queries")
		}
		active := model.ActiveQueries(queries)
		if len(active) == 0 {
			return eris.New("project has no active queries")
		}

		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)

		runner := citation.NewRunner(client, st, citation.WithInterval(cfg.Check.Interval()))

		summary, err := runner.Run(ctx, project.ID, project.Domain, active)
		if err != nil {
			return eris.Wrap(err, "citation check")
		}

		zap.L().Info("check complete",
			zap.String("project", project.Name),
			zap.String("domain", project.Domain),
			zap.Int("checked", summary.Checked),
			zap.Int("failures", summary.Failures),
			zap.Int("total", summary.Total),
		)
		return printJSON(summary)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkProjectID, "project", "", "project ID (required)")
	_ = checkCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(checkCmd)
}
