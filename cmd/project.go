package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-tracker/internal/model"
)

var (
	projectName     string
	projectDomain   string
	projectCountry  string
	projectLanguage string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage tracked projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.CreateProject(ctx, model.Project{
			Name:     projectName,
			Domain:   projectDomain,
			Country:  projectCountry,
			Language: projectLanguage,
		})
		if err != nil {
			return eris.Wrap(err, "create project")
		}

		zap.L().Info("project created",
			zap.String("id", p.ID),
			zap.String("name", p.Name),
			zap.String("domain", p.Domain),
		)
		return printJSON(p)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		projects, err := st.ListProjects(ctx)
		if err != nil {
			return eris.Wrap(err, "list projects")
		}
		return printJSON(projects)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "project name (required)")
	projectCreateCmd.Flags().StringVar(&projectDomain, "domain", "", "tracked domain, e.g. wtatennis.com (required)")
	projectCreateCmd.Flags().StringVar(&projectCountry, "country", "", "country code")
	projectCreateCmd.Flags().StringVar(&projectLanguage, "language", "", "language code")
	_ = projectCreateCmd.MarkFlagRequired("name")
	_ = projectCreateCmd.MarkFlagRequired("domain")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	rootCmd.AddCommand(projectCmd)
}
