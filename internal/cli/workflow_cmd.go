package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/stageflow/internal/cli/formatter"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/spf13/cobra"
)

func newWorkflowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect stage template graphs",
	}
	cmd.AddCommand(newWorkflowShowCmd(app), newWorkflowListCmd(app))
	return cmd
}

func newWorkflowShowCmd(app *App) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stages and dependencies of a workflow version",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := app.Workflows.Graph(version)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatWorkflow(g))
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", workflow.DefaultVersion, "Workflow version")
	return cmd
}

func newWorkflowListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered workflow versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(app.Workflows.Versions(), "\n"))
			return nil
		},
	}
}
