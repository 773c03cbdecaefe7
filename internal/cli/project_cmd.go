package cli

import (
	"fmt"

	"github.com/alexanderramin/stageflow/internal/cli/formatter"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		newProjectCreateCmd(app),
		newProjectListCmd(app),
		newProjectShowCmd(app),
		newProjectStagesCmd(app),
		newProjectLogCmd(app),
	)

	return cmd
}

func newProjectCreateCmd(app *App) *cobra.Command {
	var in service.CreateProjectInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with one stage per workflow template",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			p, err := app.Projects.Create(cmd.Context(), in, user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s %s\n", formatter.Bold(p.Name), formatter.Dim(p.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Project name")
	cmd.Flags().StringVar(&in.WorkflowVersion, "workflow", "", "Workflow version (default v1)")
	cmd.Flags().StringVar(&in.HodUserID, "hod", "", "Head of department (default: acting user)")
	cmd.Flags().StringVar(&in.CurrentStage, "current-stage", "", "Stage the project is already at; earlier stages are marked for backfill")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Projects.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProjectList(projects))
			return nil
		},
	}
}

func newProjectShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show PROJECT",
		Short: "Show project details and stage progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			p, g, err := projectGraph(ctx, app, id)
			if err != nil {
				return err
			}
			stages, err := app.Projects.Stages(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProject(p, stages, g))
			return nil
		},
	}
}

func newProjectStagesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stages PROJECT",
		Short: "List the stages of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			_, g, err := projectGraph(ctx, app, id)
			if err != nil {
				return err
			}
			stages, err := app.Projects.Stages(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatStages(stages, g))
			return nil
		},
	}
}

func newProjectLogCmd(app *App) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "log PROJECT",
		Short: "Show the stage change log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			logs, err := app.Projects.Log(ctx, id, domain.NewStageCode(stage))
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes recorded.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatLog(logs))
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "Only show changes to this stage")
	return cmd
}
