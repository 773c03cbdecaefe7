package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/cli/formatter"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build, review and approve planned stage dates",
	}

	cmd.AddCommand(
		newPlanSettingsCmd(app),
		newPlanDurationCmd(app),
		newPlanHolidayCmd(app),
		newPlanDraftCmd(app),
		newPlanGenerateCmd(app),
		newPlanShowCmd(app),
		newPlanListCmd(app),
		newPlanSubmitCmd(app),
		newPlanApproveCmd(app),
		newPlanRejectCmd(app),
	)

	return cmd
}

func newPlanSettingsCmd(app *App) *cobra.Command {
	var (
		anchor, rule string
		date         *time.Time
		skipWeekends bool
	)

	cmd := &cobra.Command{
		Use:   "settings PROJECT",
		Short: "Set the anchor stage, anchor date and calendar rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if date == nil {
				return fmt.Errorf("--date is required: %w", domain.ErrValidation)
			}
			tr, err := domain.ParseTransitionRule(rule)
			if err != nil {
				return err
			}
			s, err := app.PlanGeneration.SaveSettings(ctx, service.ScheduleSettingsInput{
				ProjectID:       id,
				AnchorStageCode: domain.NewStageCode(anchor),
				AnchorDate:      *date,
				SkipWeekends:    skipWeekends,
				TransitionRule:  tr,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Anchor %s on %s, %s, skip weekends %t\n",
				s.AnchorStageCode, s.AnchorDate.Format(domain.DateLayout), s.TransitionRule, s.SkipWeekends)
			return nil
		},
	}

	cmd.Flags().StringVar(&anchor, "anchor", "", "Anchor stage code")
	dateVar(cmd.Flags(), &date, "date", "Anchor date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&skipWeekends, "skip-weekends", true, "Never start a stage on Saturday or Sunday")
	cmd.Flags().StringVar(&rule, "rule", string(domain.RuleNextWorkingDay), "Transition rule: same_day or next_working_day")
	_ = cmd.MarkFlagRequired("anchor")

	return cmd
}

func newPlanDurationCmd(app *App) *cobra.Command {
	var (
		days       int
		start, due *time.Time
	)

	cmd := &cobra.Command{
		Use:   "duration PROJECT STAGE",
		Short: "Set a stage's duration in calendar days and optional manual dates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			code, err := domain.ParseStageCode(args[1])
			if err != nil {
				return err
			}
			in := service.DurationInput{ProjectID: id, StageCode: code, OverrideStart: start, OverrideDue: due}
			if cmd.Flags().Changed("days") {
				in.DurationDays = &days
			}
			if err := app.PlanGeneration.SetDuration(ctx, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", code)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Duration in calendar days")
	dateVar(cmd.Flags(), &start, "start", "Manual planned start (YYYY-MM-DD)")
	dateVar(cmd.Flags(), &due, "due", "Manual planned due (YYYY-MM-DD)")

	return cmd
}

func newPlanHolidayCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "holiday DATE",
		Short: "Add a non-working day to the shared calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.ParseDay(args[0])
			if err != nil {
				return err
			}
			if err := app.PlanGeneration.AddHoliday(cmd.Context(), d, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added holiday %s\n", d.Format(domain.DateLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Holiday name")
	return cmd
}

func newPlanDraftCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "draft PROJECT",
		Short: "Open (or create) your draft plan for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			view, err := app.PlanDrafts.GetOrCreateDraft(ctx, id, user)
			if err != nil {
				return err
			}
			return printPlan(ctx, cmd, app, id, view)
		},
	}
}

func newPlanGenerateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "generate PROJECT",
		Short: "Compute planned dates into your draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			view, err := app.PlanGeneration.Generate(ctx, id, user)
			if err != nil {
				return err
			}
			return printPlan(ctx, cmd, app, id, view)
		},
	}
}

func newPlanShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show PLAN_ID",
		Short: "Show a plan version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view, err := app.PlanDrafts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printPlan(ctx, cmd, app, view.Version.ProjectID, view)
		},
	}
}

func newPlanListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list PROJECT",
		Short: "List the plan versions of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			p, err := app.Projects.GetByID(ctx, id)
			if err != nil {
				return err
			}
			versions, err := app.PlanDrafts.List(ctx, id)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No plan versions.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlanVersions(versions, p.ActivePlanVersionID))
			return nil
		},
	}
}

func printPlan(ctx context.Context, cmd *cobra.Command, app *App, projectID string, view *service.PlanView) error {
	_, g, err := projectGraph(ctx, app, projectID)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlan(view, g))
	return nil
}

func newPlanSubmitCmd(app *App) *cobra.Command {
	var rev int64

	cmd := &cobra.Command{
		Use:   "submit PLAN_ID",
		Short: "Submit your draft for approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			v, err := app.PlanApproval.Submit(cmd.Context(), args[0], user, rev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan v%d %s\n", v.VersionNo, formatter.PlanStatusPill(v.Status))
			return nil
		},
	}

	cmd.Flags().Int64Var(&rev, "rev", 0, "Expected row version (0 skips the check)")
	return cmd
}

func newPlanApproveCmd(app *App) *cobra.Command {
	var rev int64

	cmd := &cobra.Command{
		Use:   "approve PLAN_ID",
		Short: "Approve a pending plan and make it the project's active plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			v, err := app.PlanApproval.Approve(cmd.Context(), args[0], user, rev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan v%d %s\n", v.VersionNo, formatter.PlanStatusPill(v.Status))
			return nil
		},
	}

	cmd.Flags().Int64Var(&rev, "rev", 0, "Expected row version (0 skips the check)")
	return cmd
}

func newPlanRejectCmd(app *App) *cobra.Command {
	var (
		rev  int64
		note string
	)

	cmd := &cobra.Command{
		Use:   "reject PLAN_ID",
		Short: "Reject a pending plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			v, err := app.PlanApproval.Reject(cmd.Context(), args[0], user, note, rev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan v%d %s\n", v.VersionNo, formatter.PlanStatusPill(v.Status))
			return nil
		},
	}

	cmd.Flags().Int64Var(&rev, "rev", 0, "Expected row version (0 skips the check)")
	cmd.Flags().StringVar(&note, "note", "", "Reason for rejection")
	return cmd
}
