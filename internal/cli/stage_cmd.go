package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/alexanderramin/stageflow/internal/cli/formatter"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/spf13/cobra"
)

func newStageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Validate, request and apply stage status changes",
	}

	cmd.AddCommand(
		newStageValidateCmd(app),
		newStageRequestCmd(app),
		newStageDecideCmd(app),
		newStagePendingCmd(app),
		newStageApplyCmd(app),
		newStageActualsCmd(app),
		newStageBackfillCmd(app),
	)

	return cmd
}

// outcomeError reports a non-success outcome as a failed command after its
// details have been printed.
func outcomeError(kind service.OutcomeKind) error {
	switch kind {
	case service.OutcomeDuplicatePending:
		return fmt.Errorf("a request is already pending for this stage: %w", domain.ErrConflict)
	case service.OutcomeValidationFailed:
		return fmt.Errorf("stage change failed validation: %w", domain.ErrValidation)
	}
	return nil
}

func printValidation(w io.Writer, r *service.ValidationResult) {
	if r != nil {
		fmt.Fprint(w, formatter.FormatValidation(r))
	}
}

func newStageValidateCmd(app *App) *cobra.Command {
	var (
		status domain.StageStatus
		date   *time.Time
	)

	cmd := &cobra.Command{
		Use:   "validate PROJECT STAGE",
		Short: "Check whether a stage may move to a status, without changing anything",
		Args:  cobra.ExactArgs(2),
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
			code, err := domain.ParseStageCode(args[1])
			if err != nil {
				return err
			}
			isHoD, err := app.Roles.IsHoD(ctx, user)
			if err != nil {
				return err
			}
			r, err := app.Validation.Validate(ctx, service.ValidateInput{
				ProjectID:       id,
				StageCode:       code,
				RequestedStatus: status,
				TargetDate:      date,
				IsHoD:           isHoD,
			})
			if err != nil {
				return err
			}
			printValidation(cmd.OutOrStdout(), r)
			return nil
		},
	}

	statusVar(cmd.Flags(), &status, "to", "Requested status")
	dateVar(cmd.Flags(), &date, "date", "Start or completion date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newStageRequestCmd(app *App) *cobra.Command {
	var (
		status domain.StageStatus
		date   *time.Time
		note   string
	)

	cmd := &cobra.Command{
		Use:   "request PROJECT STAGE",
		Short: "Ask the head of department to move a stage to a new status",
		Args:  cobra.ExactArgs(2),
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
			code, err := domain.ParseStageCode(args[1])
			if err != nil {
				return err
			}
			out, err := app.Requests.Create(ctx, service.CreateRequestInput{
				ProjectID:       id,
				StageCode:       code,
				RequestedStatus: status,
				RequestedDate:   date,
				Note:            note,
			}, user)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch out.Kind {
			case service.OutcomeSuccess:
				fmt.Fprintf(w, "Requested %s -> %s (request %s)\n", code, status, out.Request.ID)
			case service.OutcomeDuplicatePending:
				fmt.Fprintf(w, "Request %s is already pending for %s\n", out.Request.ID, code)
			default:
				printValidation(w, out.Validation)
			}
			return outcomeError(out.Kind)
		},
	}

	statusVar(cmd.Flags(), &status, "to", "Requested status")
	dateVar(cmd.Flags(), &date, "date", "Start or completion date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&note, "note", "", "Note for the approver")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newStageDecideCmd(app *App) *cobra.Command {
	var (
		approve, reject bool
		note            string
		rev             int64
	)

	cmd := &cobra.Command{
		Use:   "decide REQUEST_ID",
		Short: "Approve or reject a pending stage change request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			if approve == reject {
				return fmt.Errorf("pass exactly one of --approve or --reject: %w", domain.ErrValidation)
			}
			out, err := app.Requests.Decide(cmd.Context(), service.DecideInput{
				RequestID:  args[0],
				Approve:    approve,
				Note:       note,
				RowVersion: rev,
			}, user)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Kind != service.OutcomeSuccess {
				printValidation(w, out.Validation)
				return outcomeError(out.Kind)
			}
			fmt.Fprintf(w, "Request %s %s\n", out.Request.ID, formatter.DecisionPill(out.Request.DecisionStatus))
			return nil
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the request and apply the change")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the request")
	cmd.Flags().StringVar(&note, "note", "", "Decision note")
	cmd.Flags().Int64Var(&rev, "rev", 0, "Expected row version (0 skips the check)")
	cmd.MarkFlagsMutuallyExclusive("approve", "reject")

	return cmd
}

func newStagePendingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pending PROJECT",
		Short: "List pending stage change requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0])
			if err != nil {
				return err
			}
			reqs, err := app.Requests.ListPending(ctx, id)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending requests.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRequests(reqs))
			return nil
		},
	}
}

func newStageApplyCmd(app *App) *cobra.Command {
	var (
		status domain.StageStatus
		date   *time.Time
		note   string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "apply PROJECT STAGE",
		Short: "Apply a stage status change directly (head of department)",
		Args:  cobra.ExactArgs(2),
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
			code, err := domain.ParseStageCode(args[1])
			if err != nil {
				return err
			}
			out, err := app.DirectApply.Apply(ctx, service.DirectApplyInput{
				ProjectID: id,
				StageCode: code,
				Status:    status,
				Date:      date,
				Note:      note,
				Force:     force,
			}, user)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Kind != service.OutcomeSuccess {
				printValidation(w, out.Validation)
				if out.Validation != nil && out.Validation.Forceable() {
					fmt.Fprintln(w, formatter.Dim("re-run with --force to override"))
				}
				return outcomeError(out.Kind)
			}
			fmt.Fprintf(w, "%s %s\n", code, formatter.StageStatusPill(out.Stage.Status))
			if out.Forced {
				fmt.Fprintln(w, "Applied with --force; predecessors were left unchanged.")
			}
			if out.Superseded {
				fmt.Fprintf(w, "Superseded pending request %s\n", out.SupersededRequestID)
			}
			return nil
		},
	}

	statusVar(cmd.Flags(), &status, "to", "New status")
	dateVar(cmd.Flags(), &date, "date", "Start or completion date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&note, "note", "", "Change note")
	cmd.Flags().BoolVar(&force, "force", false, "Override overridable validation errors")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newStageActualsCmd(app *App) *cobra.Command {
	var (
		start, completed *time.Time
		note             string
	)

	cmd := &cobra.Command{
		Use:   "actuals PROJECT STAGE",
		Short: "Correct a stage's actual start or completion date",
		Args:  cobra.ExactArgs(2),
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
			code, err := domain.ParseStageCode(args[1])
			if err != nil {
				return err
			}
			st, err := app.DirectApply.UpdateActuals(ctx, service.UpdateActualsInput{
				ProjectID:   id,
				StageCode:   code,
				ActualStart: start,
				CompletedOn: completed,
				Note:        note,
			}, user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s started %s, completed %s\n",
				code, formatter.Date(st.ActualStart), formatter.Date(st.CompletedOn))
			return nil
		},
	}

	dateVar(cmd.Flags(), &start, "start", "Actual start date (YYYY-MM-DD)")
	dateVar(cmd.Flags(), &completed, "completed", "Completion date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&note, "note", "", "Correction note")

	return cmd
}

func newStageBackfillCmd(app *App) *cobra.Command {
	var entries []service.BackfillUpdate

	cmd := &cobra.Command{
		Use:   "backfill PROJECT",
		Short: "Record real dates for stages that were auto-completed",
		Example: `  stageflow stage backfill refit --entry FS,2025-11-03,2025-11-28 \
      --entry IPA,2025-12-01,2025-12-19,"signed late"`,
		Args: cobra.ExactArgs(1),
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
			res, err := app.Backfill.Apply(ctx, id, entries, user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backfilled %d stage(s): %s\n", res.UpdatedCount, formatter.Codes(res.StageCodes))
			return nil
		},
	}

	cmd.Flags().Var(&backfillEntries{entries: &entries}, "entry", "CODE,START,COMPLETED[,NOTE]; repeatable")
	_ = cmd.MarkFlagRequired("entry")

	return cmd
}
