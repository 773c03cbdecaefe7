package cli

import (
	"github.com/alexanderramin/stageflow/internal/clock"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/notify"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Projects       service.ProjectService
	Roles          service.RoleService
	Validation     service.StageValidationService
	Requests       service.StageRequestService
	DirectApply    service.StageDirectApplyService
	Backfill       service.StageBackfillService
	PlanDrafts     service.PlanDraftService
	PlanGeneration service.PlanGenerationService
	PlanApproval   service.PlanApprovalService
	Workflows      *workflow.Registry
	Clock          clock.Clock

	// Inbox and AuditDB back the read-only inbox and audit commands; either
	// may be nil.
	Inbox   *notify.Outbox
	AuditDB db.DBTX

	// DefaultUser is the acting user when --user is not given.
	DefaultUser string
}

// NewServiceApp wires every service over deps.
func NewServiceApp(deps service.Deps, roles service.RoleService) *App {
	deps.Roles = roles
	return &App{
		Projects:       service.NewProjectService(deps),
		Roles:          roles,
		Validation:     service.NewStageValidationService(deps),
		Requests:       service.NewStageRequestService(deps),
		DirectApply:    service.NewStageDirectApplyService(deps),
		Backfill:       service.NewStageBackfillService(deps),
		PlanDrafts:     service.NewPlanDraftService(deps),
		PlanGeneration: service.NewPlanGenerationService(deps),
		PlanApproval:   service.NewPlanApprovalService(deps),
		Workflows:      deps.Workflows,
		Clock:          clock.OrSystem(deps.Clock),
	}
}

// NewRootCmd creates the top-level "stageflow" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "stageflow",
		Short:         "Stage planning and progress tracking for procurement projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("user", app.DefaultUser, "Acting user ID")

	root.AddCommand(
		newWorkflowCmd(app),
		newProjectCmd(app),
		newRoleCmd(app),
		newPlanCmd(app),
		newStageCmd(app),
		newInboxCmd(app),
		newAuditCmd(app),
	)

	return root
}
