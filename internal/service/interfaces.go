package service

import (
	"context"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
)

type ProjectService interface {
	Create(ctx context.Context, in CreateProjectInput, userID string) (*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Stages(ctx context.Context, projectID string) ([]*domain.ProjectStage, error)
	// Log returns the change log of a project, or of one stage when code is non-empty.
	Log(ctx context.Context, projectID string, code domain.StageCode) ([]*domain.StageChangeLog, error)
}

type RoleService interface {
	RoleResolver
	Grant(ctx context.Context, userID string, role domain.Role) error
	Revoke(ctx context.Context, userID string, role domain.Role) error
	Roles(ctx context.Context, userID string) ([]domain.Role, error)
}

// RoleResolver answers identity questions for the stage and plan services.
type RoleResolver interface {
	IsHoD(ctx context.Context, userID string) (bool, error)
	HasRole(ctx context.Context, userID string, role domain.Role) (bool, error)
}

type StageValidationService interface {
	Validate(ctx context.Context, in ValidateInput) (*ValidationResult, error)
}

type StageRequestService interface {
	Create(ctx context.Context, in CreateRequestInput, requesterID string) (*RequestOutcome, error)
	Decide(ctx context.Context, in DecideInput, deciderID string) (*RequestOutcome, error)
	ListPending(ctx context.Context, projectID string) ([]*domain.StageChangeRequest, error)
}

type StageDirectApplyService interface {
	Apply(ctx context.Context, in DirectApplyInput, hodUserID string) (*DirectApplyOutcome, error)
	UpdateActuals(ctx context.Context, in UpdateActualsInput, hodUserID string) (*domain.ProjectStage, error)
}

type StageBackfillService interface {
	Apply(ctx context.Context, projectID string, updates []BackfillUpdate, userID string) (*BackfillResult, error)
}

type PlanDraftService interface {
	GetOrCreateDraft(ctx context.Context, projectID, userID string) (*PlanView, error)
	Get(ctx context.Context, planVersionID string) (*PlanView, error)
	List(ctx context.Context, projectID string) ([]*domain.PlanVersion, error)
	Snapshots(ctx context.Context, projectID string) ([]*domain.PlanSnapshot, error)
}

type PlanGenerationService interface {
	SaveSettings(ctx context.Context, in ScheduleSettingsInput) (*domain.ScheduleSettings, error)
	SetDuration(ctx context.Context, in DurationInput) error
	AddHoliday(ctx context.Context, day time.Time, name string) error
	Generate(ctx context.Context, projectID, userID string) (*PlanView, error)
}

type PlanApprovalService interface {
	Submit(ctx context.Context, planVersionID, userID string, rowVersion int64) (*domain.PlanVersion, error)
	Approve(ctx context.Context, planVersionID, approverID string, rowVersion int64) (*domain.PlanVersion, error)
	Reject(ctx context.Context, planVersionID, approverID, note string, rowVersion int64) (*domain.PlanVersion, error)
}

type CreateProjectInput struct {
	Name            string
	WorkflowVersion string
	HodUserID       string
	// CurrentStage, when set, marks every ancestor stage as auto-completed.
	CurrentStage string
}

type ValidateInput struct {
	ProjectID       string
	StageCode       domain.StageCode
	RequestedStatus domain.StageStatus
	TargetDate      *time.Time
	IsHoD           bool
}

type CreateRequestInput struct {
	ProjectID       string
	StageCode       domain.StageCode
	RequestedStatus domain.StageStatus
	RequestedDate   *time.Time
	Note            string
}

type DecideInput struct {
	RequestID string
	Approve   bool
	Note      string
	// RowVersion is the version the decider saw; zero skips the check.
	RowVersion int64
}

type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "Success"
	OutcomeDuplicatePending OutcomeKind = "DuplicatePending"
	OutcomeValidationFailed OutcomeKind = "ValidationFailed"
)

type RequestOutcome struct {
	Kind       OutcomeKind
	Request    *domain.StageChangeRequest
	Validation *ValidationResult
}

type DirectApplyInput struct {
	ProjectID string
	StageCode domain.StageCode
	Status    domain.StageStatus
	Date      *time.Time
	Note      string
	// Force applies despite overridable validation errors.
	Force bool
}

type DirectApplyOutcome struct {
	Kind                OutcomeKind
	Stage               *domain.ProjectStage
	Superseded          bool
	SupersededRequestID string
	Forced              bool
	Validation          *ValidationResult
}

type UpdateActualsInput struct {
	ProjectID   string
	StageCode   domain.StageCode
	ActualStart *time.Time
	CompletedOn *time.Time
	Note        string
}

type BackfillUpdate struct {
	StageCode   domain.StageCode `validate:"required"`
	ActualStart *time.Time       `validate:"required"`
	CompletedOn *time.Time       `validate:"required"`
	Note        string
}

type BackfillResult struct {
	UpdatedCount int
	StageCodes   []domain.StageCode
}

type ScheduleSettingsInput struct {
	ProjectID       string
	AnchorStageCode domain.StageCode
	AnchorDate      time.Time
	SkipWeekends    bool
	TransitionRule  domain.TransitionRule
}

type DurationInput struct {
	ProjectID     string
	StageCode     domain.StageCode
	DurationDays  *int
	OverrideStart *time.Time
	OverrideDue   *time.Time
}

// PlanView is a plan version with its stage rows in workflow order.
type PlanView struct {
	Version *domain.PlanVersion
	Plans   []domain.StagePlan
	Created bool
}
