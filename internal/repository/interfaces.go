package repository

import (
	"context"

	"github.com/alexanderramin/stageflow/internal/domain"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
}

type ProjectStageRepo interface {
	Create(ctx context.Context, s *domain.ProjectStage) error
	Get(ctx context.Context, projectID string, code domain.StageCode) (*domain.ProjectStage, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.ProjectStage, error)
	Update(ctx context.Context, s *domain.ProjectStage) error
}

type PlanVersionRepo interface {
	Create(ctx context.Context, v *domain.PlanVersion) error
	GetByID(ctx context.Context, id string) (*domain.PlanVersion, error)
	FindDraft(ctx context.Context, projectID, ownerUserID string) (*domain.PlanVersion, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.PlanVersion, error)
	MaxVersionNo(ctx context.Context, projectID string) (int, error)
	CountPending(ctx context.Context, projectID, excludeID string) (int, error)
	// Update writes v if its RowVersion still matches, then increments it.
	Update(ctx context.Context, v *domain.PlanVersion) error

	UpsertStagePlan(ctx context.Context, p *domain.StagePlan) error
	ListStagePlans(ctx context.Context, planVersionID string) ([]domain.StagePlan, error)
	CreateSnapshot(ctx context.Context, s *domain.PlanSnapshot) error
	ListSnapshots(ctx context.Context, projectID string) ([]*domain.PlanSnapshot, error)
}

type ScheduleRepo interface {
	GetSettings(ctx context.Context, projectID string) (*domain.ScheduleSettings, error)
	UpsertSettings(ctx context.Context, s *domain.ScheduleSettings) error
	ListDurations(ctx context.Context, projectID string) ([]domain.PlanDuration, error)
	UpsertDuration(ctx context.Context, d *domain.PlanDuration) error
	ListHolidays(ctx context.Context) ([]domain.Holiday, error)
	AddHoliday(ctx context.Context, h domain.Holiday) error
}

type StageRequestRepo interface {
	// Create returns an ErrConflict error when a pending request already
	// exists for the same project and stage.
	Create(ctx context.Context, r *domain.StageChangeRequest) error
	GetByID(ctx context.Context, id string) (*domain.StageChangeRequest, error)
	FindPending(ctx context.Context, projectID string, code domain.StageCode) (*domain.StageChangeRequest, error)
	ListPending(ctx context.Context, projectID string) ([]*domain.StageChangeRequest, error)
	ListByStage(ctx context.Context, projectID string, code domain.StageCode) ([]*domain.StageChangeRequest, error)
	// Update writes r if its RowVersion still matches, then increments it.
	Update(ctx context.Context, r *domain.StageChangeRequest) error
}

type StageLogRepo interface {
	Append(ctx context.Context, l *domain.StageChangeLog) error
	ListByProject(ctx context.Context, projectID string) ([]*domain.StageChangeLog, error)
	ListByStage(ctx context.Context, projectID string, code domain.StageCode) ([]*domain.StageChangeLog, error)
}

type UserRoleRepo interface {
	Grant(ctx context.Context, userID string, role domain.Role) error
	Revoke(ctx context.Context, userID string, role domain.Role) error
	ListRoles(ctx context.Context, userID string) ([]domain.Role, error)
	HasRole(ctx context.Context, userID string, role domain.Role) (bool, error)
}
