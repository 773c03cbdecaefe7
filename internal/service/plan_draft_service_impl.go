package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/google/uuid"
)

type planDraftService struct {
	deps Deps
}

func NewPlanDraftService(deps Deps) PlanDraftService {
	return &planDraftService{deps: deps.withDefaults()}
}

// GetOrCreateDraft returns the caller's draft for the project, creating one
// seeded from the active plan when none exists.
func (s *planDraftService) GetOrCreateDraft(ctx context.Context, projectID, userID string) (view *PlanView, err error) {
	startedAt := time.Now()
	defer func() {
		fields := map[string]any{"project_id": projectID}
		if view != nil {
			fields["version_no"] = view.Version.VersionNo
			fields["created"] = view.Created
		}
		s.deps.observe(ctx, "plan-draft", startedAt, fields, err)
	}()

	if userID == "" {
		return nil, domain.Validationf("user is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		project, err := r.projects.GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		g, err := s.deps.graphFor(project)
		if err != nil {
			return err
		}
		view, err = getOrCreateDraft(ctx, r, g, project, userID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *planDraftService) Get(ctx context.Context, planVersionID string) (*PlanView, error) {
	r := reposFor(s.deps.DB)
	v, err := r.plans.GetByID(ctx, planVersionID)
	if err != nil {
		return nil, err
	}
	project, err := r.projects.GetByID(ctx, v.ProjectID)
	if err != nil {
		return nil, err
	}
	g, err := s.deps.graphFor(project)
	if err != nil {
		return nil, err
	}
	return loadPlanView(ctx, r, g, v)
}

func (s *planDraftService) List(ctx context.Context, projectID string) ([]*domain.PlanVersion, error) {
	return reposFor(s.deps.DB).plans.ListByProject(ctx, projectID)
}

func (s *planDraftService) Snapshots(ctx context.Context, projectID string) ([]*domain.PlanSnapshot, error) {
	return reposFor(s.deps.DB).plans.ListSnapshots(ctx, projectID)
}

func loadPlanView(ctx context.Context, r repos, g *workflow.Graph, v *domain.PlanVersion) (*PlanView, error) {
	plans, err := r.plans.ListStagePlans(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	orderStagePlans(g, plans)
	return &PlanView{Version: v, Plans: plans}, nil
}

// getOrCreateDraft must run inside a transaction.
func getOrCreateDraft(ctx context.Context, r repos, g *workflow.Graph, project *domain.Project, userID string, now time.Time) (*PlanView, error) {
	draft, err := r.plans.FindDraft(ctx, project.ID, userID)
	if err == nil {
		return loadPlanView(ctx, r, g, draft)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	maxNo, err := r.plans.MaxVersionNo(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	v := &domain.PlanVersion{
		ID:             uuid.New().String(),
		ProjectID:      project.ID,
		VersionNo:      maxNo + 1,
		Status:         domain.PlanDraft,
		SkipWeekends:   true,
		TransitionRule: domain.RuleNextWorkingDay,
		CreatedBy:      userID,
		OwnerUserID:    userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	seed := map[domain.StageCode]domain.StagePlan{}
	if project.ActivePlanVersionID != nil {
		active, err := r.plans.GetByID(ctx, *project.ActivePlanVersionID)
		if err != nil {
			return nil, err
		}
		v.AnchorStageCode = active.AnchorStageCode
		v.AnchorDate = active.AnchorDate
		v.SkipWeekends = active.SkipWeekends
		v.TransitionRule = active.TransitionRule
		v.PncApplicable = active.PncApplicable
		plans, err := r.plans.ListStagePlans(ctx, active.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range plans {
			seed[p.StageCode] = p
		}
	} else if settings, err := r.schedule.GetSettings(ctx, project.ID); err == nil {
		code := settings.AnchorStageCode
		date := settings.AnchorDate
		v.AnchorStageCode = &code
		v.AnchorDate = &date
		v.SkipWeekends = settings.SkipWeekends
		v.TransitionRule = settings.TransitionRule
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if err := r.plans.Create(ctx, v); err != nil {
		return nil, err
	}

	stages, err := r.stages.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	for _, st := range stages {
		p := domain.StagePlan{PlanVersionID: v.ID, StageCode: st.StageCode}
		if prev, ok := seed[st.StageCode]; ok {
			p.PlannedStart = prev.PlannedStart
			p.PlannedDue = prev.PlannedDue
		}
		if err := r.plans.UpsertStagePlan(ctx, &p); err != nil {
			return nil, err
		}
	}

	view, err := loadPlanView(ctx, r, g, v)
	if err != nil {
		return nil, err
	}
	view.Created = true
	return view, nil
}
