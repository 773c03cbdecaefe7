package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/notify"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/google/uuid"
)

type planApprovalService struct {
	deps Deps
}

func NewPlanApprovalService(deps Deps) PlanApprovalService {
	return &planApprovalService{deps: deps.withDefaults()}
}

// Submit moves a draft to pending approval after checking that no other
// version is pending and that every planned stage's predecessors are
// planned, completed, or out of effect.
func (s *planApprovalService) Submit(ctx context.Context, planVersionID, userID string, rowVersion int64) (v *domain.PlanVersion, err error) {
	startedAt := time.Now()
	defer func() {
		s.deps.observe(ctx, "plan-submit", startedAt, map[string]any{"plan_version_id": planVersionID}, err)
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hodUserID string
	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		v, err = loadVersionForUpdate(ctx, r, planVersionID, rowVersion)
		if err != nil {
			return err
		}
		if v.OwnerUserID != userID {
			return domain.Forbiddenf("plan version %d belongs to %s", v.VersionNo, v.OwnerUserID)
		}
		pending, err := r.plans.CountPending(ctx, v.ProjectID, v.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return domain.Conflictf("project %s already has a plan version pending approval", v.ProjectID)
		}

		project, err := r.projects.GetByID(ctx, v.ProjectID)
		if err != nil {
			return err
		}
		hodUserID = project.HodUserID
		g, err := s.deps.graphFor(project)
		if err != nil {
			return err
		}
		plans, err := r.plans.ListStagePlans(ctx, v.ID)
		if err != nil {
			return err
		}
		stages, err := r.stages.ListByProject(ctx, v.ProjectID)
		if err != nil {
			return err
		}
		if err := checkPlanDependencies(g, v.AnchorStageCode, plans, stages); err != nil {
			return err
		}

		if err := v.Submit(userID, now); err != nil {
			return err
		}
		return r.plans.Update(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	s.deps.record(ctx, audit.Entry{
		Action:    "plan.submit",
		Level:     slog.LevelInfo,
		UserID:    userID,
		ProjectID: v.ProjectID,
		Data:      map[string]any{"plan_version_id": v.ID, "version_no": v.VersionNo},
	})
	s.deps.publish(ctx, notify.Notification{
		Kind:      notify.KindPlanSubmitted,
		Recipient: hodUserID,
		Payload:   map[string]any{"project_id": v.ProjectID, "plan_version_id": v.ID, "version_no": v.VersionNo, "submitted_by": userID},
	})
	return v, nil
}

// Approve activates a pending version and snapshots the one it replaces.
// The submitter cannot approve their own version.
func (s *planApprovalService) Approve(ctx context.Context, planVersionID, approverID string, rowVersion int64) (v *domain.PlanVersion, err error) {
	startedAt := time.Now()
	defer func() {
		s.deps.observe(ctx, "plan-approve", startedAt, map[string]any{"plan_version_id": planVersionID}, err)
	}()
	if err := s.requireApprover(ctx, approverID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.deps.now()
	var snapshotted string
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		v, err = loadVersionForUpdate(ctx, r, planVersionID, rowVersion)
		if err != nil {
			return err
		}
		if err := v.Approve(approverID, now); err != nil {
			return err
		}
		project, err := r.projects.GetByID(ctx, v.ProjectID)
		if err != nil {
			return err
		}
		if project.ActivePlanVersionID != nil && *project.ActivePlanVersionID != v.ID {
			if err := snapshotVersion(ctx, r, *project.ActivePlanVersionID, approverID, now); err != nil {
				return err
			}
			snapshotted = *project.ActivePlanVersionID
		}
		if err := r.plans.Update(ctx, v); err != nil {
			return err
		}
		project.ActivePlanVersionID = &v.ID
		project.UpdatedAt = now
		return r.projects.Update(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	data := map[string]any{"plan_version_id": v.ID, "version_no": v.VersionNo}
	if snapshotted != "" {
		data["replaced_plan_version_id"] = snapshotted
	}
	s.deps.record(ctx, audit.Entry{Action: "plan.approve", Level: slog.LevelInfo, UserID: approverID, ProjectID: v.ProjectID, Data: data})
	s.notifyDecision(ctx, v)
	return v, nil
}

func (s *planApprovalService) Reject(ctx context.Context, planVersionID, approverID, note string, rowVersion int64) (v *domain.PlanVersion, err error) {
	startedAt := time.Now()
	defer func() {
		s.deps.observe(ctx, "plan-reject", startedAt, map[string]any{"plan_version_id": planVersionID}, err)
	}()
	if err := s.requireApprover(ctx, approverID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		v, err = loadVersionForUpdate(ctx, r, planVersionID, rowVersion)
		if err != nil {
			return err
		}
		if err := v.Reject(approverID, strings.TrimSpace(note), now); err != nil {
			return err
		}
		return r.plans.Update(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	s.deps.record(ctx, audit.Entry{
		Action:    "plan.reject",
		Level:     slog.LevelInfo,
		UserID:    approverID,
		ProjectID: v.ProjectID,
		Message:   v.DecisionNote,
		Data:      map[string]any{"plan_version_id": v.ID, "version_no": v.VersionNo},
	})
	s.notifyDecision(ctx, v)
	return v, nil
}

func (s *planApprovalService) requireApprover(ctx context.Context, userID string) error {
	for _, role := range []domain.Role{domain.RoleApprover, domain.RoleHoD} {
		ok, err := s.deps.Roles.HasRole(ctx, userID, role)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return domain.Forbiddenf("user %q may not decide plan versions", userID)
}

func (s *planApprovalService) notifyDecision(ctx context.Context, v *domain.PlanVersion) {
	if v.SubmittedBy == nil {
		return
	}
	s.deps.publish(ctx, notify.Notification{
		Kind:      notify.KindPlanDecided,
		Recipient: *v.SubmittedBy,
		Payload:   map[string]any{"project_id": v.ProjectID, "plan_version_id": v.ID, "status": string(v.Status)},
	})
}

// loadVersionForUpdate reads a version and applies the caller's row version
// so the following update fails on a concurrent change.
func loadVersionForUpdate(ctx context.Context, r repos, id string, rowVersion int64) (*domain.PlanVersion, error) {
	v, err := r.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rowVersion != 0 && rowVersion != v.RowVersion {
		return nil, domain.Conflictf("plan version %d changed since it was read (version %d, now %d)", v.VersionNo, rowVersion, v.RowVersion)
	}
	return v, nil
}

type snapshotPlan struct {
	StageCode    string  `json:"stage_code"`
	PlannedStart *string `json:"planned_start,omitempty"`
	PlannedDue   *string `json:"planned_due,omitempty"`
}

type snapshotPayload struct {
	VersionNo      int            `json:"version_no"`
	AnchorStage    string         `json:"anchor_stage,omitempty"`
	TransitionRule string         `json:"transition_rule"`
	SkipWeekends   bool           `json:"skip_weekends"`
	Plans          []snapshotPlan `json:"plans"`
}

func snapshotVersion(ctx context.Context, r repos, versionID, userID string, now time.Time) error {
	prev, err := r.plans.GetByID(ctx, versionID)
	if err != nil {
		return fmt.Errorf("loading replaced plan: %w", err)
	}
	plans, err := r.plans.ListStagePlans(ctx, prev.ID)
	if err != nil {
		return err
	}
	payload := snapshotPayload{
		VersionNo:      prev.VersionNo,
		TransitionRule: string(prev.TransitionRule),
		SkipWeekends:   prev.SkipWeekends,
		Plans:          make([]snapshotPlan, 0, len(plans)),
	}
	if prev.AnchorStageCode != nil {
		payload.AnchorStage = prev.AnchorStageCode.String()
	}
	for _, p := range plans {
		sp := snapshotPlan{StageCode: p.StageCode.String()}
		if p.PlannedStart != nil {
			s := p.PlannedStart.Format(domain.DateLayout)
			sp.PlannedStart = &s
		}
		if p.PlannedDue != nil {
			s := p.PlannedDue.Format(domain.DateLayout)
			sp.PlannedDue = &s
		}
		payload.Plans = append(payload.Plans, sp)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding plan snapshot: %w", err)
	}
	return r.plans.CreateSnapshot(ctx, &domain.PlanSnapshot{
		ID:            uuid.New().String(),
		ProjectID:     prev.ProjectID,
		PlanVersionID: prev.ID,
		TakenOn:       now,
		TakenBy:       userID,
		Payload:       raw,
	})
}

// checkPlanDependencies verifies that each planned, non-skipped stage only
// depends on stages that are planned, completed, or transparent. Transparent
// stages (skipped, or optional without a plan) are looked through. Stages
// before the anchor are never planned and count as satisfied.
func checkPlanDependencies(g *workflow.Graph, anchor *domain.StageCode, plans []domain.StagePlan, stages []*domain.ProjectStage) error {
	planned := make(map[domain.StageCode]bool, len(plans))
	for _, p := range plans {
		if p.Scheduled() {
			planned[p.StageCode] = true
		}
	}
	if len(planned) == 0 {
		return domain.Validationf("plan has no scheduled stages; generate it first")
	}
	var beforeAnchor map[domain.StageCode]bool
	if anchor != nil {
		beforeAnchor = g.Ancestors(*anchor)
	}
	status := make(map[domain.StageCode]domain.StageStatus, len(stages))
	for _, st := range stages {
		status[st.StageCode] = st.Status
	}
	transparent := func(c domain.StageCode) bool {
		return status[c] == domain.StageSkipped || (g.IsOptional(c) && !planned[c])
	}

	var satisfied func(c domain.StageCode, seen map[domain.StageCode]bool) bool
	satisfied = func(c domain.StageCode, seen map[domain.StageCode]bool) bool {
		if planned[c] || status[c] == domain.StageCompleted || beforeAnchor[c] {
			return true
		}
		if !transparent(c) || seen[c] {
			return false
		}
		seen[c] = true
		for _, p := range g.Predecessors(c) {
			if !satisfied(p, seen) {
				return false
			}
		}
		return true
	}

	var broken []domain.StageCode
	for _, s := range g.Stages() {
		if !planned[s.Code] || status[s.Code] == domain.StageSkipped {
			continue
		}
		for _, p := range g.Predecessors(s.Code) {
			if !satisfied(p, map[domain.StageCode]bool{}) {
				broken = append(broken, s.Code)
				break
			}
		}
	}
	if len(broken) > 0 {
		return domain.NewStageCodesError(domain.ErrValidation, "planned stages depend on unplanned, incomplete stages", broken)
	}
	return nil
}
