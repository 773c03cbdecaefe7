package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/scheduler"
	"github.com/alexanderramin/stageflow/internal/workflow"
)

type IssueCode string

const (
	IssueInvalidTransition      IssueCode = "invalid_transition"
	IssueFutureDate             IssueCode = "future_date"
	IssueDateRequired           IssueCode = "date_required"
	IssuePredecessorsIncomplete IssueCode = "predecessors_incomplete"
	IssueBeforeAutoStart        IssueCode = "before_auto_start"
	IssueForceAvailable         IssueCode = "force_available"
)

// Issue is one validation finding. Overridable errors may be forced
// through by an HoD direct apply.
type Issue struct {
	Code        IssueCode
	Message     string
	Overridable bool
}

type ValidationResult struct {
	IsValid             bool
	CurrentStatus       domain.StageStatus
	Errors              []Issue
	Warnings            []Issue
	MissingPredecessors []domain.StageCode
	SuggestedAutoStart  *time.Time
}

func (r *ValidationResult) addError(code IssueCode, overridable bool, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...), Overridable: overridable})
}

// Forceable reports whether every error is overridable.
func (r *ValidationResult) Forceable() bool {
	if len(r.Errors) == 0 {
		return false
	}
	for _, e := range r.Errors {
		if !e.Overridable {
			return false
		}
	}
	return true
}

// HasError reports whether an error with code was raised.
func (r *ValidationResult) HasError(code IssueCode) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

type stageValidationService struct {
	deps Deps
}

func NewStageValidationService(deps Deps) StageValidationService {
	return &stageValidationService{deps: deps.withDefaults()}
}

func (s *stageValidationService) Validate(ctx context.Context, in ValidateInput) (*ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := loadStageContext(ctx, reposFor(s.deps.DB), s.deps, in.ProjectID)
	if err != nil {
		return nil, err
	}
	return sc.evaluate(in, s.deps.today())
}

// stageContext is the state a stage transition is validated against.
type stageContext struct {
	project *domain.Project
	graph   *workflow.Graph
	stages  map[domain.StageCode]*domain.ProjectStage
	// activePlan is nil when the project has no approved plan.
	activePlan map[domain.StageCode]domain.StagePlan
	calendar   scheduler.Calendar
}

func loadStageContext(ctx context.Context, r repos, d Deps, projectID string) (*stageContext, error) {
	project, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	g, err := d.graphFor(project)
	if err != nil {
		return nil, err
	}
	list, err := r.stages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sc := &stageContext{
		project:  project,
		graph:    g,
		stages:   make(map[domain.StageCode]*domain.ProjectStage, len(list)),
		calendar: scheduler.Calendar{Rule: domain.RuleNextWorkingDay, SkipWeekends: true},
	}
	for _, st := range list {
		sc.stages[st.StageCode] = st
	}

	if project.ActivePlanVersionID != nil {
		v, err := r.plans.GetByID(ctx, *project.ActivePlanVersionID)
		if err != nil {
			return nil, fmt.Errorf("loading active plan: %w", err)
		}
		plans, err := r.plans.ListStagePlans(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		sc.activePlan = make(map[domain.StageCode]domain.StagePlan, len(plans))
		for _, p := range plans {
			sc.activePlan[p.StageCode] = p
		}
		sc.calendar.Rule = v.TransitionRule
		sc.calendar.SkipWeekends = v.SkipWeekends
	} else {
		settings, err := r.schedule.GetSettings(ctx, projectID)
		switch {
		case err == nil:
			sc.calendar.Rule = settings.TransitionRule
			sc.calendar.SkipWeekends = settings.SkipWeekends
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	holidays, err := r.schedule.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	days := make([]time.Time, len(holidays))
	for i, h := range holidays {
		days[i] = h.Date
	}
	sc.calendar.Holidays = scheduler.HolidaySet(days)
	return sc, nil
}

func (sc *stageContext) stage(code domain.StageCode) (*domain.ProjectStage, error) {
	st, ok := sc.stages[code]
	if !ok {
		return nil, domain.NotFoundf("stage %s in project %s", code, sc.project.ID)
	}
	return st, nil
}

// transparent reports whether an optional stage is out of effect: the active
// plan has no dates for it, or there is no active plan and it never started.
func (sc *stageContext) transparent(st *domain.ProjectStage) bool {
	if st.Status == domain.StageSkipped {
		return true
	}
	if !sc.graph.IsOptional(st.StageCode) || st.Status == domain.StageCompleted {
		return false
	}
	if sc.activePlan != nil {
		return !sc.activePlan[st.StageCode].Scheduled()
	}
	return st.Status == domain.StageNotStarted
}

// flowState splits the project's stages into the completion and skip sets
// the flow calculations take.
func (sc *stageContext) flowState() (map[domain.StageCode]*time.Time, map[domain.StageCode]bool) {
	completed := make(map[domain.StageCode]*time.Time)
	skipped := make(map[domain.StageCode]bool)
	for code, st := range sc.stages {
		switch {
		case st.Status == domain.StageCompleted:
			completed[code] = st.CompletedOn
		case sc.transparent(st):
			skipped[code] = true
		}
	}
	return completed, skipped
}

func (sc *stageContext) evaluate(in ValidateInput, today time.Time) (*ValidationResult, error) {
	st, err := sc.stage(in.StageCode)
	if err != nil {
		return nil, err
	}
	res := &ValidationResult{CurrentStatus: st.Status}
	target := in.TargetDate
	if target != nil {
		target = domain.DayPtr(*target)
	}

	if in.RequestedStatus == domain.StageCompleted && target != nil && target.After(today) {
		res.addError(IssueFutureDate, false, "completion date %s cannot be in the future", target.Format(domain.DateLayout))
	}

	flow := scheduler.NewFlow(sc.graph, sc.calendar)
	completed, skipped := sc.flowState()
	res.MissingPredecessors = domain.SortedCodes(flow.MissingPredecessors(in.StageCode, completed, skipped))

	unblocking := st.Status == domain.StageBlocked && in.RequestedStatus == domain.StageInProgress
	gated := in.RequestedStatus == domain.StageCompleted || in.RequestedStatus == domain.StageInProgress
	if gated && !unblocking && len(res.MissingPredecessors) > 0 {
		res.addError(IssuePredecessorsIncomplete, true, "predecessors not completed: %s", domain.JoinCodes(res.MissingPredecessors))
	}

	autoStart, ready := flow.ComputeAutoStart(in.StageCode, completed, skipped)
	if ready && autoStart != nil {
		res.SuggestedAutoStart = autoStart
	} else if len(sc.graph.Predecessors(in.StageCode)) == 0 && sc.activePlan != nil {
		if p := sc.activePlan[in.StageCode]; p.PlannedStart != nil {
			res.SuggestedAutoStart = domain.DayPtr(*p.PlannedStart)
		}
	}

	if in.RequestedStatus == domain.StageCompleted && target != nil && autoStart != nil && target.Before(*autoStart) {
		res.addError(IssueBeforeAutoStart, true, "target date %s precedes latest predecessor completion (earliest %s)",
			target.Format(domain.DateLayout), autoStart.Format(domain.DateLayout))
	}

	if in.RequestedStatus == domain.StageCompleted && target == nil {
		res.addError(IssueDateRequired, false, "completion date is required")
	}

	if !in.RequestedStatus.Valid() || !domain.CanTransition(st.Status, in.RequestedStatus) {
		res.addError(IssueInvalidTransition, false, "cannot move stage %s from %s to %s", in.StageCode, st.Status, in.RequestedStatus)
	}

	if in.IsHoD && res.Forceable() {
		res.Warnings = append(res.Warnings, Issue{
			Code:    IssueForceAvailable,
			Message: "as HoD you may force this change with a direct apply",
		})
	}
	res.IsValid = len(res.Errors) == 0
	return res, nil
}
