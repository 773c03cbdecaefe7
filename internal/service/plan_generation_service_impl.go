package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/scheduler"
)

type planGenerationService struct {
	deps Deps
}

func NewPlanGenerationService(deps Deps) PlanGenerationService {
	return &planGenerationService{deps: deps.withDefaults()}
}

func (s *planGenerationService) SaveSettings(ctx context.Context, in ScheduleSettingsInput) (*domain.ScheduleSettings, error) {
	if in.AnchorDate.IsZero() {
		return nil, domain.Validationf("anchor date is required")
	}
	rule := in.TransitionRule
	if rule == "" {
		rule = domain.RuleNextWorkingDay
	}
	if rule != domain.RuleSameDay && rule != domain.RuleNextWorkingDay {
		return nil, domain.Validationf("unknown transition rule %q", rule)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings := &domain.ScheduleSettings{
		ProjectID:       in.ProjectID,
		AnchorStageCode: in.AnchorStageCode,
		AnchorDate:      domain.Day(in.AnchorDate),
		SkipWeekends:    in.SkipWeekends,
		TransitionRule:  rule,
		UpdatedAt:       s.deps.now(),
	}
	err := s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		project, err := r.projects.GetByID(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		g, err := s.deps.graphFor(project)
		if err != nil {
			return err
		}
		if !g.Has(in.AnchorStageCode) {
			return domain.NotFoundf("anchor stage %s in workflow %s", in.AnchorStageCode, g.Version())
		}
		return r.schedule.UpsertSettings(ctx, settings)
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *planGenerationService) SetDuration(ctx context.Context, in DurationInput) error {
	if in.DurationDays != nil && *in.DurationDays < 0 {
		return domain.Validationf("duration of %s cannot be negative", in.StageCode)
	}
	if in.OverrideStart != nil && in.OverrideDue != nil && in.OverrideStart.After(*in.OverrideDue) {
		return domain.Validationf("override start of %s is after its override due date", in.StageCode)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		project, err := r.projects.GetByID(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		g, err := s.deps.graphFor(project)
		if err != nil {
			return err
		}
		if !g.Has(in.StageCode) {
			return domain.NotFoundf("stage %s in workflow %s", in.StageCode, g.Version())
		}
		d := &domain.PlanDuration{
			ProjectID:    in.ProjectID,
			StageCode:    in.StageCode,
			DurationDays: in.DurationDays,
		}
		if in.OverrideStart != nil {
			d.OverrideStart = domain.DayPtr(*in.OverrideStart)
		}
		if in.OverrideDue != nil {
			d.OverrideDue = domain.DayPtr(*in.OverrideDue)
		}
		return r.schedule.UpsertDuration(ctx, d)
	})
}

func (s *planGenerationService) AddHoliday(ctx context.Context, day time.Time, name string) error {
	if day.IsZero() {
		return domain.Validationf("holiday date is required")
	}
	return s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return reposFor(tx).schedule.AddHoliday(ctx, domain.Holiday{Date: domain.Day(day), Name: strings.TrimSpace(name)})
	})
}

// Generate recomputes the caller's draft from the project's schedule
// settings, durations and holidays.
func (s *planGenerationService) Generate(ctx context.Context, projectID, userID string) (view *PlanView, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": projectID}
	defer func() {
		s.deps.observe(ctx, "plan-generate", startedAt, fields, err)
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
		settings, err := r.schedule.GetSettings(ctx, projectID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Validationf("project %s has no schedule settings", projectID)
		}
		if err != nil {
			return err
		}
		durations, err := r.schedule.ListDurations(ctx, projectID)
		if err != nil {
			return err
		}
		holidays, err := r.schedule.ListHolidays(ctx)
		if err != nil {
			return err
		}

		opts := buildPlanOptions(settings, durations, holidays)
		planned, err := scheduler.Compute(g, opts)
		if err != nil {
			return err
		}

		draft, err := getOrCreateDraft(ctx, r, g, project, userID, now)
		if err != nil {
			return err
		}
		stages, err := r.stages.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		for _, st := range stages {
			p := domain.StagePlan{PlanVersionID: draft.Version.ID, StageCode: st.StageCode}
			if iv, ok := planned[st.StageCode]; ok {
				start, due := iv.Start, iv.Due
				p.PlannedStart, p.PlannedDue = &start, &due
			}
			if err := r.plans.UpsertStagePlan(ctx, &p); err != nil {
				return err
			}
		}

		v := draft.Version
		anchor := opts.AnchorStageCode
		anchorDate := opts.AnchorDate
		v.AnchorStageCode = &anchor
		v.AnchorDate = &anchorDate
		v.SkipWeekends = opts.SkipWeekends
		v.TransitionRule = opts.TransitionRule
		v.PncApplicable = opts.PncApplicable
		v.UpdatedAt = now
		if err := r.plans.Update(ctx, v); err != nil {
			return err
		}

		view, err = loadPlanView(ctx, r, g, v)
		if err != nil {
			return err
		}
		view.Created = draft.Created
		fields["version_no"] = v.VersionNo
		fields["scheduled"] = len(planned)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generating plan: %w", err)
	}

	s.deps.record(ctx, audit.Entry{
		Action:    "plan.generate",
		Level:     slog.LevelInfo,
		UserID:    userID,
		ProjectID: projectID,
		Data:      map[string]any{"plan_version_id": view.Version.ID, "version_no": view.Version.VersionNo},
	})
	return view, nil
}

// buildPlanOptions maps persisted inputs to calculator options. PNC is
// applicable only when it has a positive duration.
func buildPlanOptions(settings *domain.ScheduleSettings, durations []domain.PlanDuration, holidays []domain.Holiday) scheduler.PlanOptions {
	opts := scheduler.PlanOptions{
		AnchorStageCode: settings.AnchorStageCode,
		AnchorDate:      settings.AnchorDate,
		SkipWeekends:    settings.SkipWeekends,
		TransitionRule:  settings.TransitionRule,
		Durations:       make(map[domain.StageCode]int, len(durations)),
		Overrides:       make(map[domain.StageCode]scheduler.Override),
	}
	for _, d := range durations {
		if d.DurationDays != nil {
			opts.Durations[d.StageCode] = *d.DurationDays
		}
		if d.OverrideStart != nil || d.OverrideDue != nil {
			opts.Overrides[d.StageCode] = scheduler.Override{EarliestStart: d.OverrideStart, EarliestDue: d.OverrideDue}
		}
	}
	opts.PncApplicable = opts.Durations[domain.StagePNC] > 0

	days := make([]time.Time, len(holidays))
	for i, h := range holidays {
		days[i] = h.Date
	}
	opts.Holidays = scheduler.HolidaySet(days)
	return opts
}
