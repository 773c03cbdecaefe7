package scheduler

import (
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
)

// Override is a manual floor on a stage's planned dates.
type Override struct {
	EarliestStart *time.Time
	EarliestDue   *time.Time
}

// PlanOptions are the inputs of a plan computation. Durations are in
// calendar days; keys are StageCodes and therefore case-insensitive.
type PlanOptions struct {
	AnchorStageCode domain.StageCode
	AnchorDate      time.Time
	SkipWeekends    bool
	TransitionRule  domain.TransitionRule
	PncApplicable   bool
	Durations       map[domain.StageCode]int
	Overrides       map[domain.StageCode]Override
	Holidays        HolidayFunc
}

// PlannedInterval is an inclusive planned date range.
type PlannedInterval struct {
	Start time.Time
	Due   time.Time
}

// DurationsFromStrings normalizes free-form stage code keys.
func DurationsFromStrings(in map[string]int) map[domain.StageCode]int {
	out := make(map[domain.StageCode]int, len(in))
	for k, v := range in {
		out[domain.NewStageCode(k)] = v
	}
	return out
}

func (o PlanOptions) calendar() Calendar {
	return Calendar{Rule: o.TransitionRule, SkipWeekends: o.SkipWeekends, Holidays: o.Holidays}
}

func (o PlanOptions) duration(code domain.StageCode) (int, bool) {
	for k, v := range o.Durations {
		if domain.NewStageCode(string(k)) == code {
			return v, true
		}
	}
	return 0, false
}

func (o PlanOptions) override(code domain.StageCode) (Override, bool) {
	for k, v := range o.Overrides {
		if domain.NewStageCode(string(k)) == code {
			return v, true
		}
	}
	return Override{}, false
}

// Applicable reports whether code takes part in scheduling. Ancestors of the
// anchor are never scheduled; an optional stage is scheduled only when it has
// a positive duration (and, for PNC, when PncApplicable is set).
func Applicable(g *workflow.Graph, opts PlanOptions, code domain.StageCode) bool {
	stage, ok := g.Stage(code)
	if !ok {
		return false
	}
	if code != opts.AnchorStageCode && g.Ancestors(opts.AnchorStageCode)[code] {
		return false
	}
	if !stage.Optional {
		return true
	}
	if code == domain.StagePNC && !opts.PncApplicable {
		return false
	}
	d, ok := opts.duration(code)
	return ok && d > 0
}

// Compute returns the planned interval of every schedulable stage. Stages
// that are not applicable are absent from the result. It is a pure function
// of its inputs.
func Compute(g *workflow.Graph, opts PlanOptions) (map[domain.StageCode]PlannedInterval, error) {
	anchor, ok := g.Stage(opts.AnchorStageCode)
	if !ok {
		return nil, domain.Validationf("unknown anchor stage %q", opts.AnchorStageCode)
	}
	if opts.AnchorDate.IsZero() {
		return nil, domain.Validationf("anchor date is required")
	}

	excluded := g.Ancestors(anchor.Code)
	applicable := make(map[domain.StageCode]bool)
	var missing []domain.StageCode
	for _, s := range g.Stages() {
		if excluded[s.Code] {
			continue
		}
		if s.Optional && !Applicable(g, opts, s.Code) {
			if s.Code == anchor.Code {
				missing = append(missing, s.Code)
			}
			continue
		}
		if d, ok := opts.duration(s.Code); !ok || d <= 0 {
			missing = append(missing, s.Code)
			continue
		}
		applicable[s.Code] = true
	}
	if len(missing) > 0 {
		return nil, domain.NewStageCodesError(domain.ErrValidation, "a positive duration is required", missing)
	}

	cal := opts.calendar()
	anchorDate := domain.Day(opts.AnchorDate)
	out := make(map[domain.StageCode]PlannedInterval, len(applicable))

	for _, s := range g.Stages() {
		if !applicable[s.Code] {
			continue
		}

		start := anchorDate
		if s.Code != anchor.Code {
			if latest, found := latestFinish(g, s.Code, out, map[domain.StageCode]bool{}); found {
				start = cal.NextStart(latest)
			}
		}

		ov, hasOverride := opts.override(s.Code)
		if hasOverride && ov.EarliestStart != nil {
			if floor := domain.Day(*ov.EarliestStart); floor.After(start) {
				start = floor
			}
		}

		dur, _ := opts.duration(s.Code)
		due := start.AddDate(0, 0, dur-1)
		if hasOverride && ov.EarliestDue != nil {
			if floor := domain.Day(*ov.EarliestDue); floor.After(due) {
				due = floor
			}
		}

		out[s.Code] = PlannedInterval{Start: start, Due: due}
	}
	return out, nil
}

// latestFinish returns the latest due date among the scheduled predecessors
// of code, looking through predecessors that are not scheduled.
func latestFinish(g *workflow.Graph, code domain.StageCode, planned map[domain.StageCode]PlannedInterval, seen map[domain.StageCode]bool) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, p := range g.Predecessors(code) {
		if seen[p] {
			continue
		}
		seen[p] = true

		var finish time.Time
		var ok bool
		if iv, scheduled := planned[p]; scheduled {
			finish, ok = iv.Due, true
		} else {
			finish, ok = latestFinish(g, p, planned, seen)
		}
		if ok && (!found || finish.After(latest)) {
			latest, found = finish, true
		}
	}
	return latest, found
}
