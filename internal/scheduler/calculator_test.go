package scheduler

import (
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func procurementGraph(t *testing.T) *workflow.Graph {
	t.Helper()
	reg, err := workflow.DefaultRegistry()
	require.NoError(t, err)
	g, err := reg.Graph(workflow.DefaultVersion)
	require.NoError(t, err)
	return g
}

// requiredDurations gives every required stage the same duration.
func requiredDurations(g *workflow.Graph, days int) map[domain.StageCode]int {
	out := make(map[domain.StageCode]int)
	for _, s := range g.Stages() {
		if !s.Optional {
			out[s.Code] = days
		}
	}
	return out
}

func baseOptions(g *workflow.Graph) PlanOptions {
	return PlanOptions{
		AnchorStageCode: "IPA",
		AnchorDate:      day("2024-01-05"),
		SkipWeekends:    true,
		TransitionRule:  domain.RuleNextWorkingDay,
		Durations:       requiredDurations(g, 1),
	}
}

func TestCompute_WeekendSkipLandsOnMonday(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g) // IPA anchored on Friday 2024-01-05, 1 day each

	plan, err := Compute(g, opts)
	require.NoError(t, err)

	assert.Equal(t, day("2024-01-05"), plan["IPA"].Start)
	assert.Equal(t, day("2024-01-05"), plan["IPA"].Due)
	assert.Equal(t, day("2024-01-08"), plan["SOW"].Start, "SOW must skip the weekend")
	assert.Equal(t, time.Monday, plan["SOW"].Start.Weekday())

	for code, iv := range plan {
		if code == "IPA" {
			continue
		}
		assert.NotEqual(t, time.Saturday, iv.Start.Weekday(), "stage %s starts on Saturday", code)
		assert.NotEqual(t, time.Sunday, iv.Start.Weekday(), "stage %s starts on Sunday", code)
	}
}

func TestCompute_NextWorkingDayWithoutWeekendSkip(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.SkipWeekends = false

	plan, err := Compute(g, opts)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-06"), plan["SOW"].Start)
}

func TestCompute_HolidaySkip(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.Holidays = HolidaySet([]time.Time{day("2024-01-08")})

	plan, err := Compute(g, opts)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-09"), plan["SOW"].Start)
}

func TestCompute_SameDayChaining(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.TransitionRule = domain.RuleSameDay
	opts.AnchorDate = day("2024-02-01")
	opts.Durations["IPA"] = 3

	plan, err := Compute(g, opts)
	require.NoError(t, err)

	assert.Equal(t, day("2024-02-03"), plan["IPA"].Due)
	assert.Equal(t, plan["IPA"].Due, plan["SOW"].Start)
}

func TestCompute_SameDayNeverAdvancesPastWeekend(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.TransitionRule = domain.RuleSameDay
	opts.Durations["IPA"] = 2 // due Saturday 2024-01-06

	plan, err := Compute(g, opts)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-06"), plan["SOW"].Start)
}

func TestCompute_PncNotApplicableSkipsThrough(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.SkipWeekends = false
	opts.PncApplicable = false
	opts.Durations[domain.StagePNC] = 5

	plan, err := Compute(g, opts)
	require.NoError(t, err)

	_, hasPNC := plan[domain.StagePNC]
	assert.False(t, hasPNC, "PNC must be excluded when not applicable")
	assert.Equal(t, plan[domain.StageCOB].Due.AddDate(0, 0, 1), plan[domain.StageEAS].Start)
}

func TestCompute_PncApplicable(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.SkipWeekends = false
	opts.PncApplicable = true
	opts.Durations[domain.StagePNC] = 5

	plan, err := Compute(g, opts)
	require.NoError(t, err)

	pnc, ok := plan[domain.StagePNC]
	require.True(t, ok)
	assert.Equal(t, plan[domain.StageCOB].Due.AddDate(0, 0, 1), pnc.Start)
	assert.Equal(t, pnc.Start.AddDate(0, 0, 4), pnc.Due)
	assert.Equal(t, pnc.Due.AddDate(0, 0, 1), plan[domain.StageEAS].Start)
}

func TestCompute_PncApplicableWithoutDurationIsExcluded(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.PncApplicable = true

	plan, err := Compute(g, opts)
	require.NoError(t, err)
	_, hasPNC := plan[domain.StagePNC]
	assert.False(t, hasPNC)
}

func TestCompute_AncestorsOfAnchorAreNotScheduled(t *testing.T) {
	g := procurementGraph(t)
	plan, err := Compute(g, baseOptions(g))
	require.NoError(t, err)
	_, hasFS := plan["FS"]
	assert.False(t, hasFS)
}

func TestCompute_ManualOverrideFloor(t *testing.T) {
	g := procurementGraph(t)

	t.Run("later override wins", func(t *testing.T) {
		opts := baseOptions(g)
		later := day("2024-01-15")
		opts.Overrides = map[domain.StageCode]Override{"SOW": {EarliestStart: &later}}

		plan, err := Compute(g, opts)
		require.NoError(t, err)
		assert.Equal(t, later, plan["SOW"].Start)
		assert.Equal(t, later, plan["SOW"].Due)
		assert.True(t, plan["AON"].Start.After(later), "successors follow the overridden stage")
	})

	t.Run("earlier override ignored", func(t *testing.T) {
		opts := baseOptions(g)
		earlier := day("2024-01-01")
		opts.Overrides = map[domain.StageCode]Override{"SOW": {EarliestStart: &earlier}}

		plan, err := Compute(g, opts)
		require.NoError(t, err)
		assert.Equal(t, day("2024-01-08"), plan["SOW"].Start)
	})

	t.Run("earliest due extends stage", func(t *testing.T) {
		opts := baseOptions(g)
		due := day("2024-01-12")
		opts.Overrides = map[domain.StageCode]Override{"SOW": {EarliestDue: &due}}

		plan, err := Compute(g, opts)
		require.NoError(t, err)
		assert.Equal(t, day("2024-01-08"), plan["SOW"].Start)
		assert.Equal(t, due, plan["SOW"].Due)
	})
}

func TestCompute_LatestPredecessorWins(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.SkipWeekends = false
	opts.Durations["PAY"] = 2
	opts.Durations["TOT"] = 9

	plan, err := Compute(g, opts)
	require.NoError(t, err)

	pay, tot := plan["PAY"], plan["TOT"]
	assert.Equal(t, pay.Start, tot.Start, "parallel group members start together")
	assert.True(t, tot.Due.After(pay.Due))
	assert.Equal(t, tot.Due.AddDate(0, 0, 1), plan["CLOSE"].Start)
}

func TestCompute_LatestPredecessorWinsRegardlessOfListingOrder(t *testing.T) {
	g, err := workflow.Load(&workflow.Definition{
		Version: "diamond",
		Stages: []workflow.StageConfig{
			{Code: "A", Sequence: 1},
			{Code: "LONG", Sequence: 2, ParallelGroup: "p"},
			{Code: "SHORT", Sequence: 3, ParallelGroup: "p"},
			{Code: "Z", Sequence: 4},
		},
		Dependencies: []workflow.DependencyConfig{
			{Stage: "LONG", DependsOn: "A"},
			{Stage: "SHORT", DependsOn: "A"},
			{Stage: "Z", DependsOn: "SHORT"},
			{Stage: "Z", DependsOn: "LONG"},
		},
	})
	require.NoError(t, err)

	plan, err := Compute(g, PlanOptions{
		AnchorStageCode: "A",
		AnchorDate:      day("2024-04-01"),
		TransitionRule:  domain.RuleSameDay,
		Durations:       map[domain.StageCode]int{"A": 1, "LONG": 10, "SHORT": 2, "Z": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, plan["LONG"].Due, plan["Z"].Start)
}

func TestCompute_Deterministic(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.Durations[domain.StagePNC] = 3
	opts.PncApplicable = true

	first, err := Compute(g, opts)
	require.NoError(t, err)
	second, err := Compute(g, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompute_MissingRequiredDuration(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	delete(opts.Durations, "SO")
	opts.Durations["DEV"] = 0

	_, err := Compute(g, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var codesErr *domain.StageCodesError
	require.ErrorAs(t, err, &codesErr)
	assert.Equal(t, []domain.StageCode{"DEV", "SO"}, codesErr.Codes)
}

func TestCompute_UnknownAnchor(t *testing.T) {
	g := procurementGraph(t)
	opts := baseOptions(g)
	opts.AnchorStageCode = "NOPE"
	_, err := Compute(g, opts)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompute_CaseInsensitiveDurations(t *testing.T) {
	g := procurementGraph(t)
	raw := map[string]int{}
	for code, d := range requiredDurations(g, 1) {
		raw[string(code)] = d
	}
	delete(raw, "SOW")
	raw["sow"] = 4

	opts := baseOptions(g)
	opts.Durations = DurationsFromStrings(raw)

	plan, err := Compute(g, opts)
	require.NoError(t, err)
	assert.Equal(t, plan["SOW"].Start.AddDate(0, 0, 3), plan["SOW"].Due)
}

func TestCalendar_NextStart(t *testing.T) {
	cases := []struct {
		name   string
		cal    Calendar
		finish string
		want   string
	}{
		{"same day", Calendar{Rule: domain.RuleSameDay, SkipWeekends: true}, "2024-01-06", "2024-01-06"},
		{"next day weekday", Calendar{Rule: domain.RuleNextWorkingDay, SkipWeekends: true}, "2024-01-03", "2024-01-04"},
		{"friday to monday", Calendar{Rule: domain.RuleNextWorkingDay, SkipWeekends: true}, "2024-01-05", "2024-01-08"},
		{"saturday to monday", Calendar{Rule: domain.RuleNextWorkingDay, SkipWeekends: true}, "2024-01-06", "2024-01-08"},
		{"no weekend skip", Calendar{Rule: domain.RuleNextWorkingDay}, "2024-01-05", "2024-01-06"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, day(tc.want), tc.cal.NextStart(day(tc.finish)))
		})
	}
}
