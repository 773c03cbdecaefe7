package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanVersionLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	v := &PlanVersion{VersionNo: 1, Status: PlanDraft}

	err := v.Approve("approver", now)
	assert.True(t, errors.Is(err, ErrConflict), "drafts cannot be approved")

	require.NoError(t, v.Submit("planner", now))
	assert.Equal(t, PlanPendingApproval, v.Status)
	assert.Equal(t, "planner", *v.SubmittedBy)

	err = v.Submit("planner", now)
	assert.True(t, errors.Is(err, ErrConflict))

	err = v.Approve("planner", now)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, PlanPendingApproval, v.Status)

	require.NoError(t, v.Approve("approver", now))
	assert.Equal(t, PlanApproved, v.Status)
	assert.Equal(t, "approver", *v.ApprovedBy)
	assert.Equal(t, now, *v.ApprovedOn)

	err = v.Reject("approver", "late", now)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestPlanVersionReject(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	v := &PlanVersion{VersionNo: 2, Status: PlanDraft}
	require.NoError(t, v.Submit("planner", now))

	require.NoError(t, v.Reject("approver", "dates too tight", now))
	assert.Equal(t, PlanRejected, v.Status)
	assert.Equal(t, "dates too tight", v.DecisionNote)
	assert.Equal(t, "approver", *v.RejectedBy)
	assert.Nil(t, v.ApprovedBy)
}

func TestStagePlanScheduled(t *testing.T) {
	d := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.True(t, StagePlan{PlannedStart: &d, PlannedDue: &d}.Scheduled())
	assert.False(t, StagePlan{PlannedStart: &d}.Scheduled())
	assert.False(t, StagePlan{}.Scheduled())
}

func TestStageChangeRequestDecide(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	r := &StageChangeRequest{ID: "r1", DecisionStatus: DecisionPending}

	err := r.Decide(DecisionPending, "hod", "", now)
	assert.True(t, errors.Is(err, ErrValidation))

	require.NoError(t, r.Decide(DecisionSuperseded, "hod", SupersededNote, now))
	assert.Equal(t, DecisionSuperseded, r.DecisionStatus)
	assert.Equal(t, "hod", *r.DecidedByUserID)

	err = r.Decide(DecisionApproved, "hod", "", now)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestNewChangeLog(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	s := &ProjectStage{ProjectID: "p1", StageCode: "IPA", Status: StageNotStarted}
	s.Apply(StageInProgress, nil, now)

	l := NewChangeLog(s, ActionApplied, StageNotStarted, "hod", "go", now)
	assert.Equal(t, "p1", l.ProjectID)
	assert.Equal(t, StageCode("IPA"), l.StageCode)
	assert.Equal(t, StageNotStarted, *l.FromStatus)
	assert.Equal(t, StageInProgress, *l.ToStatus)
	assert.Equal(t, Day(now), *l.ToActualStart)
	assert.Nil(t, l.ToCompletedOn)
	assert.Equal(t, "hod", l.ByUserID)
}
