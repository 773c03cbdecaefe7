package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/notify"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestFSStart(t *testing.T, env *testEnv, projectID string) *RequestOutcome {
	t.Helper()
	out, err := NewStageRequestService(env.deps).Create(context.Background(), CreateRequestInput{
		ProjectID:       projectID,
		StageCode:       "FS",
		RequestedStatus: domain.StageInProgress,
		RequestedDate:   testutil.DatePtr(2026, 3, 10),
		Note:            "  kickoff held  ",
	}, "alice")
	require.NoError(t, err)
	return out
}

func TestStageRequest_Create(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)

	out := requestFSStart(t, env, p.ID)
	require.Equal(t, OutcomeSuccess, out.Kind)
	require.NotNil(t, out.Request)
	assert.Equal(t, domain.DecisionPending, out.Request.DecisionStatus)
	assert.Equal(t, "kickoff held", out.Request.Note)
	assert.Equal(t, int64(1), out.Request.RowVersion)

	// The stage itself is untouched until a decision.
	assert.Equal(t, domain.StageNotStarted, env.stage(t, p.ID, "FS").Status)

	logs := env.logs(t, p.ID, "FS")
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionRequested, logs[0].Action)
	assert.Equal(t, domain.StageNotStarted, *logs[0].FromStatus)
	assert.Equal(t, domain.StageInProgress, *logs[0].ToStatus)
	require.NotNil(t, logs[0].ToActualStart)
	assert.Equal(t, testutil.Date(2026, 3, 10), *logs[0].ToActualStart)

	notes := env.pending(t, "hod")
	require.Len(t, notes, 1)
	assert.Equal(t, notify.KindStageRequested, notes[0].Kind)
	assert.Equal(t, "FS", notes[0].Payload["stage"])

	recs := env.audits(t)
	require.NotEmpty(t, recs)
	assert.Equal(t, "stage.request", recs[0].Action)
	assert.Equal(t, p.ID, recs[0].ProjectID)
}

func TestStageRequest_DuplicatePending(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)

	first := requestFSStart(t, env, p.ID)
	require.Equal(t, OutcomeSuccess, first.Kind)

	second := requestFSStart(t, env, p.ID)
	assert.Equal(t, OutcomeDuplicatePending, second.Kind)
	require.NotNil(t, second.Request)
	assert.Equal(t, first.Request.ID, second.Request.ID)

	pending, err := NewStageRequestService(env.deps).ListPending(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Len(t, env.logs(t, p.ID, "FS"), 1, "duplicate must not log")
}

func TestStageRequest_ValidationFailedStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)

	out, err := NewStageRequestService(env.deps).Create(context.Background(), CreateRequestInput{
		ProjectID:       p.ID,
		StageCode:       "IPA",
		RequestedStatus: domain.StageCompleted,
		RequestedDate:   testutil.DatePtr(2026, 3, 10),
	}, "alice")
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidationFailed, out.Kind)
	assert.Nil(t, out.Request)
	assert.True(t, out.Validation.HasError(IssuePredecessorsIncomplete))

	requests, err := repository.NewSQLiteStageRequestRepo(env.db).ListByStage(context.Background(), p.ID, "IPA")
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.Empty(t, env.logs(t, p.ID, "IPA"))
	assert.Empty(t, env.pending(t, "hod"))
}

func TestStageRequest_CreateRequiresRequester(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)

	_, err := NewStageRequestService(env.deps).Create(context.Background(), CreateRequestInput{
		ProjectID: p.ID, StageCode: "FS", RequestedStatus: domain.StageInProgress,
	}, " ")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestStageRequest_ApproveAppliesTransition(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)
	created := requestFSStart(t, env, p.ID)

	out, err := NewStageRequestService(env.deps).Decide(context.Background(), DecideInput{
		RequestID:  created.Request.ID,
		Approve:    true,
		Note:       "ok",
		RowVersion: created.Request.RowVersion,
	}, "hod")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, domain.DecisionApproved, out.Request.DecisionStatus)

	st := env.stage(t, p.ID, "FS")
	assert.Equal(t, domain.StageInProgress, st.Status)
	require.NotNil(t, st.ActualStart)
	assert.Equal(t, testutil.Date(2026, 3, 10), *st.ActualStart)

	assert.Equal(t, []domain.ChangeAction{domain.ActionRequested, domain.ActionApplied}, logActions(env.logs(t, p.ID, "FS")))

	notes := env.pending(t, "alice")
	require.Len(t, notes, 1)
	assert.Equal(t, notify.KindStageDecided, notes[0].Kind)
	assert.Equal(t, string(domain.DecisionApproved), notes[0].Payload["decision"])
}

func TestStageRequest_RejectLeavesStage(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)
	created := requestFSStart(t, env, p.ID)
	svc := NewStageRequestService(env.deps)
	ctx := context.Background()

	out, err := svc.Decide(ctx, DecideInput{RequestID: created.Request.ID, Note: "not yet"}, "hod")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionRejected, out.Request.DecisionStatus)
	assert.Equal(t, "not yet", out.Request.DecisionNote)
	assert.Equal(t, domain.StageNotStarted, env.stage(t, p.ID, "FS").Status)
	assert.Len(t, env.logs(t, p.ID, "FS"), 1)

	_, err = svc.Decide(ctx, DecideInput{RequestID: created.Request.ID, Approve: true}, "hod")
	assert.True(t, errors.Is(err, domain.ErrConflict), "decided requests are final")
}

func TestStageRequest_DecideGuards(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)
	created := requestFSStart(t, env, p.ID)
	svc := NewStageRequestService(env.deps)
	ctx := context.Background()

	_, err := svc.Decide(ctx, DecideInput{RequestID: created.Request.ID, Approve: true}, "alice")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = svc.Decide(ctx, DecideInput{RequestID: created.Request.ID, Approve: true, RowVersion: 7}, "hod")
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = svc.Decide(ctx, DecideInput{RequestID: "missing", Approve: true}, "hod")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStageRequest_SupersededCannotBeApproved(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, nil)
	created := requestFSStart(t, env, p.ID)
	ctx := context.Background()

	// FS moves on by direct apply; the pending request is superseded, so
	// approving it afterwards is a conflict.
	_, err := NewStageDirectApplyService(env.deps).Apply(ctx, DirectApplyInput{
		ProjectID: p.ID, StageCode: "FS", Status: domain.StageBlocked,
	}, "hod")
	require.NoError(t, err)

	_, err = NewStageRequestService(env.deps).Decide(ctx, DecideInput{RequestID: created.Request.ID, Approve: true}, "hod")
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestStageRequest_ApproveRevalidates(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, map[domain.StageCode][]testutil.StageOption{"FS": {testutil.Completed(testutil.Date(2026, 3, 2))}})
	ctx := context.Background()

	created, err := NewStageRequestService(env.deps).Create(ctx, CreateRequestInput{
		ProjectID: p.ID, StageCode: "IPA", RequestedStatus: domain.StageInProgress, RequestedDate: testutil.DatePtr(2026, 3, 10),
	}, "alice")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, created.Kind)

	_, err = NewStageDirectApplyService(env.deps).Apply(ctx, DirectApplyInput{
		ProjectID: p.ID, StageCode: "FS", Status: domain.StageBlocked,
	}, "hod")
	require.NoError(t, err)

	out, err := NewStageRequestService(env.deps).Decide(ctx, DecideInput{RequestID: created.Request.ID, Approve: true}, "hod")
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidationFailed, out.Kind)
	assert.Equal(t, []domain.StageCode{"FS"}, out.Validation.MissingPredecessors)
	assert.Equal(t, domain.DecisionPending, out.Request.DecisionStatus)
	assert.Equal(t, domain.StageNotStarted, env.stage(t, p.ID, "IPA").Status)
}
