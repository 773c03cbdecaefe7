package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backfill(code domain.StageCode, start, completed string) BackfillUpdate {
	u := BackfillUpdate{StageCode: code}
	if start != "" {
		d, _ := domain.ParseDay(start)
		u.ActualStart = &d
	}
	if completed != "" {
		d, _ := domain.ParseDay(completed)
		u.CompletedOn = &d
	}
	return u
}

func TestBackfill_ClearsInferredProvenance(t *testing.T) {
	env := newTestEnv(t)
	p := createUnderwayProject(t, env, "BID")

	res, err := NewStageBackfillService(env.deps).Apply(context.Background(), p.ID, []BackfillUpdate{
		backfill("FS", "2025-11-03", "2025-11-28"),
		backfill("IPA", "2025-12-01", "2025-12-19"),
	}, "hod")
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount)
	assert.Equal(t, []domain.StageCode{"FS", "IPA"}, res.StageCodes)

	fs := env.stage(t, p.ID, "FS")
	assert.Equal(t, domain.StageCompleted, fs.Status)
	assert.False(t, fs.RequiresBackfill)
	assert.False(t, fs.IsAutoCompleted)
	assert.Nil(t, fs.AutoCompletedFromCode)
	assert.Equal(t, testutil.Date(2025, 11, 3), *fs.ActualStart)
	assert.Equal(t, testutil.Date(2025, 11, 28), *fs.CompletedOn)

	assert.True(t, env.stage(t, p.ID, "SOW").RequiresBackfill, "untouched stages still await backfill")

	logs := env.logs(t, p.ID, "IPA")
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionBackfill, logs[0].Action)
	assert.Equal(t, testutil.Date(2025, 12, 19), *logs[0].ToCompletedOn)
}

func TestBackfill_ErrorOrder(t *testing.T) {
	tests := []struct {
		name    string
		updates []BackfillUpdate
		kind    error
		codes   []domain.StageCode
	}{
		{
			name: "unknown codes win over every other failure",
			updates: []BackfillUpdate{
				backfill("XYZ", "2025-11-03", "2025-11-28"),
				backfill("FS", "2025-12-03", "2025-11-28"),
				backfill("BID", "2025-11-03", "2025-11-28"),
			},
			kind:  domain.ErrNotFound,
			codes: []domain.StageCode{"XYZ"},
		},
		{
			name: "bad dates win over ineligible stages",
			updates: []BackfillUpdate{
				backfill("FS", "2025-12-03", "2025-11-28"),
				backfill("IPA", "2026-03-01", "2026-04-01"),
				backfill("SOW", "", "2025-11-28"),
				backfill("BID", "2025-11-03", "2025-11-28"),
			},
			kind:  domain.ErrValidation,
			codes: []domain.StageCode{"FS", "IPA", "SOW"},
		},
		{
			name: "duplicate codes are invalid",
			updates: []BackfillUpdate{
				backfill("FS", "2025-11-03", "2025-11-28"),
				backfill("FS", "2025-11-04", "2025-11-28"),
			},
			kind:  domain.ErrValidation,
			codes: []domain.StageCode{"FS"},
		},
		{
			name: "stages not awaiting backfill",
			updates: []BackfillUpdate{
				backfill("FS", "2025-11-03", "2025-11-28"),
				backfill("BID", "2025-11-03", "2025-11-28"),
				backfill("TEC", "2025-11-03", "2025-11-28"),
			},
			kind:  domain.ErrConflict,
			codes: []domain.StageCode{"BID", "TEC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			p := createUnderwayProject(t, env, "BID")

			_, err := NewStageBackfillService(env.deps).Apply(context.Background(), p.ID, tt.updates, "hod")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var codesErr *domain.StageCodesError
			require.True(t, errors.As(err, &codesErr))
			assert.Equal(t, tt.codes, codesErr.Codes)

			assert.True(t, env.stage(t, p.ID, "FS").RequiresBackfill, "nothing written on failure")
			assert.Empty(t, env.logs(t, p.ID, "FS"))
		})
	}
}

func TestBackfill_Guards(t *testing.T) {
	env := newTestEnv(t)
	p := createUnderwayProject(t, env, "BID")
	svc := NewStageBackfillService(env.deps)
	ctx := context.Background()

	_, err := svc.Apply(ctx, p.ID, []BackfillUpdate{backfill("FS", "2025-11-03", "2025-11-28")}, "alice")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = svc.Apply(ctx, p.ID, nil, "hod")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Apply(ctx, "missing", []BackfillUpdate{backfill("FS", "2025-11-03", "2025-11-28")}, "hod")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBackfill_RollsBackPartialWrites(t *testing.T) {
	env := newTestEnv(t)
	p := createUnderwayProject(t, env, "BID")

	// Exec #1 updates FS, #2 logs it, #3 updates IPA.
	failUoW := &testutil.FailOnNthExecUoW{DB: env.db, FailOn: 3, Err: errors.New("disk full")}
	_, err := NewStageBackfillService(env.withUoW(failUoW)).Apply(context.Background(), p.ID, []BackfillUpdate{
		backfill("FS", "2025-11-03", "2025-11-28"),
		backfill("IPA", "2025-12-01", "2025-12-19"),
	}, "hod")
	require.Error(t, err)

	assert.True(t, env.stage(t, p.ID, "FS").RequiresBackfill)
	assert.Empty(t, env.logs(t, p.ID, "FS"))
}
