package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Radar", testutil.WithHoD("dana"))
	require.NoError(t, repo.Create(ctx, proj))

	fetched, err := repo.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, proj.ID, fetched.ID)
	assert.Equal(t, "Radar", fetched.Name)
	assert.Equal(t, "v1", fetched.WorkflowVersion)
	assert.Equal(t, "dana", fetched.HodUserID)
	assert.Nil(t, fetched.ActivePlanVersionID)
	assert.True(t, proj.CreatedAt.Equal(fetched.CreatedAt))
}

func TestProjectRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewSQLiteProjectRepo(db)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestProjectRepo_ListAndUpdate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewSQLiteProjectRepo(db)
	ctx := context.Background()

	p1 := testutil.NewTestProject("First")
	p2 := testutil.NewTestProject("Second")
	require.NoError(t, repo.Create(ctx, p1))
	require.NoError(t, repo.Create(ctx, p2))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	active := "plan-1"
	p1.ActivePlanVersionID = &active
	p1.HodUserID = "erin"
	require.NoError(t, repo.Update(ctx, p1))

	fetched, err := repo.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.ActivePlanVersionID)
	assert.Equal(t, "plan-1", *fetched.ActivePlanVersionID)
	assert.Equal(t, "erin", fetched.HodUserID)

	missing := testutil.NewTestProject("Ghost")
	assert.True(t, errors.Is(repo.Update(ctx, missing), domain.ErrNotFound))
}

func TestProjectStageRepo_RoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	g := testutil.DefaultGraph(t)
	proj := testutil.NewTestProject("Stages")
	testutil.SeedProject(t, db, g, proj, map[domain.StageCode][]testutil.StageOption{
		"FS":  {testutil.AutoCompleted("IPA")},
		"IPA": {testutil.Started(testutil.Date(2026, 3, 2))},
	})
	repo := repository.NewSQLiteProjectStageRepo(db)

	stages, err := repo.ListByProject(ctx, proj.ID)
	require.NoError(t, err)
	require.Len(t, stages, len(g.Stages()))
	assert.Equal(t, domain.StageCode("FS"), stages[0].StageCode)
	assert.Equal(t, domain.StageCode("CLOSE"), stages[len(stages)-1].StageCode)

	fs := stages[0]
	assert.Equal(t, domain.StageCompleted, fs.Status)
	assert.True(t, fs.IsAutoCompleted)
	assert.True(t, fs.RequiresBackfill)
	require.NotNil(t, fs.AutoCompletedFromCode)
	assert.Equal(t, domain.StageCode("IPA"), *fs.AutoCompletedFromCode)
	assert.Nil(t, fs.CompletedOn)

	ipa, err := repo.Get(ctx, proj.ID, "IPA")
	require.NoError(t, err)
	assert.Equal(t, domain.StageInProgress, ipa.Status)
	assert.Equal(t, testutil.Date(2026, 3, 2), *ipa.ActualStart)

	ipa.Apply(domain.StageCompleted, testutil.DatePtr(2026, 3, 6), testutil.Today)
	require.NoError(t, repo.Update(ctx, ipa))
	ipa, err = repo.Get(ctx, proj.ID, "IPA")
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, ipa.Status)
	assert.Equal(t, testutil.Date(2026, 3, 6), *ipa.CompletedOn)

	_, err = repo.Get(ctx, proj.ID, "NOPE")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
