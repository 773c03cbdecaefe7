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

func TestScheduleRepo_Settings(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	proj := testutil.NewTestProject("Calendar")
	require.NoError(t, repository.NewSQLiteProjectRepo(db).Create(ctx, proj))
	repo := repository.NewSQLiteScheduleRepo(db)

	_, err := repo.GetSettings(ctx, proj.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	s := &domain.ScheduleSettings{
		ProjectID:       proj.ID,
		AnchorStageCode: "FS",
		AnchorDate:      testutil.Date(2026, 3, 2),
		SkipWeekends:    true,
		TransitionRule:  domain.RuleNextWorkingDay,
		UpdatedAt:       testutil.Today,
	}
	require.NoError(t, repo.UpsertSettings(ctx, s))

	s.AnchorStageCode = "BID"
	s.SkipWeekends = false
	s.TransitionRule = domain.RuleSameDay
	require.NoError(t, repo.UpsertSettings(ctx, s))

	got, err := repo.GetSettings(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCode("BID"), got.AnchorStageCode)
	assert.Equal(t, testutil.Date(2026, 3, 2), got.AnchorDate)
	assert.False(t, got.SkipWeekends)
	assert.Equal(t, domain.RuleSameDay, got.TransitionRule)
}

func TestScheduleRepo_Durations(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	proj := testutil.NewTestProject("Durations")
	require.NoError(t, repository.NewSQLiteProjectRepo(db).Create(ctx, proj))
	repo := repository.NewSQLiteScheduleRepo(db)

	five, three := 5, 3
	require.NoError(t, repo.UpsertDuration(ctx, &domain.PlanDuration{ProjectID: proj.ID, StageCode: "IPA", DurationDays: &five}))
	require.NoError(t, repo.UpsertDuration(ctx, &domain.PlanDuration{
		ProjectID: proj.ID, StageCode: "FS", DurationDays: &three,
		OverrideStart: testutil.DatePtr(2026, 3, 9),
	}))
	require.NoError(t, repo.UpsertDuration(ctx, &domain.PlanDuration{ProjectID: proj.ID, StageCode: "IPA", DurationDays: &three}))

	got, err := repo.ListDurations(ctx, proj.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.StageCode("FS"), got[0].StageCode)
	assert.Equal(t, 3, *got[0].DurationDays)
	assert.Equal(t, testutil.Date(2026, 3, 9), *got[0].OverrideStart)
	assert.Nil(t, got[0].OverrideDue)
	assert.Equal(t, 3, *got[1].DurationDays)
}

func TestScheduleRepo_Holidays(t *testing.T) {
	repo := repository.NewSQLiteScheduleRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AddHoliday(ctx, domain.Holiday{Date: testutil.Date(2026, 12, 25), Name: "Christmas"}))
	require.NoError(t, repo.AddHoliday(ctx, domain.Holiday{Date: testutil.Date(2026, 4, 3), Name: "Good Friday"}))
	require.NoError(t, repo.AddHoliday(ctx, domain.Holiday{Date: testutil.Date(2026, 12, 25), Name: "Christmas Day"}))

	got, err := repo.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, testutil.Date(2026, 4, 3), got[0].Date)
	assert.Equal(t, "Christmas Day", got[1].Name)
}
