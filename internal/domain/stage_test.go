package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mar2  = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mar6  = time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	mar11 = time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
)

func newStage(status StageStatus) *ProjectStage {
	return &ProjectStage{ProjectID: "p1", StageCode: "FS", Status: status}
}

func TestProjectStageApply(t *testing.T) {
	t.Run("start stamps actual start and defaults to today", func(t *testing.T) {
		s := newStage(StageNotStarted)
		s.Apply(StageInProgress, nil, mar11)
		assert.Equal(t, StageInProgress, s.Status)
		assert.Equal(t, Day(mar11), *s.ActualStart)
		assert.Nil(t, s.CompletedOn)
		assert.Equal(t, mar11, s.UpdatedAt)
	})

	t.Run("completion keeps an earlier start", func(t *testing.T) {
		s := newStage(StageInProgress)
		s.ActualStart = DayPtr(mar2)
		s.Apply(StageCompleted, &mar6, mar11)
		assert.Equal(t, mar2, *s.ActualStart)
		assert.Equal(t, mar6, *s.CompletedOn)
	})

	t.Run("completion without a start uses the completion date", func(t *testing.T) {
		s := newStage(StageNotStarted)
		s.Apply(StageCompleted, &mar6, mar11)
		assert.Equal(t, mar6, *s.ActualStart)
		assert.Equal(t, mar6, *s.CompletedOn)
	})

	t.Run("blocked keeps actuals", func(t *testing.T) {
		s := newStage(StageInProgress)
		s.ActualStart = DayPtr(mar2)
		s.Apply(StageBlocked, nil, mar11)
		assert.Equal(t, mar2, *s.ActualStart)
	})

	t.Run("resuming from blocked keeps the original start", func(t *testing.T) {
		s := newStage(StageInProgress)
		s.ActualStart = DayPtr(mar2)
		s.Apply(StageBlocked, nil, mar6)
		s.Apply(StageInProgress, nil, mar11)
		assert.Equal(t, StageInProgress, s.Status)
		assert.Equal(t, mar2, *s.ActualStart)
	})

	t.Run("resuming from blocked with a date moves the start", func(t *testing.T) {
		s := newStage(StageBlocked)
		s.ActualStart = DayPtr(mar2)
		s.Apply(StageInProgress, &mar6, mar11)
		assert.Equal(t, mar6, *s.ActualStart)
	})

	t.Run("blocked before starting stamps today on resume", func(t *testing.T) {
		s := newStage(StageBlocked)
		s.Apply(StageInProgress, nil, mar11)
		assert.Equal(t, Day(mar11), *s.ActualStart)
	})

	t.Run("leaving completed drops inferred provenance", func(t *testing.T) {
		for _, to := range []StageStatus{StageSkipped, StageBlocked, StageNotStarted} {
			s := newStage(StageNotStarted)
			s.MarkAutoCompleted("BID", mar11)
			s.Apply(to, nil, mar11)
			assert.False(t, s.RequiresBackfill, to)
			assert.False(t, s.IsAutoCompleted, to)
			assert.Nil(t, s.AutoCompletedFromCode, to)

			err := s.Backfill(mar2, mar6, mar11)
			assert.True(t, errors.Is(err, ErrConflict), to)
			assert.Nil(t, s.CompletedOn, to)
		}
	})

	t.Run("reset and skip clear actuals", func(t *testing.T) {
		for _, to := range []StageStatus{StageNotStarted, StageSkipped} {
			s := newStage(StageInProgress)
			s.ActualStart = DayPtr(mar2)
			s.Apply(to, nil, mar11)
			assert.Nil(t, s.ActualStart, to)
			assert.Nil(t, s.CompletedOn, to)
		}
	})
}

func TestProjectStageBackfill(t *testing.T) {
	s := newStage(StageNotStarted)
	s.MarkAutoCompleted("BID", mar11)
	assert.Equal(t, StageCompleted, s.Status)
	assert.True(t, s.RequiresBackfill)
	require.NotNil(t, s.AutoCompletedFromCode)

	err := s.Backfill(mar6, mar2, mar11)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, s.RequiresBackfill, "failed backfill changes nothing")

	require.NoError(t, s.Backfill(mar2, mar6, mar11))
	assert.False(t, s.RequiresBackfill)
	assert.False(t, s.IsAutoCompleted)
	assert.Nil(t, s.AutoCompletedFromCode)
	assert.Equal(t, mar2, *s.ActualStart)
	assert.Equal(t, mar6, *s.CompletedOn)

	err = s.Backfill(mar2, mar6, mar11)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestProjectStageSetActuals(t *testing.T) {
	s := newStage(StageNotStarted)
	err := s.SetActuals(&mar2, nil, mar11)
	assert.True(t, errors.Is(err, ErrValidation), "not started")

	s = newStage(StageInProgress)
	s.ActualStart = DayPtr(mar6)
	err = s.SetActuals(nil, &mar6, mar11)
	assert.True(t, errors.Is(err, ErrValidation), "completion on an open stage")

	require.NoError(t, s.SetActuals(&mar2, nil, mar11))
	assert.Equal(t, mar2, *s.ActualStart)

	s = newStage(StageCompleted)
	s.ActualStart = DayPtr(mar2)
	s.CompletedOn = DayPtr(mar6)
	mar9 := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	err = s.SetActuals(&mar9, nil, mar11)
	assert.True(t, errors.Is(err, ErrValidation), "start after the recorded completion")
	assert.Equal(t, mar2, *s.ActualStart)
}
