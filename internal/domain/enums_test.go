package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to StageStatus
		want     bool
	}{
		{StageNotStarted, StageInProgress, true},
		{StageNotStarted, StageCompleted, true},
		{StageNotStarted, StageSkipped, true},
		{StageInProgress, StageNotStarted, true},
		{StageInProgress, StageCompleted, true},
		{StageBlocked, StageInProgress, true},
		{StageBlocked, StageCompleted, false},
		{StageSkipped, StageNotStarted, true},
		{StageSkipped, StageInProgress, false},
		{StageCompleted, StageBlocked, true},
		{StageCompleted, StageInProgress, false},
		{StageCompleted, StageNotStarted, false},
		{StageInProgress, StageInProgress, false},
		{StageCompleted, StageCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseStageStatus(t *testing.T) {
	for in, want := range map[string]StageStatus{
		"InProgress":  StageInProgress,
		"in_progress": StageInProgress,
		"completed":   StageCompleted,
		" Blocked ":   StageBlocked,
		"not_started": StageNotStarted,
	} {
		got, err := ParseStageStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid())
	}

	_, err := ParseStageStatus("done")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, StageStatus("done").Valid())
}

func TestParseTransitionRule(t *testing.T) {
	r, err := ParseTransitionRule("same_day")
	require.NoError(t, err)
	assert.Equal(t, RuleSameDay, r)

	r, err = ParseTransitionRule("")
	require.NoError(t, err)
	assert.Equal(t, RuleNextWorkingDay, r)

	_, err = ParseTransitionRule("weekly")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("hod")
	require.NoError(t, err)
	assert.Equal(t, RoleHoD, r)

	_, err = ParseRole("admin")
	assert.True(t, errors.Is(err, ErrValidation))
}
