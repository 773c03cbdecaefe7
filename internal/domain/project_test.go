package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectValidate(t *testing.T) {
	assert.NoError(t, (&Project{Name: "Radar", WorkflowVersion: "v1"}).Validate())

	err := (&Project{Name: "  ", WorkflowVersion: "v1"}).Validate()
	assert.True(t, errors.Is(err, ErrValidation))

	err = (&Project{Name: "Radar"}).Validate()
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDisplayID(t *testing.T) {
	p := &Project{ID: "550e8400-e29b-41d4-a716-446655440000"}
	assert.Equal(t, "550e8400", p.DisplayID())

	p = &Project{ID: "short"}
	assert.Equal(t, "short", p.DisplayID())
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay(" 2026-03-11 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDay("11/03/2026")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDayHelpers(t *testing.T) {
	ts := time.Date(2026, 3, 11, 17, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), Day(ts))
	assert.Equal(t, "2026-03-11", FormatDay(DayPtr(ts)))
	assert.Equal(t, "-", FormatDay(nil))
}

func TestStageCodes(t *testing.T) {
	assert.Equal(t, StageCode("PNC"), NewStageCode(" pnc "))

	_, err := ParseStageCode("  ")
	assert.True(t, errors.Is(err, ErrValidation))

	in := []StageCode{"SOW", "FS", "IPA"}
	assert.Equal(t, []StageCode{"FS", "IPA", "SOW"}, SortedCodes(in))
	assert.Equal(t, StageCode("SOW"), in[0], "input is not reordered")
	assert.Equal(t, "FS, IPA", JoinCodes([]StageCode{"FS", "IPA"}))
}

func TestStageCodesError(t *testing.T) {
	err := NewStageCodesError(ErrConflict, "stages do not require backfill", []StageCode{"TEC", "BID"})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, []StageCode{"BID", "TEC"}, err.Codes)
	assert.Equal(t, "conflict: stages do not require backfill (BID, TEC)", err.Error())

	var target *StageCodesError
	wrapped := errors.Join(errors.New("outer"), err)
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, err, target)
}
