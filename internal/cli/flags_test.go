package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValue(t *testing.T) {
	var d *time.Time
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	dateVar(fs, &d, "date", "")

	require.NoError(t, fs.Parse(nil))
	assert.Nil(t, d, "unset flags leave the target nil")

	require.NoError(t, fs.Parse([]string{"--date", "2026-03-10"}))
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *d)
	assert.Equal(t, "2026-03-10", fs.Lookup("date").Value.String())

	assert.Error(t, fs.Parse([]string{"--date", "10/03/2026"}))
}

func TestStatusValue(t *testing.T) {
	var s domain.StageStatus
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	statusVar(fs, &s, "to", "")

	require.NoError(t, fs.Parse([]string{"--to", "in_progress"}))
	assert.Equal(t, domain.StageInProgress, s)

	err := fs.Parse([]string{"--to", "done"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage status")
}

func TestBackfillEntries(t *testing.T) {
	var entries []service.BackfillUpdate
	v := &backfillEntries{entries: &entries}

	require.NoError(t, v.Set("fs,2025-11-03,2025-11-28"))
	require.NoError(t, v.Set("IPA,2025-12-01,2025-12-19, signed, late "))
	require.Len(t, entries, 2)

	assert.Equal(t, domain.StageCode("FS"), entries[0].StageCode)
	assert.Equal(t, time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC), *entries[0].ActualStart)
	assert.Empty(t, entries[0].Note)
	assert.Equal(t, "signed, late", entries[1].Note)
	assert.Equal(t, "[FS,2025-11-03,2025-11-28 IPA,2025-12-01,2025-12-19]", v.String())

	assert.Error(t, v.Set("SOW,2025-12-20"))
	err := v.Set("SOW,2025-12-20,someday")
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
	err = v.Set(",2025-12-20,2025-12-21")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Len(t, entries, 2)
}
