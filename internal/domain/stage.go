package domain

import (
	"fmt"
	"time"
)

// ProjectStage is the live progress record of one workflow stage for a project.
type ProjectStage struct {
	ProjectID             string
	StageCode             StageCode
	SortOrder             int
	Status                StageStatus
	ActualStart           *time.Time
	CompletedOn           *time.Time
	RequiresBackfill      bool
	IsAutoCompleted       bool
	AutoCompletedFromCode *StageCode
	UpdatedAt             time.Time
}

// Apply moves the stage to status, stamping actual dates from date.
// The transition table is enforced by validation, not here; Apply only
// keeps the date fields coherent with the new status. Leaving Completed
// drops any inferred-completion provenance.
func (s *ProjectStage) Apply(status StageStatus, date *time.Time, now time.Time) {
	var day *time.Time
	if date != nil {
		day = DayPtr(*date)
	}
	if status != StageCompleted {
		s.RequiresBackfill = false
		s.IsAutoCompleted = false
		s.AutoCompletedFromCode = nil
	}
	switch status {
	case StageNotStarted:
		s.ActualStart = nil
		s.CompletedOn = nil
	case StageInProgress:
		// Resuming from Blocked keeps the original start unless a date is given.
		resumed := s.Status == StageBlocked && s.ActualStart != nil
		switch {
		case day != nil:
			s.ActualStart = day
		case !resumed:
			s.ActualStart = DayPtr(now)
		}
		s.CompletedOn = nil
	case StageCompleted:
		if day == nil {
			day = DayPtr(now)
		}
		s.CompletedOn = day
		if s.ActualStart == nil || s.ActualStart.After(*day) {
			s.ActualStart = day
		}
	case StageSkipped:
		s.ActualStart = nil
		s.CompletedOn = nil
	case StageBlocked:
		// keeps whatever actuals were recorded
	}
	s.Status = status
	s.UpdatedAt = now
}

// AwaitingBackfill reports an inferred completion still missing real dates.
func (s *ProjectStage) AwaitingBackfill() bool {
	return s.RequiresBackfill && s.Status == StageCompleted
}

// Backfill supplies real actual dates and erases inferred-completion provenance.
func (s *ProjectStage) Backfill(start, completed time.Time, now time.Time) error {
	if !s.AwaitingBackfill() {
		return Conflictf("stage %s does not require backfill", s.StageCode)
	}
	if start.After(completed) {
		return Validationf("stage %s: actual start %s is after completion %s",
			s.StageCode, start.Format(DateLayout), completed.Format(DateLayout))
	}
	s.ActualStart = DayPtr(start)
	s.CompletedOn = DayPtr(completed)
	s.RequiresBackfill = false
	s.IsAutoCompleted = false
	s.AutoCompletedFromCode = nil
	s.UpdatedAt = now
	return nil
}

// MarkAutoCompleted records a completion inferred from a later stage.
func (s *ProjectStage) MarkAutoCompleted(from StageCode, now time.Time) {
	s.Status = StageCompleted
	s.IsAutoCompleted = true
	s.AutoCompletedFromCode = &from
	s.RequiresBackfill = true
	s.UpdatedAt = now
}

// SetActuals overwrites actual dates on a stage that has started.
func (s *ProjectStage) SetActuals(start, completed *time.Time, now time.Time) error {
	switch s.Status {
	case StageInProgress, StageCompleted, StageBlocked:
	default:
		return Validationf("stage %s is %s; actuals can only be set once started", s.StageCode, s.Status)
	}
	if completed != nil && s.Status != StageCompleted {
		return Validationf("stage %s is not completed", s.StageCode)
	}
	effStart, effDone := s.ActualStart, s.CompletedOn
	if start != nil {
		effStart = start
	}
	if completed != nil {
		effDone = completed
	}
	if effStart != nil && effDone != nil && Day(*effStart).After(Day(*effDone)) {
		return Validationf("stage %s: actual start is after completion", s.StageCode)
	}
	if start != nil {
		s.ActualStart = DayPtr(*start)
	}
	if completed != nil {
		s.CompletedOn = DayPtr(*completed)
	}
	s.UpdatedAt = now
	return nil
}

func (s *ProjectStage) String() string {
	return fmt.Sprintf("%s[%s]", s.StageCode, s.Status)
}
