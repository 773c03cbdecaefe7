package scheduler

import (
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// HolidayFunc reports whether a date is a non-working holiday.
type HolidayFunc func(day time.Time) bool

// HolidaySet builds a HolidayFunc from a list of dates.
func HolidaySet(days []time.Time) HolidayFunc {
	if len(days) == 0 {
		return nil
	}
	set := make(map[time.Time]bool, len(days))
	for _, d := range days {
		set[domain.Day(d)] = true
	}
	return func(day time.Time) bool { return set[domain.Day(day)] }
}

// maxCalendarSkip bounds the forward walk when a holiday predicate never
// yields a working day.
const maxCalendarSkip = 366

// Calendar maps a predecessor's finish date to a successor's earliest start.
type Calendar struct {
	Rule         domain.TransitionRule
	SkipWeekends bool
	Holidays     HolidayFunc
}

// NextStart applies the transition rule to a finish date. SameDay never moves
// past the finish date; NextWorkingDay starts the following day and then
// skips weekends (when enabled) and holidays.
func (c Calendar) NextStart(finish time.Time) time.Time {
	d := domain.Day(finish)
	if c.Rule == domain.RuleSameDay {
		return d
	}
	d = d.AddDate(0, 0, 1)
	for i := 0; i < maxCalendarSkip && !c.IsWorkingDay(d); i++ {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// IsWorkingDay reports whether day is schedulable under this calendar.
func (c Calendar) IsWorkingDay(day time.Time) bool {
	if c.SkipWeekends {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	if c.Holidays != nil && c.Holidays(day) {
		return false
	}
	return true
}
