package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and display format for calendar dates.
const DateLayout = "2006-01-02"

type Project struct {
	ID                  string
	Name                string
	WorkflowVersion     string
	HodUserID           string
	ActivePlanVersionID *string
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Validationf("project name is required")
	}
	if p.WorkflowVersion == "" {
		return Validationf("workflow version is required")
	}
	return nil
}

// DisplayID truncates the project ID to 8 characters for display.
func (p *Project) DisplayID() string {
	if len(p.ID) >= 8 {
		return p.ID[:8]
	}
	return p.ID
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, ErrValidation)
	}
	return t, nil
}

// FormatDay renders a nullable date, or "-" when nil.
func FormatDay(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(DateLayout)
}

// DayPtr returns a pointer to the truncated date.
func DayPtr(t time.Time) *time.Time {
	d := Day(t)
	return &d
}
