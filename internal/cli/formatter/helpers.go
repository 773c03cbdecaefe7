package formatter

import (
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// Date renders a nullable calendar date, dimming the placeholder.
func Date(t *time.Time) string {
	if t == nil {
		return Dim("-")
	}
	return t.Format(domain.DateLayout)
}

// Timestamp renders an instant in UTC to the minute.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// Truncate shortens s to n visible characters, ending with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// Codes renders stage codes as a comma separated list, or "-" when empty.
func Codes(codes []domain.StageCode) string {
	if len(codes) == 0 {
		return Dim("-")
	}
	return domain.JoinCodes(codes)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
