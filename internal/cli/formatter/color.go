package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  lipgloss.Style
	StyleYellow lipgloss.Style
	StyleRed    lipgloss.Style
	StyleBlue   lipgloss.Style
	StylePurple lipgloss.Style
	StyleDim    lipgloss.Style
	StyleFg     lipgloss.Style
	StyleHeader lipgloss.Style
	StyleBold   lipgloss.Style
)

func init() { SetColor(true) }

// SetColor switches every style between the palette and plain text.
// Bold survives in plain mode.
func SetColor(enabled bool) {
	fg := func(c lipgloss.Color) lipgloss.Style {
		if !enabled {
			return lipgloss.NewStyle()
		}
		return lipgloss.NewStyle().Foreground(c)
	}
	StyleGreen = fg(ColorGreen)
	StyleYellow = fg(ColorYellow)
	StyleRed = fg(ColorRed)
	StyleBlue = fg(ColorBlue)
	StylePurple = fg(ColorPurple)
	StyleDim = fg(ColorDim)
	StyleFg = fg(ColorFg)
	StyleHeader = fg(ColorHeader).Bold(true)
	StyleBold = fg(ColorFg).Bold(true)
}

// StageStatusStyle returns the style a stage status is rendered with.
func StageStatusStyle(s domain.StageStatus) lipgloss.Style {
	switch s {
	case domain.StageCompleted:
		return StyleGreen
	case domain.StageInProgress:
		return StyleBlue
	case domain.StageBlocked:
		return StyleRed
	case domain.StageSkipped:
		return StylePurple
	default:
		return StyleDim
	}
}

// StageStatusPill renders a stage status with a leading marker, e.g. "● InProgress".
func StageStatusPill(s domain.StageStatus) string {
	marker := "○"
	switch s {
	case domain.StageCompleted:
		marker = "✔"
	case domain.StageInProgress:
		marker = "●"
	case domain.StageBlocked:
		marker = "✖"
	case domain.StageSkipped:
		marker = "↷"
	}
	return StageStatusStyle(s).Render(marker + " " + string(s))
}

// PlanStatusPill renders a plan version status.
func PlanStatusPill(s domain.PlanVersionStatus) string {
	switch s {
	case domain.PlanApproved:
		return StyleGreen.Render("✔ Approved")
	case domain.PlanPendingApproval:
		return StyleYellow.Render("● Pending approval")
	case domain.PlanRejected:
		return StyleRed.Render("✖ Rejected")
	default:
		return StyleDim.Render("○ " + string(s))
	}
}

// DecisionPill renders a request decision.
func DecisionPill(s domain.DecisionStatus) string {
	switch s {
	case domain.DecisionApproved:
		return StyleGreen.Render(string(s))
	case domain.DecisionRejected:
		return StyleRed.Render(string(s))
	case domain.DecisionPending:
		return StyleYellow.Render(string(s))
	default:
		return StyleDim.Render(string(s))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
