package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/alexanderramin/stageflow/internal/workflow"
)

// FormatPlan renders a plan version header and its stage dates.
func FormatPlan(view *service.PlanView, g *workflow.Graph) string {
	v := view.Version
	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("Plan v%d", v.VersionNo)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", Dim("ID:      "), v.ID)
	fmt.Fprintf(&b, "%s %s  %s\n", Dim("Status:  "), PlanStatusPill(v.Status), Dim("rev "+strconv.FormatInt(v.RowVersion, 10)))
	fmt.Fprintf(&b, "%s %s\n", Dim("Owner:   "), v.OwnerUserID)
	if v.AnchorStageCode != nil {
		fmt.Fprintf(&b, "%s %s on %s\n", Dim("Anchor:  "), *v.AnchorStageCode, Date(v.AnchorDate))
	}
	fmt.Fprintf(&b, "%s %s, skip weekends %t\n", Dim("Calendar:"), v.TransitionRule, v.SkipWeekends)
	if v.DecisionNote != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("Note:    "), v.DecisionNote)
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(view.Plans))
	for _, p := range view.Plans {
		name := ""
		if g != nil {
			if tmpl, ok := g.Stage(p.StageCode); ok {
				name = tmpl.Name
			}
		}
		days := Dim("-")
		if p.Scheduled() {
			days = strconv.Itoa(int(p.PlannedDue.Sub(*p.PlannedStart).Hours()/24) + 1)
		}
		rows = append(rows, []string{
			Bold(string(p.StageCode)),
			Truncate(name, 36),
			Date(p.PlannedStart),
			Date(p.PlannedDue),
			days,
		})
	}
	b.WriteString(RenderTable([]string{"CODE", "STAGE", "START", "DUE", "DAYS"}, rows))
	return b.String()
}

// FormatPlanVersions renders the version history of a project.
func FormatPlanVersions(versions []*domain.PlanVersion, activeID *string) string {
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		marker := ""
		if activeID != nil && *activeID == v.ID {
			marker = StyleGreen.Render("active")
		}
		rows = append(rows, []string{
			strconv.Itoa(v.VersionNo),
			Dim(v.ID),
			PlanStatusPill(v.Status),
			v.OwnerUserID,
			deref(v.SubmittedBy),
			deref(v.ApprovedBy),
			marker,
		})
	}
	return RenderTable([]string{"NO", "ID", "STATUS", "OWNER", "SUBMITTED BY", "APPROVED BY", ""}, rows)
}
