package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
)

// FormatProjectList renders one row per project.
func FormatProjectList(projects []*domain.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		plan := Dim("none")
		if p.ActivePlanVersionID != nil {
			plan = StyleGreen.Render("approved")
		}
		rows = append(rows, []string{
			Dim(p.DisplayID()),
			Bold(Truncate(p.Name, 40)),
			p.WorkflowVersion,
			p.HodUserID,
			plan,
		})
	}
	return RenderTable([]string{"ID", "NAME", "WORKFLOW", "HOD", "PLAN"}, rows)
}

// FormatProject renders the project summary followed by its stage table.
func FormatProject(p *domain.Project, stages []*domain.ProjectStage, g *workflow.Graph) string {
	var b strings.Builder
	b.WriteString(Header(p.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", Dim("ID:      "), p.ID)
	fmt.Fprintf(&b, "%s %s\n", Dim("Workflow:"), p.WorkflowVersion)
	fmt.Fprintf(&b, "%s %s\n", Dim("HoD:     "), p.HodUserID)
	active := Dim("none")
	if p.ActivePlanVersionID != nil {
		active = *p.ActivePlanVersionID
	}
	fmt.Fprintf(&b, "%s %s\n", Dim("Plan:    "), active)

	done, backfill := 0, 0
	for _, st := range stages {
		if st.Status == domain.StageCompleted {
			done++
		}
		if st.AwaitingBackfill() {
			backfill++
		}
	}
	fmt.Fprintf(&b, "%s %d/%d completed", Dim("Progress:"), done, len(stages))
	if backfill > 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf(", %d awaiting backfill", backfill)))
	}
	b.WriteString("\n\n")
	b.WriteString(FormatStages(stages, g))
	return b.String()
}
