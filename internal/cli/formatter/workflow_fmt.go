package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/stageflow/internal/workflow"
)

// FormatWorkflow lists the stages of a workflow version with their predecessors.
func FormatWorkflow(g *workflow.Graph) string {
	rows := make([][]string, 0, len(g.Stages()))
	for _, s := range g.Stages() {
		var flags []string
		if s.Optional {
			flags = append(flags, "optional")
		}
		if s.ParallelGroup != "" {
			flags = append(flags, "group:"+s.ParallelGroup)
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Sequence),
			Bold(string(s.Code)),
			s.Name,
			Codes(g.Predecessors(s.Code)),
			Dim(strings.Join(flags, " ")),
		})
	}
	return fmt.Sprintf("%s\n%s", Header("Workflow "+g.Version()),
		RenderTable([]string{"SEQ", "CODE", "NAME", "AFTER", "FLAGS"}, rows))
}
