package formatter

import (
	"strconv"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
)

// FormatStages renders the live stage records of a project in workflow order.
func FormatStages(stages []*domain.ProjectStage, g *workflow.Graph) string {
	rows := make([][]string, 0, len(stages))
	for _, st := range stages {
		name := ""
		if g != nil {
			if tmpl, ok := g.Stage(st.StageCode); ok {
				name = tmpl.Name
			}
		}
		note := ""
		switch {
		case st.AwaitingBackfill() && st.AutoCompletedFromCode != nil:
			note = StyleYellow.Render("backfill (inferred from " + string(*st.AutoCompletedFromCode) + ")")
		case st.AwaitingBackfill():
			note = StyleYellow.Render("backfill")
		}
		rows = append(rows, []string{
			Dim(strconv.Itoa(st.SortOrder)),
			Bold(string(st.StageCode)),
			Truncate(name, 36),
			StageStatusPill(st.Status),
			Date(st.ActualStart),
			Date(st.CompletedOn),
			note,
		})
	}
	return RenderTable([]string{"SEQ", "CODE", "STAGE", "STATUS", "STARTED", "COMPLETED", ""}, rows)
}

// FormatLog renders stage change log rows oldest first.
func FormatLog(logs []*domain.StageChangeLog) string {
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			Dim(Timestamp(l.At)),
			Bold(string(l.StageCode)),
			string(l.Action),
			statusTransition(l.FromStatus, l.ToStatus),
			Date(l.ToActualStart),
			Date(l.ToCompletedOn),
			l.ByUserID,
			Truncate(l.Note, 40),
		})
	}
	return RenderTable([]string{"AT", "STAGE", "ACTION", "STATUS", "START", "COMPLETED", "BY", "NOTE"}, rows)
}

func statusTransition(from, to *domain.StageStatus) string {
	switch {
	case from == nil && to == nil:
		return Dim("-")
	case from == nil:
		return StageStatusStyle(*to).Render(string(*to))
	case to == nil || *from == *to:
		return Dim(string(*from))
	}
	return Dim(string(*from)+" → ") + StageStatusStyle(*to).Render(string(*to))
}

// FormatRequests renders stage change requests.
func FormatRequests(reqs []*domain.StageChangeRequest) string {
	rows := make([][]string, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, []string{
			Dim(r.ID),
			Bold(string(r.StageCode)),
			StageStatusStyle(r.RequestedStatus).Render(string(r.RequestedStatus)),
			Date(r.RequestedDate),
			r.RequestedByUserID,
			DecisionPill(r.DecisionStatus),
			strconv.FormatInt(r.RowVersion, 10),
			Truncate(r.Note, 40),
		})
	}
	return RenderTable([]string{"ID", "STAGE", "TO", "DATE", "BY", "DECISION", "REV", "NOTE"}, rows)
}
