package scheduler

import (
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
)

// Flow derives actual-progress constraints from the template graph.
// It holds no mutable state.
type Flow struct {
	Graph    *workflow.Graph
	Calendar Calendar
}

func NewFlow(g *workflow.Graph, cal Calendar) Flow {
	return Flow{Graph: g, Calendar: cal}
}

// ComputeAutoStart returns the earliest date code may start given the actual
// completion of its predecessors.
//
// completed holds every completed stage; a nil date marks a completion whose
// date is not known yet (auto-completed, awaiting backfill), which satisfies
// the dependency without constraining the date. Skipped stages are looked
// through to their own predecessors.
//
// ready is false when a non-skipped predecessor has not completed. A nil start
// with ready=true means the stage is unconstrained.
func (f Flow) ComputeAutoStart(code domain.StageCode, completed map[domain.StageCode]*time.Time, skipped map[domain.StageCode]bool) (start *time.Time, ready bool) {
	var latest time.Time
	found := false
	seen := make(map[domain.StageCode]bool)

	var walk func(c domain.StageCode) bool
	walk = func(c domain.StageCode) bool {
		for _, p := range f.Graph.Predecessors(c) {
			if seen[p] {
				continue
			}
			seen[p] = true
			if skipped[p] {
				if !walk(p) {
					return false
				}
				continue
			}
			done, ok := completed[p]
			if !ok {
				return false
			}
			if done != nil && (!found || done.After(latest)) {
				latest, found = domain.Day(*done), true
			}
		}
		return true
	}

	if !walk(code) {
		return nil, false
	}
	if !found {
		return nil, true
	}
	next := f.Calendar.NextStart(latest)
	return &next, true
}

// MissingPredecessors returns the nearest non-skipped predecessors of code
// that have not completed, looking through skipped stages.
func (f Flow) MissingPredecessors(code domain.StageCode, completed map[domain.StageCode]*time.Time, skipped map[domain.StageCode]bool) []domain.StageCode {
	var missing []domain.StageCode
	seen := make(map[domain.StageCode]bool)

	var walk func(c domain.StageCode)
	walk = func(c domain.StageCode) {
		for _, p := range f.Graph.Predecessors(c) {
			if seen[p] {
				continue
			}
			seen[p] = true
			if skipped[p] {
				walk(p)
				continue
			}
			if _, ok := completed[p]; !ok {
				missing = append(missing, p)
			}
		}
	}
	walk(code)
	return missing
}
