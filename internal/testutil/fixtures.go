package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/clock"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/google/uuid"
)

// Today is the fixed "now" used by service tests: a Wednesday.
var Today = time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)

// FixedClock returns a clock pinned to Today.
func FixedClock() clock.Fixed {
	return clock.Fixed{At: Today}
}

// Date builds a UTC calendar date.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date returning a pointer.
func DatePtr(y int, m time.Month, d int) *time.Time {
	t := Date(y, m, d)
	return &t
}

// DefaultRegistry returns the embedded workflow registry or fails the test.
func DefaultRegistry(t *testing.T) *workflow.Registry {
	t.Helper()
	reg, err := workflow.DefaultRegistry()
	if err != nil {
		t.Fatalf("loading default workflow: %v", err)
	}
	return reg
}

// DefaultGraph returns the embedded v1 graph.
func DefaultGraph(t *testing.T) *workflow.Graph {
	t.Helper()
	g, err := DefaultRegistry(t).Graph(workflow.DefaultVersion)
	if err != nil {
		t.Fatalf("loading v1 graph: %v", err)
	}
	return g
}

// Grant gives userID each role.
func Grant(t *testing.T, database *sql.DB, userID string, roles ...domain.Role) {
	t.Helper()
	repo := repository.NewSQLiteUserRoleRepo(database)
	for _, r := range roles {
		if err := repo.Grant(context.Background(), userID, r); err != nil {
			t.Fatalf("granting %s to %s: %v", r, userID, err)
		}
	}
}

// Project options
type ProjectOption func(*domain.Project)

func WithHoD(userID string) ProjectOption {
	return func(p *domain.Project) {
		p.HodUserID = userID
	}
}

func WithWorkflowVersion(v string) ProjectOption {
	return func(p *domain.Project) {
		p.WorkflowVersion = v
	}
}

func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	p := &domain.Project{
		ID:              uuid.New().String(),
		Name:            name,
		WorkflowVersion: workflow.DefaultVersion,
		HodUserID:       "hod",
		CreatedBy:       "hod",
		CreatedAt:       Today,
		UpdatedAt:       Today,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stage options
type StageOption func(*domain.ProjectStage)

func WithStatus(s domain.StageStatus) StageOption {
	return func(st *domain.ProjectStage) {
		st.Status = s
	}
}

// Completed marks the stage completed on day, started the same day.
func Completed(day time.Time) StageOption {
	return func(st *domain.ProjectStage) {
		st.Status = domain.StageCompleted
		st.ActualStart = domain.DayPtr(day)
		st.CompletedOn = domain.DayPtr(day)
	}
}

// Started marks the stage in progress since day.
func Started(day time.Time) StageOption {
	return func(st *domain.ProjectStage) {
		st.Status = domain.StageInProgress
		st.ActualStart = domain.DayPtr(day)
	}
}

// AutoCompleted marks the stage as inferred complete from a later stage.
func AutoCompleted(from domain.StageCode) StageOption {
	return func(st *domain.ProjectStage) {
		st.MarkAutoCompleted(from, Today)
	}
}

// SeedProject stores p with one NotStarted stage per stage of g, applying the
// per-code options given in stages.
func SeedProject(t *testing.T, database *sql.DB, g *workflow.Graph, p *domain.Project, stages map[domain.StageCode][]StageOption) {
	t.Helper()
	ctx := context.Background()
	if err := repository.NewSQLiteProjectRepo(database).Create(ctx, p); err != nil {
		t.Fatalf("creating project: %v", err)
	}
	stageRepo := repository.NewSQLiteProjectStageRepo(database)
	for _, tmpl := range g.Stages() {
		st := &domain.ProjectStage{
			ProjectID: p.ID,
			StageCode: tmpl.Code,
			SortOrder: tmpl.Sequence,
			Status:    domain.StageNotStarted,
			UpdatedAt: Today,
		}
		for _, opt := range stages[tmpl.Code] {
			opt(st)
		}
		if err := stageRepo.Create(ctx, st); err != nil {
			t.Fatalf("creating stage %s: %v", tmpl.Code, err)
		}
	}
}

// CompletedThrough returns options completing every ancestor of code on day.
func CompletedThrough(g *workflow.Graph, code domain.StageCode, day time.Time) map[domain.StageCode][]StageOption {
	out := make(map[domain.StageCode][]StageOption)
	for c := range g.Ancestors(code) {
		out[c] = []StageOption{Completed(day)}
	}
	return out
}
