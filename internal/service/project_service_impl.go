package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/google/uuid"
)

type projectService struct {
	deps Deps
}

func NewProjectService(deps Deps) ProjectService {
	return &projectService{deps: deps.withDefaults()}
}

// Create stores a project with one stage row per workflow stage. A project
// that is already under way names its current stage; every ancestor of it is
// recorded as auto-completed and awaits backfill.
func (s *projectService) Create(ctx context.Context, in CreateProjectInput, userID string) (p *domain.Project, err error) {
	startedAt := time.Now()
	fields := map[string]any{"workflow": in.WorkflowVersion}
	defer func() {
		if p != nil {
			fields["project_id"] = p.ID
		}
		s.deps.observe(ctx, "project-create", startedAt, fields, err)
	}()

	now := s.deps.now()
	p = &domain.Project{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(in.Name),
		WorkflowVersion: in.WorkflowVersion,
		HodUserID:       strings.TrimSpace(in.HodUserID),
		CreatedBy:       userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.WorkflowVersion == "" {
		p.WorkflowVersion = workflow.DefaultVersion
	}
	if p.HodUserID == "" {
		p.HodUserID = userID
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := s.deps.graphFor(p)
	if err != nil {
		return nil, err
	}

	var current domain.StageCode
	if strings.TrimSpace(in.CurrentStage) != "" {
		current = domain.NewStageCode(in.CurrentStage)
		if !g.Has(current) {
			return nil, domain.NotFoundf("stage %s in workflow %s", current, g.Version())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var autoCompleted []domain.StageCode
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		if err := r.projects.Create(ctx, p); err != nil {
			return err
		}
		var ancestors map[domain.StageCode]bool
		if current != "" {
			ancestors = g.Ancestors(current)
		}
		for _, tmpl := range g.Stages() {
			st := &domain.ProjectStage{
				ProjectID: p.ID,
				StageCode: tmpl.Code,
				SortOrder: tmpl.Sequence,
				Status:    domain.StageNotStarted,
				UpdatedAt: now,
			}
			// Optional ancestors may never have happened; they stay NotStarted
			// and are transparent to validation.
			if ancestors[tmpl.Code] && !tmpl.Optional {
				st.MarkAutoCompleted(current, now)
				autoCompleted = append(autoCompleted, tmpl.Code)
			}
			if err := r.stages.Create(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields["auto_completed"] = len(autoCompleted)
	data := map[string]any{"name": p.Name, "workflow": p.WorkflowVersion, "hod": p.HodUserID}
	if current != "" {
		data["current_stage"] = current.String()
		data["auto_completed"] = domain.JoinCodes(autoCompleted)
	}
	s.deps.record(ctx, audit.Entry{
		Action:    "project.create",
		Level:     slog.LevelInfo,
		UserID:    userID,
		ProjectID: p.ID,
		Data:      data,
	})
	return p, nil
}

func (s *projectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return reposFor(s.deps.DB).projects.GetByID(ctx, id)
}

func (s *projectService) List(ctx context.Context) ([]*domain.Project, error) {
	return reposFor(s.deps.DB).projects.List(ctx)
}

func (s *projectService) Stages(ctx context.Context, projectID string) ([]*domain.ProjectStage, error) {
	r := reposFor(s.deps.DB)
	if _, err := r.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return r.stages.ListByProject(ctx, projectID)
}

func (s *projectService) Log(ctx context.Context, projectID string, code domain.StageCode) ([]*domain.StageChangeLog, error) {
	r := reposFor(s.deps.DB)
	if _, err := r.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	if code == "" {
		return r.stageLogs.ListByProject(ctx, projectID)
	}
	return r.stageLogs.ListByStage(ctx, projectID, code)
}
