package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/clock"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/notify"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/workflow"
)

// Deps are the collaborators shared by the stage and plan services.
// DB serves reads outside a transaction; writes go through UoW.
type Deps struct {
	DB        db.DBTX
	UoW       db.UnitOfWork
	Workflows *workflow.Registry
	Clock     clock.Clock
	Audit     audit.Sink
	Notifier  notify.Publisher
	Roles     RoleResolver
	Logger    *slog.Logger
	Observer  UseCaseObserver
}

func (d Deps) withDefaults() Deps {
	d.Clock = clock.OrSystem(d.Clock)
	if d.Audit == nil {
		d.Audit = audit.Noop{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Observer == nil {
		d.Observer = NoopUseCaseObserver{}
	}
	if d.Roles == nil && d.DB != nil {
		d.Roles = NewRoleService(repository.NewSQLiteUserRoleRepo(d.DB))
	}
	return d
}

// repos groups the repositories bound to one DBTX.
type repos struct {
	projects  repository.ProjectRepo
	stages    repository.ProjectStageRepo
	plans     repository.PlanVersionRepo
	schedule  repository.ScheduleRepo
	requests  repository.StageRequestRepo
	stageLogs repository.StageLogRepo
}

func reposFor(conn db.DBTX) repos {
	return repos{
		projects:  repository.NewSQLiteProjectRepo(conn),
		stages:    repository.NewSQLiteProjectStageRepo(conn),
		plans:     repository.NewSQLitePlanVersionRepo(conn),
		schedule:  repository.NewSQLiteScheduleRepo(conn),
		requests:  repository.NewSQLiteStageRequestRepo(conn),
		stageLogs: repository.NewSQLiteStageLogRepo(conn),
	}
}

func (d Deps) now() time.Time { return d.Clock.Now().UTC() }

func (d Deps) today() time.Time { return domain.Day(d.now()) }

// record writes an audit entry after commit. Failures are logged only.
func (d Deps) record(ctx context.Context, e audit.Entry) {
	if e.At.IsZero() {
		e.At = d.now()
	}
	if err := d.Audit.Log(ctx, e); err != nil {
		d.Logger.WarnContext(ctx, "audit sink failed", "action", e.Action, "error", err)
	}
}

// publish sends a notification after commit. Failures are logged only.
func (d Deps) publish(ctx context.Context, n notify.Notification) {
	if n.Recipient == "" {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	if err := d.Notifier.Publish(ctx, n); err != nil {
		d.Logger.WarnContext(ctx, "notification publish failed", "kind", n.Kind, "recipient", n.Recipient, "error", err)
	}
}

// observe reports a use-case execution to the configured observer.
func (d Deps) observe(ctx context.Context, name string, startedAt time.Time, fields map[string]any, err error) {
	d.Observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}

func (d Deps) requireHoD(ctx context.Context, userID, action string) error {
	ok, err := d.Roles.IsHoD(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Forbiddenf("user %q may not %s", userID, action)
	}
	return nil
}

func (d Deps) graphFor(p *domain.Project) (*workflow.Graph, error) {
	return d.Workflows.Graph(p.WorkflowVersion)
}

// orderStagePlans sorts plans by workflow sequence.
func orderStagePlans(g *workflow.Graph, plans []domain.StagePlan) {
	seq := make(map[domain.StageCode]int, len(plans))
	for _, s := range g.Stages() {
		seq[s.Code] = s.Sequence
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return seq[plans[i].StageCode] < seq[plans[j].StageCode]
	})
}

func statusPtr(s domain.StageStatus) *domain.StageStatus { return &s }

// requestedDates splits a requested date into the actual-start or
// completion field matching the target status.
func requestedDates(status domain.StageStatus, date *time.Time) (start, completed *time.Time) {
	if date == nil {
		return nil, nil
	}
	d := domain.DayPtr(*date)
	switch status {
	case domain.StageInProgress:
		return d, nil
	case domain.StageCompleted:
		return nil, d
	}
	return nil, nil
}
