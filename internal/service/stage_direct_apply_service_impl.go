package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/notify"
)

type stageDirectApplyService struct {
	deps Deps
}

func NewStageDirectApplyService(deps Deps) StageDirectApplyService {
	return &stageDirectApplyService{deps: deps.withDefaults()}
}

// Apply changes a stage immediately. A pending request for the stage is
// superseded first. Overridable validation errors block the change unless
// in.Force is set; forcing leaves incomplete predecessors untouched.
func (s *stageDirectApplyService) Apply(ctx context.Context, in DirectApplyInput, hodUserID string) (out *DirectApplyOutcome, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": in.ProjectID, "stage": in.StageCode.String(), "status": string(in.Status), "force": in.Force}
	defer func() {
		if out != nil {
			fields["outcome"] = string(out.Kind)
			fields["superseded"] = out.Superseded
		}
		s.deps.observe(ctx, "stage-direct-apply", startedAt, fields, err)
	}()

	if err := s.deps.requireHoD(ctx, hodUserID, "apply stage changes directly"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	note := strings.TrimSpace(in.Note)
	var supersededRequester, projectHoD string
	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		sc, err := loadStageContext(ctx, r, s.deps, in.ProjectID)
		if err != nil {
			return err
		}
		projectHoD = sc.project.HodUserID
		result, err := sc.evaluate(ValidateInput{
			ProjectID:       in.ProjectID,
			StageCode:       in.StageCode,
			RequestedStatus: in.Status,
			TargetDate:      in.Date,
			IsHoD:           true,
		}, domain.Day(now))
		if err != nil {
			return err
		}
		forced := false
		if !result.IsValid {
			if !in.Force || !result.Forceable() {
				out = &DirectApplyOutcome{Kind: OutcomeValidationFailed, Validation: result}
				return nil
			}
			forced = true
		}

		st := sc.stages[in.StageCode]
		from := st.Status
		out = &DirectApplyOutcome{Kind: OutcomeSuccess, Stage: st, Forced: forced, Validation: result}

		pending, err := r.requests.FindPending(ctx, in.ProjectID, in.StageCode)
		switch {
		case err == nil:
			if err := pending.Decide(domain.DecisionSuperseded, hodUserID, domain.SupersededNote, now); err != nil {
				return err
			}
			if err := r.requests.Update(ctx, pending); err != nil {
				return err
			}
			start, completed := requestedDates(pending.RequestedStatus, pending.RequestedDate)
			if err := r.stageLogs.Append(ctx, &domain.StageChangeLog{
				ProjectID:     in.ProjectID,
				StageCode:     in.StageCode,
				Action:        domain.ActionSuperseded,
				FromStatus:    statusPtr(from),
				ToStatus:      statusPtr(pending.RequestedStatus),
				ToActualStart: start,
				ToCompletedOn: completed,
				At:            now,
				Note:          domain.SupersededNote,
				ByUserID:      hodUserID,
			}); err != nil {
				return err
			}
			out.Superseded = true
			out.SupersededRequestID = pending.ID
			supersededRequester = pending.RequestedByUserID
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		start, completed := requestedDates(in.Status, in.Date)
		if err := r.stageLogs.Append(ctx, &domain.StageChangeLog{
			ProjectID:     in.ProjectID,
			StageCode:     in.StageCode,
			Action:        domain.ActionDirectApply,
			FromStatus:    statusPtr(from),
			ToStatus:      statusPtr(in.Status),
			ToActualStart: start,
			ToCompletedOn: completed,
			At:            now,
			Note:          note,
			ByUserID:      hodUserID,
		}); err != nil {
			return err
		}

		st.Apply(in.Status, in.Date, now)
		if err := r.stages.Update(ctx, st); err != nil {
			return err
		}
		return r.stageLogs.Append(ctx, domain.NewChangeLog(st, domain.ActionApplied, from, hodUserID, note, now))
	})
	if err != nil {
		return nil, err
	}
	if out.Kind != OutcomeSuccess {
		return out, nil
	}

	entry := audit.Entry{
		Action:    "stage.direct_apply",
		Level:     slog.LevelInfo,
		UserID:    hodUserID,
		ProjectID: in.ProjectID,
		Message:   "stage changed by direct apply",
		Data:      map[string]any{"stage": in.StageCode.String(), "status": string(in.Status)},
	}
	if out.Forced {
		entry.Level = slog.LevelWarn
		entry.Message = "stage forced past validation: " + issueMessages(out.Validation.Errors)
		entry.Data["missing_predecessors"] = domain.JoinCodes(out.Validation.MissingPredecessors)
	}
	if out.Superseded {
		entry.Data["superseded_request_id"] = out.SupersededRequestID
	}
	s.deps.record(ctx, entry)
	if out.Superseded {
		s.deps.publish(ctx, notify.Notification{
			Kind:      notify.KindStageDecided,
			Recipient: supersededRequester,
			Payload: map[string]any{
				"project_id": in.ProjectID,
				"stage":      in.StageCode.String(),
				"request_id": out.SupersededRequestID,
				"decision":   string(domain.DecisionSuperseded),
			},
		})
	}
	if projectHoD != hodUserID {
		s.deps.publish(ctx, notify.Notification{
			Kind:      notify.KindStageApplied,
			Recipient: projectHoD,
			Payload: map[string]any{
				"project_id": in.ProjectID,
				"stage":      in.StageCode.String(),
				"status":     string(in.Status),
				"applied_by": hodUserID,
			},
		})
	}
	return out, nil
}

// UpdateActuals corrects the actual dates of a started or completed stage.
func (s *stageDirectApplyService) UpdateActuals(ctx context.Context, in UpdateActualsInput, hodUserID string) (stage *domain.ProjectStage, err error) {
	startedAt := time.Now()
	defer func() {
		s.deps.observe(ctx, "stage-update-actuals", startedAt, map[string]any{"project_id": in.ProjectID, "stage": in.StageCode.String()}, err)
	}()

	if err := s.deps.requireHoD(ctx, hodUserID, "update stage actuals"); err != nil {
		return nil, err
	}
	if in.ActualStart == nil && in.CompletedOn == nil {
		return nil, domain.Validationf("an actual start or completion date is required")
	}
	if in.CompletedOn != nil && domain.Day(*in.CompletedOn).After(s.deps.today()) {
		return nil, domain.Validationf("completion date %s cannot be in the future", in.CompletedOn.Format(domain.DateLayout))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		st, err := r.stages.Get(ctx, in.ProjectID, in.StageCode)
		if err != nil {
			return err
		}
		if err := st.SetActuals(in.ActualStart, in.CompletedOn, now); err != nil {
			return err
		}
		if err := r.stages.Update(ctx, st); err != nil {
			return err
		}
		stage = st
		return r.stageLogs.Append(ctx, domain.NewChangeLog(st, domain.ActionActualsUpdated, st.Status, hodUserID, strings.TrimSpace(in.Note), now))
	})
	if err != nil {
		return nil, err
	}
	s.deps.record(ctx, audit.Entry{
		Action:    "stage.actuals",
		Level:     slog.LevelInfo,
		UserID:    hodUserID,
		ProjectID: in.ProjectID,
		Data:      map[string]any{"stage": in.StageCode.String()},
	})
	return stage, nil
}

func issueMessages(issues []Issue) string {
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.Message
	}
	return strings.Join(msgs, "; ")
}
