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
	"github.com/google/uuid"
)

type stageRequestService struct {
	deps Deps
}

func NewStageRequestService(deps Deps) StageRequestService {
	return &stageRequestService{deps: deps.withDefaults()}
}

func (s *stageRequestService) Create(ctx context.Context, in CreateRequestInput, requesterID string) (out *RequestOutcome, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": in.ProjectID, "stage": in.StageCode.String(), "status": string(in.RequestedStatus)}
	defer func() {
		if out != nil {
			fields["outcome"] = string(out.Kind)
		}
		s.deps.observe(ctx, "stage-request-create", startedAt, fields, err)
	}()

	if strings.TrimSpace(requesterID) == "" {
		return nil, domain.Validationf("requester is required")
	}
	isHoD, err := s.deps.Roles.IsHoD(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hodUserID string
	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		sc, err := loadStageContext(ctx, r, s.deps, in.ProjectID)
		if err != nil {
			return err
		}
		hodUserID = sc.project.HodUserID

		result, err := sc.evaluate(ValidateInput{
			ProjectID:       in.ProjectID,
			StageCode:       in.StageCode,
			RequestedStatus: in.RequestedStatus,
			TargetDate:      in.RequestedDate,
			IsHoD:           isHoD,
		}, domain.Day(now))
		if err != nil {
			return err
		}
		if !result.IsValid {
			out = &RequestOutcome{Kind: OutcomeValidationFailed, Validation: result}
			return nil
		}

		existing, err := r.requests.FindPending(ctx, in.ProjectID, in.StageCode)
		switch {
		case err == nil:
			out = &RequestOutcome{Kind: OutcomeDuplicatePending, Request: existing, Validation: result}
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		req := &domain.StageChangeRequest{
			ID:                uuid.New().String(),
			ProjectID:         in.ProjectID,
			StageCode:         in.StageCode,
			RequestedStatus:   in.RequestedStatus,
			Note:              strings.TrimSpace(in.Note),
			RequestedByUserID: requesterID,
			RequestedOn:       now,
			DecisionStatus:    domain.DecisionPending,
		}
		if in.RequestedDate != nil {
			req.RequestedDate = domain.DayPtr(*in.RequestedDate)
		}
		if err := r.requests.Create(ctx, req); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				out = &RequestOutcome{Kind: OutcomeDuplicatePending, Validation: result}
				return nil
			}
			return err
		}

		start, completed := requestedDates(req.RequestedStatus, req.RequestedDate)
		if err := r.stageLogs.Append(ctx, &domain.StageChangeLog{
			ProjectID:     in.ProjectID,
			StageCode:     in.StageCode,
			Action:        domain.ActionRequested,
			FromStatus:    statusPtr(result.CurrentStatus),
			ToStatus:      statusPtr(req.RequestedStatus),
			ToActualStart: start,
			ToCompletedOn: completed,
			At:            now,
			Note:          req.Note,
			ByUserID:      requesterID,
		}); err != nil {
			return err
		}
		out = &RequestOutcome{Kind: OutcomeSuccess, Request: req, Validation: result}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Kind == OutcomeSuccess {
		s.deps.record(ctx, audit.Entry{
			Action:    "stage.request",
			Level:     slog.LevelInfo,
			UserID:    requesterID,
			ProjectID: in.ProjectID,
			Message:   "stage change requested",
			Data:      map[string]any{"stage": in.StageCode.String(), "status": string(in.RequestedStatus), "request_id": out.Request.ID},
		})
		s.deps.publish(ctx, notify.Notification{
			Kind:      notify.KindStageRequested,
			Recipient: hodUserID,
			Payload: map[string]any{
				"project_id": in.ProjectID,
				"stage":      in.StageCode.String(),
				"status":     string(in.RequestedStatus),
				"request_id": out.Request.ID,
				"requester":  requesterID,
			},
		})
	}
	return out, nil
}

func (s *stageRequestService) Decide(ctx context.Context, in DecideInput, deciderID string) (out *RequestOutcome, err error) {
	startedAt := time.Now()
	fields := map[string]any{"request_id": in.RequestID, "approve": in.Approve}
	defer func() {
		if out != nil {
			fields["outcome"] = string(out.Kind)
		}
		s.deps.observe(ctx, "stage-request-decide", startedAt, fields, err)
	}()

	if err := s.deps.requireHoD(ctx, deciderID, "decide stage requests"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		req, err := r.requests.GetByID(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if in.RowVersion != 0 && in.RowVersion != req.RowVersion {
			return domain.Conflictf("request %s changed since it was read (version %d, now %d)", req.ID, in.RowVersion, req.RowVersion)
		}
		if req.DecisionStatus != domain.DecisionPending {
			return domain.Conflictf("request %s is already %s", req.ID, req.DecisionStatus)
		}

		if !in.Approve {
			if err := req.Decide(domain.DecisionRejected, deciderID, strings.TrimSpace(in.Note), now); err != nil {
				return err
			}
			if err := r.requests.Update(ctx, req); err != nil {
				return err
			}
			out = &RequestOutcome{Kind: OutcomeSuccess, Request: req}
			return nil
		}

		sc, err := loadStageContext(ctx, r, s.deps, req.ProjectID)
		if err != nil {
			return err
		}
		result, err := sc.evaluate(ValidateInput{
			ProjectID:       req.ProjectID,
			StageCode:       req.StageCode,
			RequestedStatus: req.RequestedStatus,
			TargetDate:      req.RequestedDate,
			IsHoD:           true,
		}, domain.Day(now))
		if err != nil {
			return err
		}
		if !result.IsValid {
			out = &RequestOutcome{Kind: OutcomeValidationFailed, Request: req, Validation: result}
			return nil
		}

		if err := req.Decide(domain.DecisionApproved, deciderID, strings.TrimSpace(in.Note), now); err != nil {
			return err
		}
		if err := r.requests.Update(ctx, req); err != nil {
			return err
		}

		st := sc.stages[req.StageCode]
		from := st.Status
		st.Apply(req.RequestedStatus, req.RequestedDate, now)
		if err := r.stages.Update(ctx, st); err != nil {
			return err
		}
		if err := r.stageLogs.Append(ctx, domain.NewChangeLog(st, domain.ActionApplied, from, deciderID, req.DecisionNote, now)); err != nil {
			return err
		}
		out = &RequestOutcome{Kind: OutcomeSuccess, Request: req, Validation: result}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Kind == OutcomeSuccess {
		s.deps.record(ctx, audit.Entry{
			Action:    "stage.decide",
			Level:     slog.LevelInfo,
			UserID:    deciderID,
			ProjectID: out.Request.ProjectID,
			Message:   "stage request " + strings.ToLower(string(out.Request.DecisionStatus)),
			Data:      map[string]any{"request_id": out.Request.ID, "stage": out.Request.StageCode.String()},
		})
		s.deps.publish(ctx, notify.Notification{
			Kind:      notify.KindStageDecided,
			Recipient: out.Request.RequestedByUserID,
			Payload: map[string]any{
				"project_id": out.Request.ProjectID,
				"stage":      out.Request.StageCode.String(),
				"request_id": out.Request.ID,
				"decision":   string(out.Request.DecisionStatus),
			},
		})
	}
	return out, nil
}

func (s *stageRequestService) ListPending(ctx context.Context, projectID string) ([]*domain.StageChangeRequest, error) {
	return reposFor(s.deps.DB).requests.ListPending(ctx, projectID)
}
