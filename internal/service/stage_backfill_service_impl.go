package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/go-playground/validator/v10"
)

var backfillValidate = validator.New()

type stageBackfillService struct {
	deps Deps
}

func NewStageBackfillService(deps Deps) StageBackfillService {
	return &stageBackfillService{deps: deps.withDefaults()}
}

// Apply supplies real actual dates for auto-completed stages. Failures are
// checked in order (unknown stage, bad dates, stage not awaiting backfill)
// and each names every offending stage; nothing is written on failure.
func (s *stageBackfillService) Apply(ctx context.Context, projectID string, updates []BackfillUpdate, userID string) (res *BackfillResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": projectID, "updates": len(updates)}
	defer func() {
		s.deps.observe(ctx, "stage-backfill", startedAt, fields, err)
	}()

	if err := s.deps.requireHoD(ctx, userID, "backfill stages"); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, domain.Validationf("no backfill updates given")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	today := s.deps.today()
	now := s.deps.now()
	err = s.deps.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		if _, err := r.projects.GetByID(ctx, projectID); err != nil {
			return err
		}
		list, err := r.stages.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		stages := make(map[domain.StageCode]*domain.ProjectStage, len(list))
		for _, st := range list {
			stages[st.StageCode] = st
		}

		var unknown, invalid, ineligible []domain.StageCode
		seen := make(map[domain.StageCode]bool, len(updates))
		for _, u := range updates {
			if _, ok := stages[u.StageCode]; !ok {
				unknown = append(unknown, u.StageCode)
			}
		}
		if len(unknown) > 0 {
			return domain.NewStageCodesError(domain.ErrNotFound, "stages not found in project", unknown)
		}

		for _, u := range updates {
			switch {
			case seen[u.StageCode]:
				invalid = append(invalid, u.StageCode)
			case backfillValidate.Struct(u) != nil:
				invalid = append(invalid, u.StageCode)
			case domain.Day(*u.ActualStart).After(domain.Day(*u.CompletedOn)):
				invalid = append(invalid, u.StageCode)
			case domain.Day(*u.CompletedOn).After(today):
				invalid = append(invalid, u.StageCode)
			}
			seen[u.StageCode] = true
		}
		if len(invalid) > 0 {
			return domain.NewStageCodesError(domain.ErrValidation,
				"backfill needs an actual start and a past completion date, start not after completion, once per stage", invalid)
		}

		for _, u := range updates {
			if !stages[u.StageCode].AwaitingBackfill() {
				ineligible = append(ineligible, u.StageCode)
			}
		}
		if len(ineligible) > 0 {
			return domain.NewStageCodesError(domain.ErrConflict, "stages do not require backfill", ineligible)
		}

		res = &BackfillResult{}
		for _, u := range updates {
			st := stages[u.StageCode]
			from := st.Status
			if err := st.Backfill(*u.ActualStart, *u.CompletedOn, now); err != nil {
				return err
			}
			if err := r.stages.Update(ctx, st); err != nil {
				return err
			}
			if err := r.stageLogs.Append(ctx, domain.NewChangeLog(st, domain.ActionBackfill, from, userID, strings.TrimSpace(u.Note), now)); err != nil {
				return err
			}
			res.UpdatedCount++
			res.StageCodes = append(res.StageCodes, st.StageCode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields["updated"] = res.UpdatedCount
	s.deps.record(ctx, audit.Entry{
		Action:    "stage.backfill",
		Level:     slog.LevelInfo,
		UserID:    userID,
		ProjectID: projectID,
		Data:      map[string]any{"stages": domain.JoinCodes(res.StageCodes)},
	})
	return res, nil
}
