package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLiteStageLogRepo is the append-only stage change log.
type SQLiteStageLogRepo struct {
	db db.DBTX
}

func NewSQLiteStageLogRepo(conn db.DBTX) *SQLiteStageLogRepo {
	return &SQLiteStageLogRepo{db: conn}
}

const stageLogColumns = `id, project_id, stage_code, action, from_status, to_status, to_actual_start,
	to_completed_on, at, note, by_user_id`

func (r *SQLiteStageLogRepo) Append(ctx context.Context, l *domain.StageChangeLog) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO stage_change_logs (project_id, stage_code, action, from_status, to_status,
			to_actual_start, to_completed_on, at, note, by_user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ProjectID,
		string(l.StageCode),
		string(l.Action),
		nullableStatusToValue(l.FromStatus),
		nullableStatusToValue(l.ToStatus),
		nullableTimeToString(l.ToActualStart, dateLayout),
		nullableTimeToString(l.ToCompletedOn, dateLayout),
		formatTimestamp(l.At),
		l.Note,
		l.ByUserID,
	)
	if err != nil {
		return fmt.Errorf("appending stage change log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		l.ID = id
	}
	return nil
}

func (r *SQLiteStageLogRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.StageChangeLog, error) {
	return r.list(ctx, `SELECT `+stageLogColumns+` FROM stage_change_logs WHERE project_id = ? ORDER BY id`, projectID)
}

func (r *SQLiteStageLogRepo) ListByStage(ctx context.Context, projectID string, code domain.StageCode) ([]*domain.StageChangeLog, error) {
	return r.list(ctx, `SELECT `+stageLogColumns+` FROM stage_change_logs
		WHERE project_id = ? AND stage_code = ? ORDER BY id`, projectID, string(code))
}

func (r *SQLiteStageLogRepo) list(ctx context.Context, query string, args ...any) ([]*domain.StageChangeLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stage change logs: %w", err)
	}
	defer rows.Close()

	var out []*domain.StageChangeLog
	for rows.Next() {
		var l domain.StageChangeLog
		var code, action, at string
		var from, to, start, completed sql.NullString
		if err := rows.Scan(&l.ID, &l.ProjectID, &code, &action, &from, &to, &start, &completed,
			&at, &l.Note, &l.ByUserID); err != nil {
			return nil, fmt.Errorf("scanning stage change log: %w", err)
		}
		l.StageCode = domain.NewStageCode(code)
		l.Action = domain.ChangeAction(action)
		l.FromStatus = parseNullableStatus(from)
		l.ToStatus = parseNullableStatus(to)
		l.ToActualStart = parseNullableTime(start, dateLayout)
		l.ToCompletedOn = parseNullableTime(completed, dateLayout)
		if l.At, err = parseTimestamp("at", at); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage change logs: %w", err)
	}
	return out, nil
}
