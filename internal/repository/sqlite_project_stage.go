package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLiteProjectStageRepo implements ProjectStageRepo using a SQLite database.
type SQLiteProjectStageRepo struct {
	db db.DBTX
}

func NewSQLiteProjectStageRepo(conn db.DBTX) *SQLiteProjectStageRepo {
	return &SQLiteProjectStageRepo{db: conn}
}

const projectStageColumns = `project_id, stage_code, sort_order, status, actual_start, completed_on,
	requires_backfill, is_auto_completed, auto_completed_from_code, updated_at`

func (r *SQLiteProjectStageRepo) Create(ctx context.Context, s *domain.ProjectStage) error {
	query := `INSERT INTO project_stages (` + projectStageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ProjectID,
		string(s.StageCode),
		s.SortOrder,
		string(s.Status),
		nullableTimeToString(s.ActualStart, dateLayout),
		nullableTimeToString(s.CompletedOn, dateLayout),
		boolToInt(s.RequiresBackfill),
		boolToInt(s.IsAutoCompleted),
		nullableCodeToValue(s.AutoCompletedFromCode),
		formatTimestamp(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting project stage %s: %w", s.StageCode, err)
	}
	return nil
}

func (r *SQLiteProjectStageRepo) Get(ctx context.Context, projectID string, code domain.StageCode) (*domain.ProjectStage, error) {
	query := `SELECT ` + projectStageColumns + ` FROM project_stages WHERE project_id = ? AND stage_code = ?`
	s, err := scanProjectStage(r.db.QueryRowContext(ctx, query, projectID, string(code)))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("stage %s of project %s", code, projectID))
	}
	return s, nil
}

func (r *SQLiteProjectStageRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.ProjectStage, error) {
	query := `SELECT ` + projectStageColumns + ` FROM project_stages WHERE project_id = ? ORDER BY sort_order, stage_code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing project stages: %w", err)
	}
	defer rows.Close()

	var stages []*domain.ProjectStage
	for rows.Next() {
		s, err := scanProjectStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project stage: %w", err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project stages: %w", err)
	}
	return stages, nil
}

func (r *SQLiteProjectStageRepo) Update(ctx context.Context, s *domain.ProjectStage) error {
	query := `UPDATE project_stages SET status = ?, actual_start = ?, completed_on = ?,
		requires_backfill = ?, is_auto_completed = ?, auto_completed_from_code = ?, updated_at = ?
		WHERE project_id = ? AND stage_code = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(s.Status),
		nullableTimeToString(s.ActualStart, dateLayout),
		nullableTimeToString(s.CompletedOn, dateLayout),
		boolToInt(s.RequiresBackfill),
		boolToInt(s.IsAutoCompleted),
		nullableCodeToValue(s.AutoCompletedFromCode),
		formatTimestamp(s.UpdatedAt),
		s.ProjectID,
		string(s.StageCode),
	)
	if err != nil {
		return fmt.Errorf("updating project stage %s: %w", s.StageCode, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("stage %s of project %s", s.StageCode, s.ProjectID)
	}
	return nil
}

func scanProjectStage(row rowScanner) (*domain.ProjectStage, error) {
	var s domain.ProjectStage
	var code, status, updatedAt string
	var actualStart, completedOn, autoFrom sql.NullString
	var requiresBackfill, isAuto int

	if err := row.Scan(
		&s.ProjectID, &code, &s.SortOrder, &status,
		&actualStart, &completedOn,
		&requiresBackfill, &isAuto, &autoFrom, &updatedAt,
	); err != nil {
		return nil, err
	}

	s.StageCode = domain.NewStageCode(code)
	s.Status = domain.StageStatus(status)
	s.ActualStart = parseNullableTime(actualStart, dateLayout)
	s.CompletedOn = parseNullableTime(completedOn, dateLayout)
	s.RequiresBackfill = intToBool(requiresBackfill)
	s.IsAutoCompleted = intToBool(isAuto)
	s.AutoCompletedFromCode = parseNullableCode(autoFrom)

	var err error
	if s.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
