package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLiteStageRequestRepo implements StageRequestRepo using a SQLite database.
type SQLiteStageRequestRepo struct {
	db db.DBTX
}

func NewSQLiteStageRequestRepo(conn db.DBTX) *SQLiteStageRequestRepo {
	return &SQLiteStageRequestRepo{db: conn}
}

const stageRequestColumns = `id, project_id, stage_code, requested_status, requested_date, note, requested_by,
	requested_on, decision_status, decided_by, decided_on, decision_note, row_version`

func (r *SQLiteStageRequestRepo) Create(ctx context.Context, req *domain.StageChangeRequest) error {
	if req.RowVersion == 0 {
		req.RowVersion = 1
	}
	query := `INSERT INTO stage_change_requests (` + stageRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.ProjectID,
		string(req.StageCode),
		string(req.RequestedStatus),
		nullableTimeToString(req.RequestedDate, dateLayout),
		req.Note,
		req.RequestedByUserID,
		formatTimestamp(req.RequestedOn),
		string(req.DecisionStatus),
		nullableStringToValue(req.DecidedByUserID),
		nullableTimestamp(req.DecidedOn),
		req.DecisionNote,
		req.RowVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("a pending request already exists for stage %s", req.StageCode)
		}
		return fmt.Errorf("inserting stage change request: %w", err)
	}
	return nil
}

func (r *SQLiteStageRequestRepo) GetByID(ctx context.Context, id string) (*domain.StageChangeRequest, error) {
	query := `SELECT ` + stageRequestColumns + ` FROM stage_change_requests WHERE id = ?`
	req, err := scanStageRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("stage change request %s", id))
	}
	return req, nil
}

func (r *SQLiteStageRequestRepo) FindPending(ctx context.Context, projectID string, code domain.StageCode) (*domain.StageChangeRequest, error) {
	query := `SELECT ` + stageRequestColumns + ` FROM stage_change_requests
		WHERE project_id = ? AND stage_code = ? AND decision_status = 'Pending'`
	req, err := scanStageRequest(r.db.QueryRowContext(ctx, query, projectID, string(code)))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("pending request for stage %s", code))
	}
	return req, nil
}

func (r *SQLiteStageRequestRepo) ListPending(ctx context.Context, projectID string) ([]*domain.StageChangeRequest, error) {
	query := `SELECT ` + stageRequestColumns + ` FROM stage_change_requests
		WHERE project_id = ? AND decision_status = 'Pending' ORDER BY requested_on`
	return r.list(ctx, query, projectID)
}

func (r *SQLiteStageRequestRepo) ListByStage(ctx context.Context, projectID string, code domain.StageCode) ([]*domain.StageChangeRequest, error) {
	query := `SELECT ` + stageRequestColumns + ` FROM stage_change_requests
		WHERE project_id = ? AND stage_code = ? ORDER BY requested_on`
	return r.list(ctx, query, projectID, string(code))
}

func (r *SQLiteStageRequestRepo) list(ctx context.Context, query string, args ...any) ([]*domain.StageChangeRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stage change requests: %w", err)
	}
	defer rows.Close()

	var out []*domain.StageChangeRequest
	for rows.Next() {
		req, err := scanStageRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stage change request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage change requests: %w", err)
	}
	return out, nil
}

func (r *SQLiteStageRequestRepo) Update(ctx context.Context, req *domain.StageChangeRequest) error {
	query := `UPDATE stage_change_requests SET decision_status = ?, decided_by = ?, decided_on = ?,
		decision_note = ?, row_version = row_version + 1
		WHERE id = ? AND row_version = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(req.DecisionStatus),
		nullableStringToValue(req.DecidedByUserID),
		nullableTimestamp(req.DecidedOn),
		req.DecisionNote,
		req.ID,
		req.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("updating stage change request: %w", err)
	}
	if err := checkOneRow(res, fmt.Sprintf("request %s", req.ID)); err != nil {
		return err
	}
	req.RowVersion++
	return nil
}

func scanStageRequest(row rowScanner) (*domain.StageChangeRequest, error) {
	var req domain.StageChangeRequest
	var code, status, requestedOn, decision string
	var requestedDate, decidedBy, decidedOn sql.NullString

	if err := row.Scan(
		&req.ID, &req.ProjectID, &code, &status, &requestedDate, &req.Note, &req.RequestedByUserID,
		&requestedOn, &decision, &decidedBy, &decidedOn, &req.DecisionNote, &req.RowVersion,
	); err != nil {
		return nil, err
	}

	req.StageCode = domain.NewStageCode(code)
	req.RequestedStatus = domain.StageStatus(status)
	req.RequestedDate = parseNullableTime(requestedDate, dateLayout)
	req.DecisionStatus = domain.DecisionStatus(decision)
	req.DecidedByUserID = parseNullableString(decidedBy)
	req.DecidedOn = parseNullableTime(decidedOn, timestampLayout)

	var err error
	if req.RequestedOn, err = parseTimestamp("requested_on", requestedOn); err != nil {
		return nil, err
	}
	return &req, nil
}
