package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLitePlanVersionRepo implements PlanVersionRepo using a SQLite database.
type SQLitePlanVersionRepo struct {
	db db.DBTX
}

func NewSQLitePlanVersionRepo(conn db.DBTX) *SQLitePlanVersionRepo {
	return &SQLitePlanVersionRepo{db: conn}
}

const planVersionColumns = `id, project_id, version_no, status, anchor_stage_code, anchor_date, skip_weekends,
	transition_rule, pnc_applicable, created_by, owner_user_id, submitted_by, submitted_on,
	approved_by, approved_on, rejected_by, decision_note, row_version, created_at, updated_at`

func (r *SQLitePlanVersionRepo) Create(ctx context.Context, v *domain.PlanVersion) error {
	if v.RowVersion == 0 {
		v.RowVersion = 1
	}
	query := `INSERT INTO plan_versions (` + planVersionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.ProjectID,
		v.VersionNo,
		string(v.Status),
		nullableCodeToValue(v.AnchorStageCode),
		nullableTimeToString(v.AnchorDate, dateLayout),
		boolToInt(v.SkipWeekends),
		string(v.TransitionRule),
		boolToInt(v.PncApplicable),
		v.CreatedBy,
		v.OwnerUserID,
		nullableStringToValue(v.SubmittedBy),
		nullableTimestamp(v.SubmittedOn),
		nullableStringToValue(v.ApprovedBy),
		nullableTimestamp(v.ApprovedOn),
		nullableStringToValue(v.RejectedBy),
		v.DecisionNote,
		v.RowVersion,
		formatTimestamp(v.CreatedAt),
		formatTimestamp(v.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflictf("project %s already has a draft for %s or version %d exists", v.ProjectID, v.OwnerUserID, v.VersionNo)
		}
		return fmt.Errorf("inserting plan version: %w", err)
	}
	return nil
}

func (r *SQLitePlanVersionRepo) GetByID(ctx context.Context, id string) (*domain.PlanVersion, error) {
	query := `SELECT ` + planVersionColumns + ` FROM plan_versions WHERE id = ?`
	v, err := scanPlanVersion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("plan version %s", id))
	}
	return v, nil
}

func (r *SQLitePlanVersionRepo) FindDraft(ctx context.Context, projectID, ownerUserID string) (*domain.PlanVersion, error) {
	query := `SELECT ` + planVersionColumns + ` FROM plan_versions
		WHERE project_id = ? AND owner_user_id = ? AND status = 'Draft'`
	v, err := scanPlanVersion(r.db.QueryRowContext(ctx, query, projectID, ownerUserID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("draft of %s for project %s", ownerUserID, projectID))
	}
	return v, nil
}

func (r *SQLitePlanVersionRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.PlanVersion, error) {
	query := `SELECT ` + planVersionColumns + ` FROM plan_versions WHERE project_id = ? ORDER BY version_no`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing plan versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.PlanVersion
	for rows.Next() {
		v, err := scanPlanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan versions: %w", err)
	}
	return versions, nil
}

func (r *SQLitePlanVersionRepo) MaxVersionNo(ctx context.Context, projectID string) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_no), 0) FROM plan_versions WHERE project_id = ?`, projectID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("reading max version number: %w", err)
	}
	return max, nil
}

func (r *SQLitePlanVersionRepo) CountPending(ctx context.Context, projectID, excludeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM plan_versions WHERE project_id = ? AND status = 'PendingApproval' AND id != ?`,
		projectID, excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending plan versions: %w", err)
	}
	return n, nil
}

func (r *SQLitePlanVersionRepo) Update(ctx context.Context, v *domain.PlanVersion) error {
	query := `UPDATE plan_versions SET status = ?, anchor_stage_code = ?, anchor_date = ?, skip_weekends = ?,
		transition_rule = ?, pnc_applicable = ?, submitted_by = ?, submitted_on = ?, approved_by = ?,
		approved_on = ?, rejected_by = ?, decision_note = ?, row_version = row_version + 1, updated_at = ?
		WHERE id = ? AND row_version = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(v.Status),
		nullableCodeToValue(v.AnchorStageCode),
		nullableTimeToString(v.AnchorDate, dateLayout),
		boolToInt(v.SkipWeekends),
		string(v.TransitionRule),
		boolToInt(v.PncApplicable),
		nullableStringToValue(v.SubmittedBy),
		nullableTimestamp(v.SubmittedOn),
		nullableStringToValue(v.ApprovedBy),
		nullableTimestamp(v.ApprovedOn),
		nullableStringToValue(v.RejectedBy),
		v.DecisionNote,
		formatTimestamp(v.UpdatedAt),
		v.ID,
		v.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("updating plan version: %w", err)
	}
	if err := checkOneRow(res, fmt.Sprintf("plan version %d", v.VersionNo)); err != nil {
		return err
	}
	v.RowVersion++
	return nil
}

func (r *SQLitePlanVersionRepo) UpsertStagePlan(ctx context.Context, p *domain.StagePlan) error {
	query := `INSERT INTO stage_plans (plan_version_id, stage_code, planned_start, planned_due)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(plan_version_id, stage_code) DO UPDATE
		SET planned_start = excluded.planned_start, planned_due = excluded.planned_due`
	_, err := r.db.ExecContext(ctx, query,
		p.PlanVersionID,
		string(p.StageCode),
		nullableTimeToString(p.PlannedStart, dateLayout),
		nullableTimeToString(p.PlannedDue, dateLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting stage plan %s: %w", p.StageCode, err)
	}
	return nil
}

func (r *SQLitePlanVersionRepo) ListStagePlans(ctx context.Context, planVersionID string) ([]domain.StagePlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plan_version_id, stage_code, planned_start, planned_due FROM stage_plans
		WHERE plan_version_id = ? ORDER BY stage_code`, planVersionID)
	if err != nil {
		return nil, fmt.Errorf("listing stage plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.StagePlan
	for rows.Next() {
		var p domain.StagePlan
		var code string
		var start, due sql.NullString
		if err := rows.Scan(&p.PlanVersionID, &code, &start, &due); err != nil {
			return nil, fmt.Errorf("scanning stage plan: %w", err)
		}
		p.StageCode = domain.NewStageCode(code)
		p.PlannedStart = parseNullableTime(start, dateLayout)
		p.PlannedDue = parseNullableTime(due, dateLayout)
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage plans: %w", err)
	}
	return plans, nil
}

func (r *SQLitePlanVersionRepo) CreateSnapshot(ctx context.Context, s *domain.PlanSnapshot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plan_snapshots (id, project_id, plan_version_id, taken_on, taken_by, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProjectID, s.PlanVersionID, formatTimestamp(s.TakenOn), s.TakenBy, string(s.Payload))
	if err != nil {
		return fmt.Errorf("inserting plan snapshot: %w", err)
	}
	return nil
}

func (r *SQLitePlanVersionRepo) ListSnapshots(ctx context.Context, projectID string) ([]*domain.PlanSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, plan_version_id, taken_on, taken_by, payload FROM plan_snapshots
		WHERE project_id = ? ORDER BY taken_on`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing plan snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.PlanSnapshot
	for rows.Next() {
		var s domain.PlanSnapshot
		var takenOn, payload string
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.PlanVersionID, &takenOn, &s.TakenBy, &payload); err != nil {
			return nil, fmt.Errorf("scanning plan snapshot: %w", err)
		}
		if s.TakenOn, err = parseTimestamp("taken_on", takenOn); err != nil {
			return nil, err
		}
		s.Payload = []byte(payload)
		snaps = append(snaps, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan snapshots: %w", err)
	}
	return snaps, nil
}

func scanPlanVersion(row rowScanner) (*domain.PlanVersion, error) {
	var v domain.PlanVersion
	var status, rule, createdAt, updatedAt string
	var anchorCode, anchorDate, submittedBy, submittedOn, approvedBy, approvedOn, rejectedBy sql.NullString
	var skipWeekends, pnc int

	if err := row.Scan(
		&v.ID, &v.ProjectID, &v.VersionNo, &status, &anchorCode, &anchorDate, &skipWeekends,
		&rule, &pnc, &v.CreatedBy, &v.OwnerUserID, &submittedBy, &submittedOn,
		&approvedBy, &approvedOn, &rejectedBy, &v.DecisionNote, &v.RowVersion, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	v.Status = domain.PlanVersionStatus(status)
	v.TransitionRule = domain.TransitionRule(rule)
	v.AnchorStageCode = parseNullableCode(anchorCode)
	v.AnchorDate = parseNullableTime(anchorDate, dateLayout)
	v.SkipWeekends = intToBool(skipWeekends)
	v.PncApplicable = intToBool(pnc)
	v.SubmittedBy = parseNullableString(submittedBy)
	v.SubmittedOn = parseNullableTime(submittedOn, timestampLayout)
	v.ApprovedBy = parseNullableString(approvedBy)
	v.ApprovedOn = parseNullableTime(approvedOn, timestampLayout)
	v.RejectedBy = parseNullableString(rejectedBy)

	var err error
	if v.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
