package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLiteScheduleRepo stores plan-generation inputs: calendar settings,
// per-stage durations and overrides, and the holiday calendar.
type SQLiteScheduleRepo struct {
	db db.DBTX
}

func NewSQLiteScheduleRepo(conn db.DBTX) *SQLiteScheduleRepo {
	return &SQLiteScheduleRepo{db: conn}
}

func (r *SQLiteScheduleRepo) GetSettings(ctx context.Context, projectID string) (*domain.ScheduleSettings, error) {
	query := `SELECT project_id, anchor_stage_code, anchor_date, skip_weekends, transition_rule, updated_at
		FROM schedule_settings WHERE project_id = ?`
	var s domain.ScheduleSettings
	var code, anchorDate, rule, updatedAt string
	var skip int
	err := r.db.QueryRowContext(ctx, query, projectID).Scan(&s.ProjectID, &code, &anchorDate, &skip, &rule, &updatedAt)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("schedule settings of project %s", projectID))
	}
	s.AnchorStageCode = domain.NewStageCode(code)
	s.SkipWeekends = intToBool(skip)
	s.TransitionRule = domain.TransitionRule(rule)
	if s.AnchorDate, err = domain.ParseDay(anchorDate); err != nil {
		return nil, fmt.Errorf("parsing anchor_date: %w", err)
	}
	if s.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteScheduleRepo) UpsertSettings(ctx context.Context, s *domain.ScheduleSettings) error {
	query := `INSERT INTO schedule_settings (project_id, anchor_stage_code, anchor_date, skip_weekends, transition_rule, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			anchor_stage_code = excluded.anchor_stage_code,
			anchor_date = excluded.anchor_date,
			skip_weekends = excluded.skip_weekends,
			transition_rule = excluded.transition_rule,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.ProjectID,
		string(s.AnchorStageCode),
		s.AnchorDate.Format(dateLayout),
		boolToInt(s.SkipWeekends),
		string(s.TransitionRule),
		formatTimestamp(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting schedule settings: %w", err)
	}
	return nil
}

func (r *SQLiteScheduleRepo) ListDurations(ctx context.Context, projectID string) ([]domain.PlanDuration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT project_id, stage_code, duration_days, override_start, override_due
		FROM plan_durations WHERE project_id = ? ORDER BY stage_code`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing plan durations: %w", err)
	}
	defer rows.Close()

	var out []domain.PlanDuration
	for rows.Next() {
		var d domain.PlanDuration
		var code string
		var days sql.NullInt64
		var start, due sql.NullString
		if err := rows.Scan(&d.ProjectID, &code, &days, &start, &due); err != nil {
			return nil, fmt.Errorf("scanning plan duration: %w", err)
		}
		d.StageCode = domain.NewStageCode(code)
		if days.Valid {
			v := int(days.Int64)
			d.DurationDays = &v
		}
		d.OverrideStart = parseNullableTime(start, dateLayout)
		d.OverrideDue = parseNullableTime(due, dateLayout)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan durations: %w", err)
	}
	return out, nil
}

func (r *SQLiteScheduleRepo) UpsertDuration(ctx context.Context, d *domain.PlanDuration) error {
	query := `INSERT INTO plan_durations (project_id, stage_code, duration_days, override_start, override_due)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, stage_code) DO UPDATE SET
			duration_days = excluded.duration_days,
			override_start = excluded.override_start,
			override_due = excluded.override_due`
	_, err := r.db.ExecContext(ctx, query,
		d.ProjectID,
		string(d.StageCode),
		nullableIntToValue(d.DurationDays),
		nullableTimeToString(d.OverrideStart, dateLayout),
		nullableTimeToString(d.OverrideDue, dateLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting plan duration %s: %w", d.StageCode, err)
	}
	return nil
}

func (r *SQLiteScheduleRepo) ListHolidays(ctx context.Context) ([]domain.Holiday, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, name FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("listing holidays: %w", err)
	}
	defer rows.Close()

	var out []domain.Holiday
	for rows.Next() {
		var h domain.Holiday
		var date string
		if err := rows.Scan(&date, &h.Name); err != nil {
			return nil, fmt.Errorf("scanning holiday: %w", err)
		}
		if h.Date, err = domain.ParseDay(date); err != nil {
			return nil, fmt.Errorf("parsing holiday date: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating holidays: %w", err)
	}
	return out, nil
}

func (r *SQLiteScheduleRepo) AddHoliday(ctx context.Context, h domain.Holiday) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO holidays (date, name) VALUES (?, ?) ON CONFLICT(date) DO UPDATE SET name = excluded.name`,
		h.Date.Format(dateLayout), h.Name)
	if err != nil {
		return fmt.Errorf("inserting holiday: %w", err)
	}
	return nil
}
