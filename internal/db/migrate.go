package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id                     TEXT PRIMARY KEY,
		name                   TEXT NOT NULL,
		workflow_version       TEXT NOT NULL,
		hod_user_id            TEXT NOT NULL DEFAULT '',
		active_plan_version_id TEXT,
		created_by             TEXT NOT NULL DEFAULT '',
		created_at             TEXT NOT NULL,
		updated_at             TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS project_stages (
		project_id               TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		stage_code               TEXT NOT NULL,
		sort_order               INTEGER NOT NULL DEFAULT 0,
		status                   TEXT NOT NULL DEFAULT 'NotStarted'
		                         CHECK(status IN ('NotStarted','InProgress','Completed','Skipped','Blocked')),
		actual_start             TEXT,
		completed_on             TEXT,
		requires_backfill        INTEGER NOT NULL DEFAULT 0,
		is_auto_completed        INTEGER NOT NULL DEFAULT 0,
		auto_completed_from_code TEXT,
		updated_at               TEXT NOT NULL,
		PRIMARY KEY (project_id, stage_code)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_versions (
		id                TEXT PRIMARY KEY,
		project_id        TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		version_no        INTEGER NOT NULL,
		status            TEXT NOT NULL DEFAULT 'Draft'
		                  CHECK(status IN ('Draft','PendingApproval','Approved','Rejected')),
		anchor_stage_code TEXT,
		anchor_date       TEXT,
		skip_weekends     INTEGER NOT NULL DEFAULT 0,
		transition_rule   TEXT NOT NULL DEFAULT 'NextWorkingDay'
		                  CHECK(transition_rule IN ('SameDay','NextWorkingDay')),
		pnc_applicable    INTEGER NOT NULL DEFAULT 0,
		created_by        TEXT NOT NULL,
		owner_user_id     TEXT NOT NULL,
		submitted_by      TEXT,
		submitted_on      TEXT,
		approved_by       TEXT,
		approved_on       TEXT,
		rejected_by       TEXT,
		decision_note     TEXT NOT NULL DEFAULT '',
		row_version       INTEGER NOT NULL DEFAULT 1,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		UNIQUE (project_id, version_no)
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_plan_versions_one_draft
		ON plan_versions(project_id, owner_user_id) WHERE status = 'Draft'`,

	`CREATE TABLE IF NOT EXISTS stage_plans (
		plan_version_id TEXT NOT NULL REFERENCES plan_versions(id) ON DELETE CASCADE,
		stage_code      TEXT NOT NULL,
		planned_start   TEXT,
		planned_due     TEXT,
		PRIMARY KEY (plan_version_id, stage_code)
	)`,

	`CREATE TABLE IF NOT EXISTS schedule_settings (
		project_id        TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
		anchor_stage_code TEXT NOT NULL,
		anchor_date       TEXT NOT NULL,
		skip_weekends     INTEGER NOT NULL DEFAULT 1,
		transition_rule   TEXT NOT NULL DEFAULT 'NextWorkingDay'
		                  CHECK(transition_rule IN ('SameDay','NextWorkingDay')),
		updated_at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS plan_durations (
		project_id     TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		stage_code     TEXT NOT NULL,
		duration_days  INTEGER,
		override_start TEXT,
		override_due   TEXT,
		PRIMARY KEY (project_id, stage_code)
	)`,

	`CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS plan_snapshots (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		plan_version_id TEXT NOT NULL REFERENCES plan_versions(id) ON DELETE CASCADE,
		taken_on        TEXT NOT NULL,
		taken_by        TEXT NOT NULL,
		payload         TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS stage_change_requests (
		id               TEXT PRIMARY KEY,
		project_id       TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		stage_code       TEXT NOT NULL,
		requested_status TEXT NOT NULL,
		requested_date   TEXT,
		note             TEXT NOT NULL DEFAULT '',
		requested_by     TEXT NOT NULL,
		requested_on     TEXT NOT NULL,
		decision_status  TEXT NOT NULL DEFAULT 'Pending'
		                 CHECK(decision_status IN ('Pending','Approved','Rejected','Superseded')),
		decided_by       TEXT,
		decided_on       TEXT,
		decision_note    TEXT NOT NULL DEFAULT '',
		row_version      INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_stage_requests_one_pending
		ON stage_change_requests(project_id, stage_code) WHERE decision_status = 'Pending'`,

	`CREATE TABLE IF NOT EXISTS stage_change_logs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		stage_code      TEXT NOT NULL,
		action          TEXT NOT NULL
		                CHECK(action IN ('Requested','DirectApply','Applied','Superseded','Backfill','ActualsUpdated')),
		from_status     TEXT,
		to_status       TEXT,
		to_actual_start TEXT,
		to_completed_on TEXT,
		at              TEXT NOT NULL,
		note            TEXT NOT NULL DEFAULT '',
		by_user_id      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_stage_change_logs_project ON stage_change_logs(project_id, stage_code)`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT NOT NULL,
		role    TEXT NOT NULL,
		PRIMARY KEY (user_id, role)
	)`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		at      TEXT NOT NULL,
		action  TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		level      TEXT NOT NULL DEFAULT 'INFO',
		user_id    TEXT,
		project_id TEXT,
		data       TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		recipient    TEXT NOT NULL,
		payload      TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		delivered_at TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient, delivered_at)`,
}
