package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"projects", "project_stages", "plan_versions", "stage_plans",
		"schedule_settings", "plan_durations", "holidays", "plan_snapshots",
		"stage_change_requests", "stage_change_logs", "user_roles",
		"audit_events", "notifications",
	}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_plan_versions_one_draft",
		"idx_stage_requests_one_pending",
		"idx_stage_change_logs_project",
		"idx_notifications_recipient",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_OnePendingRequestPerStage(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO projects (id, name, workflow_version, created_at, updated_at)
		VALUES ('p1', 'P', 'v1', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)

	insert := `INSERT INTO stage_change_requests (id, project_id, stage_code, requested_status, requested_by, requested_on, decision_status)
		VALUES (?, 'p1', 'SOW', 'InProgress', 'u1', '2024-01-01T00:00:00Z', ?)`
	_, err = db.Exec(insert, "r1", "Pending")
	require.NoError(t, err)
	_, err = db.Exec(insert, "r2", "Pending")
	require.Error(t, err, "second pending request must violate the partial unique index")
	_, err = db.Exec(insert, "r3", "Rejected")
	require.NoError(t, err, "decided requests are not constrained")
}

func TestMigrate_StageStatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO projects (id, name, workflow_version, created_at, updated_at)
		VALUES ('p1', 'P', 'v1', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO project_stages (project_id, stage_code, status, updated_at)
		VALUES ('p1', 'FS', 'Finished', '2024-01-01T00:00:00Z')`)
	require.Error(t, err)
}
