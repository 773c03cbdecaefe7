package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func grantIn(ctx context.Context, tx db.DBTX, user, role string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, user, role)
	return err
}

func roleCount(t *testing.T, conn *sql.DB, user string) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM user_roles WHERE user_id = ?`, user).Scan(&n))
	return n
}

func TestWithinTx_Commits(t *testing.T) {
	conn := openMemory(t)
	uow := db.NewSQLiteUnitOfWork(conn)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := grantIn(ctx, tx, "hod", "HoD"); err != nil {
			return err
		}
		return grantIn(ctx, tx, "hod", "Approver")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, roleCount(t, conn, "hod"))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	conn := openMemory(t)
	uow := db.NewSQLiteUnitOfWork(conn)
	boom := errors.New("stage update failed")

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := grantIn(ctx, tx, "hod", "HoD"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, roleCount(t, conn, "hod"))
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	conn := openMemory(t)
	uow := db.NewSQLiteUnitOfWork(conn)

	assert.PanicsWithValue(t, "boom", func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = grantIn(ctx, tx, "hod", "HoD")
			panic("boom")
		})
	})
	assert.Zero(t, roleCount(t, conn, "hod"))
}

func TestWithinTx_CancelledContext(t *testing.T) {
	conn := openMemory(t)
	uow := db.NewSQLiteUnitOfWork(conn)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := uow.WithinTx(ctx, func(context.Context, db.DBTX) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestOpenDB_PragmasOnEveryConnection(t *testing.T) {
	conn, err := db.OpenDB(filepath.Join(t.TempDir(), "nested", "stageflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	// Hold two connections at once so the second is a fresh pool member.
	c1, err := conn.Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := conn.Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	for _, c := range []*sql.Conn{c1, c2} {
		var fk, timeout int
		var mode string
		require.NoError(t, c.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
		require.NoError(t, c.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout))
		require.NoError(t, c.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
		assert.Equal(t, 1, fk)
		assert.Equal(t, db.BusyTimeoutMS, timeout)
		assert.Equal(t, "wal", mode)
	}
}

func TestOpenDB_ForeignKeysEnforced(t *testing.T) {
	conn := openMemory(t)
	_, err := conn.Exec(`INSERT INTO project_stages (project_id, stage_code, sort_order, updated_at) VALUES ('nope', 'FS', 10, '2026-03-11T00:00:00Z')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREIGN KEY")
}
