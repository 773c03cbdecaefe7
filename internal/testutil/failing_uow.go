package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alexanderramin/stageflow/internal/db"
)

// FailOnNthExecUoW is a test UoW that injects Err into one write of a
// transaction so rollback behavior can be asserted.
//
// With FailOn set, the FailOn-th ExecContext call fails (counting from 1).
// With Match set, the first ExecContext whose SQL contains Match fails; this
// keeps a test stable when the number of preceding writes changes. Reads
// pass through untouched.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Match  string
	Err    error

	execs atomic.Int32
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failOnNthExec{DBTX: tx, uow: u}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

// Execs reports how many writes were attempted across all transactions.
func (u *FailOnNthExecUoW) Execs() int {
	return int(u.execs.Load())
}

type failOnNthExec struct {
	db.DBTX
	uow   *FailOnNthExecUoW
	count atomic.Int32
	fired bool
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.count.Add(1)
	f.uow.execs.Add(1)
	if !f.fired && f.shouldFail(n, query) {
		f.fired = true
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}

func (f *failOnNthExec) shouldFail(n int32, query string) bool {
	if f.uow.Match != "" {
		return strings.Contains(query, f.uow.Match)
	}
	return n == f.uow.FailOn
}
