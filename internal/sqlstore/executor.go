// Package sqlstore is the store adapter: it turns key sets, predicate
// trees, and window specifications into SQL against a database/sql
// handle. Nothing outside this package emits SQL for row fetches.
package sqlstore

import (
	"context"
	"database/sql"
)

// Rows abstracts sql.Rows so tests can substitute fakes and wrappers can
// add cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Executor abstracts SQL execution so production can use an
// instrumented *sql.DB and tests can use sqlmock.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DBExecutor executes queries directly against a database handle.
type DBExecutor struct {
	db *sql.DB
}

// NewDBExecutor wraps a database handle as an Executor.
func NewDBExecutor(db *sql.DB) *DBExecutor {
	return &DBExecutor{db: db}
}

func (e *DBExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *DBExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}
