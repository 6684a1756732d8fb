package database

import (
	"context"
	"database/sql"
)

// Querier runs read statements. *sql.DB, *sql.Conn and *sql.Tx all
// satisfy it, so catalog readers work inside or outside a transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor is a Querier that can also write and prepare statements.
type Executor interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Pool hands out dedicated connections. It is *sql.DB in production.
type Pool interface {
	Conn(ctx context.Context) (*sql.Conn, error)
	PingContext(ctx context.Context) error
}

// ErrorMapper translates a driver error into an *errs.Error. msg describes
// the operation that failed.
type ErrorMapper func(err error, msg string) error

var (
	_ Executor = (*sql.DB)(nil)
	_ Executor = (*sql.Conn)(nil)
	_ Executor = (*sql.Tx)(nil)
	_ Pool     = (*sql.DB)(nil)
)
