// Package sqlite opens SQLite databases through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/errs"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Product is the name the dialect registry knows SQLite by.
const Product = "SQLite"

// Open opens the database file named by cfg.DSN (or cfg.Database) with
// foreign key enforcement on. In-memory databases are limited to one
// connection so every statement sees the same database.
func Open(ctx context.Context, cfg *database.Config) (*database.Handle, error) {
	dsn := buildDSN(cfg)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	database.ApplyPool(db, cfg)
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err := database.PingTimeout(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, mapError(err, "ping failed")
	}

	product := Product
	if cfg.Product != "" {
		product = cfg.Product
	}
	return database.NewHandle(db, database.DriverSQLite, product, mapError), nil
}

// buildDSN adds the foreign_keys pragma unless the DSN already sets it.
func buildDSN(cfg *database.Config) string {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Database
	}
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
