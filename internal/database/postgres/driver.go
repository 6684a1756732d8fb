// Package postgres opens PostgreSQL pools through database/sql, using
// either jackc/pgx (driver "pgx") or lib/pq (driver "postgres").
package postgres

import (
	"context"
	"database/sql"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/errs"

	_ "github.com/jackc/pgx/v5/stdlib" // register "pgx" driver
	_ "github.com/lib/pq"              // register "postgres" driver
)

// Product is the name the dialect registry knows PostgreSQL by.
const Product = "PostgreSQL"

// Open connects to PostgreSQL using the provided Config and returns a Handle.
// It pings within cfg.ConnectTimeout to validate the connection before
// returning.
func Open(ctx context.Context, cfg *database.Config) (*database.Handle, error) {
	driverName := "pgx"
	if cfg.Driver == database.DriverPQ {
		driverName = "postgres"
	}

	db, err := sql.Open(driverName, buildDSN(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	database.ApplyPool(db, cfg)

	if err := database.PingTimeout(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, mapError(err, "ping failed")
	}

	product := Product
	if cfg.Product != "" {
		product = cfg.Product
	}
	return database.NewHandle(db, cfg.Driver, product, mapError), nil
}
