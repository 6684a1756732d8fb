// Package mysql opens MySQL and MariaDB pools through go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/errs"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver
)

// Product names the dialect registry knows this family by.
const (
	ProductMySQL   = "MySQL"
	ProductMariaDB = "MariaDB"
)

// Open opens a MySQL connection pool using the provided Config and returns
// a Handle. It calls Ping to validate the connection and asks the server
// for its version to tell MariaDB from MySQL.
func Open(ctx context.Context, cfg *database.Config) (*database.Handle, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	database.ApplyPool(db, cfg)

	if err := database.PingTimeout(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, mapError(err, "ping failed")
	}

	product := cfg.Product
	if product == "" {
		if product, err = detectProduct(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return database.NewHandle(db, database.DriverMySQL, product, mapError), nil
}

func detectProduct(ctx context.Context, q database.Querier) (string, error) {
	var version string
	if err := q.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", mapError(err, "failed to read server version")
	}
	if strings.Contains(strings.ToLower(version), "mariadb") {
		return ProductMariaDB, nil
	}
	return ProductMySQL, nil
}
