// Package database holds the vendor-neutral connection contract. Vendor
// packages (postgres, mysql, sqlite) open a *sql.DB, report the product
// name used for dialect selection and translate their native errors.
package database

import (
	"context"
	"database/sql"
	"time"
)

// Handle is an open connection pool plus what the rest of sqlstage needs
// to know about it.
type Handle struct {
	DB      *sql.DB
	Driver  Driver
	Product string

	mapErr ErrorMapper
}

// NewHandle wraps db. A nil mapper falls back to MapCommon.
func NewHandle(db *sql.DB, driver Driver, product string, mapErr ErrorMapper) *Handle {
	if mapErr == nil {
		mapErr = MapCommon
	}
	return &Handle{DB: db, Driver: driver, Product: product, mapErr: mapErr}
}

// MapError translates err with the vendor's mapper.
func (h *Handle) MapError(err error, msg string) error {
	return h.mapErr(err, msg)
}

// Mapper exposes the vendor's error mapper for components that hold their
// own connection.
func (h *Handle) Mapper() ErrorMapper { return h.mapErr }

// Ping verifies the database is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	return h.mapErr(h.DB.PingContext(ctx), "ping failed")
}

// Close releases all resources held by the connection pool.
func (h *Handle) Close() error {
	return h.DB.Close()
}

// ApplyPool copies the pool settings of cfg onto db. Zero values keep the
// database/sql defaults.
func ApplyPool(db *sql.DB, cfg *Config) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if cfg.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}
}

// PingTimeout pings db within cfg.ConnectTimeout, or without a deadline
// when none is configured.
func PingTimeout(ctx context.Context, db *sql.DB, cfg *Config) error {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

// WithQueryTimeout derives a context bounded by d when d is positive.
func WithQueryTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
