// Package connector opens a database from configuration and pairs the
// resulting pool with the dialect adapter for its product.
package connector

import (
	"context"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/database/mysql"
	"github.com/koustreak/sqlstage/internal/database/postgres"
	"github.com/koustreak/sqlstage/internal/database/sqlite"
	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/introspect"
	"github.com/koustreak/sqlstage/internal/logger"
)

// Opener opens a pool for one driver.
type Opener func(ctx context.Context, cfg *database.Config) (*database.Handle, error)

// Connection is an open pool and the adapter that speaks its dialect.
type Connection struct {
	*database.Handle
	Adapter dialect.Adapter
}

// Introspector reads the connection's catalog.
func (c *Connection) Introspector(opts ...introspect.Option) *introspect.Introspector {
	opts = append([]introspect.Option{introspect.WithErrorMapper(c.Mapper())}, opts...)
	return introspect.New(c.Adapter, c.DB, opts...)
}

type Connector struct {
	openers  map[database.Driver]Opener
	registry *dialect.Registry
	log      *logger.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithOpener replaces or adds the opener for driver.
func WithOpener(driver database.Driver, open Opener) Option {
	return func(c *Connector) { c.openers[driver] = open }
}

func WithRegistry(r *dialect.Registry) Option {
	return func(c *Connector) { c.registry = r }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Connector) { c.log = logger.OrNop(l).Component("connector") }
}

// New returns a Connector for the bundled drivers and dialects.
func New(opts ...Option) *Connector {
	c := &Connector{
		openers: map[database.Driver]Opener{
			database.DriverPostgres: postgres.Open,
			database.DriverPQ:       postgres.Open,
			database.DriverMySQL:    mysql.Open,
			database.DriverSQLite:   sqlite.Open,
		},
		registry: dialect.DefaultRegistry(),
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect validates cfg, opens the pool and resolves the adapter from the
// product the connection reports, or from cfg.Product when set. The pool
// is closed again when no adapter serves the product.
func (c *Connector) Connect(ctx context.Context, cfg *database.Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	open, ok := c.openers[cfg.Driver]
	if !ok {
		return nil, errs.Newf(errs.ErrKindUnsupportedDatabase, "no opener for driver %q", cfg.Driver)
	}

	h, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	product := h.Product
	if cfg.Product != "" {
		product = cfg.Product
	}
	a, err := c.registry.Lookup(product)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	c.log.InfoWith("connected", map[string]interface{}{
		"driver":  string(cfg.Driver),
		"product": product,
		"dialect": a.Family().String(),
	})
	return &Connection{Handle: h, Adapter: a}, nil
}

// Products lists the product names the connector can serve.
func (c *Connector) Products() []string { return c.registry.Products() }
