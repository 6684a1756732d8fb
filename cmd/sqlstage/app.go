package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/koustreak/sqlstage/internal/config"
	"github.com/koustreak/sqlstage/internal/connector"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/filestore/minio"
	"github.com/koustreak/sqlstage/internal/introspect"
	"github.com/koustreak/sqlstage/internal/logger"
	"github.com/koustreak/sqlstage/internal/session"
	"go.yaml.in/yaml/v3"
)

// stdout receives command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

// app is the configuration and logger shared by every command.
type app struct {
	cfg *config.Config
	log *logger.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load(baseCfg.Config)
	if err != nil {
		return nil, err
	}
	if baseCfg.Log.Level != "" {
		cfg.Logging.Level = baseCfg.Log.Level
	}
	if baseCfg.Log.Format != "" {
		cfg.Logging.Format = baseCfg.Log.Format
	}
	lc := cfg.LoggerConfig()
	lc.Output = os.Stderr
	return &app{cfg: cfg, log: logger.New(lc)}, nil
}

func (a *app) connect(ctx context.Context) (*connector.Connection, error) {
	return connector.New(connector.WithLogger(a.log)).Connect(ctx, a.cfg.Database)
}

// introspector applies the configured relationships and type strictness.
func (a *app) introspector(conn *connector.Connection) *introspect.Introspector {
	opts := []introspect.Option{
		introspect.WithLogger(a.log),
		introspect.WithStrictTypes(a.cfg.Session.StrictTypes),
	}
	if len(a.cfg.Relationships) > 0 {
		opts = append(opts, introspect.WithEnhancer(&introspect.StaticEnhancer{Relationships: a.cfg.Relationships}))
	}
	return conn.Introspector(opts...)
}

// csvSink writes to the configured bucket when one is set, else to the
// configured directory.
func (a *app) csvSink(ctx context.Context) (session.CSVSink, error) {
	c := a.cfg.CSV
	if c.Bucket == "" {
		return session.DirSink{Dir: c.Dir}, nil
	}
	store, err := minio.New(ctx, a.cfg.Filestore)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx, c.Bucket); err != nil {
		return nil, err
	}
	a.log.InfoWith("writing csv to object store", map[string]interface{}{
		"endpoint": a.cfg.Filestore.Endpoint,
		"bucket":   c.Bucket,
		"prefix":   c.Prefix,
	})
	return session.StoreSink{Store: store, Bucket: c.Bucket, Prefix: c.Prefix}, nil
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", format)
	}
}
