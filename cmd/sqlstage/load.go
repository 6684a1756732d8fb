package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/koustreak/sqlstage/internal/session"
	"go.yaml.in/yaml/v3"
)

type cmdLoad struct {
	Records  string `long:"records" short:"r" default:"-" description:"Records file, YAML or JSON. Use '-' for stdin"`
	Strategy string `long:"strategy" choice:"prepared" choice:"literal" choice:"csv" description:"Override session.import_strategy"`
	Format   string `long:"format" short:"o" choice:"yaml" choice:"json" default:"yaml" description:"Report format"`
	DryRun   bool   `long:"dry-run" description:"Roll back after the flush"`
}

// recordEntry is one entry of a records file.
type recordEntry struct {
	Type   string           `yaml:"type"`
	Op     entity.Operation `yaml:"op"`
	Values map[string]any   `yaml:"values"`
}

func (cmd *cmdLoad) Execute([]string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries, err := readRecords(cmd.Records)
	if err != nil {
		return err
	}

	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	s, err := a.introspector(conn).Schema(ctx)
	if err != nil {
		return err
	}

	strategy := a.cfg.Strategy()
	if cmd.Strategy != "" {
		strategy = session.Strategy(cmd.Strategy)
	}
	var sink session.CSVSink
	if strategy == session.StrategyCSV {
		if sink, err = a.csvSink(ctx); err != nil {
			return err
		}
	}

	sess, err := session.New(session.Options{
		DB:              conn.DB,
		Adapter:         conn.Adapter,
		Catalog:         entity.NewCatalog(s, a.cfg.CatalogOptions()),
		MapError:        conn.Mapper(),
		Strategy:        strategy,
		DisableOrdering: !a.cfg.Session.Ordering,
		AutoCommit:      a.cfg.Session.AutoCommit,
		CacheCapacity:   a.cfg.Session.StatementCacheCapacity,
		QueryTimeout:    a.cfg.Database.QueryTimeout,
		CSV:             sink,
		Logger:          a.log,
	})
	if err != nil {
		return err
	}

	rep, err := load(ctx, sess, entries, cmd.DryRun)
	if rep != nil {
		if encErr := encode(stdout, cmd.Format, rep); encErr != nil && err == nil {
			err = encErr
		}
	}
	return err
}

func readRecords(path string) ([]recordEntry, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read records", err)
	}
	return decodeRecords(data)
}

// decodeRecords accepts YAML, and JSON as its subset.
func decodeRecords(data []byte) ([]recordEntry, error) {
	var entries []recordEntry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid records file", err)
	}
	for i, e := range entries {
		if e.Type == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "record %d: type is required", i)
		}
	}
	return entries, nil
}

// load stages every entry and flushes in one scope. The scope is committed
// on success and rolled back on failure or when dryRun is set.
func load(ctx context.Context, s *session.Session, entries []recordEntry, dryRun bool) (rep *session.FlushReport, err error) {
	if err := s.BeginTransaction(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil || dryRun {
			if rbErr := s.Rollback(ctx); rbErr != nil && err == nil {
				err = rbErr
			}
		} else {
			err = s.Commit(ctx)
		}
		_ = s.Close(ctx)
	}()

	for i, e := range entries {
		rec, err := resolve(ctx, s, e)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s %s): %w", i, e.Op, e.Type, err)
		}
		if err := s.Stage(ctx, rec, e.Op); err != nil {
			return nil, fmt.Errorf("record %d (%s %s): %w", i, e.Op, e.Type, err)
		}
	}
	return s.Flush(ctx)
}

// resolve builds the record for e. Inserts start empty; updates and
// deletes start from the stored row so the generated WHERE clause
// matches it.
func resolve(ctx context.Context, s *session.Session, e recordEntry) (*entity.Record, error) {
	t, err := s.Catalog().Type(e.Type)
	if err != nil {
		return nil, err
	}

	var rec *entity.Record
	if e.Op == entity.Insert {
		rec = entity.NewRecord(t)
	} else {
		id := make([]any, 0, len(t.Identifier()))
		for _, c := range t.Identifier() {
			v, ok := e.Values[c]
			if !ok {
				return nil, errs.Newf(errs.ErrKindMissingIdentifier, "identifier column %s not given", c)
			}
			id = append(id, v)
		}
		if rec, err = s.Find(ctx, t.Name(), id...); err != nil {
			return nil, err
		}
	}
	if e.Op == entity.Delete {
		return rec, nil
	}

	for name, v := range e.Values {
		col := column(t, name)
		if col == nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "%s has no column %s", t.Name(), name)
		}
		cv, err := dialect.Convert(v, col.Type())
		if err != nil {
			return nil, err
		}
		rec.Set(name, cv)
	}
	return rec, nil
}

// column finds name on the narrowest level of t's chain that declares it.
func column(t *entity.EntityType, name string) *schema.ColumnInfo {
	for _, level := range t.Chain() {
		if c := level.Table().Column(name); c != nil {
			return c
		}
	}
	return nil
}
