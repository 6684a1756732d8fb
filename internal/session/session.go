// Package session stages inserts, updates and deletes of entity records,
// renders them through a dialect adapter and writes them in dependency
// order inside a stack of nested transaction scopes.
//
// A Session is not safe for concurrent use. Typical use:
//
//	s, err := session.New(session.Options{DB: h.DB, Adapter: a, Catalog: c, MapError: h.Mapper()})
//	if err := s.BeginTransaction(ctx); err != nil { ... }
//	defer s.Close(ctx)
//	_ = s.Stage(ctx, rec, entity.Insert)
//	if _, err := s.Flush(ctx); err != nil { _ = s.Rollback(ctx); ... }
//	err = s.Commit(ctx)
package session

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/logger"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/koustreak/sqlstage/internal/stmtcache"
)

// Strategy selects how staged operations are written.
type Strategy string

const (
	// StrategyPrepared binds values to cached prepared statements.
	StrategyPrepared Strategy = "prepared"
	// StrategyLiteral executes fully rendered SQL text.
	StrategyLiteral Strategy = "literal"
	// StrategyCSV renders inserts as CSV lines and executes nothing.
	StrategyCSV Strategy = "csv"
)

// ParseStrategy accepts the configuration spellings of a Strategy. Empty
// input selects StrategyPrepared.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPrepared:
		return StrategyPrepared, nil
	case StrategyLiteral:
		return StrategyLiteral, nil
	case StrategyCSV:
		return StrategyCSV, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unknown import strategy %q", s)
}

// Recorder observes flushes. The metrics package provides one; when it
// also implements stmtcache.Recorder it observes the statement cache too.
type Recorder interface {
	StatementExecuted(op string)
	BatchMismatches(n int)
	FlushCompleted(strategy string, statements int, d time.Duration, err error)
}

// Options configures a Session.
type Options struct {
	// DB hands out the connections owned by outermost scopes. It may be
	// nil when the session only ever attaches to existing connections.
	DB       *sql.DB
	Adapter  dialect.Adapter
	Catalog  *entity.Catalog
	MapError database.ErrorMapper

	Strategy Strategy
	// DisableOrdering executes batches in the order they were first staged.
	DisableOrdering bool
	// AutoCommit runs owned connections without a transaction.
	AutoCommit    bool
	CacheCapacity int
	// QueryTimeout bounds each statement of a flush. Zero means no bound.
	QueryTimeout time.Duration

	// CSV receives lines under StrategyCSV.
	CSV     CSVSink
	Logger  *logger.Logger
	Metrics Recorder
}

// Session is the persistence orchestrator. See the package documentation.
type Session struct {
	db         *sql.DB
	adapter    dialect.Adapter
	catalog    *entity.Catalog
	order      *schema.Orderer
	mapErr     database.ErrorMapper
	strategy   Strategy
	ordered    bool
	autoCommit bool
	timeout    time.Duration
	sink       CSVSink
	log        *logger.Logger
	metrics    Recorder

	stack     []holder
	cache     *stmtcache.Cache
	cacheLink *link

	pending [3]*batchSet
	staged  []stagedRecord
}

// New validates opts and returns an idle Session with no open scope.
func New(opts Options) (*Session, error) {
	if opts.Adapter == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "session requires a dialect adapter")
	}
	if opts.Catalog == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "session requires an entity catalog")
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyPrepared
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if strategy == StrategyCSV && opts.CSV == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "csv strategy requires a csv sink")
	}

	s := &Session{
		db:         opts.DB,
		adapter:    opts.Adapter,
		catalog:    opts.Catalog,
		order:      schema.NewOrderer(opts.Catalog.Schema()),
		mapErr:     opts.MapError,
		strategy:   strategy,
		ordered:    !opts.DisableOrdering,
		autoCommit: opts.AutoCommit,
		timeout:    opts.QueryTimeout,
		sink:       opts.CSV,
		log:        logger.OrNop(opts.Logger).Component("session"),
		metrics:    opts.Metrics,
	}
	if s.mapErr == nil {
		s.mapErr = database.MapCommon
	}

	var cacheOpts []stmtcache.Option
	if r, ok := opts.Metrics.(stmtcache.Recorder); ok {
		cacheOpts = append(cacheOpts, stmtcache.WithRecorder(r))
	}
	s.cache = stmtcache.New(opts.CacheCapacity, s.log, cacheOpts...)
	s.resetPending()
	return s, nil
}

func (s *Session) Strategy() Strategy       { return s.strategy }
func (s *Session) Adapter() dialect.Adapter { return s.adapter }
func (s *Session) Catalog() *entity.Catalog { return s.catalog }
func (s *Session) Cache() *stmtcache.Cache  { return s.cache }
func (s *Session) Schema() *schema.Schema   { return s.catalog.Schema() }
func (s *Session) Orderer() *schema.Orderer { return s.order }

// Table returns the named table of the session's schema.
func (s *Session) Table(name string) (*schema.TableInfo, error) {
	if t := s.Schema().Table(name); t != nil {
		return t, nil
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", name)
}

// Sequence returns the named sequence of the session's schema.
func (s *Session) Sequence(name string) (*schema.SequenceInfo, error) {
	if seq := s.Schema().Sequence(name); seq != nil {
		return seq, nil
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "sequence %q not found", name)
}

// PrimaryKeys maps every table to its primary key columns.
func (s *Session) PrimaryKeys() map[string][]string { return s.Schema().PrimaryKeys() }

// NextValue draws the next value of a database sequence on the current
// scope's connection.
func (s *Session) NextValue(ctx context.Context, sequence string) (int64, error) {
	q := s.adapter.NextValueQuery(sequence)
	if q == "" {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "%s has no sequences", s.adapter.Family())
	}
	exec, err := s.executor(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := exec.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, s.mapErr(err, "next value of "+sequence)
	}
	return n, nil
}

// CreateTempJoinTable creates the session-scoped key table used to join
// against large key sets.
func (s *Session) CreateTempJoinTable(ctx context.Context, name string) error {
	exec, err := s.executor(ctx)
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, s.adapter.TempJoinTableDDL(name)); err != nil {
		return s.mapErr(err, "failed to create temporary table "+name)
	}
	return nil
}
