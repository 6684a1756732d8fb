// Package introspect reads a database catalog through a dialect adapter
// and assembles the schema model.
//
// Every catalog query returns the rows of one table (or one constraint)
// as a contiguous block; the readers here accumulate a block and finish it
// when the grouping key changes.
package introspect

import (
	"context"
	"database/sql"
	"strconv"
	"sync"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/logger"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/shopspring/decimal"
)

// Enhancer adds relationships the catalog does not declare. It runs once
// per assembly, after catalog foreign keys are attached.
type Enhancer interface {
	Enhance(s *schema.Schema) error
}

// EnhancerFunc adapts a function to Enhancer.
type EnhancerFunc func(s *schema.Schema) error

func (f EnhancerFunc) Enhance(s *schema.Schema) error { return f(s) }

// Introspector reads and memoizes the schema of one database.
type Introspector struct {
	adapter  dialect.Adapter
	db       database.Querier
	enhancer Enhancer
	mapErr   database.ErrorMapper
	log      *logger.Logger
	strict   bool

	mu     sync.Mutex
	cached *schema.Schema
}

// Option configures an Introspector.
type Option func(*Introspector)

func WithEnhancer(e Enhancer) Option { return func(i *Introspector) { i.enhancer = e } }

func WithLogger(l *logger.Logger) Option {
	return func(i *Introspector) { i.log = logger.OrNop(l).Component("introspect") }
}

// WithErrorMapper translates driver errors with the vendor's mapper.
func WithErrorMapper(m database.ErrorMapper) Option {
	return func(i *Introspector) {
		if m != nil {
			i.mapErr = m
		}
	}
}

// WithStrictTypes makes an unmapped native column type fail introspection
// instead of producing a column of unknown type.
func WithStrictTypes(strict bool) Option { return func(i *Introspector) { i.strict = strict } }

// New returns an Introspector reading through db with the given adapter.
func New(adapter dialect.Adapter, db database.Querier, opts ...Option) *Introspector {
	i := &Introspector{
		adapter: adapter,
		db:      db,
		mapErr:  database.MapCommon,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Schema returns the assembled schema, reading the catalog on first use.
func (i *Introspector) Schema(ctx context.Context) (*schema.Schema, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cached != nil {
		return i.cached, nil
	}

	tables, err := i.Tables(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*schema.TableInfo, len(tables))
	for _, t := range tables {
		byName[t.Name()] = t
	}
	fks, err := i.ForeignKeys(ctx, byName)
	if err != nil {
		return nil, err
	}
	seqs, err := i.Sequences(ctx)
	if err != nil {
		return nil, err
	}

	s := schema.New(tables, seqs)
	for _, fk := range fks {
		s.AddForeignKey(fk)
	}
	if i.enhancer != nil {
		if err := i.enhancer.Enhance(s); err != nil {
			return nil, err
		}
	}

	i.log.InfoWith("schema loaded", map[string]interface{}{
		"dialect":      i.adapter.Family().String(),
		"tables":       len(tables),
		"foreign_keys": len(s.ForeignKeys()),
		"sequences":    len(seqs),
	})
	i.cached = s
	return s, nil
}

// Refresh drops the memoized schema; the next lookup reads the catalog.
func (i *Introspector) Refresh() {
	i.mu.Lock()
	i.cached = nil
	i.mu.Unlock()
}

// Table returns the named table. Missing tables are ErrKindNotFound.
func (i *Introspector) Table(ctx context.Context, name string) (*schema.TableInfo, error) {
	s, err := i.Schema(ctx)
	if err != nil {
		return nil, err
	}
	if t := s.Table(name); t != nil {
		return t, nil
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", name)
}

// Sequence returns the named sequence. Missing sequences are ErrKindNotFound.
func (i *Introspector) Sequence(ctx context.Context, name string) (*schema.SequenceInfo, error) {
	s, err := i.Schema(ctx)
	if err != nil {
		return nil, err
	}
	if seq := s.Sequence(name); seq != nil {
		return seq, nil
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "sequence %q not found", name)
}

// PrimaryKeys maps every table to its primary key columns.
func (i *Introspector) PrimaryKeys(ctx context.Context) (map[string][]string, error) {
	s, err := i.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return s.PrimaryKeys(), nil
}

// TableExists asks the catalog directly, bypassing the memoized schema.
func (i *Introspector) TableExists(ctx context.Context, name string) (bool, error) {
	var n int64
	if err := i.db.QueryRowContext(ctx, i.adapter.TableExistsQuery(), name).Scan(&n); err != nil {
		return false, i.mapErr(err, "table exists query failed")
	}
	return n > 0, nil
}

// Tables reads primary keys, then columns, and builds one TableInfo per
// contiguous block of column rows. Tables without a declared key get a
// synthetic one of all columns.
func (i *Introspector) Tables(ctx context.Context) ([]*schema.TableInfo, error) {
	keys, err := i.primaryKeys(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx, i.adapter.ColumnsQuery())
	if err != nil {
		return nil, i.mapErr(err, "columns query failed")
	}
	defer rows.Close()

	var (
		tables  []*schema.TableInfo
		current string
		columns []*schema.ColumnInfo
	)
	flush := func() {
		if current == "" {
			return
		}
		tables = append(tables, schema.NewTable(current, columns, keys[current]))
		columns = nil
	}

	for rows.Next() {
		var table, column, nullable, native, generated, maxLen sql.NullString
		if err := rows.Scan(&table, &column, &nullable, &native, &generated, &maxLen); err != nil {
			return nil, i.mapErr(err, "failed to scan column row")
		}
		if table.String != current {
			flush()
			current = table.String
		}
		col, err := i.column(table.String, column.String, nullable.String, native.String, generated.String, maxLen)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, i.mapErr(err, "error iterating column rows")
	}
	flush()
	return tables, nil
}

func (i *Introspector) column(table, name, nullable, native, generated string, maxLen sql.NullString) (*schema.ColumnInfo, error) {
	typ, err := i.adapter.MapType(native)
	if err != nil {
		if i.strict {
			return nil, errs.Wrap(errs.KindOf(err), "column "+table+"."+name, err)
		}
		i.log.WarnWith("unmapped column type", err, map[string]interface{}{
			"table":  table,
			"column": name,
			"type":   native,
		})
	}

	length := dialect.TypeLength(native)
	if maxLen.Valid {
		if n, err := strconv.Atoi(maxLen.String); err == nil {
			length = n
		}
	}
	return schema.NewColumn(name, typ, native, yes(nullable), yes(generated), length), nil
}

// primaryKeys reads the key columns of every table, in key order.
func (i *Introspector) primaryKeys(ctx context.Context) (map[string][]string, error) {
	rows, err := i.db.QueryContext(ctx, i.adapter.PrimaryKeysQuery())
	if err != nil {
		return nil, i.mapErr(err, "primary keys query failed")
	}
	defer rows.Close()

	keys := make(map[string][]string)
	var (
		current string
		cols    []string
	)
	for rows.Next() {
		var table, column sql.NullString
		if err := rows.Scan(&table, &column); err != nil {
			return nil, i.mapErr(err, "failed to scan primary key row")
		}
		if table.String != current {
			if current != "" {
				keys[current] = cols
			}
			current, cols = table.String, nil
		}
		cols = append(cols, column.String)
	}
	if err := rows.Err(); err != nil {
		return nil, i.mapErr(err, "error iterating primary key rows")
	}
	if current != "" {
		keys[current] = cols
	}
	return keys, nil
}

// pendingKey accumulates the rows of one foreign key constraint.
type pendingKey struct {
	name, table, refTable string
	columns, refColumns   []string
	onDelete, onUpdate    string
}

// ForeignKeys reads every foreign key whose tables are both in tables.
// Referenced columns the catalog leaves empty are taken positionally from
// the referenced table's primary key.
func (i *Introspector) ForeignKeys(ctx context.Context, tables map[string]*schema.TableInfo) ([]*schema.ForeignKey, error) {
	rows, err := i.db.QueryContext(ctx, i.adapter.ForeignKeysQuery())
	if err != nil {
		return nil, i.mapErr(err, "foreign keys query failed")
	}
	defer rows.Close()

	var (
		fks     []*schema.ForeignKey
		current *pendingKey
	)
	finish := func() {
		if current == nil {
			return
		}
		if fk := i.resolve(current, tables); fk != nil {
			fks = append(fks, fk)
		}
		current = nil
	}

	for rows.Next() {
		var name, table, column, refTable, refColumn, onDelete, onUpdate sql.NullString
		if err := rows.Scan(&name, &table, &column, &refTable, &refColumn, &onDelete, &onUpdate); err != nil {
			return nil, i.mapErr(err, "failed to scan foreign key row")
		}
		if current == nil || current.table != table.String || current.name != name.String {
			finish()
			current = &pendingKey{
				name:     name.String,
				table:    table.String,
				refTable: refTable.String,
				onDelete: onDelete.String,
				onUpdate: onUpdate.String,
			}
		}
		current.columns = append(current.columns, column.String)
		current.refColumns = append(current.refColumns, refColumn.String)
	}
	if err := rows.Err(); err != nil {
		return nil, i.mapErr(err, "error iterating foreign key rows")
	}
	finish()
	return fks, nil
}

func (i *Introspector) resolve(p *pendingKey, tables map[string]*schema.TableInfo) *schema.ForeignKey {
	from, to := tables[p.table], tables[p.refTable]
	if from == nil || to == nil {
		i.log.WarnWith("foreign key skipped", nil, map[string]interface{}{
			"constraint": p.name,
			"table":      p.table,
			"references": p.refTable,
		})
		return nil
	}
	refCols := p.refColumns
	pk := to.PrimaryKey()
	for n, c := range refCols {
		if c == "" && n < len(pk) {
			refCols[n] = pk[n]
		}
	}
	return schema.NewForeignKey(p.name, from, to, p.columns, refCols,
		schema.ParseRule(p.onDelete), schema.ParseRule(p.onUpdate))
}

// Sequences reads sequence metadata. Families without sequences return nil.
func (i *Introspector) Sequences(ctx context.Context) ([]*schema.SequenceInfo, error) {
	q := i.adapter.SequencesQuery()
	if q == "" {
		return nil, nil
	}
	rows, err := i.db.QueryContext(ctx, q)
	if err != nil {
		return nil, i.mapErr(err, "sequences query failed")
	}
	defer rows.Close()

	var seqs []*schema.SequenceInfo
	for rows.Next() {
		var name, native, minV, maxV, incr, start, cycle sql.NullString
		if err := rows.Scan(&name, &native, &minV, &maxV, &incr, &start, &cycle); err != nil {
			return nil, i.mapErr(err, "failed to scan sequence row")
		}
		seqs = append(seqs, &schema.SequenceInfo{
			Name:       name.String,
			NativeType: native.String,
			Min:        number(minV),
			Max:        number(maxV),
			Increment:  number(incr),
			Start:      number(start),
			Cycle:      yes(cycle.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, i.mapErr(err, "error iterating sequence rows")
	}
	return seqs, nil
}

func yes(s string) bool {
	switch s {
	case "YES", "Y", "yes", "1", "true", "TRUE":
		return true
	}
	return false
}

func number(s sql.NullString) decimal.Decimal {
	if !s.Valid {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.Zero
	}
	return d
}
