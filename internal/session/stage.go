package session

import (
	"context"

	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
)

// item is one rendered statement (or CSV line) for one table level.
type item struct {
	stmt   dialect.Statement
	fields []string
}

// batch groups the items of one entity type and operation.
type batch struct {
	name  string
	items []item
}

// batchSet holds the batches of one operation kind, remembering the order
// in which types were first staged.
type batchSet struct {
	byName map[string]*batch
	order  []string
}

func newBatchSet() *batchSet { return &batchSet{byName: make(map[string]*batch)} }

func (bs *batchSet) add(name string, it item) {
	b, ok := bs.byName[name]
	if !ok {
		b = &batch{name: name}
		bs.byName[name] = b
		bs.order = append(bs.order, name)
	}
	b.items = append(b.items, it)
}

func (bs *batchSet) len() int {
	n := 0
	for _, b := range bs.byName {
		n += len(b.items)
	}
	return n
}

// stagedRecord remembers what a successful flush must snapshot and what a
// failed one must undo.
type stagedRecord struct {
	rec        *entity.Record
	op         entity.Operation
	hadVersion bool
	version    any
}

func (s *Session) resetPending() {
	for i := range s.pending {
		s.pending[i] = newBatchSet()
	}
	s.staged = nil
}

// Pending returns the number of staged statements per operation.
func (s *Session) Pending() map[entity.Operation]int {
	return map[entity.Operation]int{
		entity.Insert: s.pending[entity.Insert].len(),
		entity.Update: s.pending[entity.Update].len(),
		entity.Delete: s.pending[entity.Delete].len(),
	}
}

// Clear discards every staged operation and restores version columns
// bumped by staged updates.
func (s *Session) Clear() {
	s.restoreVersions()
	s.resetPending()
}

func (s *Session) restoreVersions() {
	for _, st := range s.staged {
		if st.op != entity.Update {
			continue
		}
		vc := st.rec.Type.VersionColumn()
		if st.hadVersion {
			st.rec.Set(vc, st.version)
		} else {
			delete(st.rec.Values, vc)
		}
	}
}

func (s *Session) mode() dialect.Mode {
	if s.strategy == StrategyPrepared {
		return dialect.Bound
	}
	return dialect.Literal
}

// Stage renders op for rec and queues the result by entity type. Render
// errors (unknown types, unsupported values, missing identifiers) are
// returned here, before anything reaches the database.
func (s *Session) Stage(ctx context.Context, rec *entity.Record, op entity.Operation) error {
	if rec == nil || rec.Type == nil {
		return errs.New(errs.ErrKindInvalidInput, "stage of a record without type")
	}
	if s.strategy == StrategyCSV && op != entity.Insert {
		return errs.Newf(errs.ErrKindInvalidInput, "csv strategy only exports inserts, got %s", op)
	}

	var (
		items []levelItem
		err   error
		st    = stagedRecord{rec: rec, op: op}
	)
	switch op {
	case entity.Insert:
		items, err = s.renderInsert(ctx, rec)
	case entity.Update:
		vc := rec.Type.VersionColumn()
		if vc != "" {
			st.version, st.hadVersion = rec.Values[vc]
		}
		items, err = s.renderUpdate(rec)
		if err != nil && vc != "" {
			if st.hadVersion {
				rec.Set(vc, st.version)
			} else {
				delete(rec.Values, vc)
			}
		}
	case entity.Delete:
		items, err = s.renderDelete(rec)
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown operation %d", op)
	}
	if err != nil {
		return err
	}

	for _, li := range items {
		s.pending[op].add(li.level.Name(), li.item)
	}
	s.staged = append(s.staged, st)
	return nil
}

type levelItem struct {
	level *entity.EntityType
	item  item
}

// renderInsert produces one row per level, widest first. Every
// non-generated column of the level is written; absent properties are
// written as NULL.
func (s *Session) renderInsert(ctx context.Context, rec *entity.Record) ([]levelItem, error) {
	if err := s.assignIdentifier(ctx, rec); err != nil {
		return nil, err
	}

	chain := rec.Type.Chain()
	var out []levelItem
	for i := len(chain) - 1; i >= 0; i-- {
		level := chain[i]
		tbl := level.Table()
		var values []dialect.Value
		for _, col := range tbl.Columns() {
			if col.Generated() {
				continue
			}
			v, _ := rec.Level(tbl.Name(), col.Name())
			values = append(values, dialect.Value{Column: col, Value: v})
		}

		it := item{}
		var err error
		if s.strategy == StrategyCSV {
			it.fields, err = s.csvFields(values)
		} else {
			it.stmt, err = s.adapter.Insert(tbl.Name(), values, s.mode())
		}
		if err != nil {
			return nil, err
		}
		out = append(out, levelItem{level: level, item: it})
	}
	return out, nil
}

func (s *Session) csvFields(values []dialect.Value) ([]string, error) {
	fields := make([]string, len(values))
	for i, v := range values {
		lit, err := s.adapter.RenderLiteral(v.Value, v.Column.Type())
		if err != nil {
			return nil, err
		}
		fields[i] = lit
	}
	return fields, nil
}

// assignIdentifier copies the owner's key through OwnerKey, then
// generates the identifier when it is still empty and the database does
// not assign it. An insert that would still write an empty key fails
// here. So does a subtype whose key a wider level generates, since
// generated columns are never written and the value could not reach the
// narrower rows.
func (s *Session) assignIdentifier(ctx context.Context, rec *entity.Record) error {
	if rec.Owner != nil && rec.OwnerKey != nil {
		fk := rec.OwnerKey
		for i, c := range fk.Columns() {
			v, ok := rec.Owner.Level(fk.To().Name(), fk.RefColumns()[i])
			if !ok || dialect.IsNull(v) {
				return errs.Newf(errs.ErrKindMissingIdentifier,
					"owner of %s has no value for %s.%s", rec.Type.Name(), fk.To().Name(), fk.RefColumns()[i])
			}
			rec.Set(rec.Type.Property(fk.From().Name(), c), v)
		}
	}

	t := rec.Type
	if !t.HasIdentifier() {
		return nil
	}
	if by := t.KeyGeneratedBy(); by != nil {
		if by != t {
			return errs.Newf(errs.ErrKindMissingIdentifier,
				"insert of %s: key of %s is assigned by the database and cannot be copied to %s",
				t.Name(), by.Table().Name(), t.Table().Name())
		}
		return nil
	}
	if rec.IdentifierSet() {
		return nil
	}
	g := t.Generator()
	if g == nil || len(t.Identifier()) != 1 {
		return errs.Newf(errs.ErrKindMissingIdentifier, "insert of %s: identifier not set and no generator configured", t.Name())
	}
	v, err := g.Generate(ctx, s)
	if err != nil {
		return err
	}
	rec.Set(t.Identifier()[0], v)
	return nil
}

// renderUpdate sets the writable, non-key columns of each level whose
// value differs from the pre-image, and matches on the identifier plus
// the pre-image of the other properties. Without a pre-image every present
// column is set. The version column is incremented in place, always set,
// and left out of the predicate.
func (s *Session) renderUpdate(rec *entity.Record) ([]levelItem, error) {
	t := rec.Type
	if !t.HasIdentifier() {
		return nil, errs.Newf(errs.ErrKindMissingIdentifier, "update of %s: type has no identifier", t.Name())
	}
	if !rec.IdentifierSet() {
		return nil, errs.Newf(errs.ErrKindMissingIdentifier, "update of %s: identifier not set", t.Name())
	}

	vc := t.VersionColumn()
	if vc != "" {
		cur, err := dialect.Convert(rec.Get(vc), schema.TypeInteger)
		if err != nil {
			return nil, err
		}
		n, _ := cur.(int64)
		rec.Set(vc, n+1)
	}

	var out []levelItem
	for _, level := range t.Chain() {
		tbl := level.Table()
		var set, where []dialect.Value
		for _, c := range tbl.PrimaryKey() {
			v, _ := rec.Level(tbl.Name(), c)
			where = append(where, dialect.Value{Column: tbl.Column(c), Value: v})
		}
		for _, col := range tbl.Columns() {
			if col.Generated() || tbl.IsPrimaryKey(col.Name()) {
				continue
			}
			if rec.Has(col.Name()) && (col.Name() == vc || modified(rec, col)) {
				set = append(set, dialect.Value{Column: col, Value: rec.Get(col.Name())})
			}
			if col.Name() == vc {
				continue
			}
			if orig, ok := rec.Original(col.Name()); ok {
				where = append(where, dialect.Value{Column: col, Value: orig})
			}
		}
		if len(set) == 0 {
			continue
		}
		stmt, err := s.adapter.Update(tbl.Name(), set, where, s.mode())
		if err != nil {
			return nil, err
		}
		out = append(out, levelItem{level: level, item: item{stmt: stmt}})
	}
	if len(out) == 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "update of %s sets no columns", t.Name())
	}
	return out, nil
}

func modified(rec *entity.Record, col *schema.ColumnInfo) bool {
	orig, ok := rec.Original(col.Name())
	return !ok || !dialect.Equal(orig, rec.Get(col.Name()), col.Type())
}

// renderDelete produces one statement per level, narrowest first, matching
// on the identifier. Types without an identifier match on every populated
// non-generated property of the level.
func (s *Session) renderDelete(rec *entity.Record) ([]levelItem, error) {
	t := rec.Type
	if t.HasIdentifier() && !rec.IdentifierSet() {
		return nil, errs.Newf(errs.ErrKindMissingIdentifier, "delete of %s: identifier not set", t.Name())
	}

	var out []levelItem
	for _, level := range t.Chain() {
		tbl := level.Table()
		var where []dialect.Value
		if t.HasIdentifier() {
			for _, c := range tbl.PrimaryKey() {
				v, _ := rec.Level(tbl.Name(), c)
				where = append(where, dialect.Value{Column: tbl.Column(c), Value: v})
			}
		} else {
			for _, col := range tbl.Columns() {
				if v := rec.Get(col.Name()); !col.Generated() && !dialect.IsNull(v) {
					where = append(where, dialect.Value{Column: col, Value: v})
				}
			}
		}
		if len(where) == 0 {
			return nil, errs.Newf(errs.ErrKindMissingIdentifier, "delete of %s: no property to match on", tbl.Name())
		}
		stmt, err := s.adapter.Delete(tbl.Name(), where, s.mode())
		if err != nil {
			return nil, err
		}
		out = append(out, levelItem{level: level, item: item{stmt: stmt}})
	}
	return out, nil
}
