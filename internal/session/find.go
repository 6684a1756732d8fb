package session

import (
	"context"
	"strings"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
)

// Find loads the record of the named type with the given identifier,
// reading every level of its chain. The returned record is snapshotted,
// ready to be staged for update.
func (s *Session) Find(ctx context.Context, typeName string, id ...any) (*entity.Record, error) {
	t, err := s.catalog.Type(typeName)
	if err != nil {
		return nil, err
	}
	if !t.HasIdentifier() {
		return nil, errs.Newf(errs.ErrKindMissingIdentifier, "find %s: type has no identifier", t.Name())
	}
	if len(id) != len(t.Identifier()) {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "find %s: %d identifier values for %d columns", t.Name(), len(id), len(t.Identifier()))
	}

	exec, err := s.executor(ctx)
	if err != nil {
		return nil, err
	}

	rec := entity.NewRecord(t)
	for i, c := range t.Identifier() {
		v, err := dialect.Convert(id[i], t.Table().Column(c).Type())
		if err != nil {
			return nil, err
		}
		rec.Set(c, v)
	}

	for _, level := range t.Chain() {
		tbl := level.Table()
		var where []dialect.Value
		for _, c := range tbl.PrimaryKey() {
			v, _ := rec.Level(tbl.Name(), c)
			where = append(where, dialect.Value{Column: tbl.Column(c), Value: v})
		}
		stmt, err := s.adapter.Select(tbl.Name(), tbl.Columns(), where, dialect.Bound)
		if err != nil {
			return nil, err
		}
		rows, err := exec.QueryContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return nil, s.mapErr(err, "find "+t.Name()+" failed")
		}
		row, err := database.ScanRow(rows)
		if err != nil {
			if errs.IsNotFound(err) {
				return nil, errs.Newf(errs.ErrKindNotFound, "%s %v not found", tbl.Name(), id)
			}
			return nil, err
		}
		for _, col := range tbl.Columns() {
			if tbl.IsPrimaryKey(col.Name()) {
				continue
			}
			v, err := dialect.Convert(field(row, col.Name()), col.Type())
			if err != nil {
				return nil, err
			}
			rec.Set(col.Name(), v)
		}
	}
	rec.Snapshot()
	return rec, nil
}

// field looks a column up by name, falling back to a case-insensitive
// match for drivers that fold unquoted result names.
func field(row map[string]any, name string) any {
	if v, ok := row[name]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}
