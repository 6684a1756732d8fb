package dialect

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/shopspring/decimal"
)

// base carries everything the variants share. Each variant fills in the
// syntax fields and adds its catalog queries.
type base struct {
	family   Family
	products []string
	types    map[string]schema.ValueType

	// mapSpecial runs before the type table, mapAffinity after a miss.
	mapSpecial  func(native, norm string) (schema.ValueType, bool)
	mapAffinity func(norm string) schema.ValueType

	identQuote byte
	// fold is how the catalog stores unquoted identifiers; nil when the
	// family compares identifiers case-insensitively.
	fold     func(string) string
	reserved map[string]bool

	placeholder      func(n int) string
	backslashEscapes bool
	trueLit          string
	falseLit         string
	dateLit          func(s string) string
	timestampLit     func(s string) string
	timestampTZLit   func(s string) string // nil: no zone-aware column type
	binaryLit        func(hex string) string
	uuidLit          func(s string) string

	// bindHook adjusts a normalized value before it is handed to the driver.
	bindHook func(v any, t schema.ValueType) any
	// emptyInsert renders an insert without columns; "" when unsupported.
	emptyInsert string
}

func (b *base) Family() Family           { return b.family }
func (b *base) ProductNames() []string   { return append([]string(nil), b.products...) }
func (b *base) Placeholder(n int) string { return b.placeholder(n) }

func (b *base) MapType(native string) (schema.ValueType, error) {
	norm := NormalizeType(native)
	if b.mapSpecial != nil {
		if t, ok := b.mapSpecial(native, norm); ok {
			return t, nil
		}
	}
	if t, ok := b.types[norm]; ok {
		return t, nil
	}
	if b.mapAffinity != nil {
		return b.mapAffinity(norm), nil
	}
	return schema.TypeUnknown, errs.Newf(errs.ErrKindUnknownTypeMapping, "%s: no mapping for native type %q", b.family, native)
}

func (b *base) QuoteIdent(name string) string {
	if b.plainIdent(name) {
		return name
	}
	q := string(b.identQuote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func (b *base) plainIdent(name string) bool {
	if name == "" || b.reserved[strings.ToLower(name)] {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return b.fold == nil || b.fold(name) == name
}

func (b *base) quoteString(s string) string {
	if b.backslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *base) RenderLiteral(v any, t schema.ValueType) (string, error) {
	val, t, err := normalize(v, t)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "NULL", nil
	}
	switch t {
	case schema.TypeString:
		return b.quoteString(val.(string)), nil
	case schema.TypeInteger:
		return strconv.FormatInt(val.(int64), 10), nil
	case schema.TypeDecimal:
		return val.(decimal.Decimal).String(), nil
	case schema.TypeFloat:
		return strconv.FormatFloat(val.(float64), 'g', -1, 64), nil
	case schema.TypeBoolean:
		if val.(bool) {
			return b.trueLit, nil
		}
		return b.falseLit, nil
	case schema.TypeDate:
		return b.dateLit(val.(time.Time).Format(dateLayout)), nil
	case schema.TypeTimestamp:
		return b.timestampLit(val.(time.Time).Format(timestampLayout)), nil
	case schema.TypeTimestampTZ:
		if b.timestampTZLit == nil {
			return b.timestampLit(val.(time.Time).Format(timestampLayout)), nil
		}
		return b.timestampTZLit(val.(time.Time).Format(offsetLayout)), nil
	case schema.TypeBinary:
		return b.binaryLit(strings.ToUpper(hex.EncodeToString(val.([]byte)))), nil
	case schema.TypeUUID:
		return b.uuidLit(val.(uuid.UUID).String()), nil
	}
	return "", unsupported(v, t)
}

func (b *base) ParseLiteral(lit string, t schema.ValueType) (any, error) {
	trimmed := strings.TrimSpace(lit)
	if strings.EqualFold(trimmed, "NULL") {
		return nil, nil
	}
	body, found, err := quotedBody(trimmed, b.backslashEscapes)
	if err != nil {
		return nil, err
	}
	if !found {
		body = trimmed
	}
	if t == schema.TypeUnknown {
		t = schema.TypeString
	}
	v, ok := parseText(body, t)
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s: cannot parse %q as %s", b.family, lit, t)
	}
	return v, nil
}

func (b *base) Bind(v any, t schema.ValueType) (any, error) {
	val, t, err := normalize(v, t)
	if err != nil || val == nil {
		return nil, err
	}
	if b.bindHook != nil {
		val = b.bindHook(val, t)
	}
	return val, nil
}

// writer accumulates one statement in either mode.
type writer struct {
	b    *base
	mode Mode
	sql  strings.Builder
	args []any
}

func (w *writer) value(v Value) error {
	if v.Column == nil {
		return errs.New(errs.ErrKindInvalidInput, "value without column")
	}
	if w.mode == Literal {
		lit, err := w.b.RenderLiteral(v.Value, v.Column.Type())
		if err != nil {
			return fmt.Errorf("column %s: %w", v.Column.Name(), err)
		}
		w.sql.WriteString(lit)
		return nil
	}
	arg, err := w.b.Bind(v.Value, v.Column.Type())
	if err != nil {
		return fmt.Errorf("column %s: %w", v.Column.Name(), err)
	}
	w.args = append(w.args, arg)
	w.sql.WriteString(w.b.placeholder(len(w.args)))
	return nil
}

func (w *writer) where(where []Value) error {
	for i, v := range where {
		if v.Column == nil {
			return errs.New(errs.ErrKindInvalidInput, "predicate without column")
		}
		if i == 0 {
			w.sql.WriteString(" WHERE ")
		} else {
			w.sql.WriteString(" AND ")
		}
		w.sql.WriteString(w.b.QuoteIdent(v.Column.Name()))
		if IsNull(v.Value) {
			w.sql.WriteString(" IS NULL")
			continue
		}
		w.sql.WriteString(" = ")
		if err := w.value(v); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) statement() Statement {
	return Statement{SQL: w.sql.String(), Args: w.args}
}

func (b *base) Insert(table string, values []Value, mode Mode) (Statement, error) {
	w := &writer{b: b, mode: mode}
	if len(values) == 0 {
		if b.emptyInsert == "" {
			return Statement{}, errs.Newf(errs.ErrKindInvalidInput, "%s: insert into %s without columns", b.family, table)
		}
		w.sql.WriteString(fmt.Sprintf(b.emptyInsert, b.QuoteIdent(table)))
		return w.statement(), nil
	}

	w.sql.WriteString("INSERT INTO ")
	w.sql.WriteString(b.QuoteIdent(table))
	w.sql.WriteString(" (")
	for i, v := range values {
		if v.Column == nil {
			return Statement{}, errs.New(errs.ErrKindInvalidInput, "value without column")
		}
		if i > 0 {
			w.sql.WriteString(", ")
		}
		w.sql.WriteString(b.QuoteIdent(v.Column.Name()))
	}
	w.sql.WriteString(") VALUES (")
	for i, v := range values {
		if i > 0 {
			w.sql.WriteString(", ")
		}
		if err := w.value(v); err != nil {
			return Statement{}, err
		}
	}
	w.sql.WriteString(")")
	return w.statement(), nil
}

func (b *base) Update(table string, set, where []Value, mode Mode) (Statement, error) {
	if len(set) == 0 {
		return Statement{}, errs.Newf(errs.ErrKindInvalidInput, "update of %s sets no columns", table)
	}
	if len(where) == 0 {
		return Statement{}, errs.Newf(errs.ErrKindMissingIdentifier, "update of %s has no predicate", table)
	}
	w := &writer{b: b, mode: mode}
	w.sql.WriteString("UPDATE ")
	w.sql.WriteString(b.QuoteIdent(table))
	w.sql.WriteString(" SET ")
	for i, v := range set {
		if v.Column == nil {
			return Statement{}, errs.New(errs.ErrKindInvalidInput, "value without column")
		}
		if i > 0 {
			w.sql.WriteString(", ")
		}
		w.sql.WriteString(b.QuoteIdent(v.Column.Name()))
		w.sql.WriteString(" = ")
		if err := w.value(v); err != nil {
			return Statement{}, err
		}
	}
	if err := w.where(where); err != nil {
		return Statement{}, err
	}
	return w.statement(), nil
}

func (b *base) Delete(table string, where []Value, mode Mode) (Statement, error) {
	if len(where) == 0 {
		return Statement{}, errs.Newf(errs.ErrKindMissingIdentifier, "delete from %s has no predicate", table)
	}
	w := &writer{b: b, mode: mode}
	w.sql.WriteString("DELETE FROM ")
	w.sql.WriteString(b.QuoteIdent(table))
	if err := w.where(where); err != nil {
		return Statement{}, err
	}
	return w.statement(), nil
}

func (b *base) Select(table string, columns []*schema.ColumnInfo, where []Value, mode Mode) (Statement, error) {
	w := &writer{b: b, mode: mode}
	w.sql.WriteString("SELECT ")
	if len(columns) == 0 {
		w.sql.WriteString("*")
	}
	for i, c := range columns {
		if i > 0 {
			w.sql.WriteString(", ")
		}
		w.sql.WriteString(b.QuoteIdent(c.Name()))
	}
	w.sql.WriteString(" FROM ")
	w.sql.WriteString(b.QuoteIdent(table))
	if err := w.where(where); err != nil {
		return Statement{}, err
	}
	return w.statement(), nil
}

// reservedWords need quoting as identifiers in every family.
var reservedWords = map[string]bool{
	"all": true, "and": true, "as": true, "asc": true, "between": true,
	"by": true, "case": true, "check": true, "column": true, "constraint": true,
	"create": true, "default": true, "delete": true, "desc": true, "distinct": true,
	"drop": true, "else": true, "end": true, "exists": true, "from": true,
	"grant": true, "group": true, "having": true, "in": true, "index": true,
	"insert": true, "into": true, "is": true, "join": true, "key": true,
	"like": true, "limit": true, "not": true, "null": true, "on": true,
	"or": true, "order": true, "primary": true, "references": true, "select": true,
	"set": true, "table": true, "then": true, "to": true, "union": true,
	"unique": true, "update": true, "user": true, "values": true, "when": true,
	"where": true, "with": true,
}

func quoted(s string) string { return "'" + s + "'" }

func numbered(prefix string) func(int) string {
	return func(n int) string { return prefix + strconv.Itoa(n) }
}

func question(int) string { return "?" }
