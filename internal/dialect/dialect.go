// Package dialect renders SQL for a closed set of database families.
//
// Each family is a variant type (Postgres, MySQL, SQLite, Oracle) that
// embeds the shared base and supplies its own literal syntax, identifier
// folding and catalog queries. Callers depend only on the Adapter
// interface and obtain an instance from a Registry by product name.
//
// Catalog queries return rows in fixed shapes so one reader serves every
// family:
//
//	columns:      table, column, nullable ('YES'/'NO'), native type, generated ('YES'/'NO'), max length
//	primary keys: table, column                          ORDER BY table, key position
//	foreign keys: constraint, table, column, referenced table, referenced column, delete rule, update rule
//	                                                     ORDER BY table, constraint, position
//	sequences:    name, native type, min, max, increment, start, cycle ('YES'/'NO')
//
// Rows of one table (or one constraint) are always contiguous.
package dialect

import "github.com/koustreak/sqlstage/internal/schema"

// Family identifies a supported RDBMS family.
type Family int

const (
	FamilyPostgres Family = iota
	FamilyMySQL
	FamilySQLite
	FamilyOracle
)

func (f Family) String() string {
	switch f {
	case FamilyPostgres:
		return "postgres"
	case FamilyMySQL:
		return "mysql"
	case FamilySQLite:
		return "sqlite"
	case FamilyOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// Mode selects how values appear in generated statements.
type Mode int

const (
	// Bound renders placeholders and returns the values as Args, in
	// left-to-right placeholder order.
	Bound Mode = iota
	// Literal renders every value inline; Args is empty.
	Literal
)

// Value pairs a column with the value written to or compared against it.
type Value struct {
	Column *schema.ColumnInfo
	Value  any
}

// Statement is a rendered SQL statement and its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Adapter is the per-family strategy for type mapping, literal rendering,
// statement generation and catalog queries.
type Adapter interface {
	Family() Family
	// ProductNames lists the product names (as reported by a connection)
	// this adapter serves.
	ProductNames() []string

	// MapType returns the host type for a native column type.
	MapType(native string) (schema.ValueType, error)
	// RenderLiteral renders v as a SQL literal for a column of type t.
	RenderLiteral(v any, t schema.ValueType) (string, error)
	// ParseLiteral is the inverse of RenderLiteral.
	ParseLiteral(lit string, t schema.ValueType) (any, error)
	// Bind converts v into the value handed to the driver for a
	// placeholder of a column of type t.
	Bind(v any, t schema.ValueType) (any, error)

	Placeholder(n int) string
	QuoteIdent(name string) string

	Insert(table string, values []Value, mode Mode) (Statement, error)
	Update(table string, set, where []Value, mode Mode) (Statement, error)
	Delete(table string, where []Value, mode Mode) (Statement, error)
	Select(table string, columns []*schema.ColumnInfo, where []Value, mode Mode) (Statement, error)

	ColumnsQuery() string
	PrimaryKeysQuery() string
	ForeignKeysQuery() string
	// SequencesQuery is empty for families without sequences.
	SequencesQuery() string
	// TableExistsQuery takes the table name as its only argument and
	// returns a single count.
	TableExistsQuery() string
	// NextValueQuery is empty for families without sequences.
	NextValueQuery(sequence string) string
	// TempJoinTableDDL creates a session-scoped table with a 20-digit
	// numeric id, a 36-character string id and a 32-character invocation tag.
	TempJoinTableDDL(name string) string
}
