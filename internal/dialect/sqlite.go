package dialect

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/shopspring/decimal"
)

// SQLite reads its catalog from sqlite_master joined with the pragma
// table-valued functions. Declared types outside the table fall back to
// SQLite's column affinity rules. Dates and timestamps are stored as text
// in the same layout in both literal and bound form.
type SQLite struct{ base }

var _ Adapter = (*SQLite)(nil)

func NewSQLite() *SQLite {
	return &SQLite{base{
		family:   FamilySQLite,
		products: []string{"SQLite"},
		types: typeTable(map[string]schema.ValueType{
			"bool":     schema.TypeBoolean,
			"datetime": schema.TypeTimestamp,
			"uuid":     schema.TypeUUID,
		}),
		mapAffinity:  sqliteAffinity,
		identQuote:   '"',
		reserved:     reservedWords,
		placeholder:  question,
		trueLit:      "1",
		falseLit:     "0",
		dateLit:      func(s string) string { return "date(" + quoted(s) + ")" },
		timestampLit: quoted,
		binaryLit:    func(h string) string { return "X" + quoted(h) },
		uuidLit:      quoted,
		bindHook:     sqliteBind,
		emptyInsert:  "INSERT INTO %s DEFAULT VALUES",
	}}
}

// sqliteAffinity applies the affinity rules of section 3.1 of the SQLite
// datatype documentation.
func sqliteAffinity(norm string) schema.ValueType {
	u := strings.ToUpper(norm)
	switch {
	case strings.Contains(u, "INT"):
		return schema.TypeInteger
	case strings.Contains(u, "CHAR"), strings.Contains(u, "CLOB"), strings.Contains(u, "TEXT"):
		return schema.TypeString
	case u == "", strings.Contains(u, "BLOB"):
		return schema.TypeBinary
	case strings.Contains(u, "REAL"), strings.Contains(u, "FLOA"), strings.Contains(u, "DOUB"):
		return schema.TypeFloat
	default:
		return schema.TypeDecimal
	}
}

func sqliteBind(v any, t schema.ValueType) any {
	switch t {
	case schema.TypeDate:
		return v.(time.Time).Format(dateLayout)
	case schema.TypeTimestamp, schema.TypeTimestampTZ:
		return v.(time.Time).Format(timestampLayout)
	case schema.TypeDecimal:
		return v.(decimal.Decimal).String()
	case schema.TypeUUID:
		return v.(uuid.UUID).String()
	}
	return v
}

func (s *SQLite) ColumnsQuery() string {
	return `SELECT m.name, p.name,
       CASE WHEN p."notnull" = 0 AND p.pk = 0 THEN 'YES' ELSE 'NO' END,
       p.type,
       CASE WHEN p.pk = 1 AND upper(m.sql) LIKE '%AUTOINCREMENT%' THEN 'YES' ELSE 'NO' END,
       NULL
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, p.cid`
}

func (s *SQLite) PrimaryKeysQuery() string {
	return `SELECT m.name, p.name
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND p.pk > 0
ORDER BY m.name, p.pk`
}

// ForeignKeysQuery names constraints after their table and ordinal since
// SQLite does not report constraint names. The referenced column is NULL
// when the declaration omits it and the key targets the primary key.
func (s *SQLite) ForeignKeysQuery() string {
	return `SELECT m.name || '_fk' || f.id, m.name, f."from", f."table", f."to", f.on_delete, f.on_update
FROM sqlite_master m
JOIN pragma_foreign_key_list(m.name) f
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, f.id, f.seq`
}

func (s *SQLite) SequencesQuery() string { return "" }

func (s *SQLite) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (s *SQLite) NextValueQuery(string) string { return "" }

func (s *SQLite) TempJoinTableDDL(name string) string {
	return "CREATE TEMP TABLE " + s.QuoteIdent(name) +
		" (num_id DECIMAL(20), str_id VARCHAR(36), invocation VARCHAR(32))"
}
