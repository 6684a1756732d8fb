package dialect

import (
	"strings"

	"github.com/google/uuid"
	"github.com/koustreak/sqlstage/internal/schema"
)

// MySQL serves MySQL and MariaDB. Column types come from COLUMN_TYPE so
// that tinyint(1) and bit(1) can be told apart from wider integers.
type MySQL struct{ base }

var _ Adapter = (*MySQL)(nil)

func NewMySQL() *MySQL {
	return &MySQL{base{
		family:   FamilyMySQL,
		products: []string{"MySQL", "MariaDB"},
		types: typeTable(map[string]schema.ValueType{
			"tinyint":    schema.TypeInteger,
			"mediumint":  schema.TypeInteger,
			"year":       schema.TypeInteger,
			"bool":       schema.TypeBoolean,
			"datetime":   schema.TypeTimestamp,
			"time":       schema.TypeString,
			"tinytext":   schema.TypeString,
			"mediumtext": schema.TypeString,
			"longtext":   schema.TypeString,
			"enum":       schema.TypeString,
			"set":        schema.TypeString,
			"json":       schema.TypeString,
			"tinyblob":   schema.TypeBinary,
			"mediumblob": schema.TypeBinary,
			"longblob":   schema.TypeBinary,
			"bit":        schema.TypeBinary,
		}),
		mapSpecial:       mysqlSpecial,
		identQuote:       '`',
		reserved:         reservedWords,
		placeholder:      question,
		backslashEscapes: true,
		trueLit:          "TRUE",
		falseLit:         "FALSE",
		dateLit:          func(s string) string { return "CAST(" + quoted(s) + " AS DATE)" },
		timestampLit:     func(s string) string { return "CAST(" + quoted(s) + " AS DATETIME(6))" },
		binaryLit:        func(h string) string { return "X" + quoted(h) },
		uuidLit:          quoted,
		bindHook: func(v any, t schema.ValueType) any {
			if t == schema.TypeUUID {
				return v.(uuid.UUID).String()
			}
			return v
		},
		emptyInsert: "INSERT INTO %s () VALUES ()",
	}}
}

func mysqlSpecial(native, norm string) (schema.ValueType, bool) {
	switch norm {
	case "tinyint", "bit":
		if TypeLength(native) == 1 {
			return schema.TypeBoolean, true
		}
	}
	for _, suffix := range []string{" zerofill", " unsigned", " signed"} {
		norm = strings.TrimSuffix(norm, suffix)
	}
	switch norm {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		return schema.TypeInteger, true
	case "decimal", "numeric":
		return schema.TypeDecimal, true
	case "float", "double", "real":
		return schema.TypeFloat, true
	}
	return schema.TypeUnknown, false
}

func (m *MySQL) ColumnsQuery() string {
	return `SELECT c.TABLE_NAME, c.COLUMN_NAME, c.IS_NULLABLE, c.COLUMN_TYPE,
       CASE WHEN c.EXTRA LIKE '%auto_increment%' OR c.EXTRA LIKE '%GENERATED%' THEN 'YES' ELSE 'NO' END,
       c.CHARACTER_MAXIMUM_LENGTH
FROM information_schema.COLUMNS c
JOIN information_schema.TABLES t
  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
WHERE c.TABLE_SCHEMA = DATABASE() AND t.TABLE_TYPE = 'BASE TABLE'
ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`
}

func (m *MySQL) PrimaryKeysQuery() string {
	return `SELECT TABLE_NAME, COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND CONSTRAINT_NAME = 'PRIMARY'
ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (m *MySQL) ForeignKeysQuery() string {
	return `SELECT k.CONSTRAINT_NAME, k.TABLE_NAME, k.COLUMN_NAME,
       k.REFERENCED_TABLE_NAME, k.REFERENCED_COLUMN_NAME, r.DELETE_RULE, r.UPDATE_RULE
FROM information_schema.KEY_COLUMN_USAGE k
JOIN information_schema.REFERENTIAL_CONSTRAINTS r
  ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA
 AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME
 AND r.TABLE_NAME = k.TABLE_NAME
WHERE k.TABLE_SCHEMA = DATABASE() AND k.REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY k.TABLE_NAME, k.CONSTRAINT_NAME, k.ORDINAL_POSITION`
}

// SequencesQuery is empty: identifiers come from auto_increment columns.
func (m *MySQL) SequencesQuery() string { return "" }

func (m *MySQL) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`
}

func (m *MySQL) NextValueQuery(string) string { return "" }

func (m *MySQL) TempJoinTableDDL(name string) string {
	return "CREATE TEMPORARY TABLE " + m.QuoteIdent(name) +
		" (num_id DECIMAL(20), str_id VARCHAR(36), invocation VARCHAR(32))"
}
