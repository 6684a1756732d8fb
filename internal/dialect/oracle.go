package dialect

import (
	"strings"

	"github.com/google/uuid"
	"github.com/koustreak/sqlstage/internal/schema"
)

// Oracle reads the user_* dictionary views of the connected schema.
// There is no boolean column type; booleans are written as 1 and 0.
type Oracle struct{ base }

var _ Adapter = (*Oracle)(nil)

func NewOracle() *Oracle {
	return &Oracle{base{
		family:   FamilyOracle,
		products: []string{"Oracle"},
		types: typeTable(map[string]schema.ValueType{
			"varchar2":                       schema.TypeString,
			"nvarchar2":                      schema.TypeString,
			"nclob":                          schema.TypeString,
			"long":                           schema.TypeString,
			"rowid":                          schema.TypeString,
			"number":                         schema.TypeDecimal,
			"binary_float":                   schema.TypeFloat,
			"binary_double":                  schema.TypeFloat,
			"timestamp with time zone":       schema.TypeTimestampTZ,
			"timestamp with local time zone": schema.TypeTimestampTZ,
			"raw":                            schema.TypeBinary,
			"long raw":                       schema.TypeBinary,
		}),
		identQuote:     '"',
		fold:           strings.ToUpper,
		reserved:       reservedWords,
		placeholder:    numbered(":"),
		trueLit:        "1",
		falseLit:       "0",
		dateLit:        func(s string) string { return "TO_DATE(" + quoted(s) + ", 'YYYY-MM-DD')" },
		timestampLit:   func(s string) string { return "TO_TIMESTAMP(" + quoted(s) + ", 'YYYY-MM-DD HH24:MI:SS.FF6')" },
		timestampTZLit: func(s string) string { return "TO_TIMESTAMP_TZ(" + quoted(s) + ", 'YYYY-MM-DD HH24:MI:SS.FF6 TZH:TZM')" },
		binaryLit:      func(h string) string { return "HEXTORAW(" + quoted(h) + ")" },
		uuidLit:        quoted,
		bindHook: func(v any, t schema.ValueType) any {
			switch t {
			case schema.TypeBoolean:
				if v.(bool) {
					return int64(1)
				}
				return int64(0)
			case schema.TypeUUID:
				return v.(uuid.UUID).String()
			}
			return v
		},
	}}
}

func (o *Oracle) ColumnsQuery() string {
	return `SELECT c.table_name, c.column_name,
       CASE c.nullable WHEN 'Y' THEN 'YES' ELSE 'NO' END,
       c.data_type,
       CASE WHEN c.identity_column = 'YES' OR c.virtual_column = 'YES' THEN 'YES' ELSE 'NO' END,
       c.char_length
FROM user_tab_cols c
JOIN user_tables t ON t.table_name = c.table_name
WHERE c.hidden_column = 'NO'
ORDER BY c.table_name, c.column_id`
}

func (o *Oracle) PrimaryKeysQuery() string {
	return `SELECT cc.table_name, cc.column_name
FROM user_constraints c
JOIN user_cons_columns cc ON cc.constraint_name = c.constraint_name
WHERE c.constraint_type = 'P'
ORDER BY cc.table_name, cc.position`
}

// ForeignKeysQuery reports NO ACTION as the update rule; Oracle has no
// ON UPDATE clause.
func (o *Oracle) ForeignKeysQuery() string {
	return `SELECT c.constraint_name, cc.table_name, cc.column_name,
       rc.table_name, rc.column_name, c.delete_rule, 'NO ACTION'
FROM user_constraints c
JOIN user_cons_columns cc ON cc.constraint_name = c.constraint_name
JOIN user_cons_columns rc ON rc.constraint_name = c.r_constraint_name AND rc.position = cc.position
WHERE c.constraint_type = 'R'
ORDER BY cc.table_name, c.constraint_name, cc.position`
}

func (o *Oracle) SequencesQuery() string {
	return `SELECT sequence_name, 'NUMBER', TO_CHAR(min_value), TO_CHAR(max_value),
       TO_CHAR(increment_by), TO_CHAR(last_number),
       CASE cycle_flag WHEN 'Y' THEN 'YES' ELSE 'NO' END
FROM user_sequences
ORDER BY sequence_name`
}

func (o *Oracle) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM user_tables WHERE table_name = :1`
}

func (o *Oracle) NextValueQuery(sequence string) string {
	return "SELECT " + o.QuoteIdent(sequence) + ".NEXTVAL FROM dual"
}

func (o *Oracle) TempJoinTableDDL(name string) string {
	return "CREATE GLOBAL TEMPORARY TABLE " + o.QuoteIdent(name) +
		" (num_id NUMBER(20), str_id VARCHAR2(36), invocation VARCHAR2(32)) ON COMMIT PRESERVE ROWS"
}
