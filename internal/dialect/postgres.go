package dialect

import (
	"strings"

	"github.com/koustreak/sqlstage/internal/schema"
)

// Postgres is the PostgreSQL variant. Catalog queries read
// information_schema restricted to current_schema().
type Postgres struct{ base }

var _ Adapter = (*Postgres)(nil)

func NewPostgres() *Postgres {
	return &Postgres{base{
		family:   FamilyPostgres,
		products: []string{"PostgreSQL"},
		types: typeTable(map[string]schema.ValueType{
			"int2":                        schema.TypeInteger,
			"int4":                        schema.TypeInteger,
			"int8":                        schema.TypeInteger,
			"smallserial":                 schema.TypeInteger,
			"serial":                      schema.TypeInteger,
			"bigserial":                   schema.TypeInteger,
			"float4":                      schema.TypeFloat,
			"float8":                      schema.TypeFloat,
			"bool":                        schema.TypeBoolean,
			"bpchar":                      schema.TypeString,
			"name":                        schema.TypeString,
			"citext":                      schema.TypeString,
			"json":                        schema.TypeString,
			"jsonb":                       schema.TypeString,
			"xml":                         schema.TypeString,
			"interval":                    schema.TypeString,
			"time":                        schema.TypeString,
			"time without time zone":      schema.TypeString,
			"timestamp without time zone": schema.TypeTimestamp,
			"timestamp with time zone":    schema.TypeTimestampTZ,
			"timestamptz":                 schema.TypeTimestampTZ,
			"bytea":                       schema.TypeBinary,
			"uuid":                        schema.TypeUUID,
		}),
		identQuote:     '"',
		fold:           strings.ToLower,
		reserved:       reservedWords,
		placeholder:    numbered("$"),
		trueLit:        "TRUE",
		falseLit:       "FALSE",
		dateLit:        func(s string) string { return "CAST(" + quoted(s) + " AS date)" },
		timestampLit:   func(s string) string { return "CAST(" + quoted(s) + " AS timestamp)" },
		timestampTZLit: func(s string) string { return "CAST(" + quoted(s) + " AS timestamptz)" },
		binaryLit:      func(h string) string { return "decode(" + quoted(h) + ", 'hex')" },
		uuidLit:        func(s string) string { return "CAST(" + quoted(s) + " AS uuid)" },
		emptyInsert:    "INSERT INTO %s DEFAULT VALUES",
	}}
}

func (p *Postgres) ColumnsQuery() string {
	return `SELECT c.table_name, c.column_name, c.is_nullable, c.data_type,
       CASE WHEN c.column_default LIKE 'nextval(%' OR c.is_identity = 'YES' OR c.is_generated = 'ALWAYS'
            THEN 'YES' ELSE 'NO' END,
       c.character_maximum_length
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = current_schema() AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`
}

func (p *Postgres) PrimaryKeysQuery() string {
	return `SELECT tc.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_schema = tc.constraint_schema
 AND kcu.constraint_name = tc.constraint_name
 AND kcu.table_name = tc.table_name
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = current_schema()
ORDER BY tc.table_name, kcu.ordinal_position`
}

func (p *Postgres) ForeignKeysQuery() string {
	return `SELECT tc.constraint_name, kcu.table_name, kcu.column_name,
       ref.table_name, ref.column_name, rc.delete_rule, rc.update_rule
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_schema = tc.constraint_schema AND kcu.constraint_name = tc.constraint_name
JOIN information_schema.referential_constraints rc
  ON rc.constraint_schema = tc.constraint_schema AND rc.constraint_name = tc.constraint_name
JOIN information_schema.key_column_usage ref
  ON ref.constraint_schema = rc.unique_constraint_schema
 AND ref.constraint_name = rc.unique_constraint_name
 AND ref.ordinal_position = kcu.position_in_unique_constraint
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = current_schema()
ORDER BY kcu.table_name, tc.constraint_name, kcu.ordinal_position`
}

func (p *Postgres) SequencesQuery() string {
	return `SELECT sequence_name, data_type, minimum_value, maximum_value, increment, start_value, cycle_option
FROM information_schema.sequences
WHERE sequence_schema = current_schema()
ORDER BY sequence_name`
}

func (p *Postgres) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
}

func (p *Postgres) NextValueQuery(sequence string) string {
	return "SELECT nextval(" + quoted(strings.ReplaceAll(sequence, "'", "''")) + ")"
}

func (p *Postgres) TempJoinTableDDL(name string) string {
	return "CREATE TEMPORARY TABLE " + p.QuoteIdent(name) +
		" (num_id DECIMAL(20), str_id VARCHAR(36), invocation VARCHAR(32)) ON COMMIT PRESERVE ROWS"
}
