package dialect

import (
	"strconv"
	"strings"

	"github.com/koustreak/sqlstage/internal/schema"
)

// baseTypes is the mapping shared by every family. Variants copy it and
// apply their own overrides.
var baseTypes = map[string]schema.ValueType{
	"char":              schema.TypeString,
	"character":         schema.TypeString,
	"varchar":           schema.TypeString,
	"character varying": schema.TypeString,
	"nchar":             schema.TypeString,
	"nvarchar":          schema.TypeString,
	"text":              schema.TypeString,
	"clob":              schema.TypeString,

	"smallint": schema.TypeInteger,
	"int":      schema.TypeInteger,
	"integer":  schema.TypeInteger,
	"bigint":   schema.TypeInteger,

	"decimal": schema.TypeDecimal,
	"numeric": schema.TypeDecimal,

	"real":             schema.TypeFloat,
	"float":            schema.TypeFloat,
	"double":           schema.TypeFloat,
	"double precision": schema.TypeFloat,

	"boolean": schema.TypeBoolean,

	"date":      schema.TypeDate,
	"timestamp": schema.TypeTimestamp,

	"blob":      schema.TypeBinary,
	"binary":    schema.TypeBinary,
	"varbinary": schema.TypeBinary,
}

// typeTable builds a family's mapping from the base plus overrides.
func typeTable(overrides map[string]schema.ValueType) map[string]schema.ValueType {
	out := make(map[string]schema.ValueType, len(baseTypes)+len(overrides))
	for k, v := range baseTypes {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// NormalizeType lowercases a native type name and removes size and
// precision groups: "VARCHAR(36)" → "varchar",
// "TIMESTAMP(6) WITH TIME ZONE" → "timestamp with time zone".
func NormalizeType(native string) string {
	var b strings.Builder
	depth := 0
	for _, r := range strings.ToLower(native) {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TypeLength returns the first size argument of a native type name,
// "VARCHAR(36)" → 36, or 0 when there is none.
func TypeLength(native string) int {
	open := strings.IndexByte(native, '(')
	if open < 0 {
		return 0
	}
	rest := native[open+1:]
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0
	}
	return n
}
