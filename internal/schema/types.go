// Package schema holds the introspected relational model: columns, tables,
// foreign keys and sequences, plus the dependency order derived from them.
//
// Values of these types are built once per schema refresh and are treated
// as immutable afterwards, so a *Schema may be shared by many sessions.
package schema

// ValueType is the host-side type a native column type maps to.
type ValueType int

const (
	TypeUnknown   ValueType = iota
	TypeString              // string
	TypeInteger             // int64
	TypeDecimal             // decimal.Decimal
	TypeFloat               // float64
	TypeBoolean             // bool
	TypeDate                // time.Time, date part only
	TypeTimestamp           // time.Time
	TypeTimestampTZ         // time.Time, column stores an instant
	TypeBinary              // []byte
	TypeUUID                // uuid.UUID
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeTimestampTZ:
		return "timestamptz"
	case TypeBinary:
		return "binary"
	case TypeUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// MarshalText renders the type name in YAML/JSON output.
func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Numeric reports whether values of t are rendered without quotes.
func (t ValueType) Numeric() bool {
	return t == TypeInteger || t == TypeDecimal || t == TypeFloat
}
