package dialect

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/shopspring/decimal"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.000000"
	offsetLayout    = timestampLayout + " -07:00"
)

// unwrap reduces v to one of: nil, string, bool, []byte, int64, uint64,
// float64, time.Time, decimal.Decimal, uuid.UUID. Anything else is
// returned unchanged and rejected by the conversions below.
func unwrap(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string, bool, []byte, int64, uint64, float64, time.Time, decimal.Decimal, uuid.UUID:
		return v, nil
	case decimal.NullDecimal:
		if !x.Valid {
			return nil, nil
		}
		return x.Decimal, nil
	case uuid.NullUUID:
		if !x.Valid {
			return nil, nil
		}
		return x.UUID, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		if _, ok := v.(driver.Valuer); !ok {
			return unwrap(rv.Elem().Interface())
		}
	}
	if valuer, ok := v.(driver.Valuer); ok {
		val, err := valuer.Value()
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindUnsupportedLiteral, "value conversion failed", err)
		}
		return unwrap(val)
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	}
	return v, nil
}

// IsNull reports whether v renders as SQL NULL.
func IsNull(v any) bool {
	u, err := unwrap(v)
	return err == nil && u == nil
}

func infer(v any) schema.ValueType {
	switch v.(type) {
	case string:
		return schema.TypeString
	case bool:
		return schema.TypeBoolean
	case int64, uint64:
		return schema.TypeInteger
	case float64:
		return schema.TypeFloat
	case decimal.Decimal:
		return schema.TypeDecimal
	case time.Time:
		return schema.TypeTimestamp
	case []byte:
		return schema.TypeBinary
	case uuid.UUID:
		return schema.TypeUUID
	default:
		return schema.TypeUnknown
	}
}

func unsupported(v any, t schema.ValueType) error {
	return errs.Newf(errs.ErrKindUnsupportedLiteral, "cannot convert %T to %s", v, t)
}

// normalize converts v to the canonical Go value for t. A TypeUnknown
// column takes its type from the value.
func normalize(v any, t schema.ValueType) (any, schema.ValueType, error) {
	orig := v
	v, err := unwrap(v)
	if err != nil {
		return nil, t, err
	}
	if v == nil {
		return nil, t, nil
	}
	if t == schema.TypeUnknown {
		if t = infer(v); t == schema.TypeUnknown {
			return nil, t, unsupported(orig, t)
		}
	}

	var out any
	ok := true
	switch t {
	case schema.TypeString:
		out, ok = toString(v)
	case schema.TypeInteger:
		out, ok = toInteger(v)
	case schema.TypeDecimal:
		out, ok = toDecimal(v)
	case schema.TypeFloat:
		out, ok = toFloat(v)
	case schema.TypeBoolean:
		out, ok = toBool(v)
	case schema.TypeDate:
		out, ok = toTime(v, true)
	case schema.TypeTimestamp, schema.TypeTimestampTZ:
		out, ok = toTime(v, false)
	case schema.TypeBinary:
		out, ok = toBinary(v)
	case schema.TypeUUID:
		out, ok = toUUID(v)
	default:
		ok = false
	}
	if !ok {
		return nil, t, unsupported(orig, t)
	}
	return out, t, nil
}

// Convert turns a value read from a driver into the canonical Go value of
// a column of type t. Drivers using a text protocol report most values as
// []byte; those are read as text unless t is binary.
func Convert(v any, t schema.ValueType) (any, error) {
	if b, ok := v.([]byte); ok {
		switch {
		case t == schema.TypeBinary, t == schema.TypeUnknown:
		case t == schema.TypeUUID && len(b) == 16:
		default:
			v = string(b)
		}
	}
	out, _, err := normalize(v, t)
	return out, err
}

// Equal reports whether a and b hold the same value once both are
// converted to t. Values that do not convert are compared as given.
func Equal(a, b any, t schema.ValueType) bool {
	ca, errA := Convert(a, t)
	cb, errB := Convert(b, t)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	if ca == nil || cb == nil {
		return ca == nil && cb == nil
	}
	switch x := ca.(type) {
	case time.Time:
		y, ok := cb.(time.Time)
		return ok && x.Equal(y)
	case decimal.Decimal:
		y, ok := cb.(decimal.Decimal)
		return ok && x.Equal(y)
	case []byte:
		y, ok := cb.([]byte)
		return ok && bytes.Equal(x, y)
	}
	return ca == cb
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case uuid.UUID:
		return x.String(), true
	case decimal.Decimal:
		return x.String(), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

func toInteger(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case decimal.Decimal:
		if !x.IsInteger() || !x.BigInt().IsInt64() {
			return 0, false
		}
		return x.IntPart(), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case int64:
		return decimal.NewFromInt(x), true
	case uint64:
		d, err := decimal.NewFromString(strconv.FormatUint(x, 10))
		return d, err == nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case decimal.Decimal:
		return x.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case int64:
		return x != 0, x == 0 || x == 1
	case uint64:
		return x != 0, x == 0 || x == 1
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

func toTime(v any, dateOnly bool) (time.Time, bool) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		p, err := parseTime(strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, false
		}
		t = p
	default:
		return time.Time{}, false
	}
	if dateOnly {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return t.UTC(), true
}

func parseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range []string{"2006-01-02 15:04:05 -07:00", "2006-01-02 15:04:05", time.RFC3339Nano, dateLayout} {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func toBinary(v any) ([]byte, bool) {
	switch x := v.(type) {
	case []byte:
		return x, true
	case string:
		return []byte(x), true
	case uuid.UUID:
		return append([]byte(nil), x[:]...), true
	}
	return nil, false
}

func toUUID(v any) (uuid.UUID, bool) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, true
	case string:
		u, err := uuid.Parse(strings.TrimSpace(x))
		return u, err == nil
	case []byte:
		u, err := uuid.FromBytes(x)
		return u, err == nil
	}
	return uuid.Nil, false
}

// quotedBody scans the first single-quoted token of lit and returns its
// unescaped content. found is false when lit has no quote at all.
func quotedBody(lit string, backslash bool) (body string, found bool, err error) {
	start := strings.IndexByte(lit, '\'')
	if start < 0 {
		return "", false, nil
	}
	var b strings.Builder
	for i := start + 1; i < len(lit); i++ {
		c := lit[i]
		switch {
		case backslash && c == '\\' && i+1 < len(lit):
			i++
			b.WriteByte(lit[i])
		case c == '\'':
			if i+1 < len(lit) && lit[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			return b.String(), true, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", true, errs.Newf(errs.ErrKindInvalidInput, "unterminated literal %q", lit)
}

// parseText converts the textual form of a literal back to the canonical
// Go value for t.
func parseText(s string, t schema.ValueType) (any, bool) {
	switch t {
	case schema.TypeString:
		return s, true
	case schema.TypeInteger:
		return toInteger(s)
	case schema.TypeDecimal:
		return toDecimal(s)
	case schema.TypeFloat:
		return toFloat(s)
	case schema.TypeBoolean:
		switch strings.ToUpper(s) {
		case "TRUE", "1", "T", "Y":
			return true, true
		case "FALSE", "0", "F", "N":
			return false, true
		}
		return nil, false
	case schema.TypeDate:
		return toTime(s, true)
	case schema.TypeTimestamp, schema.TypeTimestampTZ:
		return toTime(s, false)
	case schema.TypeBinary:
		b, err := hex.DecodeString(s)
		return b, err == nil
	case schema.TypeUUID:
		return toUUID(s)
	}
	return nil, false
}
