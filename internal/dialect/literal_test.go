package dialect

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adapters() []Adapter {
	return []Adapter{NewPostgres(), NewMySQL(), NewSQLite(), NewOracle()}
}

func TestLiteral_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 17, 45, 12, 123456000, time.UTC)
	tests := []struct {
		name  string
		typ   schema.ValueType
		value any
	}{
		{"string", schema.TypeString, "O'Brien said ''hi'' \\ back"},
		{"empty string", schema.TypeString, ""},
		{"integer", schema.TypeInteger, int64(-9007199254740993)},
		{"decimal", schema.TypeDecimal, decimal.RequireFromString("12345678901234567890.000123")},
		{"float", schema.TypeFloat, 3.25},
		{"true", schema.TypeBoolean, true},
		{"false", schema.TypeBoolean, false},
		{"date", schema.TypeDate, time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"timestamp", schema.TypeTimestamp, ts},
		{"timestamptz", schema.TypeTimestampTZ, ts},
		{"binary", schema.TypeBinary, []byte{0x00, 0xde, 0xad, 0xbe, 0xef, 0x27}},
		{"uuid", schema.TypeUUID, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
	}

	for _, a := range adapters() {
		for _, tt := range tests {
			t.Run(a.Family().String()+"/"+tt.name, func(t *testing.T) {
				lit, err := a.RenderLiteral(tt.value, tt.typ)
				require.NoError(t, err)

				got, err := a.ParseLiteral(lit, tt.typ)
				require.NoError(t, err, lit)

				switch want := tt.value.(type) {
				case decimal.Decimal:
					assert.True(t, want.Equal(got.(decimal.Decimal)), "%s -> %v", lit, got)
				case time.Time:
					assert.True(t, want.Equal(got.(time.Time)), "%s -> %v", lit, got)
				default:
					assert.Equal(t, tt.value, got, lit)
				}
			})
		}
	}
}

func TestRenderLiteral_Forms(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	at := time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC)

	tests := []struct {
		adapter Adapter
		value   any
		typ     schema.ValueType
		want    string
	}{
		{NewPostgres(), day, schema.TypeDate, "CAST('2024-01-02' AS date)"},
		{NewPostgres(), at, schema.TypeTimestamp, "CAST('2024-01-02 03:04:05.600000' AS timestamp)"},
		{NewPostgres(), at, schema.TypeTimestampTZ, "CAST('2024-01-02 03:04:05.600000 +00:00' AS timestamptz)"},
		{NewPostgres(), []byte{0xab, 0x01}, schema.TypeBinary, "decode('AB01', 'hex')"},
		{NewPostgres(), true, schema.TypeBoolean, "TRUE"},
		{NewMySQL(), day, schema.TypeDate, "CAST('2024-01-02' AS DATE)"},
		{NewMySQL(), at, schema.TypeTimestamp, "CAST('2024-01-02 03:04:05.600000' AS DATETIME(6))"},
		{NewMySQL(), at, schema.TypeTimestampTZ, "CAST('2024-01-02 03:04:05.600000' AS DATETIME(6))"},
		{NewMySQL(), `a\b'c`, schema.TypeString, `'a\\b''c'`},
		{NewMySQL(), []byte{0xab, 0x01}, schema.TypeBinary, "X'AB01'"},
		{NewSQLite(), day, schema.TypeDate, "date('2024-01-02')"},
		{NewSQLite(), at, schema.TypeTimestamp, "'2024-01-02 03:04:05.600000'"},
		{NewSQLite(), false, schema.TypeBoolean, "0"},
		{NewOracle(), day, schema.TypeDate, "TO_DATE('2024-01-02', 'YYYY-MM-DD')"},
		{NewOracle(), at, schema.TypeTimestamp, "TO_TIMESTAMP('2024-01-02 03:04:05.600000', 'YYYY-MM-DD HH24:MI:SS.FF6')"},
		{NewOracle(), at, schema.TypeTimestampTZ, "TO_TIMESTAMP_TZ('2024-01-02 03:04:05.600000 +00:00', 'YYYY-MM-DD HH24:MI:SS.FF6 TZH:TZM')"},
		{NewOracle(), []byte{0xab, 0x01}, schema.TypeBinary, "HEXTORAW('AB01')"},
		{NewOracle(), `a\b'c`, schema.TypeString, `'a\b''c'`},
		{NewPostgres(), nil, schema.TypeString, "NULL"},
		{NewPostgres(), (*string)(nil), schema.TypeString, "NULL"},
		{NewPostgres(), int32(42), schema.TypeInteger, "42"},
		{NewPostgres(), "17.50", schema.TypeDecimal, "17.5"},
	}
	for _, tt := range tests {
		t.Run(tt.adapter.Family().String()+"/"+tt.want, func(t *testing.T) {
			got, err := tt.adapter.RenderLiteral(tt.value, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderLiteral_ZonedInstant(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, est)

	pg, err := NewPostgres().RenderLiteral(at, schema.TypeTimestampTZ)
	require.NoError(t, err)
	assert.Equal(t, "CAST('2024-01-01 15:00:00.000000 +00:00' AS timestamptz)", pg)

	ora, err := NewOracle().RenderLiteral(at, schema.TypeTimestampTZ)
	require.NoError(t, err)
	assert.Equal(t, "TO_TIMESTAMP_TZ('2024-01-01 15:00:00.000000 +00:00', 'YYYY-MM-DD HH24:MI:SS.FF6 TZH:TZM')", ora)

	for _, a := range adapters() {
		lit, err := a.RenderLiteral(at, schema.TypeTimestampTZ)
		require.NoError(t, err)
		got, err := a.ParseLiteral(lit, schema.TypeTimestampTZ)
		require.NoError(t, err, lit)
		assert.True(t, at.Equal(got.(time.Time)), "%s: %s -> %v", a.Family(), lit, got)
	}

	// A literal written with a non-UTC offset still names the same instant.
	got, err := NewPostgres().ParseLiteral("CAST('2024-01-01 10:00:00 -05:00' AS timestamptz)", schema.TypeTimestampTZ)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.(time.Time)))
}

func TestRenderLiteral_Unsupported(t *testing.T) {
	a := NewPostgres()

	tests := []struct {
		name  string
		value any
		typ   schema.ValueType
	}{
		{"struct as string", struct{ X int }{1}, schema.TypeString},
		{"NaN as float", math.NaN(), schema.TypeFloat},
		{"fraction as integer", 1.5, schema.TypeInteger},
		{"map with unknown type", map[string]int{}, schema.TypeUnknown},
		{"text as date", "yesterday", schema.TypeDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.RenderLiteral(tt.value, tt.typ)
			require.Error(t, err)
			assert.True(t, errs.IsUnsupportedLiteral(err))
		})
	}
}

func TestRenderLiteral_UnknownColumnTypeFollowsValue(t *testing.T) {
	a := NewPostgres()

	got, err := a.RenderLiteral("x", schema.TypeUnknown)
	require.NoError(t, err)
	assert.Equal(t, "'x'", got)

	got, err = a.RenderLiteral(7, schema.TypeUnknown)
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func TestBind(t *testing.T) {
	day := time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC)

	v, err := NewOracle().Bind(true, schema.TypeBoolean)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = NewPostgres().Bind(true, schema.TypeBoolean)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = NewSQLite().Bind(day, schema.TypeDate)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", v)

	v, err = NewPostgres().Bind(day, schema.TypeDate)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), v)

	v, err = NewMySQL().Bind(int16(3), schema.TypeInteger)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = NewMySQL().Bind(nil, schema.TypeInteger)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParseLiteral_Errors(t *testing.T) {
	a := NewPostgres()

	_, err := a.ParseLiteral("'unterminated", schema.TypeString)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = a.ParseLiteral("abc", schema.TypeInteger)
	assert.True(t, errs.IsInvalidInput(err))

	v, err := a.ParseLiteral("null", schema.TypeInteger)
	require.NoError(t, err)
	assert.Nil(t, v)
}
