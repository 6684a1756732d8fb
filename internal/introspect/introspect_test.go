package introspect

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/database/sqlite"
	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// expectCatalog queues the four catalog queries of a small Postgres schema:
// customer <- orders (plain reference), orders <- order_line, and a key
// from audit to a table outside the schema.
func expectCatalog(mock sqlmock.Sqlmock, a dialect.Adapter, geometryType string) {
	mock.ExpectQuery(a.PrimaryKeysQuery()).WillReturnRows(
		sqlmock.NewRows([]string{"table", "column"}).
			AddRow("customer", "id").
			AddRow("order_line", "order_no").
			AddRow("order_line", "pos").
			AddRow("orders", "order_no"))

	mock.ExpectQuery(a.ColumnsQuery()).WillReturnRows(
		sqlmock.NewRows([]string{"table", "column", "nullable", "type", "generated", "max_length"}).
			AddRow("audit", "customer_id", "YES", "bigint", "NO", nil).
			AddRow("audit", "note", "YES", "text", "NO", nil).
			AddRow("customer", "id", "NO", "bigint", "YES", nil).
			AddRow("customer", "name", "YES", "character varying", "NO", "40").
			AddRow("customer", "location", "YES", geometryType, "NO", nil).
			AddRow("order_line", "order_no", "NO", "integer", "NO", nil).
			AddRow("order_line", "pos", "NO", "integer", "NO", nil).
			AddRow("order_line", "amount", "YES", "numeric", "NO", nil).
			AddRow("orders", "order_no", "NO", "integer", "NO", nil).
			AddRow("orders", "customer_id", "YES", "bigint", "NO", nil).
			AddRow("orders", "placed", "YES", "date", "NO", nil))

	mock.ExpectQuery(a.ForeignKeysQuery()).WillReturnRows(
		sqlmock.NewRows([]string{"name", "table", "column", "ref_table", "ref_column", "on_delete", "on_update"}).
			AddRow("fk_audit_ghost", "audit", "customer_id", "ghost", "id", "NO ACTION", "NO ACTION").
			AddRow("fk_line_orders", "order_line", "order_no", "orders", "order_no", "CASCADE", "NO ACTION").
			AddRow("fk_orders_customer", "orders", "customer_id", "customer", "id", "SET NULL", "NO ACTION"))

	mock.ExpectQuery(a.SequencesQuery()).WillReturnRows(
		sqlmock.NewRows([]string{"name", "type", "min", "max", "increment", "start", "cycle"}).
			AddRow("customer_id_seq", "bigint", "1", "9223372036854775807", "1", "1", "NO").
			AddRow("wide_seq", "numeric", "1", "99999999999999999999999999", "5", "10", "YES"))
}

func TestSchema_Postgres(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	a := dialect.NewPostgres()
	expectCatalog(mock, a, "geometry")

	in := New(a, db)
	s, err := in.Schema(ctx)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, tbl := range s.Tables() {
		names = append(names, tbl.Name())
	}
	assert.Equal(t, []string{"audit", "customer", "order_line", "orders"}, names)

	customer := s.Table("customer")
	require.NotNil(t, customer)
	assert.Equal(t, []string{"id"}, customer.PrimaryKey())
	assert.True(t, customer.Column("id").Generated())
	assert.False(t, customer.Column("id").Nullable())
	assert.Equal(t, 40, customer.Column("name").MaxLength())
	assert.Equal(t, schema.TypeUnknown, customer.Column("location").Type())

	audit := s.Table("audit")
	assert.True(t, audit.SyntheticKey())
	assert.Empty(t, audit.ForeignKeys(), "key to a table outside the schema is skipped")

	line := s.Table("order_line")
	assert.Equal(t, []string{"order_no", "pos"}, line.PrimaryKey())
	fk := line.ForeignKey("fk_line_orders")
	require.NotNil(t, fk)
	assert.Equal(t, schema.RuleCascade, fk.OnDelete())
	assert.Equal(t, "orders", fk.To().Name())

	orders := s.Table("orders")
	assert.Equal(t, schema.RuleSetNull, orders.ForeignKeyTo("customer").OnDelete())
	assert.Equal(t, schema.TypeDate, orders.Column("placed").Type())

	wide := s.Sequence("wide_seq")
	require.NotNil(t, wide)
	assert.True(t, wide.Max.Equal(decimal.RequireFromString("99999999999999999999999999")))
	assert.True(t, wide.Increment.Equal(decimal.NewFromInt(5)))
	assert.True(t, wide.Cycle)
	assert.False(t, s.Sequence("customer_id_seq").Cycle)

	// memoized: no further catalog queries are expected
	again, err := in.Schema(ctx)
	require.NoError(t, err)
	assert.Same(t, s, again)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_StrictTypes(t *testing.T) {
	db, mock := newMock(t)
	a := dialect.NewPostgres()
	mock.ExpectQuery(a.PrimaryKeysQuery()).WillReturnRows(
		sqlmock.NewRows([]string{"table", "column"}).AddRow("customer", "id"))
	mock.ExpectQuery(a.ColumnsQuery()).WillReturnRows(
		sqlmock.NewRows([]string{"table", "column", "nullable", "type", "generated", "max_length"}).
			AddRow("customer", "id", "NO", "bigint", "NO", nil).
			AddRow("customer", "location", "YES", "geometry", "NO", nil))

	_, err := New(a, db, WithStrictTypes(true)).Schema(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsUnknownTypeMapping(err))
}

func TestSchema_QueryErrorIsMapped(t *testing.T) {
	db, mock := newMock(t)
	a := dialect.NewPostgres()
	mock.ExpectQuery(a.PrimaryKeysQuery()).WillReturnError(context.DeadlineExceeded)

	_, err := New(a, db).Schema(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	a := dialect.NewPostgres()
	expectCatalog(mock, a, "text")
	expectCatalog(mock, a, "text")

	in := New(a, db)
	first, err := in.Schema(ctx)
	require.NoError(t, err)

	in.Refresh()
	second, err := in.Schema(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, schema.TypeString, second.Table("customer").Column("location").Type())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	a := dialect.NewPostgres()
	expectCatalog(mock, a, "text")

	in := New(a, db)

	tbl, err := in.Table(ctx, "ORDERS")
	require.NoError(t, err)
	assert.Equal(t, "orders", tbl.Name())

	_, err = in.Table(ctx, "nope")
	assert.True(t, errs.IsNotFound(err))

	seq, err := in.Sequence(ctx, "customer_id_seq")
	require.NoError(t, err)
	assert.Equal(t, "bigint", seq.NativeType)

	_, err = in.Sequence(ctx, "nope")
	assert.True(t, errs.IsNotFound(err))

	keys, err := in.PrimaryKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_no", "pos"}, keys["order_line"])
	assert.Equal(t, []string{"customer_id", "note"}, keys["audit"])
}

func TestTableExists(t *testing.T) {
	db, mock := newMock(t)
	a := dialect.NewPostgres()
	mock.ExpectQuery(a.TableExistsQuery()).WithArgs("customer").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(a.TableExistsQuery()).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	in := New(a, db)
	ok, err := in.TableExists(context.Background(), "customer")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = in.TableExists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchema_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := database.DefaultConfig(filepath.Join(t.TempDir(), "catalog.db"))
	cfg.Driver = database.DriverSQLite
	h, err := sqlite.Open(ctx, cfg)
	require.NoError(t, err)
	defer h.Close()

	for _, ddl := range []string{
		`CREATE TABLE party (id INTEGER PRIMARY KEY AUTOINCREMENT, name VARCHAR(40) NOT NULL)`,
		`CREATE TABLE person (id INTEGER PRIMARY KEY REFERENCES party(id) ON DELETE CASCADE, born DATE)`,
		`CREATE TABLE orders (order_no INTEGER PRIMARY KEY, person_id INTEGER REFERENCES person, total NUMERIC(10,2))`,
		`CREATE TABLE tag (label TEXT, weight REAL)`,
	} {
		_, err := h.DB.ExecContext(ctx, ddl)
		require.NoError(t, err, ddl)
	}

	in := New(dialect.NewSQLite(), h.DB, WithErrorMapper(h.Mapper()))
	s, err := in.Schema(ctx)
	require.NoError(t, err)
	require.Len(t, s.Tables(), 4)

	party := s.Table("party")
	assert.True(t, party.Column("id").Generated())
	assert.False(t, party.Column("name").Nullable())
	assert.Equal(t, 40, party.Column("name").MaxLength())
	assert.Equal(t, schema.TypeString, party.Column("name").Type())

	person := s.Table("person")
	parent := person.ParentForeignKey()
	require.NotNil(t, parent)
	assert.Equal(t, "party", parent.To().Name())
	assert.Equal(t, schema.RuleCascade, parent.OnDelete())
	assert.Equal(t, schema.TypeDate, person.Column("born").Type())

	orders := s.Table("orders")
	fk := orders.ForeignKeyTo("person")
	require.NotNil(t, fk)
	assert.Equal(t, []string{"id"}, fk.RefColumns(), "omitted column resolves to the primary key")
	assert.Equal(t, schema.TypeDecimal, orders.Column("total").Type())

	tag := s.Table("tag")
	assert.True(t, tag.SyntheticKey())
	assert.Equal(t, schema.TypeFloat, tag.Column("weight").Type())

	assert.Empty(t, s.Sequences())

	ok, err := in.TableExists(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, ok)

	order := schema.NewOrderer(s)
	assert.True(t, order.Less("party", "person"))
	assert.True(t, order.Less("person", "orders"))
}
