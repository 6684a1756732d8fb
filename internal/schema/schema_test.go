package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(name string, typ ValueType) *ColumnInfo {
	return NewColumn(name, typ, typ.String(), true, false, 0)
}

// fixture builds party <- person <- employee (table-per-type hierarchy),
// orders -> person (plain reference) and order_line -> orders.
func fixture(t *testing.T) *Schema {
	t.Helper()
	party := NewTable("party", []*ColumnInfo{col("id", TypeInteger), col("name", TypeString)}, []string{"id"})
	person := NewTable("person", []*ColumnInfo{col("id", TypeInteger), col("birth", TypeDate)}, []string{"id"})
	employee := NewTable("employee", []*ColumnInfo{col("id", TypeInteger), col("salary", TypeDecimal)}, []string{"id"})
	orders := NewTable("orders", []*ColumnInfo{col("order_no", TypeInteger), col("person_id", TypeInteger)}, []string{"order_no"})
	line := NewTable("order_line", []*ColumnInfo{col("order_no", TypeInteger), col("pos", TypeInteger), col("sku", TypeString)}, []string{"order_no", "pos"})

	s := New([]*TableInfo{party, person, employee, orders, line}, nil)
	s.AddForeignKey(NewForeignKey("fk_person_party", person, party, []string{"id"}, []string{"id"}, RuleCascade, RuleNoAction))
	s.AddForeignKey(NewForeignKey("fk_employee_person", employee, person, []string{"id"}, []string{"id"}, RuleCascade, RuleNoAction))
	s.AddForeignKey(NewForeignKey("fk_orders_person", orders, person, []string{"person_id"}, []string{"id"}, RuleRestrict, RuleNoAction))
	s.AddForeignKey(NewForeignKey("fk_line_orders", line, orders, []string{"order_no"}, []string{"order_no"}, RuleCascade, RuleNoAction))
	return s
}

func TestForeignKey_IsInheritance(t *testing.T) {
	s := fixture(t)

	tests := []struct {
		table string
		to    string
		want  bool
	}{
		{"person", "party", true},
		{"employee", "person", true},
		{"orders", "person", false},
		// order_line's key is (order_no, pos); the reference covers only part of it.
		{"order_line", "orders", false},
	}
	for _, tt := range tests {
		t.Run(tt.table+"->"+tt.to, func(t *testing.T) {
			fk := s.Table(tt.table).ForeignKeyTo(tt.to)
			require.NotNil(t, fk)
			assert.Equal(t, tt.want, fk.IsInheritance())
		})
	}
}

func TestTableInfo_ParentForeignKey(t *testing.T) {
	s := fixture(t)

	require.NotNil(t, s.Table("employee").ParentForeignKey())
	assert.Equal(t, "person", s.Table("employee").ParentForeignKey().To().Name())
	assert.Equal(t, "party", s.Table("person").ParentForeignKey().To().Name())
	assert.Nil(t, s.Table("party").ParentForeignKey())
	assert.Nil(t, s.Table("orders").ParentForeignKey())
}

func TestTableInfo_ParentForeignKeyAmbiguous(t *testing.T) {
	a := NewTable("a", []*ColumnInfo{col("id", TypeInteger)}, []string{"id"})
	b := NewTable("b", []*ColumnInfo{col("id", TypeInteger)}, []string{"id"})
	c := NewTable("c", []*ColumnInfo{col("id", TypeInteger)}, []string{"id"})
	s := New([]*TableInfo{a, b, c}, nil)
	s.AddForeignKey(NewForeignKey("c_a", c, a, []string{"id"}, []string{"id"}, RuleNoAction, RuleNoAction))
	s.AddForeignKey(NewForeignKey("c_b", c, b, []string{"id"}, []string{"id"}, RuleNoAction, RuleNoAction))

	assert.Nil(t, c.ParentForeignKey())
}

func TestTableInfo_BasicColumns(t *testing.T) {
	s := fixture(t)

	names := func(cols []*ColumnInfo) []string {
		var out []string
		for _, c := range cols {
			out = append(out, c.Name())
		}
		return out
	}
	assert.Equal(t, []string{"order_no"}, names(s.Table("orders").BasicColumns()))
	assert.Equal(t, []string{"order_no", "pos", "sku"}, names(s.Table("order_line").BasicColumns()))
	assert.Equal(t, []string{"id", "salary"}, names(s.Table("employee").BasicColumns()))
}

func TestNewTable_SyntheticKey(t *testing.T) {
	tbl := NewTable("audit", []*ColumnInfo{col("at", TypeTimestamp), col("msg", TypeString)}, nil)

	assert.True(t, tbl.SyntheticKey())
	assert.Equal(t, []string{"at", "msg"}, tbl.PrimaryKey())
}

func TestForeignKey_MakeComposition(t *testing.T) {
	head := NewTable("invoice", []*ColumnInfo{col("id", TypeInteger)}, []string{"id"})
	detail := NewTable("invoice_detail", []*ColumnInfo{col("invoice_id", TypeInteger), col("note", TypeString)}, []string{"invoice_id"})
	s := New([]*TableInfo{head, detail}, nil)
	fk := NewForeignKey("detail_invoice", detail, head, []string{"invoice_id"}, []string{"id"}, RuleCascade, RuleNoAction)
	s.AddForeignKey(fk)

	assert.True(t, fk.IsInheritance())
	assert.False(t, fk.IsComposition())

	fk.MakeComposition()
	assert.True(t, fk.IsComposition())
	assert.True(t, fk.IsInheritance())
	assert.Equal(t, []string{"invoice_id"}, fk.Columns())
	assert.Equal(t, []string{"id"}, fk.RefColumns())
	assert.Equal(t, ToOne, fk.Cardinality())
	assert.Empty(t, detail.View().Parent)
}

func TestForeignKey_Cardinality(t *testing.T) {
	s := fixture(t)

	assert.Equal(t, ToMany, s.Table("orders").ForeignKeyTo("person").Cardinality())

	a := NewTable("a", []*ColumnInfo{col("id", TypeInteger), col("b_id", TypeInteger)}, []string{"id"})
	b := NewTable("b", []*ColumnInfo{col("id", TypeInteger)}, []string{"id"})
	fk := NewForeignKey("a_b_one", a, b, []string{"b_id"}, []string{"id"}, RuleNoAction, RuleNoAction)
	assert.Equal(t, ToOne, fk.Cardinality())
}

func TestParseRule(t *testing.T) {
	tests := map[string]Rule{
		"CASCADE":     RuleCascade,
		"set null":    RuleSetNull,
		"SET_DEFAULT": RuleSetDefault,
		"RESTRICT":    RuleRestrict,
		"NO ACTION":   RuleNoAction,
		"":            RuleNoAction,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseRule(in), in)
	}
}

func TestOrderer_ParentsFirst(t *testing.T) {
	s := fixture(t)
	o := NewOrderer(s)

	assert.True(t, o.Less("party", "person"))
	assert.True(t, o.Less("person", "employee"))
	assert.True(t, o.Less("person", "orders"))
	assert.True(t, o.Less("orders", "order_line"))
	assert.False(t, o.Less("employee", "person"))
	assert.Equal(t, 0, o.Compare("orders", "orders"))
}

func TestOrderer_EveryParentKeyPrecedesChild(t *testing.T) {
	s := fixture(t)
	o := NewOrderer(s)

	for _, tbl := range s.Tables() {
		if p := tbl.ParentForeignKey(); p != nil {
			assert.Negative(t, o.Compare(p.To().Name(), tbl.Name()), tbl.Name())
			assert.Positive(t, o.Compare(tbl.Name(), p.To().Name()), tbl.Name())
		}
	}
}

func TestOrderer_CycleTerminates(t *testing.T) {
	a := NewTable("a", []*ColumnInfo{col("id", TypeInteger), col("b_id", TypeInteger)}, []string{"id"})
	b := NewTable("b", []*ColumnInfo{col("id", TypeInteger), col("a_id", TypeInteger)}, []string{"id"})
	s := New([]*TableInfo{a, b}, nil)
	s.AddForeignKey(NewForeignKey("a_b", a, b, []string{"b_id"}, []string{"id"}, RuleNoAction, RuleNoAction))
	s.AddForeignKey(NewForeignKey("b_a", b, a, []string{"a_id"}, []string{"id"}, RuleNoAction, RuleNoAction))

	o := NewOrderer(s)
	assert.NotEqual(t, 0, o.Compare("a", "b"))
}

func TestSchema_LookupIsCaseInsensitiveFallback(t *testing.T) {
	s := fixture(t)

	assert.NotNil(t, s.Table("PERSON"))
	assert.Nil(t, s.Table("missing"))
	assert.Equal(t, []string{"id"}, s.PrimaryKeys()["employee"])
	assert.Len(t, s.ForeignKeys(), 4)
}
