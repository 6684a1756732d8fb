package introspect

import (
	"testing"

	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(name string) *schema.ColumnInfo {
	return schema.NewColumn(name, schema.TypeInteger, "integer", false, false, 0)
}

// invoiceSchema: invoice(id) and invoice_detail(id, line) with a catalog
// key on id only.
func invoiceSchema() *schema.Schema {
	invoice := schema.NewTable("invoice", []*schema.ColumnInfo{col("id"), col("total")}, []string{"id"})
	detail := schema.NewTable("invoice_detail", []*schema.ColumnInfo{col("id"), col("line"), col("owner_id")}, []string{"id", "line"})
	s := schema.New([]*schema.TableInfo{invoice, detail}, nil)
	s.AddForeignKey(schema.NewForeignKey("fk_detail_invoice", detail, invoice,
		[]string{"id"}, []string{"id"}, schema.RuleCascade, schema.RuleNoAction))
	return s
}

func TestStaticEnhancer_PromotesExistingKey(t *testing.T) {
	s := invoiceSchema()
	e := &StaticEnhancer{Relationships: []Relationship{
		{Name: "fk_detail_invoice", From: "invoice_detail", To: "invoice", Composition: true},
	}}
	require.NoError(t, e.Enhance(s))

	detail := s.Table("invoice_detail")
	require.Len(t, detail.ForeignKeys(), 1)
	fk := detail.ForeignKeys()[0]
	assert.True(t, fk.IsComposition())
	assert.Equal(t, []string{"id", "line"}, fk.Columns())
	assert.Equal(t, schema.ToOne, fk.Cardinality())
}

func TestStaticEnhancer_AddsRelationship(t *testing.T) {
	s := invoiceSchema()
	e := &StaticEnhancer{Relationships: []Relationship{
		{Name: "fk_detail_owner", From: "invoice_detail", Columns: []string{"owner_id"}, To: "invoice", OnDelete: "set null"},
	}}
	require.NoError(t, e.Enhance(s))

	fk := s.Table("invoice_detail").ForeignKey("fk_detail_owner")
	require.NotNil(t, fk)
	assert.Equal(t, []string{"id"}, fk.RefColumns())
	assert.Equal(t, schema.RuleSetNull, fk.OnDelete())
	assert.False(t, fk.IsComposition())
	assert.Equal(t, schema.ToMany, fk.Cardinality())
}

func TestStaticEnhancer_Errors(t *testing.T) {
	tests := []struct {
		name string
		rel  Relationship
		kind errs.ErrKind
	}{
		{"unknown from", Relationship{Name: "r", From: "ghost", To: "invoice"}, errs.ErrKindNotFound},
		{"unknown to", Relationship{Name: "r", From: "invoice_detail", To: "ghost"}, errs.ErrKindNotFound},
		{"unknown column", Relationship{Name: "r", From: "invoice_detail", Columns: []string{"nope"}, To: "invoice"}, errs.ErrKindNotFound},
		{"arity", Relationship{Name: "r", From: "invoice_detail", Columns: []string{"id", "line"}, To: "invoice"}, errs.ErrKindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&StaticEnhancer{Relationships: []Relationship{tt.rel}}).Enhance(invoiceSchema())
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
		})
	}
}

func TestEnhancerFunc(t *testing.T) {
	called := false
	var e Enhancer = EnhancerFunc(func(s *schema.Schema) error {
		called = true
		return nil
	})
	require.NoError(t, e.Enhance(invoiceSchema()))
	assert.True(t, called)
}
