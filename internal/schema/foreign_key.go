package schema

import "strings"

// Rule is a referential action for ON DELETE / ON UPDATE.
type Rule int

const (
	RuleNoAction Rule = iota
	RuleRestrict
	RuleCascade
	RuleSetNull
	RuleSetDefault
)

func (r Rule) String() string {
	switch r {
	case RuleRestrict:
		return "RESTRICT"
	case RuleCascade:
		return "CASCADE"
	case RuleSetNull:
		return "SET_NULL"
	case RuleSetDefault:
		return "SET_DEFAULT"
	default:
		return "NO_ACTION"
	}
}

// ParseRule accepts catalog spellings such as "SET NULL", "set_null" or
// "CASCADE". Unknown or empty input is NO_ACTION.
func ParseRule(s string) Rule {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "_") {
	case "RESTRICT":
		return RuleRestrict
	case "CASCADE":
		return RuleCascade
	case "SET_NULL":
		return RuleSetNull
	case "SET_DEFAULT":
		return RuleSetDefault
	default:
		return RuleNoAction
	}
}

// Cardinality describes how many referencing rows one referenced row has.
type Cardinality int

const (
	ToMany Cardinality = iota
	ToOne
)

func (c Cardinality) String() string {
	if c == ToOne {
		return "to_one"
	}
	return "to_many"
}

// ForeignKey is a (possibly multi-column) reference from one table to another.
type ForeignKey struct {
	name        string
	from        *TableInfo
	to          *TableInfo
	columns     []string
	refColumns  []string
	onDelete    Rule
	onUpdate    Rule
	composition bool
}

// NewForeignKey builds a ForeignKey. It is not attached to from until the
// owning Schema is assembled.
func NewForeignKey(name string, from, to *TableInfo, columns, refColumns []string, onDelete, onUpdate Rule) *ForeignKey {
	return &ForeignKey{
		name:       name,
		from:       from,
		to:         to,
		columns:    columns,
		refColumns: refColumns,
		onDelete:   onDelete,
		onUpdate:   onUpdate,
	}
}

func (fk *ForeignKey) Name() string         { return fk.name }
func (fk *ForeignKey) From() *TableInfo     { return fk.from }
func (fk *ForeignKey) To() *TableInfo       { return fk.to }
func (fk *ForeignKey) Columns() []string    { return fk.columns }
func (fk *ForeignKey) RefColumns() []string { return fk.refColumns }
func (fk *ForeignKey) OnDelete() Rule       { return fk.onDelete }
func (fk *ForeignKey) OnUpdate() Rule       { return fk.onUpdate }

// IsInheritance reports whether the referencing and referenced column lists
// are exactly the full primary keys of their tables.
func (fk *ForeignKey) IsInheritance() bool {
	return equalLists(fk.columns, fk.from.PrimaryKey()) &&
		equalLists(fk.refColumns, fk.to.PrimaryKey())
}

// IsComposition reports whether the key was promoted by MakeComposition:
// the child's key is copied from the parent but the tables are not a
// type hierarchy.
func (fk *ForeignKey) IsComposition() bool { return fk.composition }

// MakeComposition marks the key as a composition and forces its column
// lists to the full primary keys of both tables.
func (fk *ForeignKey) MakeComposition() {
	fk.composition = true
	fk.columns = append([]string(nil), fk.from.PrimaryKey()...)
	fk.refColumns = append([]string(nil), fk.to.PrimaryKey()...)
}

// Cardinality is to-one for primary-key-to-primary-key keys and for
// constraints named with a "_one" or "_1" suffix, to-many otherwise.
func (fk *ForeignKey) Cardinality() Cardinality {
	if fk.IsInheritance() || fk.composition {
		return ToOne
	}
	n := strings.ToLower(fk.name)
	if strings.HasSuffix(n, "_one") || strings.HasSuffix(n, "_1") {
		return ToOne
	}
	return ToMany
}

// RefColumnFor returns the referenced column paired with the given
// referencing column, or "".
func (fk *ForeignKey) RefColumnFor(column string) string {
	for i, c := range fk.columns {
		if c == column {
			return fk.refColumns[i]
		}
	}
	return ""
}

// ForeignKeyView is the serialisable form of a foreign key.
type ForeignKeyView struct {
	Name        string   `json:"name" yaml:"name"`
	Columns     []string `json:"columns" yaml:"columns"`
	References  string   `json:"references" yaml:"references"`
	RefColumns  []string `json:"ref_columns" yaml:"ref_columns"`
	OnDelete    string   `json:"on_delete" yaml:"on_delete"`
	OnUpdate    string   `json:"on_update" yaml:"on_update"`
	Cardinality string   `json:"cardinality" yaml:"cardinality"`
	Inheritance bool     `json:"inheritance,omitempty" yaml:"inheritance,omitempty"`
	Composition bool     `json:"composition,omitempty" yaml:"composition,omitempty"`
}

// View returns the serialisable form of fk.
func (fk *ForeignKey) View() ForeignKeyView {
	return ForeignKeyView{
		Name:        fk.name,
		Columns:     fk.columns,
		References:  fk.to.Name(),
		RefColumns:  fk.refColumns,
		OnDelete:    fk.onDelete.String(),
		OnUpdate:    fk.onUpdate.String(),
		Cardinality: fk.Cardinality().String(),
		Inheritance: fk.IsInheritance(),
		Composition: fk.composition,
	}
}
