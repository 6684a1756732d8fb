package schema

// TableInfo describes a table: its ordered columns, primary key and the
// foreign keys it declares. Foreign keys are attached during Schema
// assembly, after every table is known.
type TableInfo struct {
	name         string
	columns      []*ColumnInfo
	byName       map[string]*ColumnInfo
	primaryKey   []string
	syntheticKey bool
	foreignKeys  []*ForeignKey
}

// NewTable builds a TableInfo. When primaryKey is empty the table gets a
// synthetic key made of all its columns.
func NewTable(name string, columns []*ColumnInfo, primaryKey []string) *TableInfo {
	t := &TableInfo{
		name:    name,
		columns: columns,
		byName:  make(map[string]*ColumnInfo, len(columns)),
	}
	for _, c := range columns {
		t.byName[c.Name()] = c
	}
	if len(primaryKey) == 0 {
		t.syntheticKey = true
		for _, c := range columns {
			primaryKey = append(primaryKey, c.Name())
		}
	}
	t.primaryKey = primaryKey
	return t
}

func (t *TableInfo) Name() string               { return t.name }
func (t *TableInfo) Columns() []*ColumnInfo     { return t.columns }
func (t *TableInfo) PrimaryKey() []string       { return t.primaryKey }
func (t *TableInfo) ForeignKeys() []*ForeignKey { return t.foreignKeys }

// Column returns the named column, or nil.
func (t *TableInfo) Column(name string) *ColumnInfo { return t.byName[name] }

// SyntheticKey reports whether the primary key was synthesised from all
// columns because the catalog declared none.
func (t *TableInfo) SyntheticKey() bool { return t.syntheticKey }

// IsPrimaryKey reports whether name is part of the primary key.
func (t *TableInfo) IsPrimaryKey(name string) bool {
	return contains(t.primaryKey, name)
}

// BasicColumns returns the columns that are not part of any foreign key.
// Primary key columns are always included.
func (t *TableInfo) BasicColumns() []*ColumnInfo {
	fkCols := make(map[string]bool)
	for _, fk := range t.foreignKeys {
		for _, c := range fk.Columns() {
			fkCols[c] = true
		}
	}
	var out []*ColumnInfo
	for _, c := range t.columns {
		if !fkCols[c.Name()] || t.IsPrimaryKey(c.Name()) {
			out = append(out, c)
		}
	}
	return out
}

// ParentForeignKey returns the foreign key that joins this table to its
// parent in a table-per-type hierarchy: its columns equal this table's
// primary key and its referenced columns equal the referenced table's
// primary key, both positionally. Nil unless exactly one key qualifies.
func (t *TableInfo) ParentForeignKey() *ForeignKey {
	var parent *ForeignKey
	for _, fk := range t.foreignKeys {
		if fk.To() == t || !fk.IsInheritance() {
			continue
		}
		if parent != nil {
			return nil
		}
		parent = fk
	}
	return parent
}

// ForeignKeyTo returns the first foreign key referencing the named table.
func (t *TableInfo) ForeignKeyTo(table string) *ForeignKey {
	for _, fk := range t.foreignKeys {
		if fk.To().Name() == table {
			return fk
		}
	}
	return nil
}

// ForeignKey returns the foreign key with the given constraint name, or nil.
func (t *TableInfo) ForeignKey(name string) *ForeignKey {
	for _, fk := range t.foreignKeys {
		if fk.Name() == name {
			return fk
		}
	}
	return nil
}

func (t *TableInfo) addForeignKey(fk *ForeignKey) {
	t.foreignKeys = append(t.foreignKeys, fk)
}

// TableView is the serialisable form of a table.
type TableView struct {
	Name         string           `json:"name" yaml:"name"`
	PrimaryKey   []string         `json:"primary_key" yaml:"primary_key"`
	SyntheticKey bool             `json:"synthetic_key,omitempty" yaml:"synthetic_key,omitempty"`
	Columns      []ColumnView     `json:"columns" yaml:"columns"`
	ForeignKeys  []ForeignKeyView `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	Parent       string           `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// View returns the serialisable form of t.
func (t *TableInfo) View() TableView {
	v := TableView{
		Name:         t.name,
		PrimaryKey:   t.primaryKey,
		SyntheticKey: t.syntheticKey,
	}
	for _, c := range t.columns {
		v.Columns = append(v.Columns, c.view())
	}
	for _, fk := range t.foreignKeys {
		v.ForeignKeys = append(v.ForeignKeys, fk.View())
	}
	if p := t.ParentForeignKey(); p != nil && !p.IsComposition() {
		v.Parent = p.To().Name()
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func equalLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
