package schema

// ColumnInfo describes a single column of a table. It is immutable once
// constructed from catalog metadata; use NewColumn.
type ColumnInfo struct {
	name       string
	nullable   bool
	typ        ValueType
	nativeType string
	generated  bool
	maxLength  int
}

// NewColumn builds a ColumnInfo. maxLength is 0 when the type has no length.
func NewColumn(name string, typ ValueType, nativeType string, nullable, generated bool, maxLength int) *ColumnInfo {
	return &ColumnInfo{
		name:       name,
		nullable:   nullable,
		typ:        typ,
		nativeType: nativeType,
		generated:  generated,
		maxLength:  maxLength,
	}
}

func (c *ColumnInfo) Name() string       { return c.name }
func (c *ColumnInfo) Nullable() bool     { return c.nullable }
func (c *ColumnInfo) Type() ValueType    { return c.typ }
func (c *ColumnInfo) NativeType() string { return c.nativeType }
func (c *ColumnInfo) MaxLength() int     { return c.maxLength }

// Generated reports whether the server or a sequence populates the column.
// Generated columns are skipped on insert and update.
func (c *ColumnInfo) Generated() bool { return c.generated }

// ColumnView is the serialisable form used by the HTTP and CLI surfaces.
type ColumnView struct {
	Name       string    `json:"name" yaml:"name"`
	Type       ValueType `json:"type" yaml:"type"`
	NativeType string    `json:"native_type" yaml:"native_type"`
	Nullable   bool      `json:"nullable" yaml:"nullable"`
	Generated  bool      `json:"generated,omitempty" yaml:"generated,omitempty"`
	MaxLength  int       `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

func (c *ColumnInfo) view() ColumnView {
	return ColumnView{
		Name:       c.name,
		Type:       c.typ,
		NativeType: c.nativeType,
		Nullable:   c.nullable,
		Generated:  c.generated,
		MaxLength:  c.maxLength,
	}
}
