package entity

import (
	"strings"

	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
)

// CatalogOptions tunes how types are derived from tables.
type CatalogOptions struct {
	// VersionColumn names the optimistic version column. Tables carrying
	// an integer column of that name get it as their version column.
	VersionColumn string
	// Generators assigns identifier generators per type name. Types with
	// a single UUID identifier default to UUIDGenerator.
	Generators map[string]Generator
	// UUIDAsString makes the default uuid generator emit canonical text.
	UUIDAsString bool
}

// Catalog holds one EntityType per table of a schema.
type Catalog struct {
	schema *schema.Schema
	types  map[string]*EntityType
	names  []string
}

// NewCatalog derives entity types from s. Supertype chains are resolved
// here, once.
func NewCatalog(s *schema.Schema, opts CatalogOptions) *Catalog {
	c := &Catalog{schema: s, types: make(map[string]*EntityType)}
	for _, tbl := range s.Tables() {
		t := &EntityType{name: tbl.Name(), table: tbl}
		if !tbl.SyntheticKey() {
			t.identifier = tbl.PrimaryKey()
		}
		t.generator = opts.Generators[t.name]
		if t.generator == nil && len(t.identifier) == 1 {
			if col := tbl.Column(t.identifier[0]); col != nil && col.Type() == schema.TypeUUID {
				t.generator = UUIDGenerator{AsString: opts.UUIDAsString}
			}
		}
		c.types[t.name] = t
		c.names = append(c.names, t.name)
	}
	for _, t := range c.types {
		t.resolveChain(c.types)
		if opts.VersionColumn != "" {
			t.version = versionColumn(t.chain, opts.VersionColumn)
		}
	}
	return c
}

func (c *Catalog) Schema() *schema.Schema { return c.schema }

// Type returns the named type, matching case-insensitively when there is
// no exact match.
func (c *Catalog) Type(name string) (*EntityType, error) {
	if t, ok := c.types[name]; ok {
		return t, nil
	}
	for n, t := range c.types {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "entity type %q not found", name)
}

// Types returns every type ordered by name.
func (c *Catalog) Types() []*EntityType {
	out := make([]*EntityType, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.types[n])
	}
	return out
}

// New returns an empty record of the named type.
func (c *Catalog) New(name string) (*Record, error) {
	t, err := c.Type(name)
	if err != nil {
		return nil, err
	}
	return NewRecord(t), nil
}

// versionColumn returns the first integer column named name along the
// chain, so subtypes share the version of the supertype row.
func versionColumn(chain []*EntityType, name string) string {
	for _, level := range chain {
		if col := level.table.Column(name); col != nil && col.Type() == schema.TypeInteger {
			return col.Name()
		}
	}
	return ""
}
