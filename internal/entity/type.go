// Package entity describes the persistent types the session writes: one
// EntityType per table, with its supertype chain resolved once when the
// Catalog is built, and Records carrying the values of one instance.
package entity

import "github.com/koustreak/sqlstage/internal/schema"

// EntityType maps one table. A type whose table joins a parent table
// through its primary key (a non-composition parent foreign key) is a
// subtype of the parent's type; its records span every table in Chain.
type EntityType struct {
	name       string
	table      *schema.TableInfo
	super      *EntityType
	chain      []*EntityType
	identifier []string
	version    string
	generator  Generator

	// aliases maps, per level table, a key column of that level to the
	// record property holding its value.
	aliases map[string]map[string]string
}

func (t *EntityType) Name() string             { return t.name }
func (t *EntityType) Table() *schema.TableInfo { return t.table }

// Super returns the direct supertype, or nil.
func (t *EntityType) Super() *EntityType { return t.super }

// Chain lists t and its supertypes, narrowest first.
func (t *EntityType) Chain() []*EntityType { return t.chain }

// Identifier returns the declared primary key columns. It is empty when
// the table has no declared key.
func (t *EntityType) Identifier() []string { return t.identifier }

func (t *EntityType) HasIdentifier() bool { return len(t.identifier) > 0 }

// VersionColumn is the optimistic version column, or "" when the table
// does not carry one.
func (t *EntityType) VersionColumn() string { return t.version }

// Generator returns the identifier generator, or nil.
func (t *EntityType) Generator() Generator { return t.generator }

// IdentifierGenerated reports whether the database assigns the key of
// any level of the chain.
func (t *EntityType) IdentifierGenerated() bool { return t.KeyGeneratedBy() != nil }

// KeyGeneratedBy returns the narrowest level of the chain whose key the
// database assigns, or nil.
func (t *EntityType) KeyGeneratedBy() *EntityType {
	for _, level := range t.Chain() {
		for _, c := range level.identifier {
			if col := level.table.Column(c); col != nil && col.Generated() {
				return level
			}
		}
	}
	return nil
}

// Property returns the record property that holds column of the level
// table. Key columns of supertype levels resolve to the subtype's key
// columns through the parent foreign keys; everything else maps to itself.
func (t *EntityType) Property(level, column string) string {
	if m, ok := t.aliases[level]; ok {
		if p, ok := m[column]; ok {
			return p
		}
	}
	return column
}

// resolveChain walks parent keys outward. Cycles stop the walk.
func (t *EntityType) resolveChain(types map[string]*EntityType) {
	t.chain = []*EntityType{t}
	t.aliases = map[string]map[string]string{t.name: identity(t.table.PrimaryKey())}

	seen := map[string]bool{t.name: true}
	cur := t
	for {
		fk := cur.table.ParentForeignKey()
		if fk == nil || fk.IsComposition() {
			break
		}
		next := types[fk.To().Name()]
		if next == nil || seen[next.name] {
			break
		}
		if cur == t {
			t.super = next
		}

		prev := t.aliases[cur.name]
		m := make(map[string]string, len(fk.Columns()))
		for i, c := range fk.Columns() {
			if p, ok := prev[c]; ok {
				m[fk.RefColumns()[i]] = p
			}
		}
		t.aliases[next.name] = m
		t.chain = append(t.chain, next)
		seen[next.name] = true
		cur = next
	}
}

func identity(cols []string) map[string]string {
	m := make(map[string]string, len(cols))
	for _, c := range cols {
		m[c] = c
	}
	return m
}
