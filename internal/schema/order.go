package schema

// Orderer sequences tables so that referenced tables come before the
// tables referencing them. It is derived once from an assembled Schema and
// must be rebuilt when the schema changes.
type Orderer struct {
	depth map[string]int
}

// NewOrderer computes a dependency depth for every table. A table's depth
// is one more than the deepest table it references through its parent key
// or any other foreign key; edges closing a cycle are ignored.
func NewOrderer(s *Schema) *Orderer {
	o := &Orderer{depth: make(map[string]int, len(s.names))}
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(s.names))

	var visit func(t *TableInfo) int
	visit = func(t *TableInfo) int {
		switch state[t.Name()] {
		case done:
			return o.depth[t.Name()]
		case visiting:
			return -1
		}
		state[t.Name()] = visiting
		d := 0
		refs := make([]*TableInfo, 0, len(t.ForeignKeys()))
		if p := t.ParentForeignKey(); p != nil {
			refs = append(refs, p.To())
		}
		for _, fk := range t.ForeignKeys() {
			refs = append(refs, fk.To())
		}
		for _, ref := range refs {
			if ref == t {
				continue
			}
			if rd := visit(ref); rd >= 0 && rd+1 > d {
				d = rd + 1
			}
		}
		state[t.Name()] = done
		o.depth[t.Name()] = d
		return d
	}
	for _, t := range s.Tables() {
		visit(t)
	}
	return o
}

// Depth returns the dependency depth of the named table. Unknown tables
// have depth zero.
func (o *Orderer) Depth(table string) int {
	return o.depth[table]
}

// Compare orders a before b when a is shallower, falling back to name so
// the order is total.
func (o *Orderer) Compare(a, b string) int {
	da, db := o.depth[a], o.depth[b]
	switch {
	case da < db:
		return -1
	case da > db:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b.
func (o *Orderer) Less(a, b string) bool {
	return o.Compare(a, b) < 0
}
