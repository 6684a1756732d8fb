package dialect

import (
	"sort"
	"strings"

	"github.com/koustreak/sqlstage/internal/errs"
)

// Registry resolves adapters by database product name. It is immutable
// after construction and safe for concurrent use.
type Registry struct {
	byProduct map[string]Adapter
	byFamily  map[Family]Adapter
}

// NewRegistry indexes adapters by each of their product names. A later
// adapter claiming the same product name replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		byProduct: make(map[string]Adapter),
		byFamily:  make(map[Family]Adapter),
	}
	for _, a := range adapters {
		r.byFamily[a.Family()] = a
		for _, p := range a.ProductNames() {
			r.byProduct[strings.ToLower(p)] = a
		}
	}
	return r
}

// DefaultRegistry carries the PostgreSQL, MySQL, SQLite and Oracle variants.
func DefaultRegistry() *Registry {
	return NewRegistry(NewPostgres(), NewMySQL(), NewSQLite(), NewOracle())
}

// Lookup matches product exactly, ignoring case.
func (r *Registry) Lookup(product string) (Adapter, error) {
	if a, ok := r.byProduct[strings.ToLower(strings.TrimSpace(product))]; ok {
		return a, nil
	}
	return nil, errs.Newf(errs.ErrKindUnsupportedDatabase, "no dialect registered for product %q", product)
}

func (r *Registry) ForFamily(f Family) (Adapter, error) {
	if a, ok := r.byFamily[f]; ok {
		return a, nil
	}
	return nil, errs.Newf(errs.ErrKindUnsupportedDatabase, "no dialect registered for family %s", f)
}

// Products lists every registered product name, lowercased and sorted.
func (r *Registry) Products() []string {
	out := make([]string, 0, len(r.byProduct))
	for p := range r.byProduct {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
