package introspect

import (
	"fmt"

	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
)

// Relationship declares a reference the catalog does not know about, or
// promotes an existing one to a composition.
//
// When Name matches a foreign key already declared on From, that key is
// reused; otherwise a new key is attached. RefColumns defaults to the
// primary key of To.
type Relationship struct {
	Name        string   `yaml:"name"`
	From        string   `yaml:"from"`
	Columns     []string `yaml:"columns"`
	To          string   `yaml:"to"`
	RefColumns  []string `yaml:"ref_columns"`
	Composition bool     `yaml:"composition"`
	OnDelete    string   `yaml:"on_delete"`
}

// StaticEnhancer applies a fixed list of relationships, typically read
// from the configuration file.
type StaticEnhancer struct {
	Relationships []Relationship
}

var _ Enhancer = (*StaticEnhancer)(nil)

func (e *StaticEnhancer) Enhance(s *schema.Schema) error {
	for _, r := range e.Relationships {
		if err := apply(s, r); err != nil {
			return err
		}
	}
	return nil
}

func apply(s *schema.Schema, r Relationship) error {
	from, to := s.Table(r.From), s.Table(r.To)
	if from == nil {
		return errs.Newf(errs.ErrKindNotFound, "relationship %q: table %q not found", r.Name, r.From)
	}
	if to == nil {
		return errs.Newf(errs.ErrKindNotFound, "relationship %q: table %q not found", r.Name, r.To)
	}

	fk := from.ForeignKey(r.Name)
	if fk == nil {
		cols := r.Columns
		refCols := r.RefColumns
		if len(refCols) == 0 {
			refCols = to.PrimaryKey()
		}
		if len(cols) == 0 && r.Composition {
			cols = from.PrimaryKey()
		}
		if len(cols) != len(refCols) {
			return errs.Newf(errs.ErrKindInvalidInput,
				"relationship %q: %d columns reference %d columns", r.Name, len(cols), len(refCols))
		}
		for _, c := range cols {
			if from.Column(c) == nil {
				return errs.New(errs.ErrKindNotFound, fmt.Sprintf("relationship %q: column %s.%s not found", r.Name, r.From, c))
			}
		}
		fk = schema.NewForeignKey(r.Name, from, to, cols, refCols, schema.ParseRule(r.OnDelete), schema.RuleNoAction)
		s.AddForeignKey(fk)
	}

	if r.Composition {
		fk.MakeComposition()
	}
	return nil
}
