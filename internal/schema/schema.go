package schema

import (
	"sort"
	"strings"
)

// Schema is the assembled model of one database: tables with their foreign
// keys attached, and sequences.
type Schema struct {
	tables    map[string]*TableInfo
	folded    map[string]*TableInfo
	names     []string
	sequences map[string]*SequenceInfo
	seqFolded map[string]*SequenceInfo
}

// New assembles a Schema from introspected tables and sequences. Foreign
// keys are attached afterwards with AddForeignKey.
func New(tables []*TableInfo, sequences []*SequenceInfo) *Schema {
	s := &Schema{
		tables:    make(map[string]*TableInfo, len(tables)),
		folded:    make(map[string]*TableInfo, len(tables)),
		sequences: make(map[string]*SequenceInfo, len(sequences)),
		seqFolded: make(map[string]*SequenceInfo, len(sequences)),
	}
	for _, t := range tables {
		s.tables[t.Name()] = t
		s.folded[strings.ToLower(t.Name())] = t
		s.names = append(s.names, t.Name())
	}
	sort.Strings(s.names)
	for _, seq := range sequences {
		s.sequences[seq.Name] = seq
		s.seqFolded[strings.ToLower(seq.Name)] = seq
	}
	return s
}

// AddForeignKey attaches fk to its referencing table.
func (s *Schema) AddForeignKey(fk *ForeignKey) {
	fk.From().addForeignKey(fk)
}

// Table returns the named table. An exact match wins; otherwise the lookup
// is case-insensitive. Nil when absent.
func (s *Schema) Table(name string) *TableInfo {
	if t, ok := s.tables[name]; ok {
		return t
	}
	return s.folded[strings.ToLower(name)]
}

// Tables returns every table ordered by name.
func (s *Schema) Tables() []*TableInfo {
	out := make([]*TableInfo, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.tables[n])
	}
	return out
}

// Sequence returns the named sequence, or nil.
func (s *Schema) Sequence(name string) *SequenceInfo {
	if seq, ok := s.sequences[name]; ok {
		return seq
	}
	return s.seqFolded[strings.ToLower(name)]
}

// Sequences returns every sequence ordered by name.
func (s *Schema) Sequences() []*SequenceInfo {
	out := make([]*SequenceInfo, 0, len(s.sequences))
	for _, seq := range s.sequences {
		out = append(out, seq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ForeignKeys returns every foreign key, grouped by referencing table.
func (s *Schema) ForeignKeys() []*ForeignKey {
	var out []*ForeignKey
	for _, t := range s.Tables() {
		out = append(out, t.ForeignKeys()...)
	}
	return out
}

// PrimaryKeys maps each table name to its primary key columns.
func (s *Schema) PrimaryKeys() map[string][]string {
	out := make(map[string][]string, len(s.tables))
	for name, t := range s.tables {
		out[name] = t.PrimaryKey()
	}
	return out
}
