package entity

import (
	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/schema"
)

// Record holds the property values of one instance of an EntityType,
// keyed by column name across every level of the type's chain.
//
// The snapshot is the pre-image the record was loaded or last flushed
// with; updates compare against it.
type Record struct {
	Type   *EntityType
	Values map[string]any

	// Owner and OwnerKey describe containment: the owner's key is copied
	// into this record through OwnerKey when the record is inserted.
	Owner    *Record
	OwnerKey *schema.ForeignKey

	snapshot map[string]any
}

func NewRecord(t *EntityType) *Record {
	return &Record{Type: t, Values: make(map[string]any)}
}

// Set assigns a property and returns r for chaining.
func (r *Record) Set(column string, v any) *Record {
	r.Values[column] = v
	return r
}

func (r *Record) Get(column string) any { return r.Values[column] }

// Has reports whether the property is present, even when nil.
func (r *Record) Has(column string) bool {
	_, ok := r.Values[column]
	return ok
}

// Level returns the value of column of the level table.
func (r *Record) Level(level, column string) (any, bool) {
	v, ok := r.Values[r.Type.Property(level, column)]
	return v, ok
}

// OwnedBy sets the containing record and the key joining this record to it.
func (r *Record) OwnedBy(owner *Record, key *schema.ForeignKey) *Record {
	r.Owner, r.OwnerKey = owner, key
	return r
}

// Snapshot records the current values as the pre-image.
func (r *Record) Snapshot() {
	r.snapshot = make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		r.snapshot[k] = v
	}
}

func (r *Record) HasSnapshot() bool { return r.snapshot != nil }

// Original returns the pre-image value of column.
func (r *Record) Original(column string) (any, bool) {
	if r.snapshot == nil {
		return nil, false
	}
	v, ok := r.snapshot[column]
	return v, ok
}

// IdentifierSet reports whether every identifier property holds a value.
func (r *Record) IdentifierSet() bool {
	if !r.Type.HasIdentifier() {
		return false
	}
	for _, c := range r.Type.Identifier() {
		if dialect.IsNull(r.Values[c]) {
			return false
		}
	}
	return true
}
