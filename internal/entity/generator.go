package entity

import (
	"context"

	"github.com/google/uuid"
	"github.com/koustreak/sqlstage/internal/errs"
)

// SequenceSource draws the next value of a database sequence. The session
// implements it on its current connection.
type SequenceSource interface {
	NextValue(ctx context.Context, sequence string) (int64, error)
}

// Generator synthesises an identifier for a record being inserted.
type Generator interface {
	Generate(ctx context.Context, src SequenceSource) (any, error)
}

// UUIDGenerator produces random (version 4) UUIDs.
type UUIDGenerator struct {
	// AsString renders the UUID in canonical text form, for string-typed
	// identifier columns.
	AsString bool
}

func (g UUIDGenerator) Generate(context.Context, SequenceSource) (any, error) {
	id := uuid.New()
	if g.AsString {
		return id.String(), nil
	}
	return id, nil
}

// SequenceGenerator draws identifiers from a named database sequence.
type SequenceGenerator struct {
	Sequence string
}

func (g SequenceGenerator) Generate(ctx context.Context, src SequenceSource) (any, error) {
	if src == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "sequence %q: no connection", g.Sequence)
	}
	return src.NextValue(ctx, g.Sequence)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, src SequenceSource) (any, error)

func (f GeneratorFunc) Generate(ctx context.Context, src SequenceSource) (any, error) {
	return f(ctx, src)
}
