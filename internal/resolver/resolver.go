package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/Rana718/datagen/internal/schema"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/Rana718/datagen/internal/types"
)

// EmptyReferenceTableError means the referenced table has no rows to draw
// from.
type EmptyReferenceTableError struct {
	Field string
	Table string
}

func (e *EmptyReferenceTableError) Error() string {
	return fmt.Sprintf("field %q references table %q, which has no rows", e.Field, e.Table)
}

// ReferenceNotFoundError means the referenced table or column disappeared
// between validation and resolution.
type ReferenceNotFoundError struct {
	Field  string
	Table  string
	Column string
}

func (e *ReferenceNotFoundError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("field %q references table %q, which no longer exists", e.Field, e.Table)
	}
	return fmt.Sprintf("field %q references column %s.%s, which does not exist", e.Field, e.Table, e.Column)
}

// Snapshots gives access to tables generated earlier in a session.
type Snapshots interface {
	Snapshot(name string) (*types.Table, bool)
}

// Binding is the candidate pool for one reference field, captured once per
// generation call.
type Binding struct {
	Field      string
	Table      string
	Column     string
	Type       types.SemanticType
	Candidates []any
}

// Sample draws one candidate uniformly at random, with replacement.
func (b *Binding) Sample(rng *rand.Rand) any {
	return b.Candidates[rng.Intn(len(b.Candidates))]
}

// Resolve reads the key column of every table s references. The store is
// consulted first; a session snapshot is used when the store does not have
// the table. Each source table is read at most once.
func Resolve(ctx context.Context, s *schema.Schema, store sink.Reader, snapshots Snapshots) (map[string]*Binding, error) {
	bindings := make(map[string]*Binding)
	loaded := make(map[string]*types.Table)

	for _, f := range s.Fields {
		ref, ok := f.Source.(schema.Reference)
		if !ok {
			continue
		}

		table, ok := loaded[ref.Table]
		if !ok {
			var err error
			table, err = load(ctx, f.Name, ref.Table, store, snapshots)
			if err != nil {
				return nil, err
			}
			loaded[ref.Table] = table
		}

		col, ok := table.Column(ref.Column)
		if !ok {
			return nil, &ReferenceNotFoundError{Field: f.Name, Table: ref.Table, Column: ref.Column}
		}
		if len(table.Rows) == 0 {
			return nil, &EmptyReferenceTableError{Field: f.Name, Table: ref.Table}
		}

		bindings[f.Name] = &Binding{
			Field:      f.Name,
			Table:      ref.Table,
			Column:     ref.Column,
			Type:       col.Type,
			Candidates: table.Values(ref.Column),
		}
	}

	return bindings, nil
}

func load(ctx context.Context, field, name string, store sink.Reader, snapshots Snapshots) (*types.Table, error) {
	if store != nil {
		table, err := store.ReadAll(ctx, name)
		if err == nil {
			return table, nil
		}
		var notFound *sink.TableNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read referenced table %q: %w", name, err)
		}
	}

	if snapshots != nil {
		if table, ok := snapshots.Snapshot(name); ok {
			return table, nil
		}
	}
	return nil, &ReferenceNotFoundError{Field: field, Table: name}
}
