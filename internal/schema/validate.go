package schema

import (
	"context"
	"fmt"

	"github.com/Rana718/datagen/internal/registry"
)

// TableChecker is the part of a readable sink validation needs.
type TableChecker interface {
	TableExists(ctx context.Context, name string) (bool, error)
}

// SessionTables reports tables generated earlier in the caller's session.
type SessionTables interface {
	Has(name string) bool
}

// Validate checks a schema before any generation work starts. Schema problems
// come back as *SchemaError; a failure to reach the store is returned as is.
// Either of store and session may be nil.
func Validate(ctx context.Context, s *Schema, store TableChecker, session SessionTables) error {
	if s == nil {
		return &SchemaError{Err: &EmptySchemaError{}}
	}
	invalid := func(err error) error {
		return &SchemaError{Table: s.Table, Err: err}
	}

	if !ValidIdentifier(s.Table) {
		return invalid(&InvalidIdentifierError{Kind: "table", Name: s.Table})
	}
	if len(s.Fields) == 0 {
		return invalid(&EmptySchemaError{})
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if !ValidIdentifier(f.Name) {
			return invalid(&InvalidIdentifierError{Kind: "field", Name: f.Name})
		}
		if seen[f.Name] {
			return invalid(&DuplicateFieldError{Field: f.Name})
		}
		seen[f.Name] = true
	}

	// Cheap checks first so a bad schema never touches the store.
	for _, f := range s.Fields {
		switch src := f.Source.(type) {
		case Generated:
			if _, _, err := registry.Lookup(src.Generator); err != nil {
				return invalid(err)
			}
		case Reference:
			if !ValidIdentifier(src.Table) {
				return invalid(&InvalidIdentifierError{Kind: "table", Name: src.Table})
			}
			if !ValidIdentifier(src.Column) {
				return invalid(&InvalidIdentifierError{Kind: "column", Name: src.Column})
			}
		default:
			return invalid(&InvalidFieldError{Field: f.Name, Reason: "field has no source"})
		}
	}

	for _, f := range s.Fields {
		ref, ok := f.Source.(Reference)
		if !ok {
			continue
		}
		found, err := referenceExists(ctx, ref.Table, store, session)
		if err != nil {
			return fmt.Errorf("failed to check referenced table %q: %w", ref.Table, err)
		}
		if !found {
			return invalid(&UnresolvedReferenceError{Field: f.Name, Table: ref.Table, Column: ref.Column})
		}
	}

	return nil
}

func referenceExists(ctx context.Context, table string, store TableChecker, session SessionTables) (bool, error) {
	if session != nil && session.Has(table) {
		return true, nil
	}
	if store == nil {
		return false, nil
	}
	return store.TableExists(ctx, table)
}
