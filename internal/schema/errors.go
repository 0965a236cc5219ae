package schema

import "fmt"

// SchemaError wraps every problem found before generation starts. Callers
// match the concrete cause with errors.As.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("invalid schema: %v", e.Err)
	}
	return fmt.Sprintf("invalid schema for table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

type EmptySchemaError struct{}

func (e *EmptySchemaError) Error() string { return "schema has no fields" }

type DuplicateFieldError struct {
	Field string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("field %q is defined more than once", e.Field)
}

// InvalidIdentifierError reports a table or field name that is not a plain
// identifier.
type InvalidIdentifierError struct {
	Kind string
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid %s name %q: must match ^[a-zA-Z_][a-zA-Z0-9_]*$", e.Kind, e.Name)
}

type UnresolvedReferenceError struct {
	Field  string
	Table  string
	Column string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("field %q references %s.%s, but table %q was not found in the store or this session", e.Field, e.Table, e.Column, e.Table)
}

// InvalidFieldError reports a field whose source is missing or ambiguous.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}
