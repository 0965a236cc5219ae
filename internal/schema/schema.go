package schema

import (
	"regexp"

	"github.com/Rana718/datagen/internal/registry"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether name is safe to use unquoted as a table or
// column name in every sink.
func ValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

// Source says where a field's values come from. It is implemented only by
// Generated and Reference.
type Source interface {
	source()
}

// Generated fills a field by calling a registry generator once per row.
type Generated struct {
	Generator registry.Descriptor
}

// Reference fills a field by sampling the key column of another table.
type Reference struct {
	Table  string
	Column string
}

func (Generated) source() {}
func (Reference) source() {}

type Field struct {
	Name   string
	Source Source
}

// Kind returns "generated" or "reference".
func (f Field) Kind() string {
	switch f.Source.(type) {
	case Generated:
		return "generated"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// Schema is an ordered list of fields plus the name of the table it produces.
type Schema struct {
	Table  string
	Fields []Field
}

func NewSchema(table string, fields ...Field) *Schema {
	return &Schema{Table: table, Fields: fields}
}

func GeneratedField(name, provider, method string, params map[string]string) Field {
	return Field{Name: name, Source: Generated{Generator: registry.Descriptor{
		Provider: provider,
		Method:   method,
		Params:   params,
	}}}
}

func ReferenceField(name, table, column string) Field {
	return Field{Name: name, Source: Reference{Table: table, Column: column}}
}

// FieldNames returns the field names in schema order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Dependencies returns the distinct tables the schema references, in field
// order.
func (s *Schema) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, f := range s.Fields {
		ref, ok := f.Source.(Reference)
		if !ok || seen[ref.Table] {
			continue
		}
		seen[ref.Table] = true
		deps = append(deps, ref.Table)
	}
	return deps
}
