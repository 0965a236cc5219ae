package materializer

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Rana718/datagen/internal/registry"
	"github.com/Rana718/datagen/internal/resolver"
	"github.com/Rana718/datagen/internal/schema"
	"github.com/Rana718/datagen/internal/types"
)

// InvalidRowCountError rejects counts below one or above the caller's limit.
// Max is zero when no upper limit applies.
type InvalidRowCountError struct {
	Count int
	Max   int
}

func (e *InvalidRowCountError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("row count must be between 1 and %d, got %d", e.Max, e.Count)
	}
	return fmt.Sprintf("row count must be at least 1, got %d", e.Count)
}

// GenerationError aborts a materialization. Completed lists the fields of
// the failing row that were filled before the error.
type GenerationError struct {
	Table     string
	Field     string
	Row       int
	Completed []string
	Err       error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("generating %s.%s failed at row %d", e.Table, e.Field, e.Row)
	if len(e.Completed) > 0 {
		msg += fmt.Sprintf(" (completed fields: %s)", strings.Join(e.Completed, ", "))
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generators resolves every generated field of s against reg.
func Generators(reg *registry.Registry, s *schema.Schema) (map[string]registry.Generator, error) {
	generators := make(map[string]registry.Generator)
	for _, f := range s.Fields {
		gen, ok := f.Source.(schema.Generated)
		if !ok {
			continue
		}
		fn, _, err := reg.Resolve(gen.Generator)
		if err != nil {
			return nil, &schema.SchemaError{Table: s.Table, Err: err}
		}
		generators[f.Name] = fn
	}
	return generators, nil
}

// Materialize builds exactly rowCount rows. Generated fields call their
// generator once per row; reference fields draw one independent sample from
// their binding using rng. Any failure returns no table.
func Materialize(s *schema.Schema, generators map[string]registry.Generator, bindings map[string]*resolver.Binding, rng *rand.Rand, rowCount int) (*types.Table, error) {
	if rowCount < 1 {
		return nil, &InvalidRowCountError{Count: rowCount}
	}

	rows := make([]types.Row, rowCount)
	for r := 0; r < rowCount; r++ {
		row := make(types.Row, len(s.Fields))
		for i, f := range s.Fields {
			value, err := produce(f, generators, bindings, rng)
			if err != nil {
				return nil, &GenerationError{
					Table:     s.Table,
					Field:     f.Name,
					Row:       r + 1,
					Completed: s.FieldNames()[:i],
					Err:       err,
				}
			}
			row[f.Name] = value
		}
		rows[r] = row
	}

	// Types come from the first row only.
	columns := make([]types.Column, len(s.Fields))
	for i, f := range s.Fields {
		columns[i] = types.Column{Name: f.Name, Type: types.SemanticOf(rows[0][f.Name])}
	}

	return &types.Table{Name: s.Table, Columns: columns, Rows: rows}, nil
}

func produce(f schema.Field, generators map[string]registry.Generator, bindings map[string]*resolver.Binding, rng *rand.Rand) (any, error) {
	switch f.Source.(type) {
	case schema.Generated:
		fn, ok := generators[f.Name]
		if !ok {
			return nil, fmt.Errorf("no generator resolved for field %q", f.Name)
		}
		return call(fn)
	case schema.Reference:
		b, ok := bindings[f.Name]
		if !ok {
			return nil, fmt.Errorf("no reference binding for field %q", f.Name)
		}
		return b.Sample(rng), nil
	default:
		return nil, fmt.Errorf("field %q has no source", f.Name)
	}
}

// call runs one generator, turning a panic into an error.
func call(fn registry.Generator) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return fn()
}
