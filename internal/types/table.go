package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SemanticType is the storage-independent type of a generated column.
type SemanticType string

const (
	TypeString  SemanticType = "string"
	TypeNumber  SemanticType = "number"
	TypeDate    SemanticType = "date"
	TypeBoolean SemanticType = "boolean"
)

// ParseSemanticType accepts the canonical names plus a few aliases used by
// older schema files ("text", "datetime", "bool").
func ParseSemanticType(s string) (SemanticType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString, nil
	case "number", "numeric":
		return TypeNumber, nil
	case "date", "datetime", "timestamp":
		return TypeDate, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	default:
		return "", fmt.Errorf("unknown semantic type: %q", s)
	}
}

// SemanticOf reports the semantic type of a normalized value. Nil and
// unrecognized values are treated as strings.
func SemanticOf(v any) SemanticType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return TypeNumber
	case bool:
		return TypeBoolean
	case time.Time:
		return TypeDate
	default:
		return TypeString
	}
}

type Column struct {
	Name string       `json:"name" yaml:"name"`
	Type SemanticType `json:"type" yaml:"type"`
}

// Row maps column name to value. All rows of a Table share the same keys.
type Row map[string]any

// Table is a materialized dataset. Tables are never mutated after they are
// built; regenerating produces a new Table.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column definition with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Values returns every value of one column in row order.
func (t *Table) Values(column string) []any {
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[column]
	}
	return values
}

// Renamed returns a shallow copy of the table under another name. Rows are
// shared, which is safe because tables are immutable.
func (t *Table) Renamed(name string) *Table {
	return &Table{Name: name, Columns: t.Columns, Rows: t.Rows}
}

// Head returns at most n rows, for previews.
func (t *Table) Head(n int) []Row {
	if n < 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

// Coerce converts a raw value read back from a store into the normalized Go
// representation for the given semantic type.
func Coerce(typ SemanticType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch typ {
	case TypeString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case time.Time:
			return v.UTC().Format(time.RFC3339), nil
		default:
			return fmt.Sprintf("%v", v), nil
		}

	case TypeNumber:
		switch v := raw.(type) {
		case int64, float64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int16:
			return int64(v), nil
		case int8:
			return int64(v), nil
		case uint32:
			return int64(v), nil
		case uint64:
			return int64(v), nil
		case float32:
			return float64(v), nil
		case string:
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i, nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("value %q is not a number", v)
			}
			return f, nil
		}

	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case int32:
			return v != 0, nil
		case int:
			return v != 0, nil
		case float64:
			return v != 0, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("value %q is not a boolean", v)
			}
			return b, nil
		}

	case TypeDate:
		switch v := raw.(type) {
		case time.Time:
			return v.UTC(), nil
		case interface{ Time() time.Time }:
			return v.Time().UTC(), nil
		case string:
			return ParseDate(v)
		}
	}

	return nil, fmt.Errorf("cannot convert %T to %s", raw, typ)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses the date formats the stores hand back.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("value %q is not a date", s)
}

// FormatValue renders a value for flat-file output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// EqualValues compares two normalized values. Numbers compare numerically so
// a store that hands back 3.0 for 3 still round-trips.
func EqualValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && (fa == fb || math.Abs(fa-fb) < 1e-9)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
