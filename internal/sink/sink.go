package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/datagen/internal/types"
)

// Mode selects how a generated table is written.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", fmt.Errorf("unknown write mode %q (use replace or append)", s)
	}
}

// metaTable records column definitions so reads return the semantic types
// that were written.
const metaTable = "_datagen_columns"

// ErrUnsupported is wrapped in a SinkError when a sink lacks a capability.
var ErrUnsupported = errors.New("operation not supported by this sink")

// Sink is any destination for generated tables. What it can do beyond
// naming itself is expressed by the capability interfaces below.
type Sink interface {
	Name() string
	Close() error
}

type Creator interface {
	CreateOrReplace(ctx context.Context, t *types.Table) error
}

// Appender adds t's rows to the existing table name. Column definitions
// must match the stored ones exactly.
type Appender interface {
	Append(ctx context.Context, name string, t *types.Table) error
}

type Reader interface {
	ReadAll(ctx context.Context, name string) (*types.Table, error)
	TableExists(ctx context.Context, name string) (bool, error)
	ListTables(ctx context.Context) ([]string, error)
}

type Exporter interface {
	Export(ctx context.Context, t *types.Table, format, dir string) (string, error)
}

// Write persists t to s using mode. Appending to a table the sink does not
// have yet creates it.
func Write(ctx context.Context, s Sink, t *types.Table, mode Mode) error {
	if mode == ModeAppend {
		if appender, ok := s.(Appender); ok {
			if r, ok := s.(Reader); ok {
				exists, err := r.TableExists(ctx, t.Name)
				if err != nil {
					return err
				}
				if exists {
					return appender.Append(ctx, t.Name, t)
				}
			} else {
				return appender.Append(ctx, t.Name, t)
			}
		}
	}

	creator, ok := s.(Creator)
	if !ok {
		return &SinkError{Sink: s.Name(), Op: "create", Table: t.Name, Err: ErrUnsupported}
	}
	return creator.CreateOrReplace(ctx, t)
}

// Open connects to the sink named by provider. For the file sink url is the
// output directory; for sqlite it is the database path.
func Open(ctx context.Context, provider, url string) (Sink, error) {
	switch strings.ToLower(provider) {
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, url)
	case "postgresql", "postgres":
		return OpenPostgres(ctx, url)
	case "mysql":
		return OpenMySQL(ctx, url)
	case "mongodb", "mongo":
		return OpenMongo(ctx, url)
	case "file", "csv":
		return NewFileSink(url), nil
	default:
		return nil, fmt.Errorf("unsupported sink provider: %s", provider)
	}
}

// checkAppend compares incoming columns with the stored definitions. The
// column sets must be equal and every type must match.
func checkAppend(table string, stored []types.Column, incoming []types.Column) error {
	byName := make(map[string]types.SemanticType, len(stored))
	for _, c := range stored {
		byName[c.Name] = c.Type
	}

	for _, c := range incoming {
		want, ok := byName[c.Name]
		if !ok {
			return &TypeMismatchError{Table: table, Column: c.Name, Got: c.Type,
				Reason: fmt.Sprintf("column %q does not exist in the stored table", c.Name)}
		}
		if want != c.Type {
			return &TypeMismatchError{Table: table, Column: c.Name, Stored: want, Got: c.Type}
		}
	}
	if len(incoming) != len(stored) {
		have := make(map[string]bool, len(incoming))
		for _, c := range incoming {
			have[c.Name] = true
		}
		for _, c := range stored {
			if !have[c.Name] {
				return &TypeMismatchError{Table: table, Column: c.Name, Stored: c.Type,
					Reason: fmt.Sprintf("column %q is missing from the appended rows", c.Name)}
			}
		}
	}
	return nil
}

// decodeRow coerces raw store values into the normalized representation.
func decodeRow(columns []types.Column, raw []any) (types.Row, error) {
	row := make(types.Row, len(columns))
	for i, col := range columns {
		v, err := types.Coerce(col.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		row[col.Name] = v
	}
	return row, nil
}
