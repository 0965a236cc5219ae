package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rana718/datagen/internal/config"
	"github.com/Rana718/datagen/internal/export"
	"github.com/Rana718/datagen/internal/materializer"
	"github.com/Rana718/datagen/internal/registry"
	"github.com/Rana718/datagen/internal/resolver"
	"github.com/Rana718/datagen/internal/schema"
	"github.com/Rana718/datagen/internal/session"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/Rana718/datagen/internal/types"
	"github.com/fatih/color"
)

// Request is one generate call: a schema, how many rows, and how to write.
type Request struct {
	Schema *schema.Schema
	Rows   int
	Mode   sink.Mode
	// Seed overrides the engine seed when non-zero.
	Seed int64
}

type Result struct {
	Table    *types.Table
	Sinks    []string
	Duration time.Duration
}

type Settings struct {
	MaxRows   int
	Seed      int64
	ExportDir string
	Quiet     bool
}

// Engine runs the validate, resolve, materialize, persist pipeline. The
// reader is where references are looked up and tables are listed; sinks are
// where generated tables go. The reader may also be one of the sinks.
type Engine struct {
	reader   sink.Reader
	sinks    []sink.Sink
	settings Settings
	owned    []sink.Sink
}

func New(reader sink.Reader, sinks []sink.Sink, settings Settings) *Engine {
	if settings.ExportDir == "" {
		settings.ExportDir = "exports"
	}
	return &Engine{reader: reader, sinks: sinks, settings: settings}
}

// Open builds an engine from config. The local store is always opened as
// the reader; targets selects the sinks and defaults to cfg.Sinks.
func Open(ctx context.Context, cfg *config.Config, targets []string, quiet bool) (*Engine, error) {
	if len(targets) == 0 {
		targets = cfg.Sinks
	}

	store, err := sink.OpenSQLite(ctx, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	e := New(store, nil, Settings{
		MaxRows:   cfg.MaxRows,
		Seed:      cfg.Seed,
		ExportDir: cfg.ExportPath,
		Quiet:     quiet,
	})
	e.owned = append(e.owned, store)

	for _, target := range targets {
		if target == config.SinkStore {
			e.sinks = append(e.sinks, store)
			continue
		}
		s, err := OpenSink(ctx, cfg, target)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.sinks = append(e.sinks, s)
		e.owned = append(e.owned, s)
	}

	return e, nil
}

// OpenSink connects one named target from config.
func OpenSink(ctx context.Context, cfg *config.Config, target string) (sink.Sink, error) {
	switch target {
	case config.SinkStore:
		return sink.OpenSQLite(ctx, cfg.StorePath)
	case config.SinkFile:
		return sink.NewFileSink(cfg.ExportPath), nil
	case config.SinkDatabase:
		dbURL, err := cfg.GetDatabaseURL()
		if err != nil {
			return nil, fmt.Errorf("failed to get database URL: %w", err)
		}
		s, err := sink.Open(ctx, cfg.Database.Provider, dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink target: %s", target)
	}
}

func (e *Engine) Close() error {
	var first error
	for _, s := range e.owned {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	e.owned = nil
	return first
}

func (e *Engine) Reader() sink.Reader { return e.reader }

func (e *Engine) ExportDir() string { return e.settings.ExportDir }

func (e *Engine) SinkNames() []string {
	names := make([]string, len(e.sinks))
	for i, s := range e.sinks {
		names[i] = s.Name()
	}
	return names
}

// Generate produces one table and writes it to every sink. Nothing is
// written unless the whole table was materialized and every sink passed its
// checks. When a later sink fails, earlier sinks are restored to what they
// held before the call.
func (e *Engine) Generate(ctx context.Context, sess *session.Session, req Request) (*Result, error) {
	start := time.Now()
	if sess == nil {
		sess = session.New()
	}

	if req.Rows < 1 || (e.settings.MaxRows > 0 && req.Rows > e.settings.MaxRows) {
		return nil, &materializer.InvalidRowCountError{Count: req.Rows, Max: e.settings.MaxRows}
	}
	if err := schema.Validate(ctx, req.Schema, e.reader, sess); err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = e.settings.Seed
	}
	reg := registry.New(seed)

	generators, err := materializer.Generators(reg, req.Schema)
	if err != nil {
		return nil, err
	}
	bindings, err := resolver.Resolve(ctx, req.Schema, e.reader, sess)
	if err != nil {
		return nil, err
	}

	e.info("⚙️  Generating %d rows for %s...", req.Rows, req.Schema.Table)
	table, err := materializer.Materialize(req.Schema, generators, bindings, reg.Rand(), req.Rows)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = sink.ModeReplace
	}

	for _, s := range e.sinks {
		if err := sink.Check(ctx, s, table, mode); err != nil {
			return nil, err
		}
	}

	result := &Result{Table: table}
	var done []written
	for i, s := range e.sinks {
		// The last sink's own write is all-or-nothing, so only earlier
		// sinks need a way back.
		var restore sink.Restore
		if i < len(e.sinks)-1 {
			if restore, err = sink.Snapshot(ctx, s, table.Name); err != nil {
				return nil, e.rollback(ctx, table.Name, done, err)
			}
		}
		if err := sink.Write(ctx, s, table, mode); err != nil {
			return nil, e.rollback(ctx, table.Name, done, err)
		}
		done = append(done, written{name: s.Name(), restore: restore})
		result.Sinks = append(result.Sinks, s.Name())
		e.success("✅ Wrote %s to %s (%d rows, %s)", table.Name, s.Name(), len(table.Rows), mode)
	}

	sess.Record(table)
	result.Duration = time.Since(start)
	return result, nil
}

// PartialWriteError means a write failed and at least one earlier sink
// could not be put back. Sinks lists the ones still holding the new table.
type PartialWriteError struct {
	Table       string
	Sinks       []string
	Err         error
	RollbackErr error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("writing %s failed (%v) and %s could not be restored: %v",
		e.Table, e.Err, strings.Join(e.Sinks, ", "), e.RollbackErr)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// written is a sink that already holds the new table and how to undo it.
type written struct {
	name    string
	restore sink.Restore
}

// rollback undoes earlier sink writes after cause stopped the call. Sinks
// that cannot be restored are reported in a PartialWriteError.
func (e *Engine) rollback(ctx context.Context, table string, done []written, cause error) error {
	ctx = context.WithoutCancel(ctx)

	var left []string
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		w := done[i]
		if err := w.restore(ctx); err != nil {
			left = append(left, w.name)
			errs = append(errs, fmt.Errorf("%s: %w", w.name, err))
			continue
		}
		e.warn("↩️  Restored %s in %s", table, w.name)
	}

	if len(left) > 0 {
		return &PartialWriteError{Table: table, Sinks: left, Err: cause, RollbackErr: errors.Join(errs...)}
	}
	return cause
}

// GenerateAll runs several requests so that referenced tables are generated
// before the tables that reference them. It stops at the first failure and
// returns the results produced so far.
func (e *Engine) GenerateAll(ctx context.Context, sess *session.Session, reqs []Request) ([]*Result, error) {
	if sess == nil {
		sess = session.New()
	}

	graph := newDependencyGraph()
	byTable := make(map[string]Request, len(reqs))
	for _, req := range reqs {
		if req.Schema == nil {
			return nil, &schema.SchemaError{Err: &schema.EmptySchemaError{}}
		}
		if _, dup := byTable[req.Schema.Table]; dup {
			return nil, &schema.SchemaError{Table: req.Schema.Table, Err: fmt.Errorf("table is requested more than once")}
		}
		byTable[req.Schema.Table] = req
		graph.add(req.Schema.Table, req.Schema.Dependencies())
	}

	order, err := graph.order()
	if err != nil {
		return nil, err
	}
	if len(order) > 1 {
		e.info("📋 Generation order: %s", strings.Join(order, " → "))
	}

	results := make([]*Result, 0, len(order))
	for _, table := range order {
		res, err := e.Generate(ctx, sess, byTable[table])
		if err != nil {
			return results, fmt.Errorf("failed to generate table %s: %w", table, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Tables lists what the reader holds.
func (e *Engine) Tables(ctx context.Context) ([]string, error) {
	if e.reader == nil {
		return nil, nil
	}
	return e.reader.ListTables(ctx)
}

func (e *Engine) Table(ctx context.Context, name string) (*types.Table, error) {
	if e.reader == nil {
		return nil, &sink.TableNotFoundError{Sink: "none", Table: name}
	}
	return e.reader.ReadAll(ctx, name)
}

// Export writes a stored table to the export directory.
func (e *Engine) Export(ctx context.Context, name, format string) (string, error) {
	t, err := e.Table(ctx, name)
	if err != nil {
		return "", err
	}

	var path string
	if exporter, ok := e.reader.(sink.Exporter); ok {
		path, err = exporter.Export(ctx, t, format, e.settings.ExportDir)
	} else {
		path, err = export.Export(t, format, e.settings.ExportDir)
	}
	if err != nil {
		return "", err
	}
	e.success("📦 Exported %s to %s", name, path)
	return path, nil
}

// ExportAll exports the named tables, or every table when names is empty.
func (e *Engine) ExportAll(ctx context.Context, names []string, format string) ([]string, error) {
	if e.reader == nil {
		return nil, nil
	}
	paths, err := export.ExportAll(ctx, e.reader, names, format, e.settings.ExportDir)
	if err != nil {
		return nil, err
	}
	e.success("📦 Exported %d tables to %s", len(paths), e.settings.ExportDir)
	return paths, nil
}

// Transfer copies a table from one sink to another, optionally under a new
// name.
func Transfer(ctx context.Context, from sink.Reader, to sink.Sink, name, as string, mode sink.Mode) (*types.Table, error) {
	t, err := from.ReadAll(ctx, name)
	if err != nil {
		return nil, err
	}

	if as != "" && as != name {
		if !schema.ValidIdentifier(as) {
			return nil, &schema.SchemaError{Table: as, Err: &schema.InvalidIdentifierError{Kind: "table", Name: as}}
		}
		t = t.Renamed(as)
	}
	if mode == "" {
		mode = sink.ModeReplace
	}

	if err := sink.Write(ctx, to, t, mode); err != nil {
		return nil, err
	}
	return t, nil
}

func (e *Engine) info(format string, args ...interface{}) {
	if !e.settings.Quiet {
		color.Cyan(format, args...)
	}
}

func (e *Engine) warn(format string, args ...interface{}) {
	if !e.settings.Quiet {
		color.Yellow(format, args...)
	}
}

func (e *Engine) success(format string, args ...interface{}) {
	if !e.settings.Quiet {
		color.Green(format, args...)
	}
}
