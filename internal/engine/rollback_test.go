package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rana718/datagen/internal/schema"
	"github.com/Rana718/datagen/internal/session"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/Rana718/datagen/internal/types"
)

// brokenSink accepts the pre-write checks unless pingErr is set, then fails
// every write.
type brokenSink struct {
	pingErr error
	writes  int
}

func (b *brokenSink) Name() string { return "broken" }

func (b *brokenSink) Close() error { return nil }

func (b *brokenSink) Ping(context.Context) error { return b.pingErr }

func (b *brokenSink) CreateOrReplace(context.Context, *types.Table) error {
	b.writes++
	return &sink.SinkUnavailableError{Sink: b.Name(), Err: errors.New("connection reset")}
}

// writeOnlySink can be written but offers no way to undo a write.
type writeOnlySink struct {
	writes int
}

func (w *writeOnlySink) Name() string { return "write-only" }

func (w *writeOnlySink) Close() error { return nil }

func (w *writeOnlySink) CreateOrReplace(context.Context, *types.Table) error {
	w.writes++
	return nil
}

// stuckSink snapshots fine but cannot restore.
type stuckSink struct {
	writeOnlySink
}

func (s *stuckSink) Name() string { return "stuck" }

func (s *stuckSink) Snapshot(context.Context, string) (sink.Restore, error) {
	return func(context.Context) error { return errors.New("read-only replica") }, nil
}

func engineWith(t *testing.T, store *sink.SQLiteStore, sinks ...sink.Sink) *Engine {
	t.Helper()
	return New(store, sinks, Settings{MaxRows: 1000, ExportDir: t.TempDir(), Quiet: true})
}

func TestGenerateSecondSinkFailureDropsNewTable(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	broken := &brokenSink{}
	e := engineWith(t, store, store, broken)

	_, err := e.Generate(ctx, session.New(), Request{Schema: customersSchema(), Rows: 5})
	var unavailable *sink.SinkUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want SinkUnavailableError", err)
	}
	if broken.writes != 1 {
		t.Errorf("broken sink saw %d writes, want 1", broken.writes)
	}

	exists, err := store.TableExists(ctx, "customers")
	if err != nil || exists {
		t.Errorf("customers left in store after failed call: exists = %v, err = %v", exists, err)
	}
}

func TestGenerateSecondSinkFailureRestoresPriorRows(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	prior := &types.Table{
		Name:    "customers",
		Columns: []types.Column{{Name: "customer_id", Type: types.TypeString}, {Name: "name", Type: types.TypeString}},
		Rows: []types.Row{
			{"customer_id": "C1", "name": "Ada"},
			{"customer_id": "C2", "name": "Grace"},
		},
	}
	if err := store.CreateOrReplace(ctx, prior); err != nil {
		t.Fatal(err)
	}

	e := engineWith(t, store, store, &brokenSink{})
	if _, err := e.Generate(ctx, session.New(), Request{Schema: customersSchema(), Rows: 7}); err == nil {
		t.Fatal("expected error from broken sink")
	}

	got, err := store.ReadAll(ctx, "customers")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 2 || got.Rows[0]["customer_id"] != "C1" || got.Rows[1]["name"] != "Grace" {
		t.Errorf("store rows = %v, want the two prior rows", got.Rows)
	}
}

func TestGenerateUnreachableSinkWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	broken := &brokenSink{pingErr: &sink.SinkUnavailableError{Sink: "broken", Err: errors.New("refused")}}
	e := engineWith(t, store, store, broken)

	_, err := e.Generate(ctx, session.New(), Request{Schema: customersSchema(), Rows: 5})
	var unavailable *sink.SinkUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want SinkUnavailableError", err)
	}
	if broken.writes != 0 {
		t.Errorf("broken sink saw %d writes", broken.writes)
	}
	if exists, _ := store.TableExists(ctx, "customers"); exists {
		t.Error("store was written although a sink was unreachable")
	}
}

func TestGenerateAppendMismatchLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	dir := t.TempDir()
	files := sink.NewFileSink(dir)

	scores := &types.Table{
		Name:    "scores",
		Columns: []types.Column{{Name: "score", Type: types.TypeNumber}},
		Rows:    []types.Row{{"score": int64(1)}},
	}
	if err := store.CreateOrReplace(ctx, scores); err != nil {
		t.Fatal(err)
	}

	e := engineWith(t, store, files, store)
	text := schema.NewSchema("scores", schema.GeneratedField("score", "lorem", "word", nil))
	_, err := e.Generate(ctx, session.New(), Request{Schema: text, Rows: 3, Mode: sink.ModeAppend})
	var mismatch *sink.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want TypeMismatchError", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "scores.csv")); !os.IsNotExist(err) {
		t.Errorf("scores.csv written before the store rejected the append: %v", err)
	}
}

func TestGenerateFileSinkRestoredAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	if err := os.WriteFile(path, []byte("customer_id,name\nC1,Ada\n"), 0644); err != nil {
		t.Fatal(err)
	}

	e := engineWith(t, store, sink.NewFileSink(dir), &brokenSink{})
	if _, err := e.Generate(ctx, session.New(), Request{Schema: customersSchema(), Rows: 4}); err == nil {
		t.Fatal("expected error from broken sink")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "customer_id,name\nC1,Ada\n" {
		t.Errorf("customers.csv = %q, want the prior contents", data)
	}
}

func TestGenerateUnrestorableSinkAbortsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	first := &writeOnlySink{}
	e := engineWith(t, store, first, store)

	_, err := e.Generate(ctx, session.New(), Request{Schema: customersSchema(), Rows: 3})
	if !errors.Is(err, sink.ErrNoSnapshot) {
		t.Fatalf("error = %v, want ErrNoSnapshot", err)
	}
	if first.writes != 0 {
		t.Errorf("write-only sink saw %d writes", first.writes)
	}
	if exists, _ := store.TableExists(ctx, "customers"); exists {
		t.Error("store was written after the first sink refused a snapshot")
	}
}

func TestGenerateReportsFailedRestore(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	stuck := &stuckSink{}
	e := engineWith(t, store, stuck, &brokenSink{})

	_, err := e.Generate(ctx, session.New(), Request{Schema: customersSchema(), Rows: 3})
	var partial *PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want PartialWriteError", err)
	}
	if len(partial.Sinks) != 1 || partial.Sinks[0] != "stuck" {
		t.Errorf("Sinks = %v", partial.Sinks)
	}
	var unavailable *sink.SinkUnavailableError
	if !errors.As(err, &unavailable) {
		t.Error("write failure not wrapped")
	}
	if Classify(err) != CategorySink {
		t.Errorf("category = %s", Classify(err))
	}
}
