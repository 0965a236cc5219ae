package resolver

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/Rana718/datagen/internal/schema"
	"github.com/Rana718/datagen/internal/session"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/Rana718/datagen/internal/types"
)

func customers(ids ...string) *types.Table {
	t := &types.Table{
		Name:    "customers",
		Columns: []types.Column{{Name: "customer_id", Type: types.TypeString}, {Name: "name", Type: types.TypeString}},
	}
	for _, id := range ids {
		t.Rows = append(t.Rows, types.Row{"customer_id": id, "name": "n-" + id})
	}
	return t
}

func openStore(t *testing.T) *sink.SQLiteStore {
	t.Helper()
	store, err := sink.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func transactions() *schema.Schema {
	return schema.NewSchema("transactions",
		schema.GeneratedField("transaction_id", "uuid", "", nil),
		schema.ReferenceField("customer_id", "customers", "customer_id"),
		schema.ReferenceField("payer_id", "customers", "customer_id"),
	)
}

func TestResolveFromStore(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.CreateOrReplace(ctx, customers("C1", "C2", "C3")); err != nil {
		t.Fatal(err)
	}

	bindings, err := Resolve(ctx, transactions(), store, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("got %d bindings, want 2", len(bindings))
	}

	b := bindings["customer_id"]
	if b.Type != types.TypeString || len(b.Candidates) != 3 {
		t.Fatalf("binding = %+v", b)
	}

	pool := map[any]bool{"C1": true, "C2": true, "C3": true}
	rng := rand.New(rand.NewSource(1))
	seen := make(map[any]int)
	for i := 0; i < 300; i++ {
		v := b.Sample(rng)
		if !pool[v] {
			t.Fatalf("sampled %v outside the candidate set", v)
		}
		seen[v]++
	}
	if len(seen) != 3 {
		t.Errorf("uniform sampling should reach every candidate, saw %v", seen)
	}
}

func TestResolveFallsBackToSession(t *testing.T) {
	sess := session.New()
	sess.Record(customers("C9"))

	bindings, err := Resolve(context.Background(), transactions(), openStore(t), sess)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := bindings["customer_id"].Candidates; len(got) != 1 || got[0] != "C9" {
		t.Errorf("candidates = %v", got)
	}
}

func TestResolveEmptyTable(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.CreateOrReplace(ctx, customers()); err != nil {
		t.Fatal(err)
	}

	_, err := Resolve(ctx, transactions(), store, nil)
	var empty *EmptyReferenceTableError
	if !errors.As(err, &empty) {
		t.Fatalf("error = %v, want EmptyReferenceTableError", err)
	}
	if empty.Table != "customers" {
		t.Errorf("Table = %s", empty.Table)
	}
}

func TestResolveMissingTableOrColumn(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := Resolve(ctx, transactions(), store, session.New())
	var notFound *ReferenceNotFoundError
	if !errors.As(err, &notFound) || notFound.Column != "" {
		t.Fatalf("missing table: error = %v", err)
	}

	if err := store.CreateOrReplace(ctx, customers("C1")); err != nil {
		t.Fatal(err)
	}
	s := schema.NewSchema("transactions", schema.ReferenceField("customer_id", "customers", "id"))
	_, err = Resolve(ctx, s, store, nil)
	if !errors.As(err, &notFound) || notFound.Column != "id" {
		t.Fatalf("missing column: error = %v", err)
	}
}

func TestResolveWithoutReferences(t *testing.T) {
	s := schema.NewSchema("ids", schema.GeneratedField("id", "uuid", "", nil))
	bindings, err := Resolve(context.Background(), s, nil, nil)
	if err != nil || len(bindings) != 0 {
		t.Errorf("Resolve = %v, %v", bindings, err)
	}
}
