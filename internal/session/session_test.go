package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Rana718/datagen/internal/types"
)

func customers() *types.Table {
	return &types.Table{
		Name:    "customers",
		Columns: []types.Column{{Name: "customer_id", Type: types.TypeString}},
		Rows:    []types.Row{{"customer_id": "C1"}},
	}
}

func TestSessionRecord(t *testing.T) {
	s := New()
	if s.ID == "" {
		t.Fatal("session id is empty")
	}
	if s.Has("customers") {
		t.Fatal("new session should be empty")
	}

	s.Record(customers())
	s.Mark("products")

	if !s.Has("customers") || !s.Has("products") {
		t.Errorf("Tables() = %v", s.Tables())
	}
	if snap, ok := s.Snapshot("customers"); !ok || len(snap.Rows) != 1 {
		t.Error("expected customers snapshot")
	}
	if _, ok := s.Snapshot("products"); ok {
		t.Error("marked table should have no snapshot")
	}
	if names := s.Tables(); len(names) != 2 || names[0] != "customers" {
		t.Errorf("Tables() = %v", names)
	}

	s.Forget("customers")
	if s.Has("customers") {
		t.Error("Forget did not remove table")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	s, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	s.Record(customers())
	if err := store.Save(ctx, s); err != nil {
		t.Fatal(err)
	}

	again, _ := store.Get(ctx, "abc")
	if !again.Has("customers") {
		t.Error("stored session lost its tables")
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatal(err)
	}
	fresh, _ := store.Get(ctx, "abc")
	if fresh.Has("customers") {
		t.Error("deleted session still has tables")
	}
}

func TestMemoryStoreGetDoesNotRetain(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	for _, id := range []string{"a", "b", "c"} {
		s, err := store.Get(ctx, id)
		if err != nil || s.ID != id {
			t.Fatalf("Get(%q) = %v, %v", id, s, err)
		}
	}
	if n := store.Len(); n != 0 {
		t.Errorf("Len() = %d after lookups only, want 0", n)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	idle := WithID("idle")
	idle.Record(customers())
	store.Save(ctx, idle)

	busy := WithID("busy")
	busy.Record(customers())
	store.Save(ctx, busy)

	now = now.Add(40 * time.Second)
	if s, _ := store.Get(ctx, "busy"); !s.Has("customers") {
		t.Fatal("busy session lost before expiry")
	}

	now = now.Add(30 * time.Second)
	if s, _ := store.Get(ctx, "idle"); s.Has("customers") {
		t.Error("idle session outlived its ttl")
	}
	if s, _ := store.Get(ctx, "busy"); !s.Has("customers") {
		t.Error("Get did not extend the busy session")
	}
	if n := store.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}

	now = now.Add(2 * time.Minute)
	if n := store.Len(); n != 0 {
		t.Errorf("Len() = %d after every session went idle, want 0", n)
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer store.Close()

	id := "test-" + New().ID
	defer store.Delete(ctx, id)

	s, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	s.Record(customers())
	if err := store.Save(ctx, s); err != nil {
		t.Fatal(err)
	}

	// A second store sees the names but not the snapshot.
	other := NewRedisStoreWithClient(store.client, time.Minute)
	loaded, err := other.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Has("customers") {
		t.Error("table name not shared through Redis")
	}
	if _, ok := loaded.Snapshot("customers"); ok {
		t.Error("snapshot should not cross processes")
	}

	if _, err := store.Get(ctx, "test-unknown-"+New().ID); err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	held := len(store.local)
	store.mu.Unlock()
	if held != 1 {
		t.Errorf("local sessions = %d, want only the saved one", held)
	}

	store.client.Del(ctx, keyPrefix+id)
	expired, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := expired.Snapshot("customers"); ok {
		t.Error("snapshot kept after the Redis key expired")
	}
}
