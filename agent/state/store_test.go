package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testKey() Key {
	return Key{App: "glowdesk", UserID: "user-1", SessionID: "sess-1"}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, testKey(), map[string]any{"user_name": "Mina"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !created.BagBool(KeyIsFirstInteraction) {
		t.Fatalf("new session should default is_first_interaction=true")
	}

	got, err := store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.BagString(KeyUserName) != "Mina" {
		t.Fatalf("unexpected user_name: %q", got.BagString(KeyUserName))
	}
}

func TestMemoryStoreGetIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, testKey(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// Mutating the returned copy must not leak into the store.
	first.SetBag("user_name", "changed")
	first.AppendTurn(Turn{Role: RoleUser, Parts: []Part{TextPart("hi")}})

	second, err := store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("Get() second error = %v", err)
	}
	if second.BagString(KeyUserName) != "" {
		t.Fatalf("store state mutated through returned copy")
	}
	if len(second.Turns) != 0 {
		t.Fatalf("store turns mutated through returned copy")
	}
}

func TestMemoryStoreCreateExisting(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, testKey(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, testKey(), nil); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(
		WithMemoryTTL(time.Hour),
		WithNowFunc(func() time.Time { return now }),
	)
	ctx := context.Background()

	if _, err := store.Create(ctx, testKey(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now = now.Add(30 * time.Minute)
	if _, err := store.Get(ctx, testKey()); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	now = now.Add(31 * time.Minute)
	if _, err := store.Get(ctx, testKey()); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound after TTL, got %v", err)
	}

	// Expired slot can be recreated.
	if _, err := store.Create(ctx, testKey(), nil); err != nil {
		t.Fatalf("Create() after expiry error = %v", err)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(
		WithMemoryTTL(time.Minute),
		WithNowFunc(func() time.Time { return now }),
	)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		key := Key{App: "glowdesk", UserID: "u", SessionID: id}
		if _, err := store.Create(ctx, key, nil); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	now = now.Add(2 * time.Minute)
	if dropped := store.Sweep(); dropped != 3 {
		t.Fatalf("Sweep() dropped = %d, want 3", dropped)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d after sweep, want 0", store.Len())
	}
}

func TestMemoryStoreRejectsIncompleteKey(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, Key{App: "glowdesk"})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
