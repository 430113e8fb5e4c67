package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeRedisREST speaks just enough of the Upstash REST protocol for the
// store: single-command POST bodies, GET/SET/DEL.
type fakeRedisREST struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeRedisREST) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil || len(cmd) < 2 {
			t.Errorf("bad command body: %v", err)
			http.Error(w, "bad command", http.StatusBadRequest)
			return
		}

		name, _ := cmd[0].(string)
		key, _ := cmd[1].(string)

		f.mu.Lock()
		defer f.mu.Unlock()

		switch name {
		case "GET":
			value, ok := f.data[key]
			if !ok {
				_ = json.NewEncoder(w).Encode(map[string]any{"result": nil})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"result": value})
		case "SET":
			value, _ := cmd[2].(string)
			f.data[key] = value
			_ = json.NewEncoder(w).Encode(map[string]any{"result": "OK"})
		case "DEL":
			delete(f.data, key)
			_ = json.NewEncoder(w).Encode(map[string]any{"result": 1})
		default:
			t.Errorf("unexpected command %q", name)
			http.Error(w, "unexpected command", http.StatusBadRequest)
		}
	}
}

func newUpstashFixture(t *testing.T) (*UpstashRedisStore, *fakeRedisREST) {
	t.Helper()

	fake := &fakeRedisREST{data: make(map[string]string)}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	store, err := NewUpstashRedisStore(UpstashRedisConfig{
		URL:   srv.URL,
		Token: "test-token",
	})
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store, fake
}

func TestUpstashStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newUpstashFixture(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testKey(), map[string]any{KeyUserName: "Mina"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created.AppendTurn(Turn{Role: RoleUser, Parts: []Part{TextPart("hi")}})
	if err := store.Save(ctx, created); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.BagString(KeyUserName) != "Mina" {
		t.Fatalf("user_name lost in round trip: %q", got.BagString(KeyUserName))
	}
	if len(got.Turns) != 1 || got.Turns[0].Text() != "hi" {
		t.Fatalf("turns lost in round trip: %#v", got.Turns)
	}
}

func TestUpstashStoreGetMissing(t *testing.T) {
	t.Parallel()

	store, _ := newUpstashFixture(t)
	if _, err := store.Get(context.Background(), testKey()); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestUpstashStoreCreateExisting(t *testing.T) {
	t.Parallel()

	store, _ := newUpstashFixture(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testKey(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, testKey(), nil); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestUpstashStoreDelete(t *testing.T) {
	t.Parallel()

	store, fake := newUpstashFixture(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testKey(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Delete(ctx, testKey()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	fake.mu.Lock()
	remaining := len(fake.data)
	fake.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("%d keys left after delete", remaining)
	}
}
