package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
)

type fakeConversation struct {
	events []contractx.Event
	err    error
	calls  int
}

func (f *fakeConversation) HandleTurn(ctx context.Context, key statex.Key, turn statex.Turn) ([]contractx.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func newTestServer(conv *fakeConversation) (*Server, *statex.MemoryStore) {
	sessions := statex.NewMemoryStore()
	return New(conv, sessions, nil, nil, nil), sessions
}

func TestRunReturnsEvents(t *testing.T) {
	t.Parallel()

	conv := &fakeConversation{events: []contractx.Event{
		contractx.TextEvent(contractx.AgentTypeSupport, "Hello!"),
	}}
	srv, _ := newTestServer(conv)

	body := `{
		"app_name": "glowdesk",
		"user_id": "u1",
		"session_id": "s1",
		"new_message": {"role": "user", "parts": [{"text": "hi"}]}
	}`
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var events []struct {
		Author  string `json:"author"`
		Content struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(events) != 1 || events[0].Author != "support" {
		t.Fatalf("unexpected events: %#v", events)
	}
	if events[0].Content.Parts[0].Text != "Hello!" {
		t.Fatalf("unexpected event text: %#v", events[0].Content)
	}
}

func TestRunRejectsIncompleteKey(t *testing.T) {
	t.Parallel()

	conv := &fakeConversation{}
	srv, _ := newTestServer(conv)

	body := `{"app_name": "glowdesk", "new_message": {"parts": [{"text": "hi"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if conv.calls != 0 {
		t.Fatalf("invalid request reached the dispatcher")
	}
}

func TestRunRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	conv := &fakeConversation{}
	srv, _ := newTestServer(conv)

	body := `{"app_name": "glowdesk", "user_id": "u1", "session_id": "s1", "new_message": {"parts": []}}`
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if conv.calls != 0 {
		t.Fatalf("empty message reached the dispatcher")
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&fakeConversation{})
	router := srv.Router()

	// Create with explicit id and initial state.
	req := httptest.NewRequest(http.MethodPost, "/apps/glowdesk/users/u1/sessions/s1",
		strings.NewReader(`{"state": {"user_name": "Mina"}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Get is idempotent.
	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodGet, "/apps/glowdesk/users/u1/sessions/s1", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("get status = %d", rec.Code)
		}
		var sess struct {
			State map[string]any `json:"state"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
			t.Fatalf("decode session: %v", err)
		}
		if sess.State["user_name"] != "Mina" {
			t.Fatalf("state not preserved: %#v", sess.State)
		}
	}

	// Duplicate create conflicts.
	req = httptest.NewRequest(http.MethodPost, "/apps/glowdesk/users/u1/sessions/s1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", rec.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&fakeConversation{})
	req := httptest.NewRequest(http.MethodGet, "/apps/glowdesk/users/u1/sessions/missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateSessionGeneratesID(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&fakeConversation{})
	req := httptest.NewRequest(http.MethodPost, "/apps/glowdesk/users/u1/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var sess struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if strings.TrimSpace(sess.SessionID) == "" {
		t.Fatalf("generated session id is empty")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&fakeConversation{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
