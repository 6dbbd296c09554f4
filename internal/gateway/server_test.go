package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stevechen1112/aetheria/internal/agent"
	"github.com/stevechen1112/aetheria/internal/config"
	"github.com/stevechen1112/aetheria/internal/llm"
	"github.com/stevechen1112/aetheria/internal/memory"
	"github.com/stevechen1112/aetheria/internal/safety"
	"github.com/stevechen1112/aetheria/internal/store"
	"github.com/stevechen1112/aetheria/internal/tools"
	"github.com/stevechen1112/aetheria/internal/tools/divination"
	"github.com/stevechen1112/aetheria/pkg/models"
)

// textProvider answers every generate call with the same text.
type textProvider struct {
	text string
}

func (p *textProvider) Stream(_ context.Context, _ *llm.Request) (<-chan *llm.Chunk, error) {
	out := make(chan *llm.Chunk, 2)
	out <- &llm.Chunk{Text: p.text}
	out <- &llm.Chunk{Done: true}
	close(out)
	return out, nil
}

func (p *textProvider) Name() string { return "text" }

func newTestServer(t *testing.T, st store.Store, secret string) *Server {
	t.Helper()
	registry := tools.NewRegistry()
	if err := divination.Register(registry); err != nil {
		t.Fatalf("register tools: %v", err)
	}
	loop := agent.New(st, &textProvider{text: "您好，很高興見到您。"}, registry,
		memory.NewManager(st, nil, nil, nil), safety.New(), nil, nil, config.Default().Agent)
	return New(":0", loop, st, NewAuthenticator(secret), nil)
}

func TestChatRequiresAuth(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"你好"}`))

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChatStreamsSSE(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"你好"}`))
	req.Header.Set("Authorization", "Bearer user-1")

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, event := range []string{"event: session", "event: text", "event: done"} {
		if !strings.Contains(body, event) {
			t.Errorf("stream missing %q:\n%s", event, body)
		}
	}
	if !strings.Contains(body, "很高興見到您") {
		t.Errorf("reply text missing from stream:\n%s", body)
	}
}

func TestChatComplete(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/complete", strings.NewReader(`{"message":"你好"}`))
	req.Header.Set("Authorization", "Bearer user-1")

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID == "" || !strings.Contains(resp.Reply, "很高興見到您") {
		t.Fatalf("response = %+v", resp)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"  "}`))
	req.Header.Set("Authorization", "Bearer user-1")

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(t, st, "")

	session := &models.Session{UserID: "user-1", Title: "感情"}
	if err := st.CreateSession(context.Background(), session); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AppendMessage(context.Background(), session.ID,
		&models.Message{Role: models.RoleUser, Content: "嗨"}); err != nil {
		t.Fatal(err)
	}

	do := func(method, path, token string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/api/sessions", "user-1"); rec.Code != http.StatusOK ||
		!strings.Contains(rec.Body.String(), session.ID) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(http.MethodGet, "/api/sessions/"+session.ID+"/messages", "user-1"); rec.Code != http.StatusOK ||
		!strings.Contains(rec.Body.String(), "嗨") {
		t.Fatalf("messages: %d %s", rec.Code, rec.Body.String())
	}

	// A foreign session is reported as missing, not forbidden.
	if rec := do(http.MethodGet, "/api/sessions/"+session.ID+"/messages", "user-2"); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign messages: %d", rec.Code)
	}
	if rec := do(http.MethodDelete, "/api/sessions/"+session.ID, "user-2"); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: %d", rec.Code)
	}

	if rec := do(http.MethodDelete, "/api/sessions/"+session.ID, "user-1"); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if _, err := st.GetSession(context.Background(), session.ID); err == nil {
		t.Fatal("session still present after delete")
	}
}

func TestFeedbackValidation(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), "")

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/messages/msg-1/feedback", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer user-1")
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	if rec := post(`{"rating":5}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("rating 5: %d", rec.Code)
	}
	if rec := post(`{"rating":-1,"comment":"不夠準"}`); rec.Code != http.StatusOK {
		t.Fatalf("rating -1: %d %s", rec.Code, rec.Body.String())
	}
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret-material"
	srv := newTestServer(t, store.NewMemoryStore(), secret)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("opaque token must fail with a secret configured: %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}
}
