package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/okdesk/deskagent/internal/collaborate"
	"github.com/okdesk/deskagent/internal/dispatch"
	"github.com/okdesk/deskagent/internal/executor"
	"github.com/okdesk/deskagent/internal/memory"
	"github.com/okdesk/deskagent/internal/planner"
)

type echoReplier struct{}

func (echoReplier) Reply(_ context.Context, message, sessionID string) string {
	return fmt.Sprintf("echo[%s]: %s", sessionID, message)
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	sessions := dispatch.NewInMemorySessionStore()
	return New(Options{
		Dispatcher: echoReplier{},
		Executor:   executor.NewWithHome(t.TempDir(), nil),
		Planner:    planner.New(nil, nil),
		Relay:      collaborate.New(nil),
		Store:      memory.NewInMemoryStore(),
		Sessions:   sessions,
	})
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	router := g.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	router := g.buildRouter()

	rec := postJSON(t, router, "/agent/chat", map[string]string{"message": "你好", "session_id": "s1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["agent"] != "chat" {
		t.Errorf("agent = %v", body["agent"])
	}
	if body["reply"] != "echo[s1]: 你好" {
		t.Errorf("reply = %v", body["reply"])
	}
}

func TestChatEndpoint_DefaultsSession(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	rec := postJSON(t, g.buildRouter(), "/agent/chat", map[string]string{"message": "hi"})

	body := decodeBody(t, rec)
	if body["session_id"] != "default" {
		t.Errorf("session_id = %v", body["session_id"])
	}
}

func TestChatEndpoint_RequiresMessage(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	rec := postJSON(t, g.buildRouter(), "/agent/chat", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPlanEndpoint(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	rec := postJSON(t, g.buildRouter(), "/agent/plan", map[string]string{"goal": "学习Python"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["agent"] != "planner" || body["goal"] != "学习Python" {
		t.Errorf("body = %v", body)
	}
	steps, ok := body["steps"].([]any)
	if !ok || len(steps) == 0 {
		t.Errorf("steps = %v", body["steps"])
	}
}

func TestExecuteEndpoint(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	rec := postJSON(t, g.buildRouter(), "/agent/execute", map[string]any{"action": "get_current_time"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	result, ok := body["result"].(map[string]any)
	if !ok || result["success"] != true {
		t.Errorf("result = %v", body["result"])
	}
}

func TestExecuteEndpoint_UnknownActionIs200Failure(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	rec := postJSON(t, g.buildRouter(), "/agent/execute", map[string]any{"action": "fly"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, failures are result-level", rec.Code)
	}
	result := decodeBody(t, rec)["result"].(map[string]any)
	if result["success"] != false {
		t.Errorf("result = %v", result)
	}
}

func TestMemoryEndpoint(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	router := g.buildRouter()

	rec := postJSON(t, router, "/agent/memory", map[string]any{
		"mode": "save",
		"data": map[string]any{"session_id": "s1", "role": "user", "content": "记住这句话"},
	})
	result := decodeBody(t, rec)["result"].(map[string]any)
	if result["status"] != "ok" {
		t.Fatalf("save result = %v", result)
	}

	rec = postJSON(t, router, "/agent/memory", map[string]any{
		"mode": "query",
		"data": map[string]any{"session_id": "s1", "type": "recent"},
	})
	result = decodeBody(t, rec)["result"].(map[string]any)
	if result["status"] != "ok" {
		t.Fatalf("query result = %v", result)
	}

	rec = postJSON(t, router, "/agent/memory", map[string]any{"mode": "save", "data": map[string]any{}})
	result = decodeBody(t, rec)["result"].(map[string]any)
	if result["status"] != "error" || result["msg"] != "invalid_payload" {
		t.Errorf("invalid payload result = %v", result)
	}
}

func TestCollaborateEndpoint(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	rec := postJSON(t, g.buildRouter(), "/agent/collaborate", map[string]string{
		"sender": "chat", "receiver": "planner", "task": "拆解任务",
	})

	body := decodeBody(t, rec)
	if body["agent"] != "collaborate" || body["task"] != "拆解任务" {
		t.Errorf("body = %v", body)
	}
	result := body["result"].(map[string]any)
	if result["accepted"] != true {
		t.Errorf("result = %v", result)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	router := g.buildRouter()

	// Drive one request through so a counter exists.
	postJSON(t, router, "/agent/chat", map[string]string{"message": "hi"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "deskagent_replies_total") {
		t.Errorf("metrics body missing reply counter:\n%s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	rec := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/agent/chat", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("permissive CORS header missing")
	}
}

func TestChatSocket_RoundTrip(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t)
	srv := httptest.NewServer(g.buildRouter())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck // test cleanup

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"message":"你好","session_id":"ws1"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var reply wsReply
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	if reply.Reply != "echo[ws1]: 你好" {
		t.Errorf("reply = %+v", reply)
	}
}
