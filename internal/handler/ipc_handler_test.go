package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"ollama-chat/internal/domain"
)

// mockInvoker はテスト用のモックInvoker。
type mockInvoker struct {
	result   any
	err      error
	commands []string

	calledName string
	calledArgs []byte
}

func (m *mockInvoker) Invoke(ctx context.Context, name string, args []byte) (any, error) {
	m.calledName = name
	m.calledArgs = args
	return m.result, m.err
}

func (m *mockInvoker) Commands() []string {
	return m.commands
}

func newInvokeRequest(command, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ipc/"+command, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("command", command)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestInvoke_Success(t *testing.T) {
	inv := &mockInvoker{result: "Hello, World! You've been greeted from Rust!"}
	h := NewIPCHandler(inv)

	rec := httptest.NewRecorder()
	h.Invoke(rec, newInvokeRequest("greet", `{"name":"World"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d", rec.Code)
	}
	if inv.calledName != "greet" {
		t.Errorf("want command greet, got %s", inv.calledName)
	}
	if string(inv.calledArgs) != `{"name":"World"}` {
		t.Errorf("unexpected args: %s", inv.calledArgs)
	}

	var got string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != "Hello, World! You've been greeted from Rust!" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestInvoke_NoContent(t *testing.T) {
	h := NewIPCHandler(&mockInvoker{})

	rec := httptest.NewRecorder()
	h.Invoke(rec, newInvokeRequest("delete_conversation", `{"conversation_id":"c1"}`))

	if rec.Code != http.StatusNoContent {
		t.Errorf("want status 204, got %d", rec.Code)
	}
}

func TestInvoke_InvalidJSON(t *testing.T) {
	inv := &mockInvoker{}
	h := NewIPCHandler(inv)

	rec := httptest.NewRecorder()
	h.Invoke(rec, newInvokeRequest("greet", `{"name":`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("want status 400, got %d", rec.Code)
	}
	if inv.calledName != "" {
		t.Error("invoker should not be called for invalid JSON")
	}
}

func TestInvoke_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domain.ErrCommandNotFound, http.StatusNotFound, "COMMAND_NOT_FOUND"},
		{"invalid args", fmt.Errorf("%w: bad", domain.ErrInvalidArgs), http.StatusBadRequest, "INVALID_ARGS"},
		{"conversation", domain.ErrConversationNotFound, http.StatusNotFound, "CONVERSATION_NOT_FOUND"},
		{"scope", fmt.Errorf("%w: ../x", domain.ErrPathOutsideScope), http.StatusForbidden, "PATH_OUTSIDE_SCOPE"},
		{"shell", domain.ErrShellCommandNotAllowed, http.StatusForbidden, "SHELL_COMMAND_NOT_ALLOWED"},
		{"child", domain.ErrChildNotFound, http.StatusNotFound, "CHILD_NOT_FOUND"},
		{"database", domain.ErrDatabaseNotLoaded, http.StatusConflict, "DATABASE_NOT_LOADED"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewIPCHandler(&mockInvoker{err: tt.err})

			rec := httptest.NewRecorder()
			h.Invoke(rec, newInvokeRequest("cmd", ""))

			if rec.Code != tt.wantStatus {
				t.Errorf("want status %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp map[string]string
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp["code"] != tt.wantCode {
				t.Errorf("want code %s, got %s", tt.wantCode, resp["code"])
			}
		})
	}
}

func TestRouter(t *testing.T) {
	inv := &mockInvoker{result: map[string]int{"code": 0}, commands: []string{"greet", "plugin:sql|load"}}
	router := NewRouter(NewIPCHandler(inv), false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health: want status 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ipc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: want status 200, got %d", rec.Code)
	}
	var list CommandListResponse
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list.Commands) != 2 {
		t.Errorf("want 2 commands, got %v", list.Commands)
	}

	// プラグインコマンド名はパスエスケープして渡される
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ipc/plugin:shell%7Cexecute", strings.NewReader(`{"name":"ollama-serve"}`)))
	if rec.Code != http.StatusOK {
		t.Errorf("invoke: want status 200, got %d", rec.Code)
	}
	if inv.calledName != "plugin:shell|execute" {
		t.Errorf("want plugin:shell|execute, got %s", inv.calledName)
	}
}
