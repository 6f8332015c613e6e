// Package handler はフロントエンドからのコマンド呼び出しを受けるHTTPハンドラを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"ollama-chat/internal/domain"
	"ollama-chat/internal/middleware"
	"ollama-chat/pkg/httputil"
)

// maxArgsBytes はコマンド引数の最大サイズ。
const maxArgsBytes = 1 << 20

// Invoker はコマンドを名前で呼び出す。
type Invoker interface {
	Invoke(ctx context.Context, name string, args []byte) (any, error)
	Commands() []string
}

// IPCHandler はコマンド呼び出しをHTTPで受け付ける。
type IPCHandler struct {
	invoker Invoker
}

// NewIPCHandler は新しいIPCHandlerを生成する。
func NewIPCHandler(invoker Invoker) *IPCHandler {
	return &IPCHandler{invoker: invoker}
}

// CommandListResponse はコマンド一覧のレスポンス形式。
type CommandListResponse struct {
	Commands []string `json:"commands"`
}

// errorMapping はドメインエラーとHTTPレスポンスの対応。
var errorMapping = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{domain.ErrCommandNotFound, http.StatusNotFound, "COMMAND_NOT_FOUND", "command not found"},
	{domain.ErrInvalidArgs, http.StatusBadRequest, "INVALID_ARGS", "invalid command arguments"},
	{domain.ErrConversationNotFound, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "conversation not found"},
	{domain.ErrChildNotFound, http.StatusNotFound, "CHILD_NOT_FOUND", "child process not found"},
	{domain.ErrPathOutsideScope, http.StatusForbidden, "PATH_OUTSIDE_SCOPE", "path is outside the allowed scope"},
	{domain.ErrShellCommandNotAllowed, http.StatusForbidden, "SHELL_COMMAND_NOT_ALLOWED", "shell command is not allowed"},
	{domain.ErrDatabaseNotLoaded, http.StatusConflict, "DATABASE_NOT_LOADED", "database is not loaded"},
}

// Invoke はURLのコマンドをリクエストボディのJSON引数で呼び出す。
func (h *IPCHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	// プラグインコマンドの "|" はエスケープされて届く
	command, err := url.PathUnescape(chi.URLParam(r, "command"))
	if err != nil || command == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_COMMAND", "command is required")
		return
	}

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArgsBytes))
	if err != nil {
		middleware.WriteAuditLog(r.Context(), command, "FAILED")
		httputil.Error(w, http.StatusRequestEntityTooLarge, "ARGS_TOO_LARGE", "command arguments are too large")
		return
	}
	if len(args) > 0 && !json.Valid(args) {
		middleware.WriteAuditLog(r.Context(), command, "FAILED")
		httputil.Error(w, http.StatusBadRequest, "INVALID_ARGS", "command arguments must be JSON")
		return
	}

	result, err := h.invoker.Invoke(r.Context(), command, args)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), command, "FAILED")
		writeError(w, r, command, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), command, "SUCCESS")
	if result == nil {
		httputil.NoContent(w)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// ListCommands は登録済みコマンドの一覧を返す。
func (h *IPCHandler) ListCommands(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, CommandListResponse{Commands: h.invoker.Commands()})
}

// Health はヘルスチェックに応答する。
func (h *IPCHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, r *http.Request, command string, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			httputil.Error(w, m.status, m.code, m.message)
			return
		}
	}

	slog.ErrorContext(r.Context(), "command failed",
		"command", command,
		"error", err,
	)
	httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
