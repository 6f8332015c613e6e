// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// AuditLog は監査ログの構造体。
type AuditLog struct {
	Command   string `json:"command"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

// WriteAuditLog はコマンド呼び出しの監査ログを出力する。
func WriteAuditLog(ctx context.Context, command string, result string) {
	entry := AuditLog{
		Command:   command,
		Result:    result,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	slog.InfoContext(ctx, "command invoked",
		"command", entry.Command,
		"result", entry.Result,
		"timestamp", entry.Timestamp,
	)
}
