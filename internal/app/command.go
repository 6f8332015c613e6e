package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"ollama-chat/internal/domain"
)

// CommandFunc はフロントエンドから呼び出せるコマンドの実装。
// args は呼び出し元から渡されたJSON引数（未指定の場合は nil）。
type CommandFunc func(ctx context.Context, a *App, args json.RawMessage) (any, error)

// Command は型付きの引数を受け取る関数をCommandFuncに変換する。
// 引数のデコードに失敗した場合は domain.ErrInvalidArgs を返す。
func Command[T any](fn func(ctx context.Context, a *App, args T) (any, error)) CommandFunc {
	return func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		var args T
		if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&args); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgs, err)
			}
		}
		return fn(ctx, a, args)
	}
}

// PluginCommandName はプラグインのコマンド名を plugin:<plugin>|<command> 形式で返す。
func PluginCommandName(plugin, command string) string {
	return "plugin:" + plugin + "|" + command
}
