// Package command はアプリケーションに直接登録されるコマンドを提供する。
package command

import (
	"context"
	"fmt"

	"ollama-chat/internal/app"
)

// Greet は挨拶文を返す。
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s! You've been greeted from Rust!", name)
}

// GreetArgs は greet コマンドの引数。
type GreetArgs struct {
	Name string `json:"name"`
}

// GreetCommand は greet コマンドの実装。
var GreetCommand = app.Command(func(ctx context.Context, a *app.App, args GreetArgs) (any, error) {
	return Greet(args.Name), nil
})
