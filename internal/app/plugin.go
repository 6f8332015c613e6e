package app

import (
	"context"
	"fmt"
)

// Plugin はアプリケーション起動時に登録される機能モジュール。
type Plugin interface {
	// Name はコマンド名の接頭辞にも使われる一意な名前を返す。
	Name() string
	// Setup はイベントループ開始前に一度だけ呼ばれる。
	Setup(ctx context.Context, c *Context) error
	// Close は終了時に登録と逆順で呼ばれる。
	Close() error
}

// Context はプラグインのセットアップ中に渡される登録口。
type Context struct {
	app    *App
	plugin string
}

// App はセットアップ対象のアプリケーションを返す。
func (c *Context) App() *App {
	return c.app
}

// RegisterCommand はプラグインのコマンドを plugin:<name>|<command> として登録する。
func (c *Context) RegisterCommand(name string, fn CommandFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("app: plugin %s: command name and handler are required", c.plugin)
	}
	return c.app.registerCommand(PluginCommandName(c.plugin, name), fn)
}

// Manage はプラグインが共有する状態をアプリケーションに登録する。
func (c *Context) Manage(v any) {
	c.app.Manage(v)
}
