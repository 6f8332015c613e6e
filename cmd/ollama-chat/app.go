package main

import (
	"log/slog"

	"gorm.io/gorm"

	"ollama-chat/config"
	"ollama-chat/internal/app"
	"ollama-chat/internal/command"
	"ollama-chat/internal/handler"
	"ollama-chat/internal/infra"
	"ollama-chat/internal/migrations"
	"ollama-chat/internal/plugins/fsplugin"
	"ollama-chat/internal/plugins/shellplugin"
	"ollama-chat/internal/plugins/sqlplugin"
)

// newApp はデータベース、ファイルシステム、シェルの各プラグインと greet コマンドを登録したBuilderを返す。
func newApp(cfg *config.Config, caps *config.Capabilities) *app.Builder {
	opener := func(url string) (*gorm.DB, error) {
		return infra.NewDB(url, cfg)
	}

	return app.NewBuilder().
		Plugin(sqlplugin.NewBuilder(opener).
			AddMigrations(cfg.DatabaseURL, migrations.ForURL(cfg.DatabaseURL)).
			Build()).
		Plugin(fsplugin.Init(caps.FS)).
		Plugin(shellplugin.Init(caps.Shell)).
		InvokeHandler("greet", command.GreetCommand).
		InvokeHandlers(command.ConversationHandlers(cfg.DatabaseURL)).
		OnStateChange(func(s app.State) {
			slog.Info("application state changed", "state", s.String())
		}).
		EventLoop(handler.NewServerLoop(cfg.IPCAddr, cfg.OtelEnabled))
}
