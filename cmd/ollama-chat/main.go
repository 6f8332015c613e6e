// Package main はアプリケーションホストのエントリポイント。
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ollama-chat/config"
	"ollama-chat/internal/infra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}

	// トレース情報付きロガーを設定
	infra.SetupLogger(os.Stdout, cfg)

	caps, err := config.LoadCapabilities(cfg)
	if err != nil {
		slog.Error("failed to load capabilities", "error", err)
		os.Exit(1)
	}

	err = newApp(cfg, caps).Run(ctx)

	if tp != nil {
		if shutdownErr := tp.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			slog.Error("failed to shutdown tracer", "error", shutdownErr)
		}
	}

	if err != nil {
		slog.Error("error while running application", "error", err)
		os.Exit(1)
	}
	slog.Info("application exited")
}
