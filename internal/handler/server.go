package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"ollama-chat/internal/app"
)

// ServerLoop はIPCサーバーをアプリケーションのイベントループとして動かす。
type ServerLoop struct {
	Addr            string
	OtelEnabled     bool
	ShutdownTimeout time.Duration

	// OnListen は待ち受け開始時に実際のアドレスで呼ばれる（任意）。
	OnListen func(addr net.Addr)
}

// NewServerLoop は新しいServerLoopを生成する。
func NewServerLoop(addr string, otelEnabled bool) *ServerLoop {
	return &ServerLoop{
		Addr:            addr,
		OtelEnabled:     otelEnabled,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Run はコンテキストがキャンセルされるまでIPCサーバーを動かす。
func (l *ServerLoop) Run(ctx context.Context, a *app.App) error {
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           NewRouter(NewIPCHandler(a), l.OtelEnabled),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	slog.InfoContext(ctx, "starting ipc server", "addr", ln.Addr().String())
	if l.OnListen != nil {
		l.OnListen(ln.Addr())
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	slog.Info("shutting down ipc server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("ipc server stopped")
	return nil
}
