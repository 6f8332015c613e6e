package handler

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"ollama-chat/internal/app"
	"ollama-chat/internal/command"
)

func TestServerLoop_ServesCommandsUntilCancelled(t *testing.T) {
	addrCh := make(chan string, 1)
	loop := NewServerLoop("127.0.0.1:0", false)
	loop.OnListen = func(addr net.Addr) {
		addrCh <- addr.String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- app.NewBuilder().
			InvokeHandler("greet", command.GreetCommand).
			EventLoop(loop).
			Run(ctx)
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Post("http://"+addr+"/ipc/greet", "application/json", strings.NewReader(`{"name":"World"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, got %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != `"Hello, World! You've been greeted from Rust!"` {
		t.Errorf("unexpected body: %s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerLoop_ListenError(t *testing.T) {
	err := app.NewBuilder().
		EventLoop(NewServerLoop("invalid-address", false)).
		Run(context.Background())
	if err == nil {
		t.Error("expected listen error")
	}
}
