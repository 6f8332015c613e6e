package command

import (
	"context"
	"encoding/json"
	"testing"

	"ollama-chat/internal/app"
)

func TestGreet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "name", in: "World", want: "Hello, World! You've been greeted from Rust!"},
		{name: "empty", in: "", want: "Hello, ! You've been greeted from Rust!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Greet(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGreetCommand(t *testing.T) {
	a, err := app.NewBuilder().InvokeHandler("greet", GreetCommand).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, err := a.Invoke(context.Background(), "greet", json.RawMessage(`{"name":"World"}`))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Hello, World! You've been greeted from Rust!" {
		t.Errorf("unexpected greeting: %v", got)
	}

	// 引数なしは空の名前として扱う
	got, err = a.Invoke(context.Background(), "greet", nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Hello, ! You've been greeted from Rust!" {
		t.Errorf("unexpected greeting: %v", got)
	}
}
