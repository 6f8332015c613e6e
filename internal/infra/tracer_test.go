package infra

import (
	"context"
	"strings"
	"testing"

	"ollama-chat/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), &config.Config{OtelEnabled: false})
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	if tp != nil {
		t.Errorf("expected nil provider when tracing is disabled, got %v", tp)
	}
}

func TestResourceAttributes(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *config.Config
		wantName   string
		wantSystem string
	}{
		{
			name:       "sqlite",
			cfg:        &config.Config{OtelServiceName: "chat-host", DatabaseURL: "sqlite:ollama-chat.db", OllamaHost: "127.0.0.1:11434"},
			wantName:   "chat-host",
			wantSystem: "sqlite",
		},
		{
			name:       "mysql with default name",
			cfg:        &config.Config{DatabaseURL: "mysql://chat@db.local/ollama"},
			wantName:   "ollama-chat",
			wantSystem: "mysql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := map[string]string{}
			for _, kv := range ResourceAttributes(tt.cfg) {
				got[string(kv.Key)] = kv.Value.Emit()
			}

			if got["service.name"] != tt.wantName {
				t.Errorf("expected service.name %q, got %q", tt.wantName, got["service.name"])
			}
			if got["service.version"] != config.Version {
				t.Errorf("expected service.version %q, got %q", config.Version, got["service.version"])
			}
			if got["db.system"] != tt.wantSystem {
				t.Errorf("expected db.system %q, got %q", tt.wantSystem, got["db.system"])
			}
			if got["ollama.host"] != tt.cfg.OllamaHost {
				t.Errorf("expected ollama.host %q, got %q", tt.cfg.OllamaHost, got["ollama.host"])
			}
		})
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: "AlwaysOnSampler"},
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: 0.5, want: "TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		got := newSampler(tt.rate).Description()
		if !strings.Contains(got, tt.want) {
			t.Errorf("rate %v: expected sampler description to contain %q, got %q", tt.rate, tt.want, got)
		}
	}
}
