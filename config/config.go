// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Version はアプリケーションのバージョン。
const Version = "0.1.0"

// DefaultDatabaseURL はアプリケーションが使用するデータベースの論理アドレス。
const DefaultDatabaseURL = "sqlite:ollama-chat.db"

// Config はアプリケーション設定を表す。
type Config struct {
	DatabaseURL      string  `env:"DATABASE_URL" envDefault:"sqlite:ollama-chat.db"`
	DataDir          string  `env:"DATA_DIR" envDefault:"."`
	IPCAddr          string  `env:"IPC_ADDR" envDefault:"127.0.0.1:1430"`
	LogLevel         string  `env:"LOG_LEVEL" envDefault:"INFO"`
	CapabilitiesFile string  `env:"CAPABILITIES_FILE"`
	OllamaHost       string  `env:"OLLAMA_HOST" envDefault:"127.0.0.1:11434"`
	OtelEnabled      bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelEndpoint     string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OtelServiceName  string  `env:"OTEL_SERVICE_NAME" envDefault:"ollama-chat"`
	OtelSamplingRate float64 `env:"OTEL_SAMPLING_RATE" envDefault:"1.0"`
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
