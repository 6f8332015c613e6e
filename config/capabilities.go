package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Capabilities はプラグインに許可する操作範囲を表す。
type Capabilities struct {
	FS    FSScope    `yaml:"fs"`
	Shell ShellScope `yaml:"shell"`
}

// FSScope はファイルシステムプラグインのアクセス範囲。
type FSScope struct {
	Root string `yaml:"root"`
}

// ShellScope はシェルプラグインで実行可能なコマンドの一覧。
type ShellScope struct {
	Commands []ShellCommand `yaml:"commands"`
}

// ShellCommand は名前で呼び出せる許可済みプログラム。
type ShellCommand struct {
	Name      string            `yaml:"name"`
	Program   string            `yaml:"program"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	AllowArgs bool              `yaml:"allow_args"`
}

// Lookup は名前に一致するコマンドを返す。
func (s ShellScope) Lookup(name string) (ShellCommand, bool) {
	for _, c := range s.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return ShellCommand{}, false
}

// DefaultCapabilities は設定から既定の権限を生成する。
// シェルはOllamaサーバーの起動のみを許可する。
func DefaultCapabilities(cfg *Config) *Capabilities {
	return &Capabilities{
		FS: FSScope{Root: cfg.DataDir},
		Shell: ShellScope{
			Commands: []ShellCommand{
				{
					Name:    "ollama-serve",
					Program: "ollama",
					Args:    []string{"serve"},
					Env: map[string]string{
						"OLLAMA_ORIGINS": "*",
						"OLLAMA_HOST":    cfg.OllamaHost,
					},
				},
			},
		},
	}
}

// LoadCapabilities は既定値にYAMLファイルの内容を重ねて権限を読み込む。
// CapabilitiesFile が未設定の場合は既定値をそのまま返す。
func LoadCapabilities(cfg *Config) (*Capabilities, error) {
	caps := DefaultCapabilities(cfg)
	if cfg.CapabilitiesFile == "" {
		return caps, nil
	}

	data, err := os.ReadFile(cfg.CapabilitiesFile)
	if err != nil {
		return nil, fmt.Errorf("reading capabilities file: %w", err)
	}
	if err := yaml.Unmarshal(data, caps); err != nil {
		return nil, fmt.Errorf("parsing capabilities file: %w", err)
	}

	for _, c := range caps.Shell.Commands {
		if c.Name == "" || c.Program == "" {
			return nil, fmt.Errorf("parsing capabilities file: shell command requires name and program")
		}
	}
	if caps.FS.Root == "" {
		caps.FS.Root = cfg.DataDir
	}
	return caps, nil
}
