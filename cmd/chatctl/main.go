// Package main はCLIツールのエントリポイント。
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ollama-chat/config"
	"ollama-chat/internal/command"
)

const defaultIPCURL = "http://127.0.0.1:1430"

var (
	ipcURL  string
	output  string
	timeout time.Duration
)

// HTTPクライアント
var httpClient *http.Client

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatctl",
		Short: "ollama-chat host CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .envファイルを読み込む（存在しない場合は無視）
			_ = godotenv.Load()

			if ipcURL == "" {
				ipcURL = os.Getenv("CHATCTL_IPC_URL")
			}
			if ipcURL == "" {
				ipcURL = defaultIPCURL
			}
			httpClient = &http.Client{Timeout: timeout}
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&ipcURL, "ipc-url", "", "IPC endpoint URL (or set CHATCTL_IPC_URL)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// サブコマンド登録
	rootCmd.AddCommand(invokeCmd())
	rootCmd.AddCommand(commandsCmd())
	rootCmd.AddCommand(greetCmd())
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chatctl version %s\n", config.Version)
		},
	}
}

// greetCmd は挨拶文をローカルで表示する。
func greetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "greet [name]",
		Short: "Print the greeting for a name",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			fmt.Println(command.Greet(name))
		},
	}
}

// invokeCmd は起動中のホストのコマンドを呼び出す。
func invokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <command> [json-args]",
		Short: "Invoke a command on a running host",
		Example: `  chatctl invoke greet '{"name":"World"}'
  chatctl invoke 'plugin:shell|spawn' '{"name":"ollama-serve"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body io.Reader
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments must be valid JSON")
				}
				body = strings.NewReader(args[1])
			}

			endpoint := fmt.Sprintf("%s/ipc/%s", strings.TrimRight(ipcURL, "/"), url.PathEscape(args[0]))
			resp, err := httpClient.Post(endpoint, "application/json", body)
			if err != nil {
				return fmt.Errorf("IPC request failed: %w", err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}

			switch resp.StatusCode {
			case http.StatusOK:
			case http.StatusNoContent:
				if output == "json" {
					fmt.Println("null")
				}
				return nil
			default:
				return handleErrorResponse(resp.StatusCode, respBody)
			}

			if output == "json" {
				fmt.Println(strings.TrimSpace(string(respBody)))
				return nil
			}

			// 文字列の結果はそのまま、それ以外は整形して表示
			var s string
			if err := json.Unmarshal(respBody, &s); err == nil {
				fmt.Println(s)
				return nil
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Println(strings.TrimSpace(pretty.String()))
			return nil
		},
	}
}

// commandsCmd は起動中のホストに登録されたコマンドを一覧表示する。
func commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List commands registered on a running host",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := httpClient.Get(strings.TrimRight(ipcURL, "/") + "/ipc")
			if err != nil {
				return fmt.Errorf("IPC request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return handleErrorResponse(resp.StatusCode, body)
			}

			if output == "json" {
				fmt.Println(strings.TrimSpace(string(body)))
				return nil
			}

			var result struct {
				Commands []string `json:"commands"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			for _, c := range result.Commands {
				fmt.Println(c)
			}
			return nil
		},
	}
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("Error: %s (%s)", errResp.Message, errResp.Code)
	}
	return fmt.Errorf("Error: server returned status %d", statusCode)
}
