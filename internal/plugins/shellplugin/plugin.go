// Package shellplugin は許可リストに登録されたプログラムの実行を提供するプラグイン。
package shellplugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ollama-chat/config"
	"ollama-chat/internal/app"
	"ollama-chat/internal/domain"
)

// Name はプラグイン名。
const Name = "shell"

// Plugin はシェル実行プラグイン。
type Plugin struct {
	scope config.ShellScope

	mu       sync.Mutex
	children map[string]*child
}

type child struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
}

// Init はスコープを指定してプラグインを生成する。
func Init(scope config.ShellScope) *Plugin {
	return &Plugin{
		scope:    scope,
		children: map[string]*child{},
	}
}

// Name はプラグイン名を返す。
func (p *Plugin) Name() string {
	return Name
}

// Setup はコマンドを登録する。
func (p *Plugin) Setup(ctx context.Context, c *app.Context) error {
	commands := map[string]app.CommandFunc{
		"execute": app.Command(p.execute),
		"spawn":   app.Command(p.spawn),
		"kill":    app.Command(p.kill),
	}
	for name, fn := range commands {
		if err := c.RegisterCommand(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Close は実行中の子プロセスをすべて終了させる。
func (p *Plugin) Close() error {
	p.mu.Lock()
	children := make([]*child, 0, len(p.children))
	for _, c := range p.children {
		children = append(children, c)
	}
	p.mu.Unlock()

	var errs []error
	for _, c := range children {
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("killing %s: %w", c.name, err))
			continue
		}
		<-c.done
	}
	return errors.Join(errs...)
}

// Children は実行中の子プロセスIDをソートして返す。
func (p *Plugin) Children() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.children))
	for id := range p.children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CommandArgs は execute / spawn の引数。
type CommandArgs struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// KillArgs は kill の引数。
type KillArgs struct {
	PID string `json:"pid"`
}

// Output は execute の結果。
type Output struct {
	Code   int    `json:"code"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Child は spawn の結果。
type Child struct {
	PID string `json:"pid"`
}

func (p *Plugin) command(ctx context.Context, args CommandArgs) (*exec.Cmd, error) {
	if args.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidArgs)
	}
	allowed, ok := p.scope.Lookup(args.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrShellCommandNotAllowed, args.Name)
	}
	if len(args.Args) > 0 && !allowed.AllowArgs {
		return nil, fmt.Errorf("%w: %s does not accept arguments", domain.ErrShellCommandNotAllowed, args.Name)
	}

	argv := append(append([]string(nil), allowed.Args...), args.Args...)
	cmd := exec.CommandContext(ctx, allowed.Program, argv...)
	cmd.Env = os.Environ()
	for k, v := range allowed.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	return cmd, nil
}

func (p *Plugin) execute(ctx context.Context, a *app.App, args CommandArgs) (any, error) {
	cmd, err := p.command(ctx, args)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("running %s: %w", args.Name, err)
	}

	return &Output{
		Code:   cmd.ProcessState.ExitCode(),
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}, nil
}

func (p *Plugin) spawn(ctx context.Context, a *app.App, args CommandArgs) (any, error) {
	// 子プロセスは呼び出しのコンテキストより長く生きる
	cmd, err := p.command(context.WithoutCancel(ctx), args)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", args.Name, err)
	}

	id := uuid.New().String()
	c := &child{name: args.Name, cmd: cmd, done: make(chan struct{})}

	p.mu.Lock()
	p.children[id] = c
	p.mu.Unlock()

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		delete(p.children, id)
		p.mu.Unlock()
		close(c.done)

		slog.Info("child process exited",
			"name", c.name,
			"pid", id,
			"code", cmd.ProcessState.ExitCode(),
			"error", err,
		)
	}()

	slog.InfoContext(ctx, "child process spawned", "name", args.Name, "pid", id)
	return &Child{PID: id}, nil
}

func (p *Plugin) kill(ctx context.Context, a *app.App, args KillArgs) (any, error) {
	p.mu.Lock()
	c, ok := p.children[args.PID]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrChildNotFound, args.PID)
	}

	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return nil, fmt.Errorf("killing %s: %w", c.name, err)
	}
	<-c.done
	return nil, nil
}
