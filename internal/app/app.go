// Package app はプラグインとコマンドを束ねてイベントループを駆動するアプリケーションシェルを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"ollama-chat/internal/domain"
)

// State はアプリケーションのライフサイクル状態を表す。
type State int32

const (
	// StateInitializing はプラグインとコマンドを登録中の状態。
	StateInitializing State = iota
	// StateRunning はイベントループが動作中の状態。
	StateRunning
	// StateExited は正常終了または起動失敗後の終端状態。
	StateExited
)

// String は状態の表示名を返す。
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EventLoop はプラグインのセットアップ後にアプリケーションを駆動する。
// Run は終了するまでブロックする。
type EventLoop interface {
	Run(ctx context.Context, a *App) error
}

// EventLoopFunc は関数をEventLoopとして扱うためのアダプタ。
type EventLoopFunc func(ctx context.Context, a *App) error

// Run は f(ctx, a) を呼ぶ。
func (f EventLoopFunc) Run(ctx context.Context, a *App) error {
	return f(ctx, a)
}

// waitLoop はコンテキストが終了するまで待つだけの既定のイベントループ。
var waitLoop = EventLoopFunc(func(ctx context.Context, a *App) error {
	<-ctx.Done()
	return nil
})

// Builder はアプリケーションを組み立てる。
type Builder struct {
	plugins  []Plugin
	commands map[string]CommandFunc
	loop     EventLoop
	onState  []func(State)
	errs     []error
}

// NewBuilder は既定設定のBuilderを生成する。
func NewBuilder() *Builder {
	return &Builder{
		commands: map[string]CommandFunc{},
		loop:     waitLoop,
	}
}

// Plugin はプラグインを登録する。セットアップは登録順に行われる。
func (b *Builder) Plugin(p Plugin) *Builder {
	if p == nil {
		b.errs = append(b.errs, errors.New("app: plugin is nil"))
		return b
	}
	for _, existing := range b.plugins {
		if existing.Name() == p.Name() {
			b.errs = append(b.errs, fmt.Errorf("app: plugin %s already registered", p.Name()))
			return b
		}
	}
	b.plugins = append(b.plugins, p)
	return b
}

// InvokeHandler はアプリケーションのコマンドを登録する。
func (b *Builder) InvokeHandler(name string, fn CommandFunc) *Builder {
	if name == "" || fn == nil {
		b.errs = append(b.errs, errors.New("app: command name and handler are required"))
		return b
	}
	if _, exists := b.commands[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %s", domain.ErrDuplicateCommand, name))
		return b
	}
	b.commands[name] = fn
	return b
}

// InvokeHandlers は複数のコマンドを名前順に登録する。
func (b *Builder) InvokeHandlers(handlers map[string]CommandFunc) *Builder {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.InvokeHandler(name, handlers[name])
	}
	return b
}

// EventLoop はイベントループを差し替える。
func (b *Builder) EventLoop(loop EventLoop) *Builder {
	if loop != nil {
		b.loop = loop
	}
	return b
}

// OnStateChange は状態遷移のたびに呼ばれるコールバックを登録する。
func (b *Builder) OnStateChange(fn func(State)) *Builder {
	if fn != nil {
		b.onState = append(b.onState, fn)
	}
	return b
}

// Build は登録内容を検証してアプリケーションを生成する。
func (b *Builder) Build() (*App, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	commands := make(map[string]CommandFunc, len(b.commands))
	for name, fn := range b.commands {
		commands[name] = fn
	}

	return &App{
		plugins:  append([]Plugin(nil), b.plugins...),
		commands: commands,
		managed:  map[reflect.Type]any{},
		loop:     b.loop,
		onState:  append(([]func(State))(nil), b.onState...),
	}, nil
}

// Run はアプリケーションを生成して実行する。
func (b *Builder) Run(ctx context.Context) error {
	a, err := b.Build()
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// App はプラグイン、コマンド、共有状態を保持するアプリケーション。
type App struct {
	mu       sync.RWMutex
	plugins  []Plugin
	commands map[string]CommandFunc
	managed  map[reflect.Type]any
	loop     EventLoop
	onState  []func(State)
	state    atomic.Int32
	started  atomic.Bool
}

// State は現在の状態を返す。
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	a.state.Store(int32(s))
	for _, fn := range a.onState {
		fn(s)
	}
}

// Commands は登録済みコマンド名を名前順で返す。
func (a *App) Commands() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *App) registerCommand(name string, fn CommandFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.commands[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCommand, name)
	}
	a.commands[name] = fn
	return nil
}

// Invoke は名前で指定されたコマンドを実行する。
func (a *App) Invoke(ctx context.Context, name string, args []byte) (any, error) {
	a.mu.RLock()
	fn, ok := a.commands[name]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCommandNotFound, name)
	}
	return fn(ctx, a, args)
}

// Run はプラグインを登録順にセットアップし、イベントループを終了まで実行する。
// セットアップに失敗した場合はイベントループを開始せずにエラーを返す。
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return domain.ErrAlreadyRunning
	}

	var ready []Plugin
	for _, p := range a.plugins {
		slog.DebugContext(ctx, "setting up plugin", "plugin", p.Name())
		if err := p.Setup(ctx, &Context{app: a, plugin: p.Name()}); err != nil {
			slog.ErrorContext(ctx, "failed to set up plugin",
				"operation", "run",
				"plugin", p.Name(),
				"error", err,
			)
			closeErr := closePlugins(ctx, ready)
			a.setState(StateExited)
			return errors.Join(fmt.Errorf("%w: %s: %w", domain.ErrPluginSetup, p.Name(), err), closeErr)
		}
		ready = append(ready, p)
	}

	a.setState(StateRunning)
	slog.InfoContext(ctx, "application running",
		"plugins", len(ready),
		"commands", len(a.Commands()),
	)

	loopErr := a.loop.Run(ctx, a)
	closeErr := closePlugins(ctx, ready)
	a.setState(StateExited)
	slog.InfoContext(ctx, "application exited")

	return errors.Join(loopErr, closeErr)
}

// closePlugins はプラグインを登録と逆順に閉じる。
func closePlugins(ctx context.Context, plugins []Plugin) error {
	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		if err := plugins[i].Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close plugin",
				"operation", "close",
				"plugin", plugins[i].Name(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("closing plugin %s: %w", plugins[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
