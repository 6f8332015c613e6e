// Package fsplugin は許可されたディレクトリ配下へのファイルアクセスを提供するプラグイン。
package fsplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ollama-chat/config"
	"ollama-chat/internal/app"
	"ollama-chat/internal/domain"
)

// Name はプラグイン名。
const Name = "fs"

// Plugin はファイルシステムプラグイン。
type Plugin struct {
	scope config.FSScope
	root  string
}

// Init はスコープを指定してプラグインを生成する。
func Init(scope config.FSScope) *Plugin {
	return &Plugin{scope: scope}
}

// Name はプラグイン名を返す。
func (p *Plugin) Name() string {
	return Name
}

// Setup はスコープのルートを用意してコマンドを登録する。
func (p *Plugin) Setup(ctx context.Context, c *app.Context) error {
	root := p.scope.Root
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving fs scope: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("creating fs scope: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("resolving fs scope: %w", err)
	}
	p.root = resolved

	commands := map[string]app.CommandFunc{
		"read_text_file":  app.Command(p.readTextFile),
		"write_text_file": app.Command(p.writeTextFile),
		"exists":          app.Command(p.exists),
		"mkdir":           app.Command(p.mkdir),
		"read_dir":        app.Command(p.readDir),
		"remove":          app.Command(p.remove),
	}
	for name, fn := range commands {
		if err := c.RegisterCommand(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Close は何もしない。
func (p *Plugin) Close() error {
	return nil
}

// Resolve はパスをスコープ内の絶対パスに解決する。スコープ外の場合はエラー。
func (p *Plugin) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path is required", domain.ErrInvalidArgs)
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(p.root, full)
	}
	full = filepath.Clean(full)

	if !within(p.root, full) {
		return "", fmt.Errorf("%w: %s", domain.ErrPathOutsideScope, path)
	}

	// スコープ内のシンボリックリンクが外を指していないか実体で確認する
	resolved, err := evalExisting(full)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if !within(p.root, resolved) {
		return "", fmt.Errorf("%w: %s", domain.ErrPathOutsideScope, path)
	}
	return full, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// maxSymlinks はリンク解決の上限。
const maxSymlinks = 40

// evalExisting は存在する最も深い祖先までシンボリックリンクを解決し、残りの要素をつなげて返す。
// 宛先が存在しないリンクもリンク先に置き換える。
func evalExisting(path string) (string, error) {
	var rest []string
	cur := path
	for hops := 0; ; {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		if info, lerr := os.Lstat(cur); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
			if hops++; hops > maxSymlinks {
				return "", fmt.Errorf("too many symbolic links: %s", path)
			}
			target, err := os.Readlink(cur)
			if err != nil {
				return "", err
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(cur), target)
			}
			cur = filepath.Clean(target)
			continue
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Join(append([]string{cur}, rest...)...), nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// PathArgs はパスを受け取るコマンド引数。
type PathArgs struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive,omitempty"`
}

// WriteArgs はファイル書き込みの引数。
type WriteArgs struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
	Append   bool   `json:"append,omitempty"`
}

// DirEntry はディレクトリ一覧の要素。
type DirEntry struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDirectory"`
	IsFile      bool   `json:"isFile"`
	IsSymlink   bool   `json:"isSymlink"`
}

func (p *Plugin) readTextFile(ctx context.Context, a *app.App, args PathArgs) (any, error) {
	path, err := p.Resolve(args.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args.Path, err)
	}
	return string(data), nil
}

func (p *Plugin) writeTextFile(ctx context.Context, a *app.App, args WriteArgs) (any, error) {
	path, err := p.Resolve(args.Path)
	if err != nil {
		return nil, err
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if args.Append {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", args.Path, err)
	}
	if _, err := f.WriteString(args.Contents); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing %s: %w", args.Path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", args.Path, err)
	}
	return nil, nil
}

func (p *Plugin) exists(ctx context.Context, a *app.App, args PathArgs) (any, error) {
	path, err := p.Resolve(args.Path)
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", args.Path, err)
	}
	return true, nil
}

func (p *Plugin) mkdir(ctx context.Context, a *app.App, args PathArgs) (any, error) {
	path, err := p.Resolve(args.Path)
	if err != nil {
		return nil, err
	}
	if args.Recursive {
		err = os.MkdirAll(path, 0o755)
	} else {
		err = os.Mkdir(path, 0o755)
	}
	if err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", args.Path, err)
	}
	return nil, nil
}

func (p *Plugin) readDir(ctx context.Context, a *app.App, args PathArgs) (any, error) {
	path, err := p.Resolve(args.Path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", args.Path, err)
	}

	result := make([]DirEntry, len(entries))
	for i, e := range entries {
		result[i] = DirEntry{
			Name:        e.Name(),
			IsDirectory: e.IsDir(),
			IsFile:      e.Type().IsRegular(),
			IsSymlink:   e.Type()&fs.ModeSymlink != 0,
		}
	}
	return result, nil
}

func (p *Plugin) remove(ctx context.Context, a *app.App, args PathArgs) (any, error) {
	path, err := p.Resolve(args.Path)
	if err != nil {
		return nil, err
	}
	if path == p.root {
		return nil, fmt.Errorf("%w: cannot remove scope root", domain.ErrPathOutsideScope)
	}
	if args.Recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return nil, fmt.Errorf("removing %s: %w", args.Path, err)
	}
	return nil, nil
}
