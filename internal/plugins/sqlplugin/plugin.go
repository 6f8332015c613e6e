// Package sqlplugin はデータベースを開いてマイグレーションを適用するプラグインを提供する。
package sqlplugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"ollama-chat/internal/app"
	"ollama-chat/internal/domain"
	"ollama-chat/internal/repository"
	"ollama-chat/internal/usecase"
)

// Name はプラグイン名。コマンドは plugin:sql|<command> で公開される。
const Name = "sql"

// Opener はデータベースURLから接続を開く関数。
type Opener func(url string) (*gorm.DB, error)

// Builder はSQLプラグインを組み立てる。
type Builder struct {
	opener     Opener
	urls       []string
	migrations map[string][]domain.Migration
}

// NewBuilder は新しいBuilderを生成する。
func NewBuilder(opener Opener) *Builder {
	return &Builder{
		opener:     opener,
		migrations: map[string][]domain.Migration{},
	}
}

// AddMigrations は起動時に開くデータベースと適用するマイグレーションを登録する。
func (b *Builder) AddMigrations(url string, migrations []domain.Migration) *Builder {
	if _, ok := b.migrations[url]; !ok {
		b.urls = append(b.urls, url)
	}
	b.migrations[url] = append(b.migrations[url], migrations...)
	return b
}

// Build はプラグインを生成する。
func (b *Builder) Build() *Plugin {
	migrations := make(map[string][]domain.Migration, len(b.migrations))
	for url, ms := range b.migrations {
		migrations[url] = append([]domain.Migration(nil), ms...)
	}
	return &Plugin{
		opener:     b.opener,
		urls:       append([]string(nil), b.urls...),
		migrations: migrations,
		instances:  &Instances{dbs: map[string]*gorm.DB{}},
	}
}

// Instances はロード済みのデータベース接続をURLごとに保持する。
type Instances struct {
	mu  sync.RWMutex
	dbs map[string]*gorm.DB
}

// Get はロード済みの接続を返す。
func (i *Instances) Get(url string) (*gorm.DB, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	db, ok := i.dbs[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseNotLoaded, url)
	}
	return db, nil
}

func (i *Instances) set(url string, db *gorm.DB) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.dbs[url] = db
}

func (i *Instances) remove(url string) (*gorm.DB, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	db, ok := i.dbs[url]
	delete(i.dbs, url)
	return db, ok
}

// Database はアプリケーションに登録されたSQLプラグインからURLの接続を取得する。
func Database(a *app.App, url string) (*gorm.DB, error) {
	instances, ok := app.ManagedState[*Instances](a)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseNotLoaded, url)
	}
	return instances.Get(url)
}

// Plugin はSQLプラグイン。
type Plugin struct {
	opener     Opener
	urls       []string
	migrations map[string][]domain.Migration
	instances  *Instances
	loadMu     sync.Mutex
}

// Name はプラグイン名を返す。
func (p *Plugin) Name() string {
	return Name
}

// Setup は登録済みのデータベースを開き、未適用のマイグレーションを適用する。
func (p *Plugin) Setup(ctx context.Context, c *app.Context) error {
	for _, url := range p.urls {
		if _, err := p.load(ctx, url); err != nil {
			return err
		}
	}

	c.Manage(p.instances)

	commands := map[string]app.CommandFunc{
		"load":       app.Command(p.loadCommand),
		"migrations": app.Command(p.migrationsCommand),
		"close":      app.Command(p.closeCommand),
	}
	for name, fn := range commands {
		if err := c.RegisterCommand(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// load はデータベースを開いてマイグレーションを適用する。ロード済みならそのまま返す。
func (p *Plugin) load(ctx context.Context, url string) (*gorm.DB, error) {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	if db, err := p.instances.Get(url); err == nil {
		return db, nil
	}

	db, err := p.opener(url)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", url, err)
	}

	if ms := p.migrations[url]; len(ms) > 0 {
		service := usecase.NewMigrationService(repository.NewMigrationRepository(db), db, ms)
		applied, err := service.ApplyMigrations(ctx)
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("migrating %s: %w", url, err)
		}
		slog.InfoContext(ctx, "database ready",
			"db", url,
			"applied_migrations", applied,
		)
	}

	p.instances.set(url, db)
	return db, nil
}

// Close はすべての接続を閉じる。
func (p *Plugin) Close() error {
	p.instances.mu.Lock()
	defer p.instances.mu.Unlock()

	var errs []error
	for url, db := range p.instances.dbs {
		if err := closeDB(db); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", url, err))
		}
		delete(p.instances.dbs, url)
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DBArgs はデータベースURLを指定するコマンド引数。
type DBArgs struct {
	DB string `json:"db"`
}

func (a DBArgs) validate() error {
	if a.DB == "" {
		return fmt.Errorf("%w: db is required", domain.ErrInvalidArgs)
	}
	return nil
}

func (p *Plugin) loadCommand(ctx context.Context, a *app.App, args DBArgs) (any, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	if _, err := p.load(ctx, args.DB); err != nil {
		return nil, err
	}
	return args.DB, nil
}

func (p *Plugin) closeCommand(ctx context.Context, a *app.App, args DBArgs) (any, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	db, ok := p.instances.remove(args.DB)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseNotLoaded, args.DB)
	}
	if err := closeDB(db); err != nil {
		return nil, fmt.Errorf("closing %s: %w", args.DB, err)
	}
	return true, nil
}

// MigrationStatusResponse はマイグレーション状況のレスポンス形式。
type MigrationStatusResponse struct {
	Version     int64  `json:"version"`
	Description string `json:"description"`
	Status      string `json:"status"`
	AppliedAt   string `json:"applied_at,omitempty"`
}

func (p *Plugin) migrationsCommand(ctx context.Context, a *app.App, args DBArgs) (any, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	db, err := p.instances.Get(args.DB)
	if err != nil {
		return nil, err
	}

	service := usecase.NewMigrationService(repository.NewMigrationRepository(db), db, p.migrations[args.DB])
	statuses, err := service.GetMigrationStatus(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]MigrationStatusResponse, len(statuses))
	for i, s := range statuses {
		resp[i] = MigrationStatusResponse{
			Version:     s.Version,
			Description: s.Description,
			Status:      string(s.Status),
		}
		if s.AppliedAt != nil {
			resp[i].AppliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
		}
	}
	return resp, nil
}
