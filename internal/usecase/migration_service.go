// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"bytes"
	"context"
	"crypto/sha512"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"ollama-chat/internal/domain"
	"ollama-chat/internal/repository"
)

// MigrationRepository はマイグレーション履歴を管理するリポジトリのインターフェース。
type MigrationRepository interface {
	EnsureTable(ctx context.Context) error
	FindAllApplied(ctx context.Context) ([]*domain.MigrationRecord, error)
}

// MigrationService はマイグレーション実行のビジネスロジックを提供する。
type MigrationService struct {
	repo       MigrationRepository
	db         *gorm.DB
	migrations []domain.Migration
}

// NewMigrationService は新しいMigrationServiceを生成する。
func NewMigrationService(repo MigrationRepository, db *gorm.DB, migrations []domain.Migration) *MigrationService {
	return &MigrationService{
		repo:       repo,
		db:         db,
		migrations: migrations,
	}
}

// ValidateMigrations は方向ごとにバージョンが一意かつ昇順であることを検証する。
func ValidateMigrations(migrations []domain.Migration) error {
	last := map[domain.MigrationKind]int64{}
	seen := map[domain.MigrationKind]map[int64]bool{
		domain.MigrationKindUp:   {},
		domain.MigrationKindDown: {},
	}

	for _, m := range migrations {
		if _, ok := seen[m.Kind]; !ok {
			return fmt.Errorf("%w: unknown migration kind %d for version %d", domain.ErrInvalidArgs, m.Kind, m.Version)
		}
		if seen[m.Kind][m.Version] {
			return fmt.Errorf("%w: %d", domain.ErrDuplicateMigrationVersion, m.Version)
		}
		if prev, ok := last[m.Kind]; ok && m.Version < prev {
			return fmt.Errorf("%w: %d after %d", domain.ErrMigrationOrder, m.Version, prev)
		}
		seen[m.Kind][m.Version] = true
		last[m.Kind] = m.Version
	}
	return nil
}

// Checksum はマイグレーションSQLのSHA-384チェックサムを返す。
func Checksum(sql string) []byte {
	sum := sha512.Sum384([]byte(sql))
	return sum[:]
}

// upMigrations は適用方向のマイグレーションのみを返す。
func (s *MigrationService) upMigrations() []domain.Migration {
	var ups []domain.Migration
	for _, m := range s.migrations {
		if m.Kind == domain.MigrationKindUp {
			ups = append(ups, m)
		}
	}
	return ups
}

// appliedRecords は履歴テーブルを用意して記録済みの履歴をバージョンで引けるようにする。
func (s *MigrationService) appliedRecords(ctx context.Context) (map[int64]*domain.MigrationRecord, error) {
	if err := s.repo.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure migration table: %w", err)
	}

	records, err := s.repo.FindAllApplied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	appliedMap := make(map[int64]*domain.MigrationRecord, len(records))
	for _, r := range records {
		appliedMap[r.Version] = r
	}
	return appliedMap, nil
}

// ApplyMigrations は未適用マイグレーションをバージョン順に1回ずつ実行する。
func (s *MigrationService) ApplyMigrations(ctx context.Context) (int, error) {
	if err := ValidateMigrations(s.migrations); err != nil {
		slog.ErrorContext(ctx, "invalid migration registry",
			"operation", "apply_migrations",
			"error", err,
		)
		return 0, err
	}

	appliedMap, err := s.appliedRecords(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load migration history",
			"operation", "apply_migrations",
			"error", err,
		)
		return 0, err
	}

	// 未適用マイグレーションをフィルタリング（適用済みは改変・失敗を検出する）
	var pending []domain.Migration
	for _, m := range s.upMigrations() {
		applied, ok := appliedMap[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if !applied.Success {
			return 0, fmt.Errorf("%w: version %d", domain.ErrMigrationDirty, m.Version)
		}
		if !bytes.Equal(applied.Checksum, Checksum(m.SQL)) {
			return 0, fmt.Errorf("%w: version %d", domain.ErrMigrationModified, m.Version)
		}
	}

	appliedCount := 0
	for _, m := range pending {
		if err := s.applyMigration(ctx, m); err != nil {
			slog.ErrorContext(ctx, "failed to apply migration",
				"operation", "apply_migrations",
				"version", m.Version,
				"error", err,
			)
			return appliedCount, fmt.Errorf("%w: version %d: %v", domain.ErrMigrationFailed, m.Version, err)
		}
		slog.InfoContext(ctx, "migration applied",
			"operation", "apply_migrations",
			"version", m.Version,
			"description", m.Description,
		)
		appliedCount++
	}

	return appliedCount, nil
}

// applyMigration は単一のマイグレーションをトランザクション内で実行し履歴を記録する。
func (s *MigrationService) applyMigration(ctx context.Context, m domain.Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		start := time.Now()
		if err := tx.Exec(m.SQL).Error; err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		record := &domain.MigrationRecord{
			Version:       m.Version,
			Description:   m.Description,
			Success:       true,
			Checksum:      Checksum(m.SQL),
			ExecutionTime: time.Since(start),
		}
		if err := repository.RecordMigration(ctx, tx, record); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// GetMigrationStatus は現在のマイグレーション状況を取得する。
func (s *MigrationService) GetMigrationStatus(ctx context.Context) ([]*domain.MigrationRecord, error) {
	appliedMap, err := s.appliedRecords(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load migration history",
			"operation", "get_migration_status",
			"error", err,
		)
		return nil, err
	}

	ups := s.upMigrations()
	statuses := make([]*domain.MigrationRecord, len(ups))
	for i, m := range ups {
		if applied, ok := appliedMap[m.Version]; ok {
			statuses[i] = applied
			continue
		}
		statuses[i] = &domain.MigrationRecord{
			Version:     m.Version,
			Description: m.Description,
			Checksum:    Checksum(m.SQL),
			Status:      domain.MigrationStatusPending,
		}
	}
	return statuses, nil
}
