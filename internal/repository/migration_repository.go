// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"ollama-chat/internal/domain"
)

// createMigrationTableSQL はデスクトップ版のSQLプラグインと同じ履歴テーブルのDDL。
// SQLite と MySQL の両方でそのまま使える。
const createMigrationTableSQL = `CREATE TABLE IF NOT EXISTS _sqlx_migrations (
    version BIGINT PRIMARY KEY,
    description TEXT NOT NULL,
    installed_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    success BOOLEAN NOT NULL,
    checksum BLOB NOT NULL,
    execution_time BIGINT NOT NULL
)`

// SchemaMigrationModel は_sqlx_migrationsテーブルのモデル。
// 既存のデスクトップ版が作成したデータベースと同じ履歴テーブルを使う。
type SchemaMigrationModel struct {
	Version       int64     `gorm:"column:version;primaryKey;autoIncrement:false"`
	Description   string    `gorm:"column:description;not null"`
	InstalledOn   time.Time `gorm:"column:installed_on;not null;autoCreateTime"`
	Success       bool      `gorm:"column:success;not null"`
	Checksum      []byte    `gorm:"column:checksum;not null"`
	ExecutionTime int64     `gorm:"column:execution_time;not null"`
}

// TableName はテーブル名を指定。
func (SchemaMigrationModel) TableName() string {
	return "_sqlx_migrations"
}

func (m *SchemaMigrationModel) toDomain() *domain.MigrationRecord {
	appliedAt := m.InstalledOn
	return &domain.MigrationRecord{
		Version:       m.Version,
		Description:   m.Description,
		Success:       m.Success,
		Checksum:      m.Checksum,
		ExecutionTime: time.Duration(m.ExecutionTime),
		AppliedAt:     &appliedAt,
		Status:        domain.MigrationStatusApplied,
	}
}

// MigrationRepository はマイグレーション履歴を管理するリポジトリ。
type MigrationRepository struct {
	db *gorm.DB
}

// NewMigrationRepository は新しいMigrationRepositoryを生成する。
func NewMigrationRepository(db *gorm.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// EnsureTable は履歴テーブルが存在しなければ作成する。既存のテーブルは変更しない。
func (r *MigrationRepository) EnsureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec(createMigrationTableSQL).Error; err != nil {
		slog.ErrorContext(ctx, "failed to ensure migration table",
			"operation", "ensure_table",
			"error", err,
		)
		return err
	}
	return nil
}

// FindAllApplied は記録済みマイグレーション一覧をバージョン順に取得する。
func (r *MigrationRepository) FindAllApplied(ctx context.Context) ([]*domain.MigrationRecord, error) {
	var models []SchemaMigrationModel
	if err := r.db.WithContext(ctx).Order("version ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find all applied migrations",
			"operation", "find_all_applied",
			"error", err,
		)
		return nil, err
	}

	records := make([]*domain.MigrationRecord, len(models))
	for i := range models {
		records[i] = models[i].toDomain()
	}
	return records, nil
}

// RecordMigration はマイグレーション適用履歴を記録する。
// トランザクション内で呼ぶ場合は tx を渡す。
func RecordMigration(ctx context.Context, tx *gorm.DB, record *domain.MigrationRecord) error {
	model := &SchemaMigrationModel{
		Version:       record.Version,
		Description:   record.Description,
		Success:       record.Success,
		Checksum:      record.Checksum,
		ExecutionTime: int64(record.ExecutionTime),
	}
	if err := tx.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to record migration",
			"operation", "record_migration",
			"version", record.Version,
			"error", err,
		)
		return err
	}
	return nil
}
