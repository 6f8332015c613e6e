package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ollama-chat/internal/migrations"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを作成する。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// インメモリDBは接続ごとに別物になるため1接続に固定
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// setupSchema は初期マイグレーションのスキーマを作成する。
func setupSchema(t *testing.T, db *gorm.DB) {
	t.Helper()

	if err := db.Exec(migrations.Migrations()[0].SQL).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}
