// Package migrations はアプリケーションのスキーママイグレーション定義を提供する。
package migrations

import (
	_ "embed"
	"strings"

	"ollama-chat/internal/domain"
)

//go:embed 000_init.sql
var initSQL string

//go:embed 000_init.mysql.sql
var initMySQLSQL string

// Migrations は適用順に並んだマイグレーション一覧を返す。
// 新しいマイグレーションは末尾に、より大きいバージョンで追加すること。
func Migrations() []domain.Migration {
	return []domain.Migration{
		{
			Version:     1,
			Description: "Initial migration",
			SQL:         initSQL,
			Kind:        domain.MigrationKindUp,
		},
	}
}

// MySQLMigrations は Migrations と同じ版をMySQL方言のSQLで返す。
func MySQLMigrations() []domain.Migration {
	ms := Migrations()
	ms[0].SQL = initMySQLSQL
	return ms
}

// ForURL はデータベースURLの方言に合ったマイグレーション一覧を返す。
func ForURL(url string) []domain.Migration {
	if strings.HasPrefix(url, "mysql://") {
		return MySQLMigrations()
	}
	return Migrations()
}
