package domain

import "time"

// MigrationKind はマイグレーションの方向を表す。
type MigrationKind int

const (
	// MigrationKindUp は適用方向のマイグレーション。
	MigrationKindUp MigrationKind = iota
	// MigrationKindDown は巻き戻し方向のマイグレーション。
	MigrationKindDown
)

// String は方向の表示名を返す。
func (k MigrationKind) String() string {
	if k == MigrationKindDown {
		return "down"
	}
	return "up"
}

// Migration はスキーマ変更の単位を表すドメインモデル
type Migration struct {
	Version     int64         // マイグレーションバージョン（昇順で一意）
	Description string        // 表示用の説明
	SQL         string        // 埋め込まれたスキーマ定義SQL
	Kind        MigrationKind // 適用方向
}

// MigrationStatus はマイグレーションの適用状態を表す
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
)

// MigrationRecord はデータベースに記録された適用履歴を表す
type MigrationRecord struct {
	Version       int64
	Description   string
	Success       bool
	Checksum      []byte
	ExecutionTime time.Duration
	AppliedAt     *time.Time // 適用日時（未適用の場合はnil）
	Status        MigrationStatus
}
