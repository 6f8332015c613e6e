// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// Conversation は会話のメタデータを表す。
type Conversation struct {
	ID        string
	Title     string
	Model     string
	CreatedAt time.Time
}

// ConversationMessage は会話内の1メッセージ（ユーザーまたはAI）を表す。
type ConversationMessage struct {
	ID             string
	ConversationID string
	Message        string
	CreatedAt      time.Time
	AIReplied      bool
	Ctx            *string // モデルのコンテキスト（JSON文字列、任意）
}
