package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ollama-chat/internal/domain"
)

// ConversationModel はconversationsテーブルのモデル。
type ConversationModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	Mode      *string   `gorm:"column:mode"`
	Model     string    `gorm:"column:model;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName はテーブル名を返す。
func (ConversationModel) TableName() string {
	return "conversations"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (c *ConversationModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (c *ConversationModel) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
	}
}

// MessageModel はconversation_messagesテーブルのモデル。
type MessageModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	ConversationID string    `gorm:"column:conversation_id;not null"`
	Message        string    `gorm:"column:message;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	AIReplied      bool      `gorm:"column:ai_replied;not null"`
	Ctx            *string   `gorm:"column:ctx"`
}

// TableName はテーブル名を返す。
func (MessageModel) TableName() string {
	return "conversation_messages"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *MessageModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *MessageModel) toDomain() *domain.ConversationMessage {
	return &domain.ConversationMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Message:        m.Message,
		CreatedAt:      m.CreatedAt,
		AIReplied:      m.AIReplied,
		Ctx:            m.Ctx,
	}
}

// ConversationRepository は会話と会話メッセージへのアクセスを提供する。
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository は新しいConversationRepositoryを生成する。
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create は新しい会話を保存する。
func (r *ConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	model := &ConversationModel{
		ID:        conv.ID,
		Title:     conv.Title,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create conversation",
			"operation", "create",
			"conversation_id", conv.ID,
			"error", err,
		)
		return err
	}
	conv.ID = model.ID
	conv.CreatedAt = model.CreatedAt
	return nil
}

// FindAll は全会話を作成日時順に取得する。
func (r *ConversationRepository) FindAll(ctx context.Context) ([]*domain.Conversation, error) {
	var models []ConversationModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find conversations",
			"operation", "find_all",
			"error", err,
		)
		return nil, err
	}

	convs := make([]*domain.Conversation, len(models))
	for i := range models {
		convs[i] = models[i].toDomain()
	}
	return convs, nil
}

// FindByID は指定されたIDの会話を取得する。存在しない場合は nil を返す。
func (r *ConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var model ConversationModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find conversation",
			"operation", "find_by_id",
			"conversation_id", id,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// UpdateTitle は会話のタイトルを更新し、更新件数を返す。
func (r *ConversationRepository) UpdateTitle(ctx context.Context, id, title string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ConversationModel{}).
		Where("id = ?", id).
		Update("title", title)
	if result.Error != nil {
		slog.ErrorContext(ctx, "failed to update conversation title",
			"operation", "update_title",
			"conversation_id", id,
			"error", result.Error,
		)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete は会話とそのメッセージを1トランザクションで削除し、削除した会話の件数を返す。
func (r *ConversationRepository) Delete(ctx context.Context, id string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&MessageModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&ConversationModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete conversation",
			"operation", "delete",
			"conversation_id", id,
			"error", err,
		)
		return 0, err
	}
	return deleted, nil
}

// CreateMessage は会話メッセージを保存する。
func (r *ConversationRepository) CreateMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	model := &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Message:        msg.Message,
		CreatedAt:      msg.CreatedAt,
		AIReplied:      msg.AIReplied,
		Ctx:            msg.Ctx,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create message",
			"operation", "create_message",
			"conversation_id", msg.ConversationID,
			"error", err,
		)
		return err
	}
	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	return nil
}

// FindMessagesByConversationID は会話のメッセージを作成日時順に取得する。
func (r *ConversationRepository) FindMessagesByConversationID(ctx context.Context, conversationID string) ([]*domain.ConversationMessage, error) {
	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find messages",
			"operation", "find_messages_by_conversation_id",
			"conversation_id", conversationID,
			"error", err,
		)
		return nil, err
	}

	msgs := make([]*domain.ConversationMessage, len(models))
	for i := range models {
		msgs[i] = models[i].toDomain()
	}
	return msgs, nil
}
