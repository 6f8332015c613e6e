package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ollama-chat/internal/domain"
)

// ConversationRepository は会話データアクセスのインターフェース。
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	FindAll(ctx context.Context) ([]*domain.Conversation, error)
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	UpdateTitle(ctx context.Context, id, title string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	CreateMessage(ctx context.Context, msg *domain.ConversationMessage) error
	FindMessagesByConversationID(ctx context.Context, conversationID string) ([]*domain.ConversationMessage, error)
}

// CreateConversationInput は会話作成の入力。
type CreateConversationInput struct {
	ID        string
	Title     string
	Model     string
	CreatedAt time.Time
}

// SendPromptInput はメッセージ保存の入力。
type SendPromptInput struct {
	ID             string
	ConversationID string
	Message        string
	CreatedAt      time.Time
	AIReplied      bool
	Ctx            *string
}

// ConversationService は会話履歴に関するビジネスロジックを提供する。
type ConversationService struct {
	repo ConversationRepository
	now  func() time.Time
}

// NewConversationService は新しいConversationServiceを生成する。
func NewConversationService(repo ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo, now: time.Now}
}

// CreateConversation は新しい会話を作成する。
func (s *ConversationService) CreateConversation(ctx context.Context, in CreateConversationInput) (*domain.Conversation, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidArgs)
	}
	if strings.TrimSpace(in.Model) == "" {
		return nil, fmt.Errorf("%w: model is required", domain.ErrInvalidArgs)
	}

	conv := &domain.Conversation{
		ID:        in.ID,
		Title:     in.Title,
		Model:     in.Model,
		CreatedAt: in.CreatedAt,
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

// GetConversations は全会話を取得する。
func (s *ConversationService) GetConversations(ctx context.Context) ([]*domain.Conversation, error) {
	convs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding conversations: %w", err)
	}
	return convs, nil
}

// GetConversationMessages は指定された会話のメッセージを取得する。
func (s *ConversationService) GetConversationMessages(ctx context.Context, conversationID string) ([]*domain.ConversationMessage, error) {
	if err := s.ensureConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	msgs, err := s.repo.FindMessagesByConversationID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("finding messages: %w", err)
	}
	return msgs, nil
}

// SendPrompt は会話にメッセージを追加する。
func (s *ConversationService) SendPrompt(ctx context.Context, in SendPromptInput) (*domain.ConversationMessage, error) {
	if in.Message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidArgs)
	}
	if err := s.ensureConversation(ctx, in.ConversationID); err != nil {
		return nil, err
	}

	msg := &domain.ConversationMessage{
		ID:             in.ID,
		ConversationID: in.ConversationID,
		Message:        in.Message,
		CreatedAt:      in.CreatedAt,
		AIReplied:      in.AIReplied,
		Ctx:            in.Ctx,
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return msg, nil
}

// UpdateConversationName は会話のタイトルを変更する。
func (s *ConversationService) UpdateConversationName(ctx context.Context, conversationID, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidArgs)
	}

	n, err := s.repo.UpdateTitle(ctx, conversationID, name)
	if err != nil {
		return fmt.Errorf("updating title: %w", err)
	}
	if n == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// DeleteConversation は会話とそのメッセージを削除する。
func (s *ConversationService) DeleteConversation(ctx context.Context, conversationID string) error {
	n, err := s.repo.Delete(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (s *ConversationService) ensureConversation(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: conversation_id is required", domain.ErrInvalidArgs)
	}
	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("finding conversation: %w", err)
	}
	if conv == nil {
		return domain.ErrConversationNotFound
	}
	return nil
}
