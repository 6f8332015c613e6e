package command

import (
	"context"
	"time"

	"ollama-chat/internal/app"
	"ollama-chat/internal/domain"
	"ollama-chat/internal/plugins/sqlplugin"
	"ollama-chat/internal/repository"
	"ollama-chat/internal/usecase"
)

// ConversationResponse は会話のレスポンス形式。
type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
}

// MessageResponse はメッセージのレスポンス形式。
type MessageResponse struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Message        string  `json:"message"`
	CreatedAt      string  `json:"created_at"`
	AIReplied      bool    `json:"ai_replied"`
	Ctx            *string `json:"ctx"`
}

// CreateConversationArgs は create_conversation の引数。
type CreateConversationArgs struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationIDArgs は会話IDのみを受け取るコマンドの引数。
type ConversationIDArgs struct {
	ConversationID string `json:"conversation_id"`
}

// SendPromptArgs は send_prompt の引数。
type SendPromptArgs struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	AIReplied      bool      `json:"ai_replied"`
	Ctx            *string   `json:"ctx"`
}

// UpdateConversationNameArgs は update_conversation_name の引数。
type UpdateConversationNameArgs struct {
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
}

// ConversationHandlers は dbURL のデータベースを使う会話コマンドを返す。
// データベースは呼び出し時にSQLプラグインから取得する。
func ConversationHandlers(dbURL string) map[string]app.CommandFunc {
	c := &conversations{dbURL: dbURL}
	return map[string]app.CommandFunc{
		"create_conversation":       app.Command(c.create),
		"get_conversations":         app.Command(c.list),
		"get_conversation_messages": app.Command(c.messages),
		"send_prompt":               app.Command(c.sendPrompt),
		"update_conversation_name":  app.Command(c.rename),
		"delete_conversation":       app.Command(c.delete),
	}
}

type conversations struct {
	dbURL string
}

func (c *conversations) service(a *app.App) (*usecase.ConversationService, error) {
	db, err := sqlplugin.Database(a, c.dbURL)
	if err != nil {
		return nil, err
	}
	return usecase.NewConversationService(repository.NewConversationRepository(db)), nil
}

func (c *conversations) create(ctx context.Context, a *app.App, args CreateConversationArgs) (any, error) {
	svc, err := c.service(a)
	if err != nil {
		return nil, err
	}
	conv, err := svc.CreateConversation(ctx, usecase.CreateConversationInput{
		ID:        args.ID,
		Title:     args.Title,
		Model:     args.Model,
		CreatedAt: args.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return toConversationResponse(conv), nil
}

func (c *conversations) list(ctx context.Context, a *app.App, _ struct{}) (any, error) {
	svc, err := c.service(a)
	if err != nil {
		return nil, err
	}
	convs, err := svc.GetConversations(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]ConversationResponse, len(convs))
	for i, conv := range convs {
		res[i] = toConversationResponse(conv)
	}
	return res, nil
}

func (c *conversations) messages(ctx context.Context, a *app.App, args ConversationIDArgs) (any, error) {
	svc, err := c.service(a)
	if err != nil {
		return nil, err
	}
	msgs, err := svc.GetConversationMessages(ctx, args.ConversationID)
	if err != nil {
		return nil, err
	}

	res := make([]MessageResponse, len(msgs))
	for i, m := range msgs {
		res[i] = toMessageResponse(m)
	}
	return res, nil
}

func (c *conversations) sendPrompt(ctx context.Context, a *app.App, args SendPromptArgs) (any, error) {
	svc, err := c.service(a)
	if err != nil {
		return nil, err
	}
	msg, err := svc.SendPrompt(ctx, usecase.SendPromptInput{
		ID:             args.ID,
		ConversationID: args.ConversationID,
		Message:        args.Message,
		CreatedAt:      args.CreatedAt,
		AIReplied:      args.AIReplied,
		Ctx:            args.Ctx,
	})
	if err != nil {
		return nil, err
	}
	return toMessageResponse(msg), nil
}

func (c *conversations) rename(ctx context.Context, a *app.App, args UpdateConversationNameArgs) (any, error) {
	svc, err := c.service(a)
	if err != nil {
		return nil, err
	}
	return nil, svc.UpdateConversationName(ctx, args.ConversationID, args.Name)
}

func (c *conversations) delete(ctx context.Context, a *app.App, args ConversationIDArgs) (any, error) {
	svc, err := c.service(a)
	if err != nil {
		return nil, err
	}
	return nil, svc.DeleteConversation(ctx, args.ConversationID)
}

func toConversationResponse(conv *domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        conv.ID,
		Title:     conv.Title,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt.Format(time.RFC3339),
	}
}

func toMessageResponse(m *domain.ConversationMessage) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Message:        m.Message,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
		AIReplied:      m.AIReplied,
		Ctx:            m.Ctx,
	}
}
