package repository

import (
	"context"
	"testing"
	"time"

	"ollama-chat/internal/domain"
)

func TestConversationRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	setupSchema(t, db)
	repo := NewConversationRepository(db)

	// 正常系: IDが自動生成される
	conv := &domain.Conversation{
		Title:     "New chat",
		Model:     "llama3",
		CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if conv.ID == "" {
		t.Error("expected ID to be generated, got empty")
	}

	found, err := repo.FindByID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected conversation, got nil")
	}
	if found.Title != "New chat" || found.Model != "llama3" {
		t.Errorf("unexpected conversation: %+v", found)
	}

	// 存在しない場合
	missing, err := repo.FindByID(ctx, "missing")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}
}

func TestConversationRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	setupSchema(t, db)
	repo := NewConversationRepository(db)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"conv-2", "conv-1"} {
		conv := &domain.Conversation{
			ID:        id,
			Title:     id,
			Model:     "llama3",
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		}
		if err := repo.Create(ctx, conv); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	convs, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != "conv-1" || convs[1].ID != "conv-2" {
		t.Errorf("expected order [conv-1 conv-2], got [%s %s]", convs[0].ID, convs[1].ID)
	}
}

func TestConversationRepository_UpdateTitle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	setupSchema(t, db)
	repo := NewConversationRepository(db)

	conv := &domain.Conversation{ID: "conv-1", Title: "old", Model: "llama3", CreatedAt: time.Now()}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := repo.UpdateTitle(ctx, "conv-1", "new")
	if err != nil {
		t.Fatalf("UpdateTitle failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row affected, got %d", n)
	}

	found, _ := repo.FindByID(ctx, "conv-1")
	if found.Title != "new" {
		t.Errorf("expected title new, got %s", found.Title)
	}

	n, err = repo.UpdateTitle(ctx, "missing", "new")
	if err != nil {
		t.Fatalf("UpdateTitle failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows affected, got %d", n)
	}
}

func TestConversationRepository_Messages(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	setupSchema(t, db)
	repo := NewConversationRepository(db)

	conv := &domain.Conversation{ID: "conv-1", Title: "chat", Model: "llama3", CreatedAt: time.Now()}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	modelCtx := "[1,2,3]"
	msgs := []*domain.ConversationMessage{
		{ConversationID: "conv-1", Message: "hi", CreatedAt: base, AIReplied: false},
		{ConversationID: "conv-1", Message: "hello!", CreatedAt: base.Add(time.Second), AIReplied: true, Ctx: &modelCtx},
	}
	for _, m := range msgs {
		if err := repo.CreateMessage(ctx, m); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
		if m.ID == "" {
			t.Error("expected message ID to be generated")
		}
	}

	found, err := repo.FindMessagesByConversationID(ctx, "conv-1")
	if err != nil {
		t.Fatalf("FindMessagesByConversationID failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(found))
	}
	if found[0].Message != "hi" || found[0].AIReplied {
		t.Errorf("unexpected first message: %+v", found[0])
	}
	if !found[1].AIReplied || found[1].Ctx == nil || *found[1].Ctx != modelCtx {
		t.Errorf("unexpected second message: %+v", found[1])
	}
}

func TestConversationRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	setupSchema(t, db)
	repo := NewConversationRepository(db)

	conv := &domain.Conversation{ID: "conv-1", Title: "chat", Model: "llama3", CreatedAt: time.Now()}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	msg := &domain.ConversationMessage{ConversationID: "conv-1", Message: "hi", CreatedAt: time.Now()}
	if err := repo.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	n, err := repo.Delete(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 conversation deleted, got %d", n)
	}

	// メッセージも削除されていること
	var count int64
	if err := db.Model(&MessageModel{}).Where("conversation_id = ?", "conv-1").Count(&count).Error; err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 messages, got %d", count)
	}

	n, err = repo.Delete(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 conversations deleted, got %d", n)
	}
}
