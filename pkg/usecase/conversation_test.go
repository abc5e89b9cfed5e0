package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/repository/memory"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/async"
)

func TestConversation_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := newMockMemory(false)
	uc := usecase.NewConversationUseCase(repo, usecase.NewMemoryUseCase(svc))

	conv, err := uc.Create(ctx, testUser, "  ")
	gt.NoError(t, err).Required()
	gt.Value(t, conv.Title).Equal("")
	gt.Value(t, conv.SessionID).Equal(types.SessionID(conv.ID))

	async.Wait()
	gt.Array(t, svc.sessions).Length(1).Required()
	gt.Value(t, svc.sessions[0]).Equal(conv.SessionID)

	renamed, err := uc.Rename(ctx, testUser, conv.ID, " Employment review ")
	gt.NoError(t, err).Required()
	gt.Value(t, renamed.Title).Equal("Employment review")

	list, err := uc.List(ctx, testUser)
	gt.NoError(t, err).Required()
	gt.Array(t, list).Length(1).Required()
	gt.Value(t, list[0].Title).Equal("Employment review")

	_, err = repo.Message().Create(ctx, &model.Message{
		ConversationID: conv.ID,
		Content:        "hello",
		SenderKind:     types.SenderKindUser,
	})
	gt.NoError(t, err).Required()
	_, err = repo.Contract().Create(ctx, &model.Contract{
		ConversationID: conv.ID,
		FileName:       "a.pdf",
		FileURL:        "https://files.example.com/a.pdf",
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, uc.Delete(ctx, testUser, conv.ID)).Required()

	_, err = uc.Get(ctx, testUser, conv.ID)
	gt.Error(t, err).Is(usecase.ErrNotFound)

	msgs, err := repo.Message().List(ctx, conv.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(0)

	contracts, err := repo.Contract().ListByConversation(ctx, conv.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, contracts).Length(0)
}

func TestConversation_MemoryFailureDoesNotBlockCreate(t *testing.T) {
	uc := usecase.NewConversationUseCase(memory.New(), usecase.NewMemoryUseCase(newMockMemory(true)))

	conv, err := uc.Create(context.Background(), testUser, "")
	async.Wait()
	gt.NoError(t, err).Required()
	gt.Value(t, conv).NotNil()
}

func TestConversation_Ownership(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewConversationUseCase(memory.New(), nil)

	conv, err := uc.Create(ctx, testUser, "mine")
	gt.NoError(t, err).Required()

	_, err = uc.Get(ctx, "intruder", conv.ID)
	gt.Error(t, err).Is(usecase.ErrNotFound)
	gt.Bool(t, usecase.IsNotFound(err)).True()

	_, err = uc.Rename(ctx, "intruder", conv.ID, "theirs")
	gt.Error(t, err).Is(usecase.ErrNotFound)

	gt.Error(t, uc.Delete(ctx, "intruder", conv.ID)).Is(usecase.ErrNotFound)

	others, err := uc.List(ctx, "intruder")
	gt.NoError(t, err).Required()
	gt.Array(t, others).Length(0)

	// still intact for the owner
	got, err := uc.Get(ctx, testUser, conv.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Title).Equal("mine")
}

func TestConversation_InvalidInput(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewConversationUseCase(memory.New(), nil)

	_, err := uc.Get(ctx, testUser, "not-a-uuid")
	gt.Error(t, err).Is(usecase.ErrInvalidRequest)

	conv, err := uc.Create(ctx, testUser, "")
	gt.NoError(t, err).Required()

	_, err = uc.Rename(ctx, testUser, conv.ID, "   ")
	gt.Error(t, err).Is(usecase.ErrInvalidRequest)

	_, err = uc.Create(ctx, "", "")
	gt.Error(t, err).Is(usecase.ErrUnauthenticated)
}

func TestMessage_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	conv := setupConversation(t, repo)
	uc := usecase.NewMessageUseCase(repo)

	first, err := uc.Create(ctx, testUser, usecase.MessageInput{
		ConversationID: conv.ID,
		Content:        "Clicked: Explain termination",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, first.SenderKind).Equal(types.SenderKindUser)

	second, err := uc.Create(ctx, testUser, usecase.MessageInput{
		ConversationID: conv.ID,
		Content:        "Uploaded file: nda.pdf",
		SenderKind:     types.SenderKindFile,
		FileName:       "nda.pdf",
		FileURL:        "https://files.example.com/nda.pdf",
	})
	gt.NoError(t, err).Required()
	gt.Bool(t, second.CreatedAt.After(first.CreatedAt)).True()

	msgs, err := uc.List(ctx, testUser, conv.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(2).Required()
	gt.Value(t, msgs[0].ID).Equal(first.ID)
	gt.Value(t, msgs[1].ID).Equal(second.ID)

	updated, err := repo.Conversation().Get(ctx, conv.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, updated.UpdatedAt.Before(conv.UpdatedAt)).False()
}

func TestMessage_Rejects(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	conv := setupConversation(t, repo)
	uc := usecase.NewMessageUseCase(repo)

	testCases := []struct {
		name  string
		input usecase.MessageInput
	}{
		{"empty content", usecase.MessageInput{ConversationID: conv.ID}},
		{"assistant sender", usecase.MessageInput{ConversationID: conv.ID, Content: "x", SenderKind: types.SenderKindAssistant}},
		{"file without url", usecase.MessageInput{ConversationID: conv.ID, SenderKind: types.SenderKindFile, FileName: "a.pdf"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Create(ctx, testUser, tc.input)
			gt.Error(t, err).Is(usecase.ErrInvalidRequest)
		})
	}

	_, err := uc.Create(ctx, "intruder", usecase.MessageInput{ConversationID: conv.ID, Content: "x"})
	gt.Error(t, err).Is(usecase.ErrNotFound)

	_, err = uc.List(ctx, "intruder", conv.ID)
	gt.Error(t, err).Is(usecase.ErrNotFound)
}
