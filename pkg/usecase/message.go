package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

// MessageInput is a user-authored message. Assistant messages are only
// written by the relay and the conversational responder.
type MessageInput struct {
	ConversationID types.ConversationID `json:"conversation_id"`
	Content        string               `json:"content"`
	SenderKind     types.SenderKind     `json:"sender_type"`
	FileName       string               `json:"file_name,omitempty"`
	FileURL        string               `json:"file_url,omitempty"`
}

type MessageUseCase struct {
	repo          interfaces.Repository
	conversations *ConversationUseCase
}

func NewMessageUseCase(repo interfaces.Repository) *MessageUseCase {
	return &MessageUseCase{
		repo:          repo,
		conversations: NewConversationUseCase(repo, nil),
	}
}

// List returns the thread of a conversation oldest first
func (uc *MessageUseCase) List(ctx context.Context, userID types.UserID, conversationID types.ConversationID) ([]*model.Message, error) {
	if _, err := uc.conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msgs, err := uc.repo.Message().List(ctx, conversationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V(ConversationIDKey, conversationID))
	}
	return msgs, nil
}

// Create persists a user or file message and bumps the conversation
func (uc *MessageUseCase) Create(ctx context.Context, userID types.UserID, input MessageInput) (*model.Message, error) {
	if input.SenderKind == "" {
		input.SenderKind = types.SenderKindUser
	}
	switch input.SenderKind {
	case types.SenderKindUser:
		if input.Content == "" {
			return nil, goerr.Wrap(ErrInvalidRequest, "message content is required")
		}
	case types.SenderKindFile:
		if input.FileName == "" || input.FileURL == "" {
			return nil, goerr.Wrap(ErrInvalidRequest, "file message requires file_name and file_url")
		}
	default:
		return nil, goerr.Wrap(ErrInvalidRequest, "sender_type must be user or file",
			goerr.V("sender_type", input.SenderKind))
	}

	if _, err := uc.conversations.Get(ctx, userID, input.ConversationID); err != nil {
		return nil, err
	}

	msg, err := uc.repo.Message().Create(ctx, &model.Message{
		ConversationID: input.ConversationID,
		Content:        input.Content,
		SenderKind:     input.SenderKind,
		FileName:       input.FileName,
		FileURL:        input.FileURL,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V(ConversationIDKey, input.ConversationID))
	}

	if err := uc.repo.Conversation().Touch(ctx, input.ConversationID); err != nil {
		logging.From(ctx).Warn("failed to bump conversation", "error", err, ConversationIDKey, input.ConversationID)
	}
	return msg, nil
}
