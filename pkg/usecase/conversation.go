package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/utils/async"
)

// ConversationUseCase manages the conversations of the calling user. A
// conversation owned by someone else is reported as ErrNotFound.
type ConversationUseCase struct {
	repo   interfaces.Repository
	memory *MemoryUseCase
}

func NewConversationUseCase(repo interfaces.Repository, memory *MemoryUseCase) *ConversationUseCase {
	if memory == nil {
		memory = NewMemoryUseCase(nil)
	}
	return &ConversationUseCase{repo: repo, memory: memory}
}

// List returns the user's conversations, most recently updated first
func (uc *ConversationUseCase) List(ctx context.Context, userID types.UserID) ([]*model.Conversation, error) {
	convs, err := uc.repo.Conversation().ListByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations", goerr.V(UserIDKey, userID))
	}
	return convs, nil
}

// Create starts an untitled conversation whose memory session is initialized
// in the background
func (uc *ConversationUseCase) Create(ctx context.Context, userID types.UserID, title string) (*model.Conversation, error) {
	if userID == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "conversation owner is required")
	}

	conv := model.NewConversation(userID)
	conv.Title = strings.TrimSpace(title)

	created, err := uc.repo.Conversation().Create(ctx, conv)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create conversation", goerr.V(UserIDKey, userID))
	}

	if uc.memory.Enabled() {
		sessionID := created.SessionID
		async.Dispatch(ctx, func(ctx context.Context) error {
			uc.memory.InitializeSession(ctx, sessionID)
			return nil
		})
	}

	return created, nil
}

// Get returns a conversation owned by userID
func (uc *ConversationUseCase) Get(ctx context.Context, userID types.UserID, id types.ConversationID) (*model.Conversation, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidRequest, "invalid conversation id", goerr.V(ConversationIDKey, id))
	}

	conv, err := uc.repo.Conversation().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V(ConversationIDKey, id))
	}
	if conv.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "conversation belongs to another user",
			goerr.V(ConversationIDKey, id),
			goerr.V(UserIDKey, userID))
	}
	return conv, nil
}

// Rename sets the title of a conversation
func (uc *ConversationUseCase) Rename(ctx context.Context, userID types.UserID, id types.ConversationID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "title is required", goerr.V(ConversationIDKey, id))
	}
	if _, err := uc.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	updated, err := uc.repo.Conversation().UpdateTitle(ctx, id, title)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to rename conversation", goerr.V(ConversationIDKey, id))
	}
	return updated, nil
}

// Delete removes a conversation with its messages and contracts
func (uc *ConversationUseCase) Delete(ctx context.Context, userID types.UserID, id types.ConversationID) error {
	if _, err := uc.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := uc.repo.Conversation().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete conversation", goerr.V(ConversationIDKey, id))
	}
	return nil
}

// IsNotFound reports whether err means the record does not exist for the caller
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
