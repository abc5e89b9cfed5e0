package interfaces

import (
	"context"

	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// Repository is the persistence gateway for conversations, messages and
// contracts. Implementations hold no business logic.
type Repository interface {
	Conversation() ConversationRepository
	Message() MessageRepository
	Contract() ContractRepository

	Close() error
}

// ConversationRepository persists conversations
type ConversationRepository interface {
	// Create stores a new conversation. CreatedAt and UpdatedAt are assigned by the store.
	Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)

	// Get retrieves a conversation by ID
	Get(ctx context.Context, id types.ConversationID) (*model.Conversation, error)

	// ListByUser returns the conversations of userID ordered by UpdatedAt, newest first
	ListByUser(ctx context.Context, userID types.UserID) ([]*model.Conversation, error)

	// UpdateTitle renames a conversation and bumps UpdatedAt
	UpdateTitle(ctx context.Context, id types.ConversationID, title string) (*model.Conversation, error)

	// Touch bumps UpdatedAt
	Touch(ctx context.Context, id types.ConversationID) error

	// Delete removes a conversation together with its messages and contracts
	Delete(ctx context.Context, id types.ConversationID) error
}

// MessageRepository persists messages. Messages are never updated.
type MessageRepository interface {
	// Create stores a message. ID and CreatedAt are assigned by the store;
	// CreatedAt is never earlier than the newest stored message of the
	// same conversation. Returns ErrNotFound when the conversation does not exist.
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)

	// List returns all messages of a conversation ordered by CreatedAt ascending
	List(ctx context.Context, conversationID types.ConversationID) ([]*model.Message, error)
}

// ContractRepository persists contract records
type ContractRepository interface {
	// Create stores a contract. Returns ErrNotFound when the conversation does not exist.
	Create(ctx context.Context, contract *model.Contract) (*model.Contract, error)

	// Get retrieves a contract by ID
	Get(ctx context.Context, id types.ContractID) (*model.Contract, error)

	// ListByConversation returns the contracts of a conversation, newest first
	ListByConversation(ctx context.Context, conversationID types.ConversationID) ([]*model.Contract, error)

	// Delete removes a single contract
	Delete(ctx context.Context, id types.ContractID) error
}
