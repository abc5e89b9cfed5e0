package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ConversationID identifies a conversation (UUID)
type ConversationID string

// NewConversationID generates a new UUID v4 ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// Validate checks that the ID is a UUID
func (x ConversationID) Validate() error {
	return validateUUID("conversation ID", string(x))
}

func (x ConversationID) String() string {
	return string(x)
}

// SessionID is the key of a conversation in the external memory service.
// New conversations use their own ConversationID as SessionID.
type SessionID string

func (x SessionID) String() string {
	return string(x)
}

// MessageID identifies a message (UUID)
type MessageID string

// NewMessageID generates a new UUID v4 MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func (x MessageID) String() string {
	return string(x)
}

// ContractID identifies a contract record (UUID)
type ContractID string

// NewContractID generates a new UUID v4 ContractID
func NewContractID() ContractID {
	return ContractID(uuid.New().String())
}

// Validate checks that the ID is a UUID
func (x ContractID) Validate() error {
	return validateUUID("contract ID", string(x))
}

func (x ContractID) String() string {
	return string(x)
}

// UserID identifies the owner of conversations
type UserID string

func (x UserID) String() string {
	return string(x)
}

func validateUUID(name, v string) error {
	if v == "" {
		return goerr.New(name + " cannot be empty")
	}
	if _, err := uuid.Parse(v); err != nil {
		return goerr.Wrap(err, name+" must be a UUID", goerr.V("id", v))
	}
	return nil
}
