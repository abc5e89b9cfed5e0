package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// Conversation is a chat thread owned by exactly one user
type Conversation struct {
	ID        types.ConversationID `json:"id"`
	UserID    types.UserID         `json:"user_id"`
	Title     string               `json:"title,omitempty"`
	SessionID types.SessionID      `json:"session_id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewConversation creates an untitled conversation for userID whose memory
// session shares the conversation ID.
func NewConversation(userID types.UserID) *Conversation {
	id := types.NewConversationID()
	return &Conversation{
		ID:        id,
		UserID:    userID,
		SessionID: types.SessionID(id),
	}
}

// TimeGroup returns the sidebar bucket of the conversation at now
func (c *Conversation) TimeGroup(now time.Time) types.TimeGroup {
	return types.ComputeTimeGroup(c.CreatedAt, now)
}

// Validate checks required fields
func (c *Conversation) Validate() error {
	if err := c.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid conversation")
	}
	if c.UserID == "" {
		return goerr.New("conversation owner is required", goerr.V("id", c.ID))
	}
	return nil
}
