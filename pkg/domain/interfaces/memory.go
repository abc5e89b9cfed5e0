package interfaces

import (
	"context"

	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// MemoryService is the external conversational memory store. Callers in the
// request path must go through usecase.MemoryUseCase, which never fails.
type MemoryService interface {
	// InitializeSession creates the session. An already existing session is not an error.
	InitializeSession(ctx context.Context, sessionID types.SessionID) error

	// AddMessages appends messages to the session log
	AddMessages(ctx context.Context, sessionID types.SessionID, msgs ...model.MemoryMessage) error

	// GetMessages returns up to limit of the most recent messages, oldest first
	GetMessages(ctx context.Context, sessionID types.SessionID, limit int) ([]model.MemoryMessage, error)

	// Search returns up to limit messages relevant to query
	Search(ctx context.Context, sessionID types.SessionID, query string, limit int) ([]model.MemoryMessage, error)
}
