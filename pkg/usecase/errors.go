package usecase

import (
	"errors"

	"github.com/venquis/contractchat/pkg/domain/interfaces"
)

// Sentinel errors for use case layer
var (
	// Gateway errors
	ErrNotFound              = interfaces.ErrNotFound
	ErrWorkflowNotConfigured = interfaces.ErrWorkflowNotConfigured
	ErrUpstreamStatus        = interfaces.ErrUpstreamStatus
	ErrUpstreamResponse      = interfaces.ErrUpstreamResponse
	ErrStorage               = interfaces.ErrStorage
	ErrMemoryService         = interfaces.ErrMemoryService

	// Relay and API errors
	ErrPersistence     = errors.New("failed to persist analysis result")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Context keys for error values
const (
	ConversationIDKey = "conversation_id"
	SessionIDKey      = "session_id"
	UserIDKey         = "user_id"
)
