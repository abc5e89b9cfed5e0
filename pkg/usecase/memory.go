package usecase

import (
	"context"
	"time"

	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

const (
	DefaultMemoryLimit = 50
	DefaultSearchLimit = 10

	contractContextStoredText = "Contract context stored"
)

// MemoryUseCase is a best-effort sink over the external memory service. No
// method returns an error: failures are logged and reported as false or an
// empty list, which callers must read as "unknown".
type MemoryUseCase struct {
	svc interfaces.MemoryService
}

func NewMemoryUseCase(svc interfaces.MemoryService) *MemoryUseCase {
	return &MemoryUseCase{svc: svc}
}

// Enabled reports whether a memory service is configured
func (uc *MemoryUseCase) Enabled() bool {
	return uc.svc != nil
}

func (uc *MemoryUseCase) InitializeSession(ctx context.Context, sessionID types.SessionID) bool {
	if !uc.ready(ctx, "initialize-session", sessionID) {
		return false
	}
	if err := uc.svc.InitializeSession(ctx, sessionID); err != nil {
		uc.swallow(ctx, err, "initialize-session", sessionID)
		return false
	}
	return true
}

func (uc *MemoryUseCase) AddMemoryMessage(ctx context.Context, sessionID types.SessionID, msg model.MemoryMessage) bool {
	if !uc.ready(ctx, "add-memory", sessionID) {
		return false
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err := uc.svc.AddMessages(ctx, sessionID, msg); err != nil {
		uc.swallow(ctx, err, "add-memory", sessionID)
		return false
	}
	return true
}

// GetMemory returns up to limit recent messages; limit <= 0 means DefaultMemoryLimit
func (uc *MemoryUseCase) GetMemory(ctx context.Context, sessionID types.SessionID, limit int) []model.MemoryMessage {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	if !uc.ready(ctx, "get-memory", sessionID) {
		return []model.MemoryMessage{}
	}
	msgs, err := uc.svc.GetMessages(ctx, sessionID, limit)
	if err != nil {
		uc.swallow(ctx, err, "get-memory", sessionID)
		return []model.MemoryMessage{}
	}
	if msgs == nil {
		msgs = []model.MemoryMessage{}
	}
	return msgs
}

// SearchMemory returns up to limit matches; limit <= 0 means DefaultSearchLimit
func (uc *MemoryUseCase) SearchMemory(ctx context.Context, sessionID types.SessionID, query string, limit int) []model.MemoryMessage {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if !uc.ready(ctx, "search-memory", sessionID) {
		return []model.MemoryMessage{}
	}
	msgs, err := uc.svc.Search(ctx, sessionID, query, limit)
	if err != nil {
		uc.swallow(ctx, err, "search-memory", sessionID)
		return []model.MemoryMessage{}
	}
	if msgs == nil {
		msgs = []model.MemoryMessage{}
	}
	return msgs
}

// StoreContractContext records contract details as a system entry of the log
func (uc *MemoryUseCase) StoreContractContext(ctx context.Context, sessionID types.SessionID, contract model.ContractContext) bool {
	if contract.UploadedAt.IsZero() {
		contract.UploadedAt = time.Now().UTC()
	}
	msg := model.NewMemoryMessage(types.MemoryRoleSystem, contractContextStoredText, contract.AsMetadata())
	return uc.AddMemoryMessage(ctx, sessionID, msg)
}

func (uc *MemoryUseCase) ready(ctx context.Context, action string, sessionID types.SessionID) bool {
	if uc.svc == nil {
		logging.From(ctx).Debug("memory service not configured, skipping",
			"action", action,
			"session_id", sessionID)
		return false
	}
	if sessionID == "" {
		logging.From(ctx).Warn("memory call without session id, skipping", "action", action)
		return false
	}
	return true
}

func (uc *MemoryUseCase) swallow(ctx context.Context, err error, action string, sessionID types.SessionID) {
	logging.From(ctx).Warn("memory service error ignored",
		"action", action,
		"session_id", sessionID,
		"error", err)
}
