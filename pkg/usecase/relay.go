package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/service/workflow"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

const (
	// WorkflowAgent is recorded as agent_used on relayed replies
	WorkflowAgent = "n8n-workflow"

	relaySuccessMessage = "n8n workflow completed successfully"
)

// RelayUseCase forwards analysis requests to the workflow engine and
// persists the normalized reply
type RelayUseCase struct {
	repo     interfaces.Repository
	workflow interfaces.WorkflowClient
	memory   *MemoryUseCase
	now      func() time.Time
}

func NewRelayUseCase(repo interfaces.Repository, wf interfaces.WorkflowClient, memory *MemoryUseCase) *RelayUseCase {
	if memory == nil {
		memory = NewMemoryUseCase(nil)
	}
	return &RelayUseCase{
		repo:     repo,
		workflow: wf,
		memory:   memory,
		now:      time.Now,
	}
}

// Analyze runs one request through the workflow engine. The engine is
// called exactly once; nothing is rolled back when persisting fails.
func (uc *RelayUseCase) Analyze(ctx context.Context, userID types.UserID, req *model.AnalysisRequest) (*model.RelayResult, error) {
	if uc.workflow == nil {
		return nil, goerr.Wrap(ErrWorkflowNotConfigured, "workflow client is not set")
	}

	payload, err := uc.enrich(userID, req)
	if err != nil {
		return nil, err
	}

	logger := logging.From(ctx).With(
		ConversationIDKey, payload.ConversationID,
		SessionIDKey, payload.SessionID,
		"message_type", payload.MessageType,
	)
	ctx = logging.With(ctx, logger)

	// An unknown conversation still reaches the engine and fails on insert
	if conv, err := uc.repo.Conversation().Get(ctx, payload.ConversationID); err == nil && conv.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "conversation belongs to another user",
			goerr.V(ConversationIDKey, payload.ConversationID),
			goerr.V(UserIDKey, userID))
	}

	body, err := uc.workflow.Send(ctx, payload)
	if err != nil {
		return nil, goerr.Wrap(err, "workflow call failed", goerr.V(ConversationIDKey, payload.ConversationID))
	}

	result, err := workflow.Normalize(body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to normalize workflow reply", goerr.V(ConversationIDKey, payload.ConversationID))
	}

	var contract *model.Contract
	if req.IsFileUpload() {
		overview := result.StructuredString("content")
		if overview == "" {
			overview = result.Text
		}
		contract, err = uc.repo.Contract().Create(ctx, &model.Contract{
			ConversationID: payload.ConversationID,
			FileName:       req.FileName,
			FileURL:        req.FileURL,
			FullText:       result.StructuredString("full_text"),
			Overview:       overview,
		})
		if err != nil {
			return nil, goerr.Wrap(ErrPersistence, "failed to store contract",
				goerr.V(ConversationIDKey, payload.ConversationID),
				goerr.V("file_name", req.FileName),
				goerr.V("cause", err.Error()))
		}
	}

	kind := req.ResponseKind()
	metadata := map[string]any{
		"message_type":  kind.String(),
		"n8n_processed": true,
		"processed_at":  model.Timestamp(uc.now()),
	}
	if result.Structured != nil {
		metadata["analysis_result"] = result.Structured
	}
	if req.FileName != "" {
		metadata["file_processed"] = req.FileName
	}

	msg, err := uc.repo.Message().Create(ctx, &model.Message{
		ConversationID: payload.ConversationID,
		Content:        result.Text,
		SenderKind:     types.SenderKindAssistant,
		AgentUsed:      WorkflowAgent,
		ActionButtons:  result.Actions,
		Metadata:       metadata,
	})
	if err != nil {
		return nil, goerr.Wrap(ErrPersistence, "failed to store assistant message",
			goerr.V(ConversationIDKey, payload.ConversationID),
			goerr.V("cause", err.Error()))
	}

	if err := uc.repo.Conversation().Touch(ctx, payload.ConversationID); err != nil {
		logger.Warn("failed to bump conversation", "error", err)
	}

	uc.remember(ctx, payload.SessionID, msg, kind, contract, result)

	logger.Info("analysis relayed", "message_id", msg.ID, "actions", len(result.Actions))

	return &model.RelayResult{
		Success:  true,
		Analysis: result.Structured,
		Message:  relaySuccessMessage,
	}, nil
}

func (uc *RelayUseCase) enrich(userID types.UserID, req *model.AnalysisRequest) (*model.WorkflowPayload, error) {
	if req == nil {
		return nil, goerr.Wrap(ErrInvalidRequest, "request body is required")
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = types.NewConversationID()
	} else if err := conversationID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidRequest, "invalid conversation_id", goerr.V(ConversationIDKey, conversationID))
	}

	messageType := req.MessageType
	switch {
	case messageType == "":
		messageType = inferMessageType(req)
	case !messageType.IsValid():
		return nil, goerr.Wrap(ErrInvalidRequest, "unknown message_type", goerr.V("message_type", messageType))
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = types.SessionID(conversationID)
	}

	return &model.WorkflowPayload{
		ConversationID: conversationID,
		SessionID:      sessionID,
		MessageContent: req.MessageContent,
		MessageType:    messageType,
		FileURL:        optional(req.FileURL),
		FileName:       optional(req.FileName),
		ButtonAction:   optional(req.ButtonAction),
		UserID:         userID,
		Timestamp:      model.Timestamp(uc.now()),
	}, nil
}

func (uc *RelayUseCase) remember(ctx context.Context, sessionID types.SessionID, msg *model.Message, kind types.ResponseKind, contract *model.Contract, result *model.AnalysisResult) {
	added := uc.memory.AddMemoryMessage(ctx, sessionID, model.NewMemoryMessage(
		types.MemoryRoleAssistant, msg.Content, map[string]any{
			"message_type":    kind.String(),
			"conversation_id": msg.ConversationID.String(),
		}))

	if contract != nil {
		uc.memory.StoreContractContext(ctx, sessionID, model.ContractContext{
			ContractID:      contract.ID,
			FileName:        contract.FileName,
			FileURL:         contract.FileURL,
			ExtractedTerms:  structuredField(result, "extracted_terms"),
			AnalysisSummary: contract.Overview,
			KeyFindings:     structuredStrings(result, "key_findings"),
			UploadedAt:      contract.CreatedAt,
		})
	}

	logging.From(ctx).Debug("memory forwarded", "added", added)
}

func inferMessageType(req *model.AnalysisRequest) types.MessageType {
	switch {
	case req.FileName != "" || req.FileURL != "":
		return types.MessageTypeFile
	case req.ButtonAction != "":
		return types.MessageTypeButton
	default:
		return types.MessageTypeText
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func structuredField(result *model.AnalysisResult, key string) any {
	obj, ok := result.Structured.(map[string]any)
	if !ok {
		return nil
	}
	return obj[key]
}

func structuredStrings(result *model.AnalysisResult, key string) []string {
	items, ok := structuredField(result, key).([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
