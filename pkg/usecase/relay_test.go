package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/repository/memory"
	"github.com/venquis/contractchat/pkg/service/workflow"
	"github.com/venquis/contractchat/pkg/usecase"
)

const testUser = types.UserID("user-1")

func setupConversation(t *testing.T, repo interfaces.Repository) *model.Conversation {
	t.Helper()
	conv, err := repo.Conversation().Create(context.Background(), model.NewConversation(testUser))
	gt.NoError(t, err).Required()
	return conv
}

func requestFor(kind types.MessageType, conv *model.Conversation) *model.AnalysisRequest {
	req := &model.AnalysisRequest{
		ConversationID: conv.ID,
		SessionID:      conv.SessionID,
		MessageType:    kind,
	}
	switch kind {
	case types.MessageTypeText:
		req.MessageContent = "Is the non-compete enforceable?"
	case types.MessageTypeFile:
		req.FileName = "employment.pdf"
		req.FileURL = "https://files.example.com/user-1/1.pdf"
	case types.MessageTypeButton:
		req.MessageContent = "Explain termination"
		req.ButtonAction = "explain_termination"
	}
	return req
}

func TestRelay_AllKinds(t *testing.T) {
	const body = `[{"output":"hello","action_buttons":[{"id":"next","label":"Next","variant":"outline"},{"id":"more","label":"More"}]}]`

	testCases := []struct {
		kind     types.MessageType
		expected types.ResponseKind
	}{
		{types.MessageTypeText, types.ResponseKindTextResponse},
		{types.MessageTypeFile, types.ResponseKindFileAnalysis},
		{types.MessageTypeButton, types.ResponseKindButtonResponse},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			repo := memory.New()
			conv := setupConversation(t, repo)
			wf := replyWith(body)
			uc := usecase.NewRelayUseCase(repo, wf, nil)

			result, err := uc.Analyze(context.Background(), testUser, requestFor(tc.kind, conv))
			gt.NoError(t, err).Required()
			gt.Bool(t, result.Success).True()
			gt.Value(t, result.Message).Equal("n8n workflow completed successfully")
			gt.Value(t, wf.calls()).Equal(1)

			msgs, err := repo.Message().List(context.Background(), conv.ID)
			gt.NoError(t, err).Required()
			gt.Array(t, msgs).Length(1).Required()

			msg := msgs[0]
			gt.Value(t, msg.Content).Equal("hello")
			gt.Value(t, msg.SenderKind).Equal(types.SenderKindAssistant)
			gt.Value(t, msg.AgentUsed).Equal(usecase.WorkflowAgent)
			gt.Array(t, msg.ActionButtons).Length(2).Required()
			gt.Value(t, msg.ActionButtons[0].ID).Equal("next")
			gt.Value(t, msg.ActionButtons[0].Variant).Equal(types.ButtonVariantOutline)
			gt.Value(t, msg.Metadata["message_type"]).Equal(any(tc.expected.String()))
			gt.Value(t, msg.Metadata["n8n_processed"]).Equal(any(true))
			gt.Map(t, msg.Metadata).HasKey("processed_at")

			contracts, err := repo.Contract().ListByConversation(context.Background(), conv.ID)
			gt.NoError(t, err).Required()
			if tc.kind == types.MessageTypeFile {
				gt.Array(t, contracts).Length(1)
				gt.Value(t, msg.Metadata["file_processed"]).Equal(any("employment.pdf"))
			} else {
				gt.Array(t, contracts).Length(0)
			}
		})
	}
}

func TestRelay_Enrichment(t *testing.T) {
	repo := memory.New()
	conv := setupConversation(t, repo)
	wf := replyWith(`{"content":"ok"}`)
	uc := usecase.NewRelayUseCase(repo, wf, nil)
	usecase.SetRelayClock(uc, func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	req := &model.AnalysisRequest{
		ConversationID: conv.ID,
		MessageContent: "hi",
		MessageType:    types.MessageTypeText,
	}
	_, err := uc.Analyze(context.Background(), testUser, req)
	gt.NoError(t, err).Required()

	gt.Array(t, wf.payloads).Length(1).Required()
	p := wf.payloads[0]
	gt.Value(t, p.ConversationID).Equal(conv.ID)
	gt.Value(t, p.SessionID).Equal(types.SessionID(conv.ID))
	gt.Value(t, p.UserID).Equal(testUser)
	gt.Value(t, p.Timestamp).Equal("2025-03-01T12:00:00.000Z")
	gt.Value(t, p.FileURL).Nil()
	gt.Value(t, p.FileName).Nil()
	gt.Value(t, p.ButtonAction).Nil()
}

func TestRelay_InfersMessageType(t *testing.T) {
	repo := memory.New()
	conv := setupConversation(t, repo)
	wf := replyWith(`{"content":"ok"}`)
	uc := usecase.NewRelayUseCase(repo, wf, nil)

	_, err := uc.Analyze(context.Background(), testUser, &model.AnalysisRequest{
		ConversationID: conv.ID,
		ButtonAction:   "next",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, wf.payloads[0].MessageType).Equal(types.MessageTypeButton)
}

func TestRelay_ContentPriority(t *testing.T) {
	repo := memory.New()
	conv := setupConversation(t, repo)
	uc := usecase.NewRelayUseCase(repo,
		replyWith(`{"text":"t","message":"m","response":"r","content":"c"}`), nil)

	_, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeText, conv))
	gt.NoError(t, err).Required()

	msgs, err := repo.Message().List(context.Background(), conv.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, msgs[0].Content).Equal("c")
}

func TestRelay_EmptyBody(t *testing.T) {
	repo := memory.New()
	conv := setupConversation(t, repo)
	uc := usecase.NewRelayUseCase(repo, replyWith(""), nil)

	result, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeText, conv))
	gt.NoError(t, err).Required()
	gt.Value(t, result.Analysis).Nil()

	msgs, err := repo.Message().List(context.Background(), conv.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, msgs[0].Content).Equal(workflow.EmptyResponseText)
	gt.Array(t, msgs[0].ActionButtons).Length(0)
}

func TestRelay_ContractFromAnalysis(t *testing.T) {
	t.Run("structured fields", func(t *testing.T) {
		repo := memory.New()
		conv := setupConversation(t, repo)
		uc := usecase.NewRelayUseCase(repo,
			replyWith(`{"content":"Reviewed","analysis":{"full_text":"FULL TEXT","content":"Short overview"}}`), nil)

		result, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeFile, conv))
		gt.NoError(t, err).Required()
		gt.Value(t, result.Analysis).NotNil()

		contracts, err := repo.Contract().ListByConversation(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, contracts).Length(1).Required()
		gt.Value(t, contracts[0].FileName).Equal("employment.pdf")
		gt.Value(t, contracts[0].FullText).Equal("FULL TEXT")
		gt.Value(t, contracts[0].Overview).Equal("Short overview")
	})

	t.Run("overview falls back to reply text", func(t *testing.T) {
		repo := memory.New()
		conv := setupConversation(t, repo)
		uc := usecase.NewRelayUseCase(repo, replyWith(`[{"output":"Plain summary"}]`), nil)

		_, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeFile, conv))
		gt.NoError(t, err).Required()

		contracts, err := repo.Contract().ListByConversation(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, contracts[0].Overview).Equal("Plain summary")
		gt.Value(t, contracts[0].FullText).Equal("")
	})
}

func TestRelay_MemoryFailureIsIsolated(t *testing.T) {
	for _, kind := range []types.MessageType{types.MessageTypeText, types.MessageTypeFile, types.MessageTypeButton} {
		t.Run(string(kind), func(t *testing.T) {
			repo := memory.New()
			conv := setupConversation(t, repo)
			mem := usecase.NewMemoryUseCase(newMockMemory(true))
			uc := usecase.NewRelayUseCase(repo, replyWith(`[{"output":"hello"}]`), mem)

			result, err := uc.Analyze(context.Background(), testUser, requestFor(kind, conv))
			gt.NoError(t, err).Required()
			gt.Bool(t, result.Success).True()
		})
	}
}

func TestRelay_ForwardsToMemory(t *testing.T) {
	repo := memory.New()
	conv := setupConversation(t, repo)
	svc := newMockMemory(false)
	uc := usecase.NewRelayUseCase(repo,
		replyWith(`{"content":"Done","analysis":{"key_findings":["auto renewal","no cap"]}}`),
		usecase.NewMemoryUseCase(svc))

	_, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeFile, conv))
	gt.NoError(t, err).Required()

	msgs := svc.messages(conv.SessionID)
	gt.Array(t, msgs).Length(2).Required()
	gt.Value(t, msgs[0].Role).Equal(types.MemoryRoleAssistant)
	gt.Value(t, msgs[0].Content).Equal("Done")
	gt.Value(t, msgs[0].Metadata["conversation_id"]).Equal(any(conv.ID.String()))
	gt.Value(t, msgs[1].Role).Equal(types.MemoryRoleSystem)
	gt.Value(t, msgs[1].Content).Equal("Contract context stored")
	gt.Value(t, msgs[1].Metadata["file_name"]).Equal(any("employment.pdf"))
	gt.Value(t, msgs[1].Metadata["key_findings"]).Equal(any([]string{"auto renewal", "no cap"}))
}

func TestRelay_Errors(t *testing.T) {
	t.Run("workflow not configured", func(t *testing.T) {
		repo := memory.New()
		conv := setupConversation(t, repo)
		uc := usecase.NewRelayUseCase(repo, nil, nil)

		_, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeText, conv))
		gt.Error(t, err).Is(usecase.ErrWorkflowNotConfigured)
	})

	t.Run("upstream error persists nothing", func(t *testing.T) {
		repo := memory.New()
		conv := setupConversation(t, repo)
		wf := &mockWorkflow{reply: func(*model.WorkflowPayload) ([]byte, error) {
			return nil, goerr.Wrap(interfaces.ErrUpstreamStatus, "boom", goerr.V("status", 502))
		}}
		uc := usecase.NewRelayUseCase(repo, wf, nil)

		_, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeFile, conv))
		gt.Error(t, err).Is(usecase.ErrUpstreamStatus)

		msgs, err := repo.Message().List(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(0)
	})

	t.Run("reply without text", func(t *testing.T) {
		repo := memory.New()
		conv := setupConversation(t, repo)
		uc := usecase.NewRelayUseCase(repo, replyWith(`{"status":"queued"}`), nil)

		_, err := uc.Analyze(context.Background(), testUser, requestFor(types.MessageTypeText, conv))
		gt.Error(t, err).Is(usecase.ErrUpstreamResponse)
	})

	t.Run("missing conversation is a persistence error after the call", func(t *testing.T) {
		repo := memory.New()
		wf := replyWith(`{"content":"ok"}`)
		uc := usecase.NewRelayUseCase(repo, wf, nil)

		_, err := uc.Analyze(context.Background(), testUser, &model.AnalysisRequest{
			ConversationID: types.NewConversationID(),
			MessageContent: "hello",
			MessageType:    types.MessageTypeText,
		})
		gt.Error(t, err).Is(usecase.ErrPersistence)
		gt.Value(t, wf.calls()).Equal(1)
	})

	t.Run("invalid message type", func(t *testing.T) {
		repo := memory.New()
		conv := setupConversation(t, repo)
		wf := replyWith(`{"content":"ok"}`)
		uc := usecase.NewRelayUseCase(repo, wf, nil)

		req := requestFor(types.MessageTypeText, conv)
		req.MessageType = "voice_note"
		_, err := uc.Analyze(context.Background(), testUser, req)
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)
		gt.Value(t, wf.calls()).Equal(0)
	})

	t.Run("conversation of another user", func(t *testing.T) {
		repo := memory.New()
		conv := setupConversation(t, repo)
		wf := replyWith(`{"content":"ok"}`)
		uc := usecase.NewRelayUseCase(repo, wf, nil)

		_, err := uc.Analyze(context.Background(), "intruder", requestFor(types.MessageTypeText, conv))
		gt.Error(t, err).Is(usecase.ErrNotFound)
		gt.Value(t, wf.calls()).Equal(0)
	})
}
