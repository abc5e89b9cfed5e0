package usecase

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

const (
	// ConversationalAgent is recorded as agent_used on canned replies
	ConversationalAgent = "conversational-ai"

	conversationalSuccessMessage = "Conversational AI response generated successfully"
)

// ConversationalRequest asks for a canned reply without calling the workflow engine
type ConversationalRequest struct {
	ConversationID types.ConversationID `json:"conversation_id"`
	MessageContent string               `json:"message_content"`
	ZepSessionID   types.SessionID      `json:"zep_session_id,omitempty"`
}

type ConversationalResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type cannedReply struct {
	text    string
	buttons []model.ActionButton
}

// ConversationalUseCase answers small talk with keyword matched replies
type ConversationalUseCase struct {
	repo   interfaces.Repository
	memory *MemoryUseCase
	now    func() time.Time
}

func NewConversationalUseCase(repo interfaces.Repository, memory *MemoryUseCase) *ConversationalUseCase {
	if memory == nil {
		memory = NewMemoryUseCase(nil)
	}
	return &ConversationalUseCase{repo: repo, memory: memory, now: time.Now}
}

func (uc *ConversationalUseCase) Respond(ctx context.Context, userID types.UserID, req *ConversationalRequest) (*ConversationalResult, error) {
	if req == nil {
		return nil, goerr.Wrap(ErrInvalidRequest, "request body is required")
	}
	if err := req.ConversationID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidRequest, "invalid conversation_id", goerr.V(ConversationIDKey, req.ConversationID))
	}

	conv, err := uc.repo.Conversation().Get(ctx, req.ConversationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V(ConversationIDKey, req.ConversationID))
	}
	if conv.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "conversation belongs to another user",
			goerr.V(ConversationIDKey, req.ConversationID),
			goerr.V(UserIDKey, userID))
	}

	reply := pickReply(req.MessageContent)

	_, err = uc.repo.Message().Create(ctx, &model.Message{
		ConversationID: req.ConversationID,
		Content:        reply.text,
		SenderKind:     types.SenderKindAssistant,
		AgentUsed:      ConversationalAgent,
		ActionButtons:  reply.buttons,
		Metadata: map[string]any{
			"message_type": types.ResponseKindConversational.String(),
			"processed_at": model.Timestamp(uc.now()),
		},
	})
	if err != nil {
		return nil, goerr.Wrap(ErrPersistence, "failed to store conversational reply",
			goerr.V(ConversationIDKey, req.ConversationID),
			goerr.V("cause", err.Error()))
	}

	if req.ZepSessionID != "" {
		uc.memory.AddMemoryMessage(ctx, req.ZepSessionID, model.NewMemoryMessage(
			types.MemoryRoleAssistant, reply.text, map[string]any{
				"message_type":    types.ResponseKindConversational.String(),
				"conversation_id": req.ConversationID.String(),
			}))
	}

	return &ConversationalResult{Success: true, Message: conversationalSuccessMessage}, nil
}

func pickReply(content string) cannedReply {
	lower := strings.ToLower(content)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	hasWord := func(targets ...string) bool {
		for _, w := range words {
			for _, t := range targets {
				if w == t {
					return true
				}
			}
		}
		return false
	}

	switch {
	case hasWord("hello", "hi"):
		return greetingReply
	case hasWord("help") || strings.Contains(lower, "what can you do"):
		return helpReply
	case strings.Contains(lower, "contract") || strings.Contains(lower, "legal") || strings.Contains(lower, "agreement"):
		return contractReply
	default:
		return defaultReply
	}
}

var (
	greetingReply = cannedReply{
		text: `Hello! I am your contract analysis assistant. I can review employment contracts and other legal documents with you.

**I can help with:**
- Contract analysis and risk assessment
- Interpreting clauses and checking compliance
- Negotiation strategy
- Extracting and reviewing key terms

Upload a contract or ask me a question about contract law to get started.`,
		buttons: []model.ActionButton{
			{ID: "upload_contract", Label: "Upload Contract", Variant: types.ButtonVariantDefault},
			{ID: "contract_tips", Label: "Contract Review Tips", Variant: types.ButtonVariantOutline},
		},
	}

	helpReply = cannedReply{
		text: `I specialize in contract analysis and legal document review.

**Contract analysis:** risk and compliance review, clause interpretation, comparison with industry standards, negotiation recommendations.

**Documents I work with:** employment agreements, NDAs, service contracts, consulting agreements.

**Advice:** compliance guidance, negotiation strategy, risk mitigation.

Would you like to upload a contract, or do you have a specific question?`,
		buttons: []model.ActionButton{
			{ID: "upload_contract", Label: "Upload Document", Variant: types.ButtonVariantDefault},
			{ID: "ask_legal_question", Label: "Ask Legal Question", Variant: types.ButtonVariantOutline},
		},
	}

	contractReply = cannedReply{
		text: `Happy to help with your contract question.

Uploading the actual document gives the most accurate analysis. I can also give general guidance on:

- **Contract terms**: what the legal language means
- **Risk factors**: red flags and potential issues
- **Negotiation points**: where you may have leverage
- **Industry standards**: how your contract compares

Which topic would you like to explore, or would you rather upload a document?`,
		buttons: []model.ActionButton{
			{ID: "upload_contract", Label: "Upload for Analysis", Variant: types.ButtonVariantDefault},
			{ID: "general_advice", Label: "General Contract Advice", Variant: types.ButtonVariantOutline},
			{ID: "negotiation_tips", Label: "Negotiation Strategies", Variant: types.ButtonVariantOutline},
		},
	}

	defaultReply = cannedReply{
		text: `Thanks for your message! I focus on contracts and employment agreements, and I am most useful when I can analyze a specific document.

For general questions I can cover:

- Contract review practices
- Common legal terms and clauses
- Risk assessment
- Negotiation approaches

Would you like to upload a contract, or hear about a particular topic?`,
		buttons: []model.ActionButton{
			{ID: "upload_contract", Label: "Upload Contract", Variant: types.ButtonVariantDefault},
			{ID: "general_guidance", Label: "General Guidance", Variant: types.ButtonVariantOutline},
		},
	}
)
