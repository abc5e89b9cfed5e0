package usecase

import (
	"github.com/venquis/contractchat/pkg/domain/interfaces"
)

type UseCases struct {
	repo     interfaces.Repository
	workflow interfaces.WorkflowClient
	memory   interfaces.MemoryService
	storage  interfaces.FileStorage
	identity *IdentityUseCase

	Identity       *IdentityUseCase
	Memory         *MemoryUseCase
	Relay          *RelayUseCase
	Conversation   *ConversationUseCase
	Message        *MessageUseCase
	Contract       *ContractUseCase
	Upload         *UploadUseCase
	Conversational *ConversationalUseCase
}

type Option func(*UseCases)

// WithWorkflow sets the workflow engine client used by the relay
func WithWorkflow(client interfaces.WorkflowClient) Option {
	return func(uc *UseCases) {
		uc.workflow = client
	}
}

// WithMemoryService enables the external memory log
func WithMemoryService(svc interfaces.MemoryService) Option {
	return func(uc *UseCases) {
		uc.memory = svc
	}
}

// WithFileStorage enables uploads
func WithFileStorage(storage interfaces.FileStorage) Option {
	return func(uc *UseCases) {
		uc.storage = storage
	}
}

// WithIdentity replaces the default identity resolver, which only knows the
// fallback user
func WithIdentity(identity *IdentityUseCase) Option {
	return func(uc *UseCases) {
		uc.identity = identity
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.identity == nil {
		uc.identity = NewIdentityUseCase()
	}

	uc.Identity = uc.identity
	uc.Memory = NewMemoryUseCase(uc.memory)
	uc.Relay = NewRelayUseCase(repo, uc.workflow, uc.Memory)
	uc.Conversation = NewConversationUseCase(repo, uc.Memory)
	uc.Message = NewMessageUseCase(repo)
	uc.Contract = NewContractUseCase(repo)
	uc.Upload = NewUploadUseCase(uc.storage)
	uc.Conversational = NewConversationalUseCase(repo, uc.Memory)

	return uc
}
