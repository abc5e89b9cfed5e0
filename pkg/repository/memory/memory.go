package memory

import (
	"sync"
	"time"

	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// Memory is an in-process repository for development and tests. A single
// lock guards all tables so that cascading deletes are atomic.
type Memory struct {
	mu            sync.RWMutex
	conversations map[types.ConversationID]*model.Conversation
	messages      map[types.ConversationID][]*model.Message
	contracts     map[types.ContractID]*model.Contract
	now           func() time.Time

	conversation *conversationRepository
	message      *messageRepository
	contract     *contractRepository
}

var _ interfaces.Repository = &Memory{}

// Option configures Memory
type Option func(*Memory)

// WithClock replaces time.Now, mainly for ordering tests
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

func New(opts ...Option) *Memory {
	m := &Memory{
		conversations: make(map[types.ConversationID]*model.Conversation),
		messages:      make(map[types.ConversationID][]*model.Message),
		contracts:     make(map[types.ContractID]*model.Contract),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.conversation = &conversationRepository{m: m}
	m.message = &messageRepository{m: m}
	m.contract = &contractRepository{m: m}
	return m
}

func (m *Memory) Conversation() interfaces.ConversationRepository {
	return m.conversation
}

func (m *Memory) Message() interfaces.MessageRepository {
	return m.message
}

func (m *Memory) Contract() interfaces.ContractRepository {
	return m.contract
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) clock() time.Time {
	return m.now().UTC()
}
