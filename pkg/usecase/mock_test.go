package usecase_test

import (
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

type mockWorkflow struct {
	mu       sync.Mutex
	payloads []*model.WorkflowPayload
	reply    func(payload *model.WorkflowPayload) ([]byte, error)
}

func (m *mockWorkflow) Send(_ context.Context, payload *model.WorkflowPayload) ([]byte, error) {
	m.mu.Lock()
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()
	return m.reply(payload)
}

func (m *mockWorkflow) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func replyWith(body string) *mockWorkflow {
	return &mockWorkflow{reply: func(*model.WorkflowPayload) ([]byte, error) {
		return []byte(body), nil
	}}
}

type mockMemory struct {
	mu       sync.Mutex
	fail     bool
	sessions []types.SessionID
	added    map[types.SessionID][]model.MemoryMessage
}

var _ interfaces.MemoryService = &mockMemory{}

func newMockMemory(fail bool) *mockMemory {
	return &mockMemory{fail: fail, added: map[types.SessionID][]model.MemoryMessage{}}
}

func (m *mockMemory) InitializeSession(_ context.Context, sessionID types.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return goerr.Wrap(interfaces.ErrMemoryService, "unavailable")
	}
	m.sessions = append(m.sessions, sessionID)
	return nil
}

func (m *mockMemory) AddMessages(_ context.Context, sessionID types.SessionID, msgs ...model.MemoryMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return goerr.Wrap(interfaces.ErrMemoryService, "unavailable")
	}
	m.added[sessionID] = append(m.added[sessionID], msgs...)
	return nil
}

func (m *mockMemory) GetMessages(_ context.Context, sessionID types.SessionID, limit int) ([]model.MemoryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "unavailable")
	}
	msgs := m.added[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *mockMemory) Search(_ context.Context, sessionID types.SessionID, query string, limit int) ([]model.MemoryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "unavailable")
	}
	return nil, nil
}

func (m *mockMemory) messages(sessionID types.SessionID) []model.MemoryMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MemoryMessage(nil), m.added[sessionID]...)
}

type mockStorage struct {
	err   error
	paths []string
	data  map[string][]byte
}

func (m *mockStorage) Upload(_ context.Context, path, _ string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[path] = raw
	m.paths = append(m.paths, path)
	return "https://files.example.com/" + path, nil
}
