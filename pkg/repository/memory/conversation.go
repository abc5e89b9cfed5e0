package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

type conversationRepository struct {
	m *Memory
}

func copyConversation(c *model.Conversation) *model.Conversation {
	copied := *c
	return &copied
}

func (r *conversationRepository) Create(_ context.Context, conv *model.Conversation) (*model.Conversation, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.conversations[conv.ID]; exists {
		return nil, goerr.New("conversation already exists", goerr.V("id", conv.ID))
	}

	created := copyConversation(conv)
	if created.SessionID == "" {
		created.SessionID = types.SessionID(created.ID)
	}
	now := r.m.clock()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.m.conversations[created.ID] = created
	return copyConversation(created), nil
}

func (r *conversationRepository) Get(_ context.Context, id types.ConversationID) (*model.Conversation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	conv, ok := r.m.conversations[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	return copyConversation(conv), nil
}

func (r *conversationRepository) ListByUser(_ context.Context, userID types.UserID) ([]*model.Conversation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.Conversation, 0)
	for _, conv := range r.m.conversations {
		if conv.UserID == userID {
			result = append(result, copyConversation(conv))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (r *conversationRepository) UpdateTitle(_ context.Context, id types.ConversationID, title string) (*model.Conversation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	conv, ok := r.m.conversations[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	conv.Title = title
	conv.UpdatedAt = r.m.clock()
	return copyConversation(conv), nil
}

func (r *conversationRepository) Touch(_ context.Context, id types.ConversationID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	conv, ok := r.m.conversations[id]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	conv.UpdatedAt = r.m.clock()
	return nil
}

func (r *conversationRepository) Delete(_ context.Context, id types.ConversationID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.conversations[id]; !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}

	delete(r.m.conversations, id)
	delete(r.m.messages, id)
	for contractID, c := range r.m.contracts {
		if c.ConversationID == id {
			delete(r.m.contracts, contractID)
		}
	}
	return nil
}
