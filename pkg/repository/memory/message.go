package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

type messageRepository struct {
	m *Memory
}

func (r *messageRepository) Create(_ context.Context, msg *model.Message) (*model.Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.conversations[msg.ConversationID]; !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found",
			goerr.V("conversation_id", msg.ConversationID))
	}

	created := msg.Clone()
	created.ID = types.NewMessageID()
	created.CreatedAt = r.m.clock()

	// Keep creation times strictly increasing within the conversation
	thread := r.m.messages[msg.ConversationID]
	if n := len(thread); n > 0 {
		if last := thread[n-1].CreatedAt; !created.CreatedAt.After(last) {
			created.CreatedAt = last.Add(time.Microsecond)
		}
	}

	r.m.messages[msg.ConversationID] = append(thread, created)
	return created.Clone(), nil
}

func (r *messageRepository) List(_ context.Context, conversationID types.ConversationID) ([]*model.Message, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	thread := r.m.messages[conversationID]
	result := make([]*model.Message, 0, len(thread))
	for _, msg := range thread {
		result = append(result, msg.Clone())
	}
	return result, nil
}
