package orchestrator

import (
	"slices"
	"sync"

	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// ConversationList is the sidebar: conversations most recently updated first
// and the one currently selected
type ConversationList struct {
	mu      sync.Mutex
	items   []*model.Conversation
	current *model.Conversation
}

func NewConversationList(items []*model.Conversation) *ConversationList {
	return &ConversationList{items: slices.Clone(items)}
}

func (l *ConversationList) Items() []*model.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

func (l *ConversationList) Current() *model.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Reset replaces the list, keeping the selection if it is still present
func (l *ConversationList) Reset(items []*model.Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
	if l.current != nil {
		l.current = l.find(l.current.ID)
	}
}

// Add puts a new conversation on top and selects it
func (l *ConversationList) Add(conv *model.Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]*model.Conversation{conv}, l.items...)
	l.current = conv
}

// Rename updates the title; it reports whether the conversation was found
func (l *ConversationList) Rename(id types.ConversationID, title string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index(id)
	if idx < 0 {
		return false
	}
	renamed := *l.items[idx]
	renamed.Title = title
	l.items[idx] = &renamed
	if l.current != nil && l.current.ID == id {
		l.current = &renamed
	}
	return true
}

// Remove drops a conversation. When it was selected, the first remaining one
// is promoted, or nothing if the list is empty. The new selection is returned.
func (l *ConversationList) Remove(id types.ConversationID) *model.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index(id)
	if idx < 0 {
		return l.current
	}
	l.items = slices.Delete(l.items, idx, idx+1)

	if l.current != nil && l.current.ID == id {
		l.current = nil
		if len(l.items) > 0 {
			l.current = l.items[0]
		}
	}
	return l.current
}

// Select makes id the current conversation
func (l *ConversationList) Select(id types.ConversationID) (*model.Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	conv := l.find(id)
	if conv == nil {
		return nil, false
	}
	l.current = conv
	return conv, true
}

func (l *ConversationList) index(id types.ConversationID) int {
	return slices.IndexFunc(l.items, func(c *model.Conversation) bool {
		return c.ID == id
	})
}

func (l *ConversationList) find(id types.ConversationID) *model.Conversation {
	if idx := l.index(id); idx >= 0 {
		return l.items[idx]
	}
	return nil
}
