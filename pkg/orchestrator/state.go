package orchestrator

import (
	"sync"

	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// autoScrollThreshold is the distance from the bottom, in pixels, within
// which the view keeps following new messages
const autoScrollThreshold = 100

// Flags are the transient UI flags of the active conversation
type Flags struct {
	Typing         bool
	Processing     bool
	Uploading      bool
	UploadProgress int
	AutoScroll     bool
}

// Viewport is the scroll geometry reported by the message view
type Viewport struct {
	ScrollTop    float64
	ClientHeight float64
	ScrollHeight float64
}

// NearBottom reports whether the view is close enough to the end to follow
func (v Viewport) NearBottom() bool {
	return v.ScrollTop+v.ClientHeight >= v.ScrollHeight-autoScrollThreshold
}

// State holds the conversation being shown. All access goes through the
// mutex; readers get copies.
type State struct {
	mu           sync.Mutex
	flags        Flags
	conversation *model.Conversation
	messages     []*model.Message
}

func newState() *State {
	return &State{flags: Flags{AutoScroll: true}}
}

// Flags returns a snapshot of the flags
func (s *State) Flags() Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// Conversation returns the active conversation or nil
func (s *State) Conversation() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation == nil {
		return nil
	}
	conv := *s.conversation
	return &conv
}

// Messages returns a copy of the local message list
func (s *State) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Message, len(s.messages))
	for i, msg := range s.messages {
		out[i] = msg.Clone()
	}
	return out
}

func (s *State) update(fn func(f *Flags)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.flags)
}

// updateFor applies fn only while id is the active conversation. Tasks
// outlive conversation switches and must not touch another thread's flags.
func (s *State) updateFor(id types.ConversationID, fn func(f *Flags)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation == nil || s.conversation.ID != id {
		return
	}
	fn(&s.flags)
}

func (s *State) setConversation(conv *model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv == nil {
		s.conversation = nil
		s.messages = nil
		s.flags = Flags{AutoScroll: true}
		return
	}

	copied := *conv
	if s.conversation == nil || s.conversation.ID != conv.ID {
		s.messages = nil
		s.flags = Flags{}
	}
	s.conversation = &copied
	s.flags.AutoScroll = true
}

func (s *State) appendMessage(msg *model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation == nil || s.conversation.ID != msg.ConversationID {
		return
	}
	s.messages = append(s.messages, msg.Clone())
}

// replaceMessages swaps in a fetched list if conv is still the active one
func (s *State) replaceMessages(conv *model.Conversation, msgs []*model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation == nil || s.conversation.ID != conv.ID {
		return false
	}
	s.messages = msgs
	return true
}
